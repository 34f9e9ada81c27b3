package store

// tree is the unexported, single-threaded tree algorithm: ordered children
// at every level, DFS find/remove, and a move that clamps its target index
// and refuses to create a cycle. Store wraps it with locking, persistence,
// and an event stream; tree itself knows nothing about any of that.
type tree struct {
	version           int
	root              []SessionNode
	credentialPresets []CredentialPreset
}

func newTree() *tree {
	return &tree{
		version:           CurrentVersion,
		root:              []SessionNode{},
		credentialPresets: []CredentialPreset{},
	}
}

// addNode appends node to root if parentID is "", else into the matching
// group's children. A parentID that resolves to nothing is a silent no-op,
// matching the Rust original.
func (t *tree) addNode(node SessionNode, parentID string) {
	if parentID == "" {
		t.root = append(t.root, node)
		return
	}
	addNodeRecursive(t.root, node, parentID)
}

func addNodeRecursive(nodes []SessionNode, node SessionNode, parentID string) bool {
	for _, n := range nodes {
		g, ok := n.(*SessionGroup)
		if !ok {
			continue
		}
		if g.ID == parentID {
			g.Children = append(g.Children, node)
			return true
		}
		if addNodeRecursive(g.Children, node, parentID) {
			return true
		}
	}
	return false
}

// removeNode removes the first node matching id anywhere in the tree.
func (t *tree) removeNode(id string) bool {
	for i, n := range t.root {
		if n.NodeID() == id {
			t.root = append(t.root[:i], t.root[i+1:]...)
			return true
		}
	}
	return removeNodeRecursive(t.root, id)
}

func removeNodeRecursive(nodes []SessionNode, id string) bool {
	for _, n := range nodes {
		g, ok := n.(*SessionGroup)
		if !ok {
			continue
		}
		for i, c := range g.Children {
			if c.NodeID() == id {
				g.Children = append(g.Children[:i], g.Children[i+1:]...)
				return true
			}
		}
		if removeNodeRecursive(g.Children, id) {
			return true
		}
	}
	return false
}

// findNode returns the node matching id, or nil. The returned value aliases
// the live tree.
func (t *tree) findNode(id string) SessionNode {
	return findNodeRecursive(t.root, id)
}

func findNodeRecursive(nodes []SessionNode, id string) SessionNode {
	for _, n := range nodes {
		if n.NodeID() == id {
			return n
		}
		if g, ok := n.(*SessionGroup); ok {
			if found := findNodeRecursive(g.Children, id); found != nil {
				return found
			}
		}
	}
	return nil
}

// findLocation returns the parent id (empty for root) and index of the node
// matching id.
func (t *tree) findLocation(id string) (parentID string, index int, ok bool) {
	for i, n := range t.root {
		if n.NodeID() == id {
			return "", i, true
		}
	}
	return findLocationRecursive(t.root, id)
}

func findLocationRecursive(nodes []SessionNode, id string) (string, int, bool) {
	for _, n := range nodes {
		g, ok := n.(*SessionGroup)
		if !ok {
			continue
		}
		for i, c := range g.Children {
			if c.NodeID() == id {
				return g.ID, i, true
			}
		}
		if parentID, idx, ok := findLocationRecursive(g.Children, id); ok {
			return parentID, idx, true
		}
	}
	return "", 0, false
}

// isAncestorOf reports whether nodeID appears anywhere among ancestorID's
// descendants. False if ancestorID does not resolve to a group.
func (t *tree) isAncestorOf(ancestorID, nodeID string) bool {
	g, ok := findNodeRecursive(t.root, ancestorID).(*SessionGroup)
	if !ok {
		return false
	}
	return containsNode(g.Children, nodeID)
}

func containsNode(nodes []SessionNode, id string) bool {
	for _, n := range nodes {
		if n.NodeID() == id {
			return true
		}
		if g, ok := n.(*SessionGroup); ok && containsNode(g.Children, id) {
			return true
		}
	}
	return false
}

// moveNode relocates nodeID to index within newParentID's children (root if
// "").  Fails without changing anything if newParentID is nodeID itself or
// one of its descendants (that would create a cycle) or if nodeID can't be
// found. When
// moving within the same parent to a later index, the target index is
// decremented by one to account for the hole the removal leaves behind,
// matching what the caller visually intended.
func (t *tree) moveNode(nodeID, newParentID string, index int) bool {
	if newParentID != "" && (newParentID == nodeID || t.isAncestorOf(nodeID, newParentID)) {
		return false
	}

	currentParentID, currentIndex, ok := t.findLocation(nodeID)
	if !ok {
		return false
	}

	node := t.findNode(nodeID)
	if node == nil {
		return false
	}

	if currentParentID == "" {
		t.root = append(t.root[:currentIndex], t.root[currentIndex+1:]...)
	} else {
		removeFromParent(t.root, currentParentID, currentIndex)
	}

	adjustedIndex := index
	if currentParentID == newParentID && currentIndex < index {
		adjustedIndex--
		if adjustedIndex < 0 {
			adjustedIndex = 0
		}
	}

	if newParentID == "" {
		if adjustedIndex > len(t.root) {
			adjustedIndex = len(t.root)
		}
		if adjustedIndex < 0 {
			adjustedIndex = 0
		}
		t.root = insertAt(t.root, adjustedIndex, node)
		return true
	}

	insertIntoParent(t.root, newParentID, adjustedIndex, node)
	return true
}

func removeFromParent(nodes []SessionNode, parentID string, index int) {
	for _, n := range nodes {
		g, ok := n.(*SessionGroup)
		if !ok {
			continue
		}
		if g.ID == parentID {
			if index >= 0 && index < len(g.Children) {
				g.Children = append(g.Children[:index], g.Children[index+1:]...)
			}
			return
		}
		removeFromParent(g.Children, parentID, index)
	}
}

func insertIntoParent(nodes []SessionNode, parentID string, index int, node SessionNode) bool {
	for _, n := range nodes {
		g, ok := n.(*SessionGroup)
		if !ok {
			continue
		}
		if g.ID == parentID {
			if index > len(g.Children) {
				index = len(g.Children)
			}
			if index < 0 {
				index = 0
			}
			g.Children = insertAt(g.Children, index, node)
			return true
		}
		if insertIntoParent(g.Children, parentID, index, node) {
			return true
		}
	}
	return false
}

func insertAt(nodes []SessionNode, index int, node SessionNode) []SessionNode {
	nodes = append(nodes, nil)
	copy(nodes[index+1:], nodes[index:])
	nodes[index] = node
	return nodes
}

// setGroupExpanded sets the expanded flag on the group matching id.
func (t *tree) setGroupExpanded(id string, expanded bool) bool {
	g, ok := t.findNode(id).(*SessionGroup)
	if !ok {
		return false
	}
	g.Expanded = expanded
	return true
}

// toggleGroupExpanded flips the expanded flag on the group matching id.
func (t *tree) toggleGroupExpanded(id string) bool {
	g, ok := t.findNode(id).(*SessionGroup)
	if !ok {
		return false
	}
	g.Expanded = !g.Expanded
	return true
}

func (t *tree) addCredentialPreset(p CredentialPreset) {
	t.credentialPresets = append(t.credentialPresets, p)
}

func (t *tree) removeCredentialPreset(id string) bool {
	for i, p := range t.credentialPresets {
		if p.ID == id {
			t.credentialPresets = append(t.credentialPresets[:i], t.credentialPresets[i+1:]...)
			return true
		}
	}
	return false
}

func (t *tree) updateCredentialPreset(p CredentialPreset) bool {
	for i, existing := range t.credentialPresets {
		if existing.ID == p.ID {
			t.credentialPresets[i] = p
			return true
		}
	}
	return false
}

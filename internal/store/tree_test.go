package store

import "testing"

func session(id, name string) *SessionConfig {
	return &SessionConfig{ID: id, Name: name, Protocol: &TelnetProtocol{Host: "h", Port: 23}}
}

func group(id, name string, children ...SessionNode) *SessionGroup {
	return &SessionGroup{ID: id, Name: name, Expanded: true, Children: children}
}

func TestAddNodeAppendsToRoot(t *testing.T) {
	tr := newTree()
	tr.addNode(session("s1", "one"), "")
	if len(tr.root) != 1 || tr.root[0].NodeID() != "s1" {
		t.Fatalf("root = %v", tr.root)
	}
}

func TestAddNodeIntoGroup(t *testing.T) {
	tr := newTree()
	g := group("g1", "group")
	tr.addNode(g, "")
	tr.addNode(session("s1", "one"), "g1")

	found, ok := tr.findNode("g1").(*SessionGroup)
	if !ok || len(found.Children) != 1 {
		t.Fatalf("expected one child under g1, got %v", found)
	}
}

func TestAddNodeMissingParentIsNoOp(t *testing.T) {
	tr := newTree()
	tr.addNode(session("s1", "one"), "nonexistent")
	if len(tr.root) != 0 {
		t.Fatalf("expected no-op, root = %v", tr.root)
	}
}

func TestFindNodeNested(t *testing.T) {
	tr := newTree()
	tr.addNode(group("g1", "outer", session("s1", "inner")), "")

	n := tr.findNode("s1")
	if n == nil || n.NodeName() != "inner" {
		t.Fatalf("findNode(s1) = %v", n)
	}
	if tr.findNode("missing") != nil {
		t.Fatalf("expected nil for missing id")
	}
}

func TestRemoveNodeRoot(t *testing.T) {
	tr := newTree()
	tr.addNode(session("s1", "one"), "")
	tr.addNode(session("s2", "two"), "")

	if !tr.removeNode("s1") {
		t.Fatalf("expected removal to succeed")
	}
	if len(tr.root) != 1 || tr.root[0].NodeID() != "s2" {
		t.Fatalf("root after removal = %v", tr.root)
	}
	if tr.removeNode("s1") {
		t.Fatalf("expected second removal to fail")
	}
}

func TestRemoveNodeNested(t *testing.T) {
	tr := newTree()
	tr.addNode(group("g1", "outer", session("s1", "inner")), "")

	if !tr.removeNode("s1") {
		t.Fatalf("expected removal to succeed")
	}
	g := tr.findNode("g1").(*SessionGroup)
	if len(g.Children) != 0 {
		t.Fatalf("expected g1 to be empty, got %v", g.Children)
	}
}

func TestFindLocationRootAndNested(t *testing.T) {
	tr := newTree()
	tr.addNode(session("s1", "one"), "")
	tr.addNode(group("g1", "outer", session("s2", "two")), "")

	parent, idx, ok := tr.findLocation("s1")
	if !ok || parent != "" || idx != 0 {
		t.Fatalf("findLocation(s1) = %q, %d, %v", parent, idx, ok)
	}

	parent, idx, ok = tr.findLocation("s2")
	if !ok || parent != "g1" || idx != 0 {
		t.Fatalf("findLocation(s2) = %q, %d, %v", parent, idx, ok)
	}

	if _, _, ok := tr.findLocation("missing"); ok {
		t.Fatalf("expected not found for missing id")
	}
}

func TestIsAncestorOf(t *testing.T) {
	tr := newTree()
	tr.addNode(group("outer", "Outer", group("inner", "Inner", session("s1", "leaf"))), "")

	if !tr.isAncestorOf("outer", "inner") {
		t.Errorf("expected outer to be an ancestor of inner")
	}
	if !tr.isAncestorOf("outer", "s1") {
		t.Errorf("expected outer to be an ancestor of s1")
	}
	if tr.isAncestorOf("inner", "outer") {
		t.Errorf("did not expect inner to be an ancestor of outer")
	}
	if tr.isAncestorOf("s1", "outer") {
		t.Errorf("a session can never be an ancestor of anything")
	}
}

func TestMoveNodePreventsCycle(t *testing.T) {
	tr := newTree()
	tr.addNode(group("outer", "Outer", group("inner", "Inner")), "")

	if tr.moveNode("outer", "inner", 0) {
		t.Fatalf("expected cycle-creating move to fail")
	}
	outer := tr.findNode("outer").(*SessionGroup)
	if len(outer.Children) != 1 {
		t.Fatalf("expected state to be unchanged after failed move, got %v", outer.Children)
	}
}

func TestMoveNodeWithinParentHoleAdjustment(t *testing.T) {
	tr := newTree()
	tr.addNode(session("a", "A"), "")
	tr.addNode(session("b", "B"), "")
	tr.addNode(session("c", "C"), "")

	if !tr.moveNode("a", "", 2) {
		t.Fatalf("expected move to succeed")
	}

	got := []string{tr.root[0].NodeID(), tr.root[1].NodeID(), tr.root[2].NodeID()}
	want := []string{"b", "a", "c"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("root order = %v, want %v", got, want)
		}
	}
}

func TestMoveNodeAcrossGroups(t *testing.T) {
	tr := newTree()
	tr.addNode(group("g1", "One", session("s1", "leaf")), "")
	tr.addNode(group("g2", "Two"), "")

	if !tr.moveNode("s1", "g2", 0) {
		t.Fatalf("expected move to succeed")
	}

	g1 := tr.findNode("g1").(*SessionGroup)
	g2 := tr.findNode("g2").(*SessionGroup)
	if len(g1.Children) != 0 {
		t.Errorf("expected g1 to be empty, got %v", g1.Children)
	}
	if len(g2.Children) != 1 || g2.Children[0].NodeID() != "s1" {
		t.Errorf("expected s1 under g2, got %v", g2.Children)
	}
}

func TestMoveNodeClampsIndex(t *testing.T) {
	tr := newTree()
	tr.addNode(session("a", "A"), "")
	tr.addNode(session("b", "B"), "")

	if !tr.moveNode("a", "", 100) {
		t.Fatalf("expected move to succeed")
	}
	if tr.root[len(tr.root)-1].NodeID() != "a" {
		t.Fatalf("expected out-of-range index to clamp to the end, got %v", tr.root)
	}
}

func TestMoveNodeMissingFails(t *testing.T) {
	tr := newTree()
	tr.addNode(session("a", "A"), "")

	if tr.moveNode("missing", "", 0) {
		t.Fatalf("expected move of a missing node to fail")
	}
}

func TestToggleAndExpandGroup(t *testing.T) {
	tr := newTree()
	tr.addNode(group("g1", "One"), "")
	tr.addNode(session("a-session-id", "S"), "")

	if !tr.toggleGroupExpanded("g1") {
		t.Fatalf("expected toggle to succeed")
	}
	g := tr.findNode("g1").(*SessionGroup)
	if g.Expanded {
		t.Fatalf("expected expanded to be false after toggle")
	}

	if !tr.setGroupExpanded("g1", true) {
		t.Fatalf("expected setGroupExpanded to succeed")
	}
	if !g.Expanded {
		t.Fatalf("expected expanded to be true after setGroupExpanded")
	}

	if tr.toggleGroupExpanded("missing") {
		t.Fatalf("expected toggle on missing id to fail")
	}
	if tr.toggleGroupExpanded("a-session-id") {
		t.Fatalf("toggling a session (not a group) should fail")
	}
}

func TestCredentialPresetCRUD(t *testing.T) {
	tr := newTree()
	tr.addCredentialPreset(CredentialPreset{ID: "p1", Name: "one", Username: "root", Password: "x"})
	tr.addCredentialPreset(CredentialPreset{ID: "p2", Name: "two"})

	if len(tr.credentialPresets) != 2 {
		t.Fatalf("expected 2 presets, got %d", len(tr.credentialPresets))
	}

	if !tr.updateCredentialPreset(CredentialPreset{ID: "p1", Name: "renamed", Username: "root", Password: "y"}) {
		t.Fatalf("expected update to succeed")
	}
	if tr.credentialPresets[0].Name != "renamed" {
		t.Fatalf("expected preset to be renamed, got %v", tr.credentialPresets[0])
	}

	if !tr.removeCredentialPreset("p2") {
		t.Fatalf("expected removal to succeed")
	}
	if len(tr.credentialPresets) != 1 {
		t.Fatalf("expected 1 preset remaining, got %d", len(tr.credentialPresets))
	}
	if tr.removeCredentialPreset("p2") {
		t.Fatalf("expected second removal to fail")
	}
}

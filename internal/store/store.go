package store

import (
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/wharfterm/wharf/internal/logutil"
)

// Store is the tree from tree.go made safe for concurrent use, with saves
// to disk coalesced: a save superseded by a newer one before it starts
// writing is skipped, and writes never overlap. Every
// exported mutation method locks, mutates the tree, schedules a save, and
// emits an Event to subscribers.
type Store struct {
	mu   sync.Mutex
	tree *tree

	path    string
	dataDir string

	saveMu  sync.Mutex
	saveGen uint64
	writeMu sync.Mutex

	subMu       sync.Mutex
	subscribers map[int]func(Event)
	nextSubID   int
}

// New creates an empty store that will persist to path, with its
// credential key kept in dataDir.
func New(path, dataDir string) *Store {
	return &Store{
		tree:        newTree(),
		path:        path,
		dataDir:     dataDir,
		subscribers: make(map[int]func(Event)),
	}
}

// Load reads path (missing file yields an empty store) and returns a Store
// ready for use. Parse errors propagate to the caller.
func Load(path, dataDir string) (*Store, error) {
	t, err := loadFromFile(path, dataDir)
	if err != nil {
		return nil, err
	}
	return &Store{
		tree:        t,
		path:        path,
		dataDir:     dataDir,
		subscribers: make(map[int]func(Event)),
	}, nil
}

// scheduleSave bumps the save generation and spawns a goroutine that,
// holding writeMu, saves only if it is still the newest request; any earlier
// save that hasn't started writing yet is skipped, coalescing a burst of
// mutations, and the last write always carries the newest snapshot.
func (s *Store) scheduleSave() {
	s.saveMu.Lock()
	s.saveGen++
	gen := s.saveGen
	s.saveMu.Unlock()

	go func() {
		s.mu.Lock()
		snapshotVersion := s.tree.version
		root := cloneNodes(s.tree.root)
		presets := append([]CredentialPreset(nil), s.tree.credentialPresets...)
		s.mu.Unlock()

		s.writeMu.Lock()
		defer s.writeMu.Unlock()

		s.saveMu.Lock()
		current := s.saveGen
		s.saveMu.Unlock()
		if current != gen {
			// A newer mutation has already scheduled its own save; this one
			// is stale and skipped.
			return
		}

		snapshot := &tree{version: snapshotVersion, root: root, credentialPresets: presets}
		if err := saveToFile(snapshot, s.path, s.dataDir); err != nil {
			log.Printf("[store] save failed for %s: %v", logutil.SanitizeForLog(s.path), err)
		}
	}()
}

func newID() string { return uuid.NewString() }

// AddSession creates a new SessionConfig under parentID (root if "") and
// returns it.
func (s *Store) AddSession(name string, tags []string, protocol ProtocolConfig, parentID string) *SessionConfig {
	node := &SessionConfig{ID: newID(), Name: name, Tags: tags, Protocol: protocol}

	s.mu.Lock()
	s.tree.addNode(node, parentID)
	s.mu.Unlock()

	s.scheduleSave()
	s.emit(Event{Kind: SessionAdded, NodeID: node.ID})
	s.emit(Event{Kind: Changed})
	return node
}

// AddGroup creates a new, initially-expanded SessionGroup under parentID
// (root if "") and returns it.
func (s *Store) AddGroup(name string, parentID string) *SessionGroup {
	node := &SessionGroup{ID: newID(), Name: name, Expanded: true, Children: []SessionNode{}}

	s.mu.Lock()
	s.tree.addNode(node, parentID)
	s.mu.Unlock()

	s.scheduleSave()
	s.emit(Event{Kind: Changed})
	return node
}

// RemoveNode removes the node matching id, reporting whether it was found.
func (s *Store) RemoveNode(id string) bool {
	s.mu.Lock()
	ok := s.tree.removeNode(id)
	s.mu.Unlock()

	if !ok {
		return false
	}
	s.scheduleSave()
	s.emit(Event{Kind: SessionRemoved, NodeID: id})
	s.emit(Event{Kind: Changed})
	return true
}

// UpdateSession replaces the name, tags, and protocol of the SessionConfig
// matching id, reporting whether it was found.
func (s *Store) UpdateSession(id, name string, tags []string, protocol ProtocolConfig) bool {
	s.mu.Lock()
	n, ok := s.tree.findNode(id).(*SessionConfig)
	if ok {
		n.Name = name
		n.Tags = tags
		n.Protocol = protocol
	}
	s.mu.Unlock()

	if !ok {
		return false
	}
	s.scheduleSave()
	s.emit(Event{Kind: Changed})
	return true
}

// MoveNode relocates nodeID to index within newParentID's children (root if
// ""), refusing moves that would create a cycle.
func (s *Store) MoveNode(nodeID, newParentID string, index int) bool {
	s.mu.Lock()
	ok := s.tree.moveNode(nodeID, newParentID, index)
	s.mu.Unlock()

	if !ok {
		return false
	}
	s.scheduleSave()
	s.emit(Event{Kind: Changed})
	return true
}

// ToggleGroupExpanded flips the expanded flag on the group matching id.
func (s *Store) ToggleGroupExpanded(id string) bool {
	s.mu.Lock()
	ok := s.tree.toggleGroupExpanded(id)
	s.mu.Unlock()

	if !ok {
		return false
	}
	s.scheduleSave()
	s.emit(Event{Kind: Changed})
	return true
}

// ExpandGroup sets the expanded flag on the group matching id.
func (s *Store) ExpandGroup(id string, expanded bool) bool {
	s.mu.Lock()
	ok := s.tree.setGroupExpanded(id, expanded)
	s.mu.Unlock()

	if !ok {
		return false
	}
	s.scheduleSave()
	s.emit(Event{Kind: Changed})
	return true
}

// FindNode returns the node matching id, or nil.
func (s *Store) FindNode(id string) SessionNode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.findNode(id)
}

// IsAncestorOf reports whether nodeID is a descendant of ancestorID.
func (s *Store) IsAncestorOf(ancestorID, nodeID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.isAncestorOf(ancestorID, nodeID)
}

// Root returns a snapshot (deep copy) of the root-level children.
func (s *Store) Root() []SessionNode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneNodes(s.tree.root)
}

// CredentialPresets returns a snapshot of the credential preset list.
func (s *Store) CredentialPresets() []CredentialPreset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]CredentialPreset(nil), s.tree.credentialPresets...)
}

// AddCredentialPreset appends a new preset and returns it.
func (s *Store) AddCredentialPreset(name, username, password string) CredentialPreset {
	p := CredentialPreset{ID: newID(), Name: name, Username: username, Password: password}

	s.mu.Lock()
	s.tree.addCredentialPreset(p)
	s.mu.Unlock()

	s.scheduleSave()
	s.emit(Event{Kind: CredentialPresetChanged})
	s.emit(Event{Kind: Changed})
	return p
}

// RemoveCredentialPreset removes the preset matching id.
func (s *Store) RemoveCredentialPreset(id string) bool {
	s.mu.Lock()
	ok := s.tree.removeCredentialPreset(id)
	s.mu.Unlock()

	if !ok {
		return false
	}
	s.scheduleSave()
	s.emit(Event{Kind: CredentialPresetChanged})
	s.emit(Event{Kind: Changed})
	return true
}

// UpdateCredentialPreset replaces the preset matching p.ID.
func (s *Store) UpdateCredentialPreset(p CredentialPreset) bool {
	s.mu.Lock()
	ok := s.tree.updateCredentialPreset(p)
	s.mu.Unlock()

	if !ok {
		return false
	}
	s.scheduleSave()
	s.emit(Event{Kind: CredentialPresetChanged})
	s.emit(Event{Kind: Changed})
	return true
}

package sshtransport

import (
	"fmt"
	"log"
	"sync"

	"github.com/wharfterm/wharf/internal/logutil"
)

// Manager pools authenticated Sessions keyed by HostKey so multiple
// terminal connections to the same (host, port, username) share one
// transport.
type Manager struct {
	mu       sync.RWMutex
	sessions map[HostKey]*Session
	trust    *TrustStore
}

// NewManager creates an empty pool.
func NewManager() *Manager {
	return &Manager{
		sessions: make(map[HostKey]*Session),
		trust:    NewTrustStore(),
	}
}

// GetOrCreateSession returns a connected session for cfg, reusing a pooled
// one if present and still connected. This is read-then-maybe-write: a
// benign race where two callers each create a session for the same key is
// acceptable (last insert wins; the other is dropped), since authentication
// is idempotent at the protocol level and each session is independently
// usable.
func (m *Manager) GetOrCreateSession(cfg Config) (*Session, error) {
	key := cfg.HostKeyTuple(resolveUsername)

	m.mu.RLock()
	existing, ok := m.sessions[key]
	m.mu.RUnlock()
	if ok && existing.IsConnected() {
		return existing, nil
	}

	session, err := Connect(cfg, m.trust)
	if err != nil {
		return nil, fmt.Errorf("ssh manager: connect: %w", err)
	}

	m.mu.Lock()
	m.sessions[key] = session
	m.mu.Unlock()

	return session, nil
}

// GetSession returns the pooled session for key only if it is currently
// connected.
func (m *Manager) GetSession(key HostKey) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[key]
	if !ok || !s.IsConnected() {
		return nil, false
	}
	return s, true
}

// RemoveSession removes key from the pool without closing it; the caller
// owns the returned session.
func (m *Manager) RemoveSession(key HostKey) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[key]
	if ok {
		delete(m.sessions, key)
	}
	return s, ok
}

// CloseAll closes every pooled session and clears the pool.
func (m *Manager) CloseAll() error {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[HostKey]*Session)
	m.mu.Unlock()

	var firstErr error
	for key, s := range sessions {
		if err := s.Close(); err != nil {
			log.Printf("[ssh] error closing session for %s: %v", logutil.SanitizeForLog(key.Host), err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// SessionCount reports the number of pooled sessions (observational; does
// not filter by connected state).
func (m *Manager) SessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

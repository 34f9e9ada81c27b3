package sshtransport

import "testing"

func TestManagerGetOrCreateSessionReusesPooledSession(t *testing.T) {
	_, port, cleanup := startPTYServer(t, ptyHandler{})
	defer cleanup()

	m := NewManager()
	cfg := testConfig(t, port)

	first, err := m.GetOrCreateSession(cfg)
	if err != nil {
		t.Fatalf("GetOrCreateSession: %v", err)
	}
	second, err := m.GetOrCreateSession(cfg)
	if err != nil {
		t.Fatalf("GetOrCreateSession (second): %v", err)
	}
	if first != second {
		t.Errorf("expected pooled session to be reused")
	}
	if m.SessionCount() != 1 {
		t.Errorf("SessionCount() = %d, want 1", m.SessionCount())
	}
}

func TestManagerGetOrCreateSessionReconnectsAfterClose(t *testing.T) {
	_, port, cleanup := startPTYServer(t, ptyHandler{})
	defer cleanup()

	m := NewManager()
	cfg := testConfig(t, port)

	first, err := m.GetOrCreateSession(cfg)
	if err != nil {
		t.Fatalf("GetOrCreateSession: %v", err)
	}
	first.Close()

	second, err := m.GetOrCreateSession(cfg)
	if err != nil {
		t.Fatalf("GetOrCreateSession after close: %v", err)
	}
	if first == second {
		t.Errorf("expected a fresh session after the pooled one closed")
	}
}

func TestManagerRemoveSession(t *testing.T) {
	_, port, cleanup := startPTYServer(t, ptyHandler{})
	defer cleanup()

	m := NewManager()
	cfg := testConfig(t, port)
	session, err := m.GetOrCreateSession(cfg)
	if err != nil {
		t.Fatalf("GetOrCreateSession: %v", err)
	}
	defer session.Close()

	key := cfg.HostKeyTuple(resolveUsername)
	removed, ok := m.RemoveSession(key)
	if !ok {
		t.Fatalf("expected session to be found for removal")
	}
	if removed != session {
		t.Errorf("removed session did not match the pooled one")
	}
	if m.SessionCount() != 0 {
		t.Errorf("SessionCount() = %d, want 0 after removal", m.SessionCount())
	}
}

func TestManagerCloseAll(t *testing.T) {
	_, port, cleanup := startPTYServer(t, ptyHandler{})
	defer cleanup()

	m := NewManager()
	cfg := testConfig(t, port)
	if _, err := m.GetOrCreateSession(cfg); err != nil {
		t.Fatalf("GetOrCreateSession: %v", err)
	}

	if err := m.CloseAll(); err != nil {
		t.Fatalf("CloseAll: %v", err)
	}
	if m.SessionCount() != 0 {
		t.Errorf("SessionCount() = %d, want 0 after CloseAll", m.SessionCount())
	}
}

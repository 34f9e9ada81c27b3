package sshtransport

import (
	"fmt"
	"io"
	"log"
	"net"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/wharfterm/wharf/internal/connection"
	"github.com/wharfterm/wharf/internal/logutil"
)

// keepaliveMaxMissed is the number of consecutive missed keepalive replies
// that disconnects a session.
const keepaliveMaxMissed = 3

// Session is one authenticated, multiplexed SSH transport. Many terminal
// connections may hold a reference to it; the manager retains one too.
// Closing it is idempotent.
type Session struct {
	client     *ssh.Client
	hostKey    HostKey
	authMethod AuthMethod

	mu    sync.RWMutex
	state connection.Snapshot

	keepaliveCancel func()
	keepaliveDone   chan struct{}
}

// Connect dials host:port, authenticates per cfg, and returns a Connected
// Session. trust is consulted for the host key callback (trust-on-first-use).
func Connect(cfg Config, trust *TrustStore) (*Session, error) {
	username := resolveUsername(cfg.Username)
	key := HostKey{Host: cfg.Host, Port: cfg.Port, Username: username}

	methods, err := buildAuthMethods(cfg.Auth)
	if err != nil {
		return nil, &AuthError{Method: cfg.Auth.Method, Err: err}
	}

	clientCfg := &ssh.ClientConfig{
		User:            username,
		Auth:            methods,
		HostKeyCallback: trust.Callback(key),
		Timeout:         10 * time.Second,
	}

	addr := net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port))
	client, err := ssh.Dial("tcp", addr, clientCfg)
	if err != nil {
		return nil, &AuthError{Method: cfg.Auth.Method, Err: fmt.Errorf("connect to %s: %w", logutil.SanitizeForLog(addr), err)}
	}

	s := &Session{
		client:     client,
		hostKey:    key,
		authMethod: cfg.Auth.Method,
		state:      connection.Snapshot{State: connection.Connected},
	}

	interval := cfg.KeepaliveInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	s.startKeepalive(interval)

	log.Printf("[ssh] connected to %s as %s", logutil.SanitizeForLog(addr), logutil.SanitizeForLog(username))
	return s, nil
}

// HostKey returns the pooling key this session was constructed with.
func (s *Session) HostKey() HostKey { return s.hostKey }

// State returns the session's current lifecycle state.
func (s *Session) State() connection.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// IsConnected reports whether the session is still usable for opening new
// channels.
func (s *Session) IsConnected() bool {
	return s.State().State == connection.Connected
}

func (s *Session) setState(snap connection.Snapshot) {
	s.mu.Lock()
	s.state = snap
	s.mu.Unlock()
}

func (s *Session) startKeepalive(interval time.Duration) {
	done := make(chan struct{})
	stopCh := make(chan struct{})
	s.keepaliveDone = done
	s.keepaliveCancel = sync.OnceFunc(func() { close(stopCh) })

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		missed := 0
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				_, _, err := s.client.SendRequest("keepalive@openssh.com", true, nil)
				if err != nil {
					missed++
					log.Printf("[ssh] keepalive missed (%d/%d) for %s", missed, keepaliveMaxMissed, logutil.SanitizeForLog(s.hostKey.Host))
					if missed >= keepaliveMaxMissed {
						log.Printf("[ssh] keepalive exceeded max missed for %s, closing", logutil.SanitizeForLog(s.hostKey.Host))
						s.Close()
						return
					}
				} else {
					missed = 0
				}
			}
		}
	}()
}

// Channel is one shell channel opened within a Session.
type Channel struct {
	session *ssh.Session
	stdin   io.WriteCloser
	stdout  io.Reader
}

// OpenTerminalChannel opens a new SSH session channel, sets env vars
// (best-effort — logged and skipped on failure, never aborting the whole
// open), requests a PTY with the given geometry and terminal type, and
// starts a shell.
func (s *Session) OpenTerminalChannel(env map[string]string, size connection.WindowSize, terminalType string) (*Channel, error) {
	if terminalType == "" {
		terminalType = "xterm-256color"
	}

	sess, err := s.client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("ssh: open channel: %w", err)
	}

	for k, v := range env {
		if err := sess.Setenv(k, v); err != nil {
			log.Printf("[ssh] set env %s failed (continuing): %v", logutil.SanitizeForLog(k), err)
		}
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	if err := sess.RequestPty(terminalType, int(size.Rows), int(size.Cols), modes); err != nil {
		sess.Close()
		return nil, fmt.Errorf("ssh: request pty: %w", err)
	}

	stdin, err := sess.StdinPipe()
	if err != nil {
		sess.Close()
		return nil, fmt.Errorf("ssh: stdin pipe: %w", err)
	}
	stdout, err := sess.StdoutPipe()
	if err != nil {
		sess.Close()
		return nil, fmt.Errorf("ssh: stdout pipe: %w", err)
	}

	if err := sess.Shell(); err != nil {
		sess.Close()
		return nil, fmt.Errorf("ssh: start shell: %w", err)
	}

	return &Channel{session: sess, stdin: stdin, stdout: stdout}, nil
}

func (c *Channel) Write(data []byte) (int, error) { return c.stdin.Write(data) }

func (c *Channel) Read(data []byte) (int, error) { return c.stdout.Read(data) }

func (c *Channel) WindowChange(size connection.WindowSize) error {
	return c.session.WindowChange(int(size.Rows), int(size.Cols))
}

func (c *Channel) Close() error { return c.session.Close() }

// Close transitions the session to Disconnected and tears down its
// transport. Idempotent.
func (s *Session) Close() error {
	if s.keepaliveCancel != nil {
		s.keepaliveCancel()
	}
	wasConnected := s.State().State == connection.Connected
	s.setState(connection.Snapshot{State: connection.Disconnected})
	if !wasConnected {
		return nil
	}
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("ssh: close: %w", err)
	}
	return nil
}

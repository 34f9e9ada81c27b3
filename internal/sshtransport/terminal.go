package sshtransport

import (
	"errors"
	"io"
	"log"
	"sync"

	"golang.org/x/crypto/ssh"

	"github.com/wharfterm/wharf/internal/connection"
)

type sshCommandKind int

const (
	sshCmdWrite sshCommandKind = iota
	sshCmdResize
	sshCmdClose
)

type sshCommand struct {
	kind sshCommandKind
	data []byte
	size connection.WindowSize
}

type sshReadResult struct {
	n   int
	err error
}

// TerminalConnection binds one Channel (a shell within a Session) to the
// connection.Connection capability set.
type TerminalConnection struct {
	session *Session
	channel *Channel

	onEvent func(connection.Event)

	commandCh chan sshCommand
	closedCh  chan struct{}

	mu    sync.RWMutex
	state connection.Snapshot

	inMu    sync.Mutex
	inbound []byte

	readBuf []byte
}

// Open opens a new shell channel on session, sets state Connected, and
// starts the background driver task. If cfg.InitialCommand is set, it is
// written to the shell with a trailing newline before the select loop
// begins processing further commands and reads.
func Open(session *Session, cfg Config, size connection.WindowSize, onEvent func(connection.Event)) (*TerminalConnection, error) {
	channel, err := session.OpenTerminalChannel(cfg.Env, size, "xterm-256color")
	if err != nil {
		return nil, err
	}

	c := &TerminalConnection{
		session:   session,
		channel:   channel,
		onEvent:   onEvent,
		commandCh: make(chan sshCommand, 256),
		closedCh:  make(chan struct{}),
		state:     connection.Snapshot{State: connection.Connected},
	}

	if cfg.InitialCommand != "" {
		if _, err := channel.Write([]byte(cfg.InitialCommand + "\n")); err != nil {
			log.Printf("[ssh] initial command write failed: %v", err)
		}
	}

	go c.run()
	return c, nil
}

func (c *TerminalConnection) Write(data []byte) error {
	cp := append([]byte(nil), data...)
	select {
	case <-c.closedCh:
		return connection.ErrChannelClosed
	default:
	}
	select {
	case c.commandCh <- sshCommand{kind: sshCmdWrite, data: cp}:
		return nil
	case <-c.closedCh:
		return connection.ErrChannelClosed
	}
}

func (c *TerminalConnection) Resize(size connection.WindowSize) error {
	select {
	case <-c.closedCh:
		return nil
	default:
	}
	select {
	case c.commandCh <- sshCommand{kind: sshCmdResize, size: size}:
	case <-c.closedCh:
	}
	return nil
}

func (c *TerminalConnection) Shutdown() error {
	select {
	case c.commandCh <- sshCommand{kind: sshCmdClose}:
	case <-c.closedCh:
	default:
	}
	return nil
}

func (c *TerminalConnection) State() connection.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *TerminalConnection) setState(s connection.Snapshot) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Read drains and returns any buffered inbound bytes. Draining is
// destructive.
func (c *TerminalConnection) Read() []byte {
	c.inMu.Lock()
	defer c.inMu.Unlock()
	if len(c.inbound) == 0 {
		return nil
	}
	out := c.inbound
	c.inbound = nil
	return out
}

// ProcessInfo always returns nil: remote processes over SSH are opaque.
func (c *TerminalConnection) ProcessInfo() connection.ProcessInfo {
	return nil
}

func (c *TerminalConnection) emit(kind connection.EventKind, exitStatus int) {
	if c.onEvent != nil {
		c.onEvent(connection.Event{Kind: kind, ExitStatus: exitStatus})
	}
}

func (c *TerminalConnection) run() {
	defer close(c.closedCh)
	defer c.channel.Close()

	// Wait() blocks until the remote command exits; it runs concurrently
	// with the read/command loop below and only reports a child exit code,
	// it never tears down the channel itself.
	go func() {
		err := c.channel.session.Wait()
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			c.emit(connection.ChildExit, exitErr.ExitStatus())
		} else if err == nil {
			c.emit(connection.ChildExit, 0)
		}
	}()

	c.readBuf = make([]byte, 4096)
	readResultCh := make(chan sshReadResult, 1)

	startRead := func() {
		go func() {
			n, err := c.channel.Read(c.readBuf)
			readResultCh <- sshReadResult{n: n, err: err}
		}()
	}
	startRead()

	for {
		select {
		case cmd := <-c.commandCh:
			if !c.handleCommand(cmd) {
				return
			}
			continue
		default:
		}

		select {
		case cmd := <-c.commandCh:
			if !c.handleCommand(cmd) {
				return
			}
		case rr := <-readResultCh:
			if !c.handleRead(rr) {
				return
			}
			startRead()
		}
	}
}

func (c *TerminalConnection) handleCommand(cmd sshCommand) bool {
	switch cmd.kind {
	case sshCmdWrite:
		if _, err := c.channel.Write(cmd.data); err != nil {
			c.setState(connection.Snapshot{State: connection.Error, Message: err.Error()})
			return false
		}
		return true

	case sshCmdResize:
		if err := c.channel.WindowChange(cmd.size); err != nil {
			log.Printf("[ssh] resize failed: %v", err)
		}
		return true

	case sshCmdClose:
		c.setState(connection.Snapshot{State: connection.Disconnected})
		return false

	default:
		return true
	}
}

func (c *TerminalConnection) handleRead(rr sshReadResult) bool {
	if rr.n > 0 {
		c.inMu.Lock()
		c.inbound = append(c.inbound, c.readBuf[:rr.n]...)
		c.inMu.Unlock()
		c.emit(connection.Wakeup, 0)
	}

	if rr.err != nil {
		if rr.err == io.EOF {
			c.setState(connection.Snapshot{State: connection.Disconnected})
		} else {
			c.setState(connection.Snapshot{State: connection.Error, Message: rr.err.Error()})
		}
		c.emit(connection.Exit, 0)
		return false
	}

	return true
}

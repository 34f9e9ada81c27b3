// Package ptyconn adapts a local pseudo-terminal to the connection.Connection
// capability set. Unlike the SSH and Telnet backends it does not buffer
// inbound bytes for Read: the terminal grid reads the PTY master directly,
// so Read always returns nil here.
package ptyconn

import (
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/creack/pty"

	"github.com/wharfterm/wharf/internal/connection"
)

// Connection wraps a started PTY, forwarding write/resize/shutdown to the
// master side and exposing the child process for process-info queries.
type Connection struct {
	mu    sync.RWMutex
	state connection.Snapshot

	master *os.File
	cmd    *exec.Cmd
}

// Start launches cmd attached to a new PTY sized to initial, and returns a
// Connection bound to it. The caller owns reading Master() for the terminal
// grid; this type only forwards writes and control operations.
func Start(cmd *exec.Cmd, initial connection.WindowSize) (*Connection, error) {
	master, err := pty.Start(cmd)
	if err != nil {
		return nil, fmt.Errorf("ptyconn: start: %w", err)
	}
	c := &Connection{
		state:  connection.Snapshot{State: connection.Connected},
		master: master,
		cmd:    cmd,
	}
	if err := pty.Setsize(master, toWinsize(initial)); err != nil {
		// Best-effort: a failed initial resize does not fail the connection.
		_ = err
	}
	return c, nil
}

// Master returns the PTY master file so the terminal grid's event loop can
// read from it directly.
func (c *Connection) Master() *os.File {
	return c.master
}

func toWinsize(size connection.WindowSize) *pty.Winsize {
	return &pty.Winsize{
		Cols: size.Cols,
		Rows: size.Rows,
		X:    size.CellWidth,
		Y:    size.CellHeight,
	}
}

func (c *Connection) Write(data []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state.State != connection.Connected {
		return connection.ErrChannelClosed
	}
	_, err := c.master.Write(data)
	if err != nil {
		return fmt.Errorf("ptyconn: write: %w", err)
	}
	return nil
}

func (c *Connection) Resize(size connection.WindowSize) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state.State != connection.Connected {
		return nil
	}
	if err := pty.Setsize(c.master, toWinsize(size)); err != nil {
		return fmt.Errorf("ptyconn: resize: %w", err)
	}
	return nil
}

func (c *Connection) Shutdown() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.State == connection.Disconnected {
		return nil
	}
	c.state = connection.Snapshot{State: connection.Disconnected}
	if c.cmd.Process != nil {
		_ = c.cmd.Process.Kill()
	}
	return c.master.Close()
}

func (c *Connection) State() connection.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Read always returns nil: the terminal grid reads Master() directly.
func (c *Connection) Read() []byte {
	return nil
}

func (c *Connection) ProcessInfo() connection.ProcessInfo {
	return &processInfo{c: c}
}

// processInfo exposes the PTY's child process. Only the PTY backend
// supplies a ProcessInfo; SSH and Telnet remotes are opaque.
type processInfo struct {
	c *Connection
}

func (p *processInfo) PID() int {
	if p.c.cmd.Process == nil {
		return 0
	}
	return p.c.cmd.Process.Pid
}

func (p *processInfo) Cwd() (string, error) {
	pid := p.PID()
	if pid == 0 {
		return "", fmt.Errorf("ptyconn: process not running")
	}
	link, err := os.Readlink(fmt.Sprintf("/proc/%d/cwd", pid))
	if err != nil {
		return "", fmt.Errorf("ptyconn: cwd: %w", err)
	}
	return link, nil
}

func (p *processInfo) ForegroundName() (string, error) {
	pid := p.PID()
	if pid == 0 {
		return "", fmt.Errorf("ptyconn: process not running")
	}
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/comm", pid))
	if err != nil {
		return "", fmt.Errorf("ptyconn: foreground name: %w", err)
	}
	name := string(data)
	for len(name) > 0 && (name[len(name)-1] == '\n' || name[len(name)-1] == '\r') {
		name = name[:len(name)-1]
	}
	return name, nil
}

// KillForeground targets the foreground-tracked process distinct from the
// pty's direct child. Without a foreground-PID tracker, PID() is the only
// PID available, so this currently kills the same process as KillChild.
func (p *processInfo) KillForeground() error {
	return p.KillChild()
}

func (p *processInfo) KillChild() error {
	if p.c.cmd.Process == nil {
		return fmt.Errorf("ptyconn: process not running")
	}
	if err := p.c.cmd.Process.Kill(); err != nil {
		return fmt.Errorf("ptyconn: kill: %w", err)
	}
	return nil
}

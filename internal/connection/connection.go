// Package connection defines the capability set shared by every terminal
// backend: local PTY, SSH channel, and raw Telnet socket. A terminal grid
// only ever talks to this interface, so local, SSH, and Telnet sessions can
// share one code path above the transport.
package connection

import "fmt"

// State is the lifecycle state of a Connection. It is monotonic with
// respect to failure: once Error or Disconnected is observed, Connected
// never returns for that instance.
type State int

const (
	Connecting State = iota
	Connected
	Disconnected
	Error
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Disconnected:
		return "disconnected"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Snapshot is a point-in-time read of a connection's lifecycle state. When
// State is Error, Message carries the failure reason; it is empty otherwise.
type Snapshot struct {
	State   State
	Message string
}

// WindowSize describes a terminal grid's geometry in both cells and pixels.
// Cols/Rows drive NAWS, pty.Winsize and the SSH pty-req. CellWidth/CellHeight
// are passed only to the local PTY, as the pty.Winsize X/Y fields; the SSH
// backend's pty-req and window-change carry no pixel dimensions.
type WindowSize struct {
	Cols       uint16
	Rows       uint16
	CellWidth  uint16
	CellHeight uint16
}

// ErrChannelClosed is returned by Write/Resize when the connection's
// background driver task has already exited.
var ErrChannelClosed = fmt.Errorf("connection: channel closed")

// Event is posted from a connection's driver task back to the owning
// terminal. Wakeup may repeat any number of times; ExitStatus carries a
// child/remote exit code when the backend can observe one; Exit is emitted
// once, when the peer side closes or a read fails. A connection closed
// through Shutdown emits no Exit.
type Event struct {
	Kind       EventKind
	ExitStatus int
}

type EventKind int

const (
	Wakeup EventKind = iota
	ChildExit
	Exit
)

// ProcessInfo exposes the foreground/child process behind a connection.
// Only the PTY backend supplies one; SSH and Telnet remotes are opaque.
type ProcessInfo interface {
	PID() int
	Cwd() (string, error)
	ForegroundName() (string, error)
	KillForeground() error
	KillChild() error
}

// Connection is the uniform capability set every terminal backend
// implements. Ownership: a Connection is uniquely owned by one Terminal;
// dropping it must issue a close (callers should defer Shutdown).
type Connection interface {
	// Write enqueues bytes toward the peer. It fails with ErrChannelClosed
	// if the background driver has already exited.
	Write(data []byte) error

	// Resize delivers a new window geometry. Best-effort: a peer that
	// refuses or fails a resize does not fail the terminal.
	Resize(size WindowSize) error

	// Shutdown closes the connection and moves it to Disconnected. The PTY
	// backend changes state before returning; the SSH and Telnet backends
	// only enqueue a close command, and their driver task sets Disconnected
	// when it handles it, so State may still report Connected right after
	// Shutdown returns. Idempotent.
	Shutdown() error

	// State snapshots the current lifecycle state.
	State() Snapshot

	// Read drains and returns any buffered inbound bytes, or nil if the
	// buffer is empty. Draining is destructive. PTY backends always return
	// nil: their data is fed directly to the grid by the event loop.
	Read() []byte

	// ProcessInfo returns a handle to the backend's foreground process, or
	// nil if the backend does not expose one.
	ProcessInfo() ProcessInfo
}

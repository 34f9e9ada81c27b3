package telnet

import (
	"fmt"
	"io"
	"log"
	"net"
	"sync"
	"time"

	"github.com/wharfterm/wharf/internal/connection"
	"github.com/wharfterm/wharf/internal/logutil"
)

type commandKind int

const (
	cmdWrite commandKind = iota
	cmdResize
	cmdClose
)

type command struct {
	kind commandKind
	data []byte
	size connection.WindowSize
}

type readResult struct {
	n   int
	err error
}

// Connection drives one Telnet TCP socket through a Negotiator and exposes
// it as a connection.Connection. A single background goroutine owns the
// socket; Write/Resize/Shutdown only ever enqueue commands for it.
type Connection struct {
	conn        net.Conn
	negotiator  *Negotiator
	initialSize connection.WindowSize
	onEvent     func(connection.Event)

	commandCh chan command
	closedCh  chan struct{}

	mu    sync.RWMutex
	state connection.Snapshot

	inMu     sync.Mutex
	inbound  []byte

	readBuf []byte
}

// Dial connects to cfg.Host:cfg.Port and starts the negotiation/terminal
// driver goroutine. onEvent is called from the driver goroutine; it must
// not block.
func Dial(cfg Config, initial connection.WindowSize, onEvent func(connection.Event)) (*Connection, error) {
	addr := net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port))
	conn, err := net.DialTimeout("tcp", addr, 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("telnet: dial %s: %w", logutil.SanitizeForLog(addr), err)
	}

	c := &Connection{
		conn:        conn,
		negotiator:  New(cfg.terminalType()),
		initialSize: initial,
		onEvent:     onEvent,
		commandCh:   make(chan command, 256),
		closedCh:    make(chan struct{}),
		state:       connection.Snapshot{State: connection.Connected},
	}
	go c.run()
	log.Printf("[telnet] connected to %s", logutil.SanitizeForLog(addr))
	return c, nil
}

func (c *Connection) Write(data []byte) error {
	cp := append([]byte(nil), data...)
	select {
	case <-c.closedCh:
		return connection.ErrChannelClosed
	default:
	}
	select {
	case c.commandCh <- command{kind: cmdWrite, data: cp}:
		return nil
	case <-c.closedCh:
		return connection.ErrChannelClosed
	}
}

func (c *Connection) Resize(size connection.WindowSize) error {
	select {
	case <-c.closedCh:
		return nil
	default:
	}
	select {
	case c.commandCh <- command{kind: cmdResize, size: size}:
	case <-c.closedCh:
	}
	return nil
}

func (c *Connection) Shutdown() error {
	select {
	case c.commandCh <- command{kind: cmdClose}:
	case <-c.closedCh:
	default:
	}
	return nil
}

func (c *Connection) State() connection.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Connection) setState(s connection.Snapshot) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Read drains and returns any buffered application data. Draining is
// destructive.
func (c *Connection) Read() []byte {
	c.inMu.Lock()
	defer c.inMu.Unlock()
	if len(c.inbound) == 0 {
		return nil
	}
	out := c.inbound
	c.inbound = nil
	return out
}

// ProcessInfo always returns nil: remote Telnet processes are opaque.
func (c *Connection) ProcessInfo() connection.ProcessInfo {
	return nil
}

func (c *Connection) emit(kind connection.EventKind) {
	if c.onEvent != nil {
		c.onEvent(connection.Event{Kind: kind})
	}
}

func (c *Connection) run() {
	defer close(c.closedCh)
	defer c.conn.Close()

	sentInitialNAWS := false
	c.readBuf = make([]byte, 4096)
	readResultCh := make(chan readResult, 1)

	startRead := func() {
		go func() {
			n, err := c.conn.Read(c.readBuf)
			readResultCh <- readResult{n: n, err: err}
		}()
	}
	startRead()

	for {
		// Command polling is biased before reads so user keystrokes are not
		// starved by inbound flood.
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
			if !c.handleRead(rr, &sentInitialNAWS) {
				return
			}
			startRead()
		}
	}
}

func (c *Connection) handleCommand(cmd command) bool {
	switch cmd.kind {
	case cmdWrite:
		escaped := EscapeDataForSend(cmd.data)
		if _, err := c.conn.Write(escaped); err != nil {
			c.setState(connection.Snapshot{State: connection.Error, Message: err.Error()})
			return false
		}
		return true

	case cmdResize:
		packet := c.negotiator.BuildNAWS(WindowSize{Cols: cmd.size.Cols, Rows: cmd.size.Rows})
		if len(packet) == 0 {
			return true
		}
		if _, err := c.conn.Write(packet); err != nil {
			log.Printf("[telnet] NAWS resize write failed: %v", err)
		}
		return true

	case cmdClose:
		c.setState(connection.Snapshot{State: connection.Disconnected})
		return false

	default:
		return true
	}
}

func (c *Connection) handleRead(rr readResult, sentInitialNAWS *bool) bool {
	if rr.err != nil {
		if rr.err == io.EOF {
			c.setState(connection.Snapshot{State: connection.Disconnected})
		} else {
			c.setState(connection.Snapshot{State: connection.Error, Message: rr.err.Error()})
		}
		c.emit(connection.Exit)
		return false
	}

	result := c.negotiator.Process(c.readBuf[:rr.n])

	if len(result.Responses) > 0 {
		if _, err := c.conn.Write(result.Responses); err != nil {
			c.setState(connection.Snapshot{State: connection.Error, Message: err.Error()})
			return false
		}
		if !*sentInitialNAWS && c.negotiator.NAWSEnabled() {
			packet := c.negotiator.BuildNAWS(WindowSize{Cols: c.initialSize.Cols, Rows: c.initialSize.Rows})
			if len(packet) > 0 {
				if _, err := c.conn.Write(packet); err != nil {
					log.Printf("[telnet] bootstrap NAWS write failed: %v", err)
				}
			}
			*sentInitialNAWS = true
		}
	}

	if len(result.Data) > 0 {
		c.inMu.Lock()
		c.inbound = append(c.inbound, result.Data...)
		c.inMu.Unlock()
	}
	c.emit(connection.Wakeup)

	return true
}

package sshtransport

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"net"
	"testing"

	gossh "golang.org/x/crypto/ssh"
)

// ptyHandler receives pty-req and shell requests for the in-process test
// server used to exercise the real SSH wire protocol instead of mocking it.
type ptyHandler struct {
	onPTY   func(term string, cols, rows uint32) bool
	onShell func(ch gossh.Channel)
}

func startPTYServer(t *testing.T, handler ptyHandler) (addr string, port int, cleanup func()) {
	t.Helper()

	_, hostPriv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate host key: %v", err)
	}
	hostSigner, err := gossh.NewSignerFromKey(hostPriv)
	if err != nil {
		t.Fatalf("host signer: %v", err)
	}

	serverCfg := &gossh.ServerConfig{
		PasswordCallback: func(conn gossh.ConnMetadata, password []byte) (*gossh.Permissions, error) {
			if string(password) == "testpass" {
				return &gossh.Permissions{}, nil
			}
			return nil, fmt.Errorf("wrong password")
		},
	}
	serverCfg.AddHostKey(hostSigner)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go handlePTYConn(conn, serverCfg, handler)
		}
	}()

	host, portStr, _ := net.SplitHostPort(listener.Addr().String())
	var p int
	fmt.Sscanf(portStr, "%d", &p)
	return host, p, func() { listener.Close() }
}

func handlePTYConn(netConn net.Conn, config *gossh.ServerConfig, handler ptyHandler) {
	defer netConn.Close()
	srvConn, chans, reqs, err := gossh.NewServerConn(netConn, config)
	if err != nil {
		return
	}
	defer srvConn.Close()
	go gossh.DiscardRequests(reqs)

	for newChan := range chans {
		if newChan.ChannelType() != "session" {
			newChan.Reject(gossh.UnknownChannelType, "unsupported channel type")
			continue
		}
		ch, requests, err := newChan.Accept()
		if err != nil {
			continue
		}
		go handlePTYSession(ch, requests, handler)
	}
}

func handlePTYSession(ch gossh.Channel, reqs <-chan *gossh.Request, handler ptyHandler) {
	defer ch.Close()
	for req := range reqs {
		switch req.Type {
		case "pty-req":
			term, cols, rows := parsePTYReq(req.Payload)
			accept := true
			if handler.onPTY != nil {
				accept = handler.onPTY(term, cols, rows)
			}
			if req.WantReply {
				req.Reply(accept, nil)
			}
		case "shell":
			if req.WantReply {
				req.Reply(true, nil)
			}
			go gossh.DiscardRequests(reqs)
			if handler.onShell != nil {
				handler.onShell(ch)
			}
			return
		default:
			if req.WantReply {
				req.Reply(false, nil)
			}
		}
	}
}

func parsePTYReq(payload []byte) (term string, cols, rows uint32) {
	if len(payload) < 4 {
		return
	}
	termLen := binary.BigEndian.Uint32(payload[0:4])
	payload = payload[4:]
	if uint32(len(payload)) < termLen {
		return
	}
	term = string(payload[:termLen])
	payload = payload[termLen:]
	if len(payload) < 8 {
		return
	}
	cols = binary.BigEndian.Uint32(payload[0:4])
	rows = binary.BigEndian.Uint32(payload[4:8])
	return
}

func sendExitStatus(ch gossh.Channel, code int) {
	payload := gossh.Marshal(struct{ Status uint32 }{uint32(code)})
	ch.SendRequest("exit-status", false, payload)
}

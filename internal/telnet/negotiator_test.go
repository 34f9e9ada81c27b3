package telnet

import "testing"

func assertBytes(t *testing.T, label string, got, want []byte) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: length = %d, want %d (%v vs %v)", label, len(got), len(want), got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("%s: byte %d = 0x%02x, want 0x%02x", label, i, got[i], want[i])
		}
	}
}

func TestIacEscape(t *testing.T) {
	n := New("xterm-256color")
	res := n.Process([]byte{'a', IAC, IAC, 'b'})
	assertBytes(t, "data", res.Data, []byte{'a', IAC, 'b'})
	assertBytes(t, "responses", res.Responses, nil)
}

func TestTransparency(t *testing.T) {
	n := New("xterm-256color")
	in := []byte("hello world, no protocol bytes here")
	res := n.Process(in)
	assertBytes(t, "data", res.Data, in)
	assertBytes(t, "responses", res.Responses, nil)
}

func TestWillEchoResponse(t *testing.T) {
	n := New("xterm-256color")
	res := n.Process([]byte{IAC, WILL, OptEcho})
	assertBytes(t, "responses", res.Responses, []byte{IAC, DO, OptEcho})
}

func TestWillUnknownOptionRefused(t *testing.T) {
	n := New("xterm-256color")
	res := n.Process([]byte{IAC, WILL, 99})
	assertBytes(t, "responses", res.Responses, []byte{IAC, DONT, 99})
}

func TestDoTerminalTypeResponse(t *testing.T) {
	n := New("xterm-256color")
	res := n.Process([]byte{IAC, DO, OptTerminalType})
	assertBytes(t, "responses", res.Responses, []byte{IAC, WILL, OptTerminalType})
}

func TestDoUnknownOptionRefused(t *testing.T) {
	n := New("xterm-256color")
	res := n.Process([]byte{IAC, DO, 99})
	assertBytes(t, "responses", res.Responses, []byte{IAC, WONT, 99})
}

func TestWontAndDontAreSilent(t *testing.T) {
	n := New("xterm-256color")
	res := n.Process([]byte{IAC, WONT, OptEcho, IAC, DONT, OptNAWS})
	assertBytes(t, "responses", res.Responses, nil)
	assertBytes(t, "data", res.Data, nil)
}

func TestTerminalTypeSubnegotiation(t *testing.T) {
	n := New("xterm-256color")
	n.Process([]byte{IAC, DO, OptTerminalType})

	res := n.Process([]byte{IAC, SB, OptTerminalType, SBSend, IAC, SE})
	want := []byte{IAC, SB, OptTerminalType, SBIs}
	want = append(want, []byte("xterm-256color")...)
	want = append(want, IAC, SE)
	assertBytes(t, "responses", res.Responses, want)
}

func TestSubnegotiationOtherOptionDropped(t *testing.T) {
	n := New("xterm-256color")
	res := n.Process([]byte{IAC, SB, 99, SBSend, IAC, SE})
	assertBytes(t, "responses", res.Responses, nil)
}

func TestSubnegotiationProtocolErrorResets(t *testing.T) {
	n := New("xterm-256color")
	// SbIac followed by something other than SE or IAC resets to Data
	// without processing the subnegotiation, and does not hang.
	res := n.Process([]byte{IAC, SB, OptTerminalType, SBSend, IAC, 'x', 'y'})
	assertBytes(t, "responses", res.Responses, nil)
	assertBytes(t, "data", res.Data, []byte{'y'})
}

func TestNAWSNegotiationAndBuild(t *testing.T) {
	n := New("xterm-256color")
	if n.NAWSEnabled() {
		t.Fatal("naws should not be enabled before negotiation")
	}

	res := n.Process([]byte{IAC, DO, OptNAWS})
	assertBytes(t, "responses", res.Responses, []byte{IAC, WILL, OptNAWS})
	if !n.NAWSEnabled() {
		t.Fatal("naws should be enabled after DO NAWS")
	}

	packet := n.BuildNAWS(WindowSize{Cols: 80, Rows: 24})
	assertBytes(t, "naws packet", packet, []byte{IAC, SB, OptNAWS, 0, 80, 0, 24, IAC, SE})
}

func TestBuildNAWSEmptyWhenNotEnabled(t *testing.T) {
	n := New("xterm-256color")
	packet := n.BuildNAWS(WindowSize{Cols: 80, Rows: 24})
	if packet != nil {
		t.Fatalf("expected nil packet, got %v", packet)
	}
}

func TestBuildNAWSEscapesIacDimensionBytes(t *testing.T) {
	n := New("xterm-256color")
	n.Process([]byte{IAC, DO, OptNAWS})

	// 0xFF rows: high byte 0, low byte 255 (IAC) must be doubled.
	packet := n.BuildNAWS(WindowSize{Cols: 1, Rows: 255})
	want := []byte{IAC, SB, OptNAWS, 0, 1, 0, IAC, IAC, IAC, SE}
	assertBytes(t, "naws packet", packet, want)
}

func TestEscapeDataForSend(t *testing.T) {
	got := EscapeDataForSend([]byte{'a', IAC, 'b'})
	assertBytes(t, "escaped", got, []byte{'a', IAC, IAC, 'b'})
}

func TestOptionRefusalLaw(t *testing.T) {
	for opt := 0; opt < 256; opt++ {
		o := byte(opt)
		if o == OptEcho || o == OptSuppressGoAhead {
			continue
		}
		n := New("xterm-256color")
		res := n.Process([]byte{IAC, WILL, o})
		assertBytes(t, "dont", res.Responses, []byte{IAC, DONT, o})
	}
	for opt := 0; opt < 256; opt++ {
		o := byte(opt)
		if o == OptTerminalType || o == OptNAWS {
			continue
		}
		n := New("xterm-256color")
		res := n.Process([]byte{IAC, DO, o})
		assertBytes(t, "wont", res.Responses, []byte{IAC, WONT, o})
	}
}

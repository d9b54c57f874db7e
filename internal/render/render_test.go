package render

import (
	"bufio"
	"io"
	"net"
	"testing"
	"time"

	"github.com/dokzlo13/dashd/internal/board"
	"github.com/dokzlo13/dashd/internal/config"
)

func TestScale8(t *testing.T) {
	tests := []struct {
		x, scale, want uint8
	}{
		{255, 255, 255},
		{255, 0, 0},
		{200, 127, 100},
		{0, 255, 0},
	}
	for _, tt := range tests {
		if got := scale8(tt.x, tt.scale); got != tt.want {
			t.Errorf("scale8(%d, %d) = %d, want %d", tt.x, tt.scale, got, tt.want)
		}
	}
}

func TestRGB(t *testing.T) {
	tests := []struct {
		name       string
		c          board.HSV
		brightness uint8
		r, g, b    uint8
	}{
		{"black", board.HSV{}, 255, 0, 0, 0},
		{"white", board.White, 255, 255, 255, 255},
		{"red", board.HSV{H: 0, S: 255, V: 255}, 255, 255, 0, 0},
		{"dimmed_white", board.White, 127, 127, 127, 127},
		{"zero_value", board.HSV{H: 100, S: 255, V: 0}, 255, 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, g, b := RGB(tt.c, tt.brightness)
			if r != tt.r || g != tt.g || b != tt.b {
				t.Errorf("RGB() = %d,%d,%d; want %d,%d,%d", r, g, b, tt.r, tt.g, tt.b)
			}
		})
	}
}

func TestAppendPixels(t *testing.T) {
	frame := []board.HSV{board.White, {}}
	got := appendPixels(nil, frame, 255)

	want := []byte{255, 255, 255, 0, 0, 0}
	if string(got) != string(want) {
		t.Errorf("appendPixels() = %v, want %v", got, want)
	}
}

// serveOPC accepts connections on ln and forwards every received message.
func serveOPC(ln net.Listener, received chan<- []byte) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		go func() {
			defer conn.Close()
			r := bufio.NewReader(conn)
			for {
				header := make([]byte, 4)
				if _, err := io.ReadFull(r, header); err != nil {
					return
				}
				body := make([]byte, int(header[2])<<8|int(header[3]))
				if _, err := io.ReadFull(r, body); err != nil {
					return
				}
				received <- append(header, body...)
			}
		}()
	}
}

func expectMessages(t *testing.T, received <-chan []byte, want ...[]byte) {
	t.Helper()
	for _, w := range want {
		select {
		case got := <-received:
			if string(got) != string(w) {
				t.Errorf("message = %v, want %v", got, w)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for OPC message")
		}
	}
	select {
	case extra := <-received:
		t.Errorf("unexpected extra message %v", extra)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestOPCSendsFrames(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	received := make(chan []byte, 4)
	go serveOPC(ln, received)

	o := NewOPC(ln.Addr().String(), 2)
	defer o.Close()

	frame := []board.HSV{board.White}
	if err := o.Render(frame, 255); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	// Identical frame is skipped; a changed one is sent.
	if err := o.Render(frame, 255); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	frame[0] = board.Black
	if err := o.Render(frame, 255); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	expectMessages(t, received, []byte{2, 0, 0, 3, 255, 255, 255}, []byte{2, 0, 0, 3, 0, 0, 0})
}

func TestOPCReconnectsAfterClose(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	received := make(chan []byte, 4)
	go serveOPC(ln, received)

	o := NewOPC(ln.Addr().String(), 0)
	defer o.Close()

	frame := []board.HSV{board.White}
	if err := o.Render(frame, 255); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if err := o.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	// A fresh connection gets the current frame even if it did not change.
	if err := o.Render(frame, 255); err != nil {
		t.Fatalf("Render() after Close error = %v", err)
	}

	want := []byte{0, 0, 0, 3, 255, 255, 255}
	expectMessages(t, received, want, want)
}

func TestOPCDialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	o := NewOPC(addr, 0)
	if err := o.Render([]board.HSV{board.White}, 255); err == nil {
		t.Error("Render() should fail without a server")
	}
}

func TestNew(t *testing.T) {
	r, err := New(config.RenderConfig{Driver: "none"})
	if err != nil {
		t.Fatalf("New(none) error = %v", err)
	}
	if _, ok := r.(Null); !ok {
		t.Errorf("New(none) = %T, want Null", r)
	}
	if _, err := New(config.RenderConfig{Driver: "dmx"}); err == nil {
		t.Error("New(dmx) should fail")
	}
}

package render

import (
	"bytes"
	"fmt"

	"github.com/kellydunn/go-opc"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/dashd/internal/board"
)

// OPC streams frames to an Open Pixel Control server such as a Fadecandy.
// The connection is opened on first use and re-established after a send failure.
type OPC struct {
	addr    string
	channel uint8

	client *opc.Client
	pixels []byte
	last   []byte
}

// NewOPC creates an OPC renderer for the server at addr.
func NewOPC(addr string, channel uint8) *OPC {
	return &OPC{
		addr:    addr,
		channel: channel,
	}
}

// Render implements Renderer. Frames identical to the last one sent are skipped.
func (o *OPC) Render(frame []board.HSV, brightness uint8) error {
	o.pixels = appendPixels(o.pixels[:0], frame, brightness)
	if o.client != nil && bytes.Equal(o.pixels, o.last) {
		return nil
	}

	if o.client == nil {
		client := opc.NewClient()
		if err := client.Connect("tcp", o.addr); err != nil {
			return fmt.Errorf("failed to connect to OPC server %s: %w", o.addr, err)
		}
		log.Info().Str("addr", o.addr).Msg("Connected to OPC server")
		o.client = client
	}

	m := opc.NewMessage(o.channel)
	m.SetLength(uint16(len(o.pixels)))
	for i := 0; i < len(o.pixels)/3; i++ {
		m.SetPixelColor(i, o.pixels[3*i], o.pixels[3*i+1], o.pixels[3*i+2])
	}

	if err := o.client.Send(m); err != nil {
		o.disconnect()
		return fmt.Errorf("failed to send frame to %s: %w", o.addr, err)
	}
	o.last = append(o.last[:0], o.pixels...)
	return nil
}

// Close implements Renderer. go-opc exposes no way to close a client, so
// the client is dropped and its socket is released with it.
func (o *OPC) Close() error {
	o.disconnect()
	return nil
}

// disconnect forgets the client so the next Render dials again.
func (o *OPC) disconnect() {
	if o.client != nil {
		log.Debug().Str("addr", o.addr).Msg("Dropping OPC connection")
	}
	o.client = nil
	o.last = o.last[:0]
}

// appendPixels appends the dimmed RGB triple of every frame slot to dst.
func appendPixels(dst []byte, frame []board.HSV, brightness uint8) []byte {
	for _, c := range frame {
		r, g, b := RGB(c, brightness)
		dst = append(dst, r, g, b)
	}
	return dst
}

// Package render pushes animation frames to an output device.
package render

import (
	"fmt"

	"github.com/dokzlo13/dashd/internal/board"
	"github.com/dokzlo13/dashd/internal/config"
	"github.com/dokzlo13/dashd/internal/palette"
)

// Renderer displays one frame of colors at a global brightness.
type Renderer interface {
	Render(frame []board.HSV, brightness uint8) error
	Close() error
}

// New creates the renderer selected by cfg.
func New(cfg config.RenderConfig) (Renderer, error) {
	switch cfg.Driver {
	case "", "none":
		return Null{}, nil
	case "opc":
		return NewOPC(cfg.OPC.Address, uint8(cfg.OPC.Channel)), nil
	case "terminal":
		return NewTerminal()
	default:
		return nil, fmt.Errorf("unknown render driver %q", cfg.Driver)
	}
}

// Null discards frames.
type Null struct{}

// Render implements Renderer.
func (Null) Render([]board.HSV, uint8) error { return nil }

// Close implements Renderer.
func (Null) Close() error { return nil }

// RGB converts c to 8-bit RGB and dims it by brightness.
func RGB(c board.HSV, brightness uint8) (r, g, b uint8) {
	r, g, b = palette.ToColor(c).Clamped().RGB255()
	return scale8(r, brightness), scale8(g, brightness), scale8(b, brightness)
}

// scale8 multiplies x by (scale+1)/256, so a scale of 255 leaves x unchanged.
func scale8(x, scale uint8) uint8 {
	return uint8((uint16(x) * (uint16(scale) + 1)) >> 8)
}

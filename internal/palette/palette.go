// Package palette builds the state-color table from configuration and an
// optional Lua script.
package palette

import (
	"fmt"
	"math"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/dokzlo13/dashd/internal/board"
	"github.com/dokzlo13/dashd/internal/protocol"
)

// defaults are the colors the dashboard ships with, keyed by state symbol.
var defaults = map[byte]string{
	'0': "#000000",
	'1': "#000000",
	'2': "#ff0000",
	'3': "#ffff00",
	'4': "#008000",
	'5': "#0000ff",
	'6': "#ee82ee",
}

// Defaults returns the built-in palette. Unlisted states are black.
func Defaults() board.Palette {
	var p board.Palette
	for symbol, hex := range defaults {
		s, _ := protocol.SymbolIndex(symbol)
		c, _ := colorful.Hex(hex)
		p[s] = FromColor(c)
	}
	return p
}

// FromConfig returns the default palette overridden by entries, which map a
// state symbol to a "#rrggbb" color.
func FromConfig(entries map[string]string) (board.Palette, error) {
	p := Defaults()
	for symbol, hex := range entries {
		if err := SetHex(&p, symbol, hex); err != nil {
			return p, err
		}
	}
	return p, nil
}

// SetHex assigns a "#rrggbb" color to the state with the given symbol.
func SetHex(p *board.Palette, symbol, hex string) error {
	s, err := lookup(symbol)
	if err != nil {
		return err
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return fmt.Errorf("state %q: invalid color %q: %w", symbol, hex, err)
	}
	p[s] = FromColor(c)
	return nil
}

// FromColor converts a color to the 8-bit HSV form the board animates.
func FromColor(c colorful.Color) board.HSV {
	h, s, v := c.Hsv()
	return board.HSV{
		H: uint8(int(math.Round(h/360*256)) % 256),
		S: to8(s),
		V: to8(v),
	}
}

// ToColor converts an 8-bit HSV value back to a color.
func ToColor(c board.HSV) colorful.Color {
	return colorful.Hsv(float64(c.H)*360/256, float64(c.S)/255, float64(c.V)/255)
}

func to8(x float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, x)) * 255))
}

func lookup(symbol string) (board.StateID, error) {
	if len(symbol) != 1 {
		return 0, fmt.Errorf("state symbol %q must be a single character", symbol)
	}
	s, ok := protocol.SymbolIndex(symbol[0])
	if !ok {
		return 0, fmt.Errorf("unknown state symbol %q", symbol)
	}
	return s, nil
}

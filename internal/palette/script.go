package palette

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"

	"github.com/dokzlo13/dashd/internal/board"
	"github.com/dokzlo13/dashd/internal/protocol"
)

// RunScript executes a Lua palette script against p. The script can
// require("palette") to read and assign state colors and require("log") to log.
//
//	local palette = require("palette")
//	palette.hex("7", "#ff8800")
//	palette.hsv("8", 160, 255, 200)
func RunScript(path string, p *board.Palette) error {
	L := lua.NewState()
	defer L.Close()

	m := &module{palette: p}
	L.PreloadModule("palette", m.Loader)
	L.PreloadModule("log", newLogModule().Loader)

	log.Info().Str("path", path).Msg("Loading palette script")

	if err := L.DoFile(path); err != nil {
		return fmt.Errorf("failed to execute palette script: %w", err)
	}

	log.Info().Int("assigned", m.assigned).Msg("Palette script loaded")
	return nil
}

// module exposes a palette to Lua.
type module struct {
	palette  *board.Palette
	assigned int
}

// Loader is the module loader for Lua
func (m *module) Loader(L *lua.LState) int {
	mod := L.NewTable()

	L.SetField(mod, "hex", L.NewFunction(m.hex))
	L.SetField(mod, "rgb", L.NewFunction(m.rgb))
	L.SetField(mod, "hsv", L.NewFunction(m.hsv))
	L.SetField(mod, "get", L.NewFunction(m.get))
	L.SetField(mod, "symbols", lua.LString(protocol.Alphabet))

	L.Push(mod)
	return 1
}

// palette.hex(symbol, "#rrggbb")
func (m *module) hex(L *lua.LState) int {
	symbol := L.CheckString(1)
	value := L.CheckString(2)

	if err := SetHex(m.palette, symbol, value); err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}
	m.assigned++
	return 0
}

// palette.rgb(symbol, r, g, b) with components in 0..255
func (m *module) rgb(L *lua.LState) int {
	s := m.checkSymbol(L, 1)
	r, g, b := checkByte(L, 2), checkByte(L, 3), checkByte(L, 4)

	m.palette[s] = FromColor(colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255})
	m.assigned++
	return 0
}

// palette.hsv(symbol, h, s, v) with components in 0..255
func (m *module) hsv(L *lua.LState) int {
	s := m.checkSymbol(L, 1)

	m.palette[s] = board.HSV{H: checkByte(L, 2), S: checkByte(L, 3), V: checkByte(L, 4)}
	m.assigned++
	return 0
}

// palette.get(symbol) -> h, s, v
func (m *module) get(L *lua.LState) int {
	c := m.palette[m.checkSymbol(L, 1)]

	L.Push(lua.LNumber(c.H))
	L.Push(lua.LNumber(c.S))
	L.Push(lua.LNumber(c.V))
	return 3
}

func (m *module) checkSymbol(L *lua.LState, n int) board.StateID {
	s, err := lookup(L.CheckString(n))
	if err != nil {
		L.ArgError(n, err.Error())
	}
	return s
}

func checkByte(L *lua.LState, n int) uint8 {
	v := L.CheckInt(n)
	if v < 0 || v > 255 {
		L.ArgError(n, "value must be in 0..255")
	}
	return uint8(v)
}

package palette

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dokzlo13/dashd/internal/board"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "palette.lua")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	p := Defaults()

	tests := []struct {
		state board.StateID
		want  board.HSV
	}{
		{0, board.HSV{}},
		{1, board.HSV{}},
		{2, board.HSV{H: 0, S: 255, V: 255}},
		{5, board.HSV{H: 171, S: 255, V: 255}},
		{7, board.HSV{}},
	}
	for _, tt := range tests {
		if got := p[tt.state]; got != tt.want {
			t.Errorf("state %d = %+v, want %+v", tt.state, got, tt.want)
		}
	}
	if p[3].V != 255 || p[3].S != 255 {
		t.Errorf("yellow = %+v, want full saturation and value", p[3])
	}
}

func TestFromConfig(t *testing.T) {
	p, err := FromConfig(map[string]string{"a": "#00ff00", "2": "#000000"})
	if err != nil {
		t.Fatalf("FromConfig() error = %v", err)
	}
	if p[10].S != 255 || p[10].V != 255 {
		t.Errorf("state a = %+v", p[10])
	}
	if p[2] != (board.HSV{}) {
		t.Errorf("state 2 override = %+v, want black", p[2])
	}

	for _, bad := range []map[string]string{
		{"#": "#ffffff"},
		{"ab": "#ffffff"},
		{"2": "red"},
	} {
		if _, err := FromConfig(bad); err == nil {
			t.Errorf("FromConfig(%v) should fail", bad)
		}
	}
}

func TestColorRoundTrip(t *testing.T) {
	c := board.HSV{H: 96, S: 255, V: 200}
	if got := FromColor(ToColor(c)); got != c {
		t.Errorf("round trip = %+v, want %+v", got, c)
	}
}

func TestRunScript(t *testing.T) {
	path := writeScript(t, `
local palette = require("palette")
local log = require("log")

palette.hex("7", "#ffffff")
palette.hsv("8", 160, 255, 200)
palette.rgb("X", 255, 0, 0)

local h, s, v = palette.get("8")
if h ~= 160 or s ~= 255 or v ~= 200 then
  error("unexpected color")
end
if string.sub(palette.symbols, 1, 3) ~= "012" then
  error("unexpected symbols")
end
log.info("palette ready", { states = 3 })
`)

	p := Defaults()
	if err := RunScript(path, &p); err != nil {
		t.Fatalf("RunScript() error = %v", err)
	}

	if p[7] != (board.HSV{H: 0, S: 0, V: 255}) {
		t.Errorf("state 7 = %+v", p[7])
	}
	if p[8] != (board.HSV{H: 160, S: 255, V: 200}) {
		t.Errorf("state 8 = %+v", p[8])
	}
	if p[70] != (board.HSV{H: 0, S: 255, V: 255}) {
		t.Errorf("state X = %+v", p[70])
	}
}

func TestRunScriptErrors(t *testing.T) {
	tests := []struct {
		name   string
		script string
	}{
		{"syntax", `palette = (`},
		{"unknown_symbol", `require("palette").hsv("#", 1, 2, 3)`},
		{"out_of_range", `require("palette").hsv("2", 1, 2, 300)`},
		{"bad_hex", `require("palette").hex("2", "nope")`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Defaults()
			err := RunScript(writeScript(t, tt.script), &p)
			if err == nil || !strings.Contains(err.Error(), "palette script") {
				t.Errorf("RunScript() error = %v, want script failure", err)
			}
		})
	}
}

package render

import (
	"fmt"

	"github.com/gdamore/tcell/v2"

	"github.com/dokzlo13/dashd/internal/board"
)

// Terminal previews frames in the terminal, two cells per pixel.
type Terminal struct {
	screen tcell.Screen
}

// NewTerminal takes over the terminal until Close.
func NewTerminal() (*Terminal, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("failed to create terminal screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize terminal screen: %w", err)
	}
	screen.Clear()
	return &Terminal{screen: screen}, nil
}

// Render implements Renderer.
func (t *Terminal) Render(frame []board.HSV, brightness uint8) error {
	width, _ := t.screen.Size()
	perRow := width / 3
	if perRow < 1 {
		perRow = 1
	}

	for i, c := range frame {
		r, g, b := RGB(c, brightness)
		style := tcell.StyleDefault.Background(tcell.NewRGBColor(int32(r), int32(g), int32(b)))
		x, y := (i%perRow)*3, i/perRow
		t.screen.SetContent(x, y, ' ', nil, style)
		t.screen.SetContent(x+1, y, ' ', nil, style)
	}
	t.screen.Show()
	return nil
}

// Close implements Renderer.
func (t *Terminal) Close() error {
	t.screen.Fini()
	return nil
}

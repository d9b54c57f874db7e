package protocol

import (
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/dashd/internal/board"
)

// StatusSink receives every published board status.
type StatusSink interface {
	PublishStatus(status string)
}

// Parser applies commands to a board and publishes its status whenever a
// channel commits a new state or a query arrives.
type Parser struct {
	board *board.Board
	sink  StatusSink
}

// NewParser creates a parser for b and registers it as b's change listener.
func NewParser(b *board.Board, sink StatusSink) *Parser {
	p := &Parser{
		board: b,
		sink:  sink,
	}
	b.SetListener(p)
	return p
}

// HandleCommand applies text and reports whether it was accepted. A rejected
// command changes nothing and publishes nothing.
func (p *Parser) HandleCommand(text string) bool {
	cmd, err := Parse(text, p.board.Len())
	if err != nil {
		log.Debug().Err(err).Str("command", text).Msg("Command rejected")
		return false
	}

	if cmd.Query {
		p.PublishStatus()
		return true
	}

	log.Debug().
		Int("channel", cmd.Channel).
		Str("state", string(Symbol(cmd.State))).
		Msg("State change requested")

	p.board.RequestTransition(cmd.Channel, cmd.State)
	return true
}

// StateChanged implements board.ChangeListener.
func (p *Parser) StateChanged(index int) {
	p.PublishStatus()
}

// PublishStatus sends the current status to the sink.
func (p *Parser) PublishStatus() {
	if p.sink != nil {
		p.sink.PublishStatus(FormatStatus(p.board))
	}
}

// FormatStatus returns one symbol per channel in index order. Channels in
// the middle of a fade report the state they are leaving.
func FormatStatus(b *board.Board) string {
	var sb strings.Builder
	sb.Grow(b.Len())
	for _, s := range b.States() {
		sb.WriteByte(Symbol(s))
	}
	return sb.String()
}

// Package protocol implements the text command protocol of the dashboard:
// "n=M" sets channel n to the state with symbol M, "?" asks for the status,
// and the status is a string holding one symbol per channel.
package protocol

import (
	"errors"
	"strconv"
	"strings"

	"github.com/dokzlo13/dashd/internal/board"
)

// QueryCommand requests the full-board status without changing anything.
const QueryCommand = "?"

var (
	ErrMissingSeparator = errors.New("missing '=' after channel index")
	ErrBadIndex         = errors.New("channel index is not numeric")
	ErrValueLength      = errors.New("state value must be a single symbol")
	ErrIndexRange       = errors.New("channel index out of range")
	ErrUnknownSymbol    = errors.New("unknown state symbol")
)

// Command is a decoded state-change request.
type Command struct {
	Query   bool
	Channel int
	State   board.StateID
}

// Parse decodes text against a board of n channels.
//
// The index may carry one decimal point ("3." or "3.7" address channel 3);
// only its leading digits are used.
func Parse(text string, n int) (Command, error) {
	if text == QueryCommand {
		return Command{Query: true}, nil
	}

	p := strings.IndexByte(text, '=')
	if p < 1 {
		return Command{}, ErrMissingSeparator
	}
	indexPart, valuePart := text[:p], text[p+1:]

	if !isNumeric(indexPart) {
		return Command{}, ErrBadIndex
	}
	if len(valuePart) != 1 {
		return Command{}, ErrValueLength
	}

	v, ok := leadingInt(indexPart)
	if !ok || v >= n {
		return Command{}, ErrIndexRange
	}

	s, ok := SymbolIndex(valuePart[0])
	if !ok {
		return Command{}, ErrUnknownSymbol
	}

	return Command{Channel: v, State: s}, nil
}

// isNumeric reports whether s is non-empty and made of digits with at most one '.'.
func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	seenDecimal := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c == '.' && !seenDecimal:
			seenDecimal = true
		default:
			return false
		}
	}
	return true
}

// leadingInt converts the digits before any decimal point. No digits reads as 0.
// ok is false when the value does not fit an int.
func leadingInt(s string) (int, bool) {
	end := strings.IndexByte(s, '.')
	if end < 0 {
		end = len(s)
	}
	if end == 0 {
		return 0, true
	}
	v, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return v, true
}

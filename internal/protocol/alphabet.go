package protocol

import (
	"strings"

	"github.com/dokzlo13/dashd/internal/board"
)

// Alphabet is the ordered set of state symbols. A symbol's position is its StateID.
const Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz-_:.?!$%/<>ABCDEFGHIJKLMNOPQRSTUVWXYZ "

// SymbolIndex returns the StateID of symbol c.
func SymbolIndex(c byte) (board.StateID, bool) {
	i := strings.IndexByte(Alphabet, c)
	if i < 0 {
		return 0, false
	}
	return board.StateID(i), true
}

// Symbol returns the alphabet symbol of state s. States past the end of the
// alphabet cannot be reached through commands and render as the first symbol.
func Symbol(s board.StateID) byte {
	if int(s) >= len(Alphabet) {
		return Alphabet[0]
	}
	return Alphabet[s]
}

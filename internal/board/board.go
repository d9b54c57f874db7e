// Package board holds the per-channel state of the dashboard and the engines
// that animate it: fading between states and cooling recently changed channels.
//
// A Board is not safe for concurrent use. It is owned by a single control loop
// which interleaves command handling, fade ticks and cooldown ticks.
package board

import (
	"fmt"
)

// StateID indexes the 256-entry palette.
type StateID uint8

// MaxChannels is the largest supported channel count.
const MaxChannels = 254

// MaxHeat is the heat assigned to a channel that has just changed.
const MaxHeat = 255

// ChangeListener is notified whenever a channel's committed state changes.
type ChangeListener interface {
	StateChanged(index int)
}

// Params are the global animation parameters.
type Params struct {
	// FadeFrames is the length of each half of a transition, in animation ticks.
	FadeFrames int
	// RestingHeat is the floor cooldown decays toward ("cold" brightness).
	RestingHeat uint8
}

// Channel is one logical indicator slot.
type Channel struct {
	state  StateID
	next   StateID
	phase  Phase
	heat   uint8
	output int
}

// ChannelView is a read-only snapshot of a channel.
type ChannelView struct {
	State  StateID
	Next   StateID
	Phase  Phase
	Heat   uint8
	Output int
}

// Board is the fixed-size array of channels plus the palette they draw from.
type Board struct {
	channels []Channel
	palette  Palette
	params   Params
	listener ChangeListener
}

// New allocates a board of n channels, all idle in state 0 with no heat.
func New(n int, palette Palette, params Params) (*Board, error) {
	if n < 1 || n > MaxChannels {
		return nil, fmt.Errorf("channel count %d out of range 1..%d", n, MaxChannels)
	}
	if params.FadeFrames < 1 {
		return nil, fmt.Errorf("fade frames must be positive, got %d", params.FadeFrames)
	}
	if params.RestingHeat == MaxHeat {
		return nil, fmt.Errorf("resting heat must be below %d", MaxHeat)
	}

	b := &Board{
		channels: make([]Channel, n),
		palette:  palette,
		params:   params,
	}
	for i := range b.channels {
		b.channels[i].output = i
	}
	b.Reset()
	return b, nil
}

// SetListener registers the receiver of committed state changes.
func (b *Board) SetListener(l ChangeListener) {
	b.listener = l
}

// Len returns the channel count.
func (b *Board) Len() int {
	return len(b.channels)
}

// FrameSize returns the number of output slots a render frame needs.
// One spare slot past the last channel is kept, as the strip is wired with it.
func (b *Board) FrameSize() int {
	return len(b.channels) + 1
}

// Params returns the animation parameters.
func (b *Board) Params() Params {
	return b.params
}

// Color returns the palette entry for a state.
func (b *Board) Color(s StateID) HSV {
	return b.palette[s]
}

// Get returns a snapshot of channel i. ok is false if i is out of range.
func (b *Board) Get(i int) (view ChannelView, ok bool) {
	if i < 0 || i >= len(b.channels) {
		return ChannelView{}, false
	}
	c := &b.channels[i]
	return ChannelView{
		State:  c.state,
		Next:   c.next,
		Phase:  c.phase,
		Heat:   c.heat,
		Output: c.output,
	}, true
}

// States returns the committed state of every channel in index order.
func (b *Board) States() []StateID {
	states := make([]StateID, len(b.channels))
	for i := range b.channels {
		states[i] = b.channels[i].state
	}
	return states
}

// Remap assigns output slots to channels. mapping[i] is the slot of channel i;
// slots must be distinct and fit in a frame.
func (b *Board) Remap(mapping []int) error {
	if len(mapping) != len(b.channels) {
		return fmt.Errorf("mapping has %d entries, want %d", len(mapping), len(b.channels))
	}
	seen := make(map[int]bool, len(mapping))
	for i, slot := range mapping {
		if slot < 0 || slot >= b.FrameSize() {
			return fmt.Errorf("channel %d: output slot %d out of range", i, slot)
		}
		if seen[slot] {
			return fmt.Errorf("channel %d: output slot %d already used", i, slot)
		}
		seen[slot] = true
	}
	for i, slot := range mapping {
		b.channels[i].output = slot
	}
	return nil
}

// Reset returns every channel to state 0, idle, with no heat. Output slots are kept.
func (b *Board) Reset() {
	for i := range b.channels {
		c := &b.channels[i]
		c.state = 0
		c.next = 0
		c.phase = Idle()
		c.heat = 0
	}
}

func (b *Board) notify(i int) {
	if b.listener != nil {
		b.listener.StateChanged(i)
	}
}

package board

// RequestTransition asks channel i to move to state s.
//
// An idle channel already showing s is left alone. An idle channel starts fading
// its current color out. A channel still fading out only has its target replaced,
// keeping its timing. A channel already fading in commits the state it was heading
// to, then fades that state out toward s from its current brightness.
// Out-of-range indices are ignored.
func (b *Board) RequestTransition(i int, s StateID) {
	if i < 0 || i >= len(b.channels) {
		return
	}
	c := &b.channels[i]

	switch c.phase.Kind {
	case PhaseIdle:
		if c.state == s {
			return
		}
		c.next = s
		c.phase = FadingOut(b.params.FadeFrames)
	case PhaseFadingOut:
		c.next = s
	case PhaseFadingIn:
		c.state = c.next
		c.next = s
		c.phase = c.phase.inverted()
		b.notify(i)
	}
}

// AdvanceFade runs one animation tick on every channel and writes each
// channel's displayed color into frame at its output slot. frame must hold
// at least FrameSize entries.
func (b *Board) AdvanceFade(frame []HSV) {
	fadeFrames := b.params.FadeFrames

	for i := range b.channels {
		c := &b.channels[i]

		switch c.phase.Kind {
		case PhaseIdle:
			frame[c.output] = b.palette[c.state].withHeat(c.heat)
			continue
		case PhaseFadingOut:
			frame[c.output] = b.palette[c.state].scaled(c.phase.Frames, fadeFrames).withHeat(c.heat)
		case PhaseFadingIn:
			// Past the midpoint the change is visible, so it glows at full heat.
			c.heat = MaxHeat
			frame[c.output] = b.palette[c.next].scaled(c.phase.Frames, fadeFrames).withHeat(c.heat)
		}

		var done bool
		c.phase, done = c.phase.next(fadeFrames)
		if done {
			c.state = c.next
			frame[c.output] = b.palette[c.state].withHeat(c.heat)
			b.notify(i)
		}
	}
}

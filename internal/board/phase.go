package board

// PhaseKind is the direction of a channel's fade.
type PhaseKind uint8

const (
	PhaseIdle PhaseKind = iota
	PhaseFadingOut
	PhaseFadingIn
)

// String returns a human-readable name for the phase kind.
func (k PhaseKind) String() string {
	switch k {
	case PhaseIdle:
		return "idle"
	case PhaseFadingOut:
		return "fading_out"
	case PhaseFadingIn:
		return "fading_in"
	default:
		return "unknown"
	}
}

// Phase is the fade progress of a channel.
//
// While fading out, Frames counts the fade-out frames still to be shown (F..1).
// While fading in, Frames counts the fade-in frames already shown (0..F).
// Idle phases carry no frame count.
type Phase struct {
	Kind   PhaseKind
	Frames int
}

// Idle returns the resting phase.
func Idle() Phase { return Phase{Kind: PhaseIdle} }

// FadingOut returns a fade-out phase with n frames remaining.
func FadingOut(n int) Phase { return Phase{Kind: PhaseFadingOut, Frames: n} }

// FadingIn returns a fade-in phase with n frames elapsed.
func FadingIn(n int) Phase { return Phase{Kind: PhaseFadingIn, Frames: n} }

// IsIdle reports whether no transition is in progress.
func (p Phase) IsIdle() bool { return p.Kind == PhaseIdle }

// Counter returns the signed fade counter: positive while fading out, zero or
// negative while fading in. ok is false for idle phases.
func (p Phase) Counter() (v int, ok bool) {
	switch p.Kind {
	case PhaseFadingOut:
		return p.Frames, true
	case PhaseFadingIn:
		return -p.Frames, true
	default:
		return 0, false
	}
}

// inverted turns a fade-in into a fade-out covering the same distance, so a
// retargeted channel dims from where it is instead of restarting.
// FadingIn(0) has nothing to dim and stays a fade-in.
func (p Phase) inverted() Phase {
	if p.Kind != PhaseFadingIn || p.Frames == 0 {
		return p
	}
	return FadingOut(p.Frames)
}

// next advances the phase by one animation frame. done is true when the
// fade-in has run past its last frame and the transition must commit.
func (p Phase) next(fadeFrames int) (np Phase, done bool) {
	switch p.Kind {
	case PhaseFadingOut:
		if p.Frames > 1 {
			return FadingOut(p.Frames - 1), false
		}
		return FadingIn(0), false
	case PhaseFadingIn:
		if p.Frames+1 > fadeFrames {
			return Idle(), true
		}
		return FadingIn(p.Frames + 1), false
	default:
		return p, false
	}
}

package board

import "testing"

func TestPhaseCounter(t *testing.T) {
	tests := []struct {
		phase  Phase
		want   int
		wantOK bool
	}{
		{Idle(), 0, false},
		{FadingOut(35), 35, true},
		{FadingOut(1), 1, true},
		{FadingIn(0), 0, true},
		{FadingIn(35), -35, true},
	}

	for _, tt := range tests {
		got, ok := tt.phase.Counter()
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("%v(%d).Counter() = %d, %v; want %d, %v", tt.phase.Kind, tt.phase.Frames, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestPhaseNext(t *testing.T) {
	tests := []struct {
		name     string
		phase    Phase
		want     Phase
		wantDone bool
	}{
		{"idle_stays_idle", Idle(), Idle(), false},
		{"fade_out_counts_down", FadingOut(3), FadingOut(2), false},
		{"fade_out_crosses_zero", FadingOut(1), FadingIn(0), false},
		{"fade_in_counts_up", FadingIn(0), FadingIn(1), false},
		{"fade_in_last_frame", FadingIn(2), FadingIn(3), false},
		{"fade_in_completes", FadingIn(3), Idle(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, done := tt.phase.next(3)
			if got != tt.want || done != tt.wantDone {
				t.Errorf("next() = %+v, %v; want %+v, %v", got, done, tt.want, tt.wantDone)
			}
		})
	}
}

func TestPhaseInverted(t *testing.T) {
	tests := []struct {
		phase Phase
		want  Phase
	}{
		{FadingIn(2), FadingOut(2)},
		{FadingIn(0), FadingIn(0)},
		{FadingOut(2), FadingOut(2)},
		{Idle(), Idle()},
	}

	for _, tt := range tests {
		if got := tt.phase.inverted(); got != tt.want {
			t.Errorf("%+v.inverted() = %+v, want %+v", tt.phase, got, tt.want)
		}
	}
}

func TestPhaseKindString(t *testing.T) {
	if PhaseFadingIn.String() != "fading_in" || PhaseKind(9).String() != "unknown" {
		t.Error("unexpected PhaseKind names")
	}
}

package protocol

import (
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/dokzlo13/dashd/internal/board"
)

const testFadeFrames = 35

type statusRecorder struct {
	statuses []string
}

func (r *statusRecorder) PublishStatus(status string) {
	r.statuses = append(r.statuses, status)
}

func newTestParser(t *testing.T, n int) (*Parser, *board.Board, *statusRecorder) {
	t.Helper()
	b, err := board.New(n, board.Palette{}, board.Params{FadeFrames: testFadeFrames, RestingHeat: 128})
	if err != nil {
		t.Fatalf("board.New() error = %v", err)
	}
	rec := &statusRecorder{}
	return NewParser(b, rec), b, rec
}

func snapshot(b *board.Board) []board.ChannelView {
	views := make([]board.ChannelView, b.Len())
	for i := range views {
		views[i], _ = b.Get(i)
	}
	return views
}

func assertUnchanged(t *testing.T, b *board.Board, before []board.ChannelView) {
	t.Helper()
	for i, v := range snapshot(b) {
		if v != before[i] {
			t.Errorf("channel %d changed: %+v -> %+v", i, before[i], v)
		}
	}
}

func TestAlphabet(t *testing.T) {
	if len(Alphabet) != 74 {
		t.Fatalf("len(Alphabet) = %d, want 74", len(Alphabet))
	}
	for i := 0; i < len(Alphabet); i++ {
		s, ok := SymbolIndex(Alphabet[i])
		if !ok || int(s) != i {
			t.Errorf("SymbolIndex(%q) = %d, %v; want %d", Alphabet[i], s, ok, i)
		}
		if Symbol(s) != Alphabet[i] {
			t.Errorf("Symbol(%d) = %q, want %q", s, Symbol(s), Alphabet[i])
		}
	}
	if _, ok := SymbolIndex('#'); ok {
		t.Error("'#' should not be a symbol")
	}
	if Symbol(200) != '0' {
		t.Errorf("Symbol(200) = %q, want '0'", Symbol(200))
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    Command
		wantErr error
	}{
		{name: "query", text: "?", want: Command{Query: true}},
		{name: "simple", text: "3=2", want: Command{Channel: 3, State: 2}},
		{name: "letter_state", text: "0=a", want: Command{Channel: 0, State: 10}},
		{name: "space_state", text: "4= ", want: Command{Channel: 4, State: 73}},
		{name: "question_mark_state", text: "1=?", want: Command{Channel: 1, State: 40}},
		{name: "decimal_index", text: "3.=2", want: Command{Channel: 3, State: 2}},
		{name: "decimal_fraction_index", text: "2.9=2", want: Command{Channel: 2, State: 2}},
		{name: "bare_decimal_point", text: ".=2", want: Command{Channel: 0, State: 2}},
		{name: "leading_zeros", text: "004=z", want: Command{Channel: 4, State: 35}},
		{name: "empty", text: "", wantErr: ErrMissingSeparator},
		{name: "no_separator", text: "32", wantErr: ErrMissingSeparator},
		{name: "empty_index", text: "=2", wantErr: ErrMissingSeparator},
		{name: "negative_index", text: "-1=2", wantErr: ErrBadIndex},
		{name: "two_decimal_points", text: "1.2.=2", wantErr: ErrBadIndex},
		{name: "alpha_index", text: "a=2", wantErr: ErrBadIndex},
		{name: "value_too_long", text: "1=ab", wantErr: ErrValueLength},
		{name: "value_empty", text: "1=", wantErr: ErrValueLength},
		{name: "second_separator", text: "1==", wantErr: ErrUnknownSymbol},
		{name: "index_out_of_range", text: "7=2", wantErr: ErrIndexRange},
		{name: "index_at_count", text: "5=2", wantErr: ErrIndexRange},
		{name: "index_overflow", text: "99999999999999999999=2", wantErr: ErrIndexRange},
		{name: "unknown_symbol", text: "1=#", wantErr: ErrUnknownSymbol},
		{name: "multibyte_symbol", text: "1=é", wantErr: ErrValueLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.text, 5)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Parse(%q) error = %v, want %v", tt.text, err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.text, got, tt.want)
			}
		})
	}
}

func TestHandleCommandStartsFade(t *testing.T) {
	p, b, rec := newTestParser(t, 5)

	if !p.HandleCommand("3=2") {
		t.Fatal("HandleCommand(\"3=2\") rejected")
	}

	v, _ := b.Get(3)
	if v.Phase != board.FadingOut(testFadeFrames) || v.Next != 2 {
		t.Errorf("channel 3 = %+v, want FadingOut(%d) toward 2", v, testFadeFrames)
	}
	if got := FormatStatus(b); got != "00000" {
		t.Errorf("status mid-fade = %q, want %q", got, "00000")
	}

	frame := make([]board.HSV, b.FrameSize())
	for i := 0; i < 2*testFadeFrames+2; i++ {
		b.AdvanceFade(frame)
	}

	if got := FormatStatus(b); got != "00020" {
		t.Errorf("status = %q, want %q", got, "00020")
	}
	if len(rec.statuses) != 1 || rec.statuses[0] != "00020" {
		t.Errorf("published = %v, want [00020]", rec.statuses)
	}
}

func TestHandleCommandRejections(t *testing.T) {
	for _, text := range []string{"7=2", "1=ab", "=2", "x", "1=#", "1.1.1=2"} {
		t.Run(text, func(t *testing.T) {
			p, b, rec := newTestParser(t, 5)
			before := snapshot(b)

			if p.HandleCommand(text) {
				t.Errorf("HandleCommand(%q) accepted", text)
			}
			assertUnchanged(t, b, before)
			if len(rec.statuses) != 0 {
				t.Errorf("published %v on rejection", rec.statuses)
			}
		})
	}
}

func TestHandleCommandQuery(t *testing.T) {
	p, b, rec := newTestParser(t, 5)
	p.HandleCommand("1=a")
	before := snapshot(b)

	if !p.HandleCommand("?") {
		t.Fatal("query rejected")
	}

	assertUnchanged(t, b, before)
	if len(rec.statuses) != 1 || rec.statuses[0] != "00000" {
		t.Errorf("published = %v, want [00000]", rec.statuses)
	}
}

func TestHandleCommandSameStateAccepted(t *testing.T) {
	p, b, rec := newTestParser(t, 5)
	before := snapshot(b)

	if !p.HandleCommand("2=0") {
		t.Error("no-op command should still be accepted")
	}
	assertUnchanged(t, b, before)
	if len(rec.statuses) != 0 {
		t.Errorf("published %v for a no-op", rec.statuses)
	}
}

func TestRetargetWhileFadingInPublishesOnce(t *testing.T) {
	p, b, rec := newTestParser(t, 3)
	p.HandleCommand("0=2")

	frame := make([]board.HSV, b.FrameSize())
	for i := 0; i < testFadeFrames+3; i++ {
		b.AdvanceFade(frame)
	}
	p.HandleCommand("0=5")

	if len(rec.statuses) != 1 || rec.statuses[0] != "200" {
		t.Errorf("published = %v, want [200]", rec.statuses)
	}
}

func TestFormatStatusMembership(t *testing.T) {
	p, b, _ := newTestParser(t, 20)
	for i := 0; i < 20; i++ {
		p.HandleCommand(strconv.Itoa(i) + "=" + string(Alphabet[i*3]))
	}
	frame := make([]board.HSV, b.FrameSize())
	for i := 0; i < 2*testFadeFrames+2; i++ {
		b.AdvanceFade(frame)
	}

	status := FormatStatus(b)
	if len(status) != b.Len() {
		t.Fatalf("len(status) = %d, want %d", len(status), b.Len())
	}
	for i := 0; i < len(status); i++ {
		if !strings.ContainsRune(Alphabet, rune(status[i])) {
			t.Errorf("status[%d] = %q not in alphabet", i, status[i])
		}
	}
}

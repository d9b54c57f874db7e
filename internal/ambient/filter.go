// Package ambient turns raw ambient-light readings into a global output brightness.
package ambient

import "math"

// Settings configure a Filter.
type Settings struct {
	Window int     // moving-average window, in samples
	Curve  float64 // exponent applied to the normalized reading
	MaxRaw float64 // raw reading that means full daylight
	Low    uint8   // brightness in darkness
	High   uint8   // brightness in full light
}

// Filter smooths readings with a fixed-window moving average and maps the
// result onto the Low..High brightness range.
type Filter struct {
	settings Settings
	samples  []float64
	next     int
	count    int
}

// NewFilter returns a filter seeded with a single full-light sample, so the
// board starts bright and dims as real readings arrive.
func NewFilter(s Settings) *Filter {
	if s.Window < 1 {
		s.Window = 1
	}
	if s.MaxRaw <= 0 {
		s.MaxRaw = 1
	}
	if s.Low > s.High {
		s.Low, s.High = s.High, s.Low
	}
	f := &Filter{
		settings: s,
		samples:  make([]float64, s.Window),
	}
	f.push(1)
	return f
}

// Add feeds a raw reading and returns the new brightness.
func (f *Filter) Add(raw float64) uint8 {
	ratio := raw / f.settings.MaxRaw
	if ratio < 0 || math.IsNaN(ratio) {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	f.push(math.Pow(ratio, f.settings.Curve))
	return f.Brightness()
}

// Average returns the mean of the samples in the window.
func (f *Filter) Average() float64 {
	if f.count == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < f.count; i++ {
		sum += f.samples[i]
	}
	return sum / float64(f.count)
}

// Brightness maps the current average onto the configured range.
func (f *Filter) Brightness() uint8 {
	low, high := int(f.settings.Low), int(f.settings.High)
	x := int(f.Average() * 255)
	b := low + x*(high-low)/255
	if b < low {
		b = low
	}
	if b > high {
		b = high
	}
	return uint8(b)
}

func (f *Filter) push(v float64) {
	f.samples[f.next] = v
	f.next = (f.next + 1) % len(f.samples)
	if f.count < len(f.samples) {
		f.count++
	}
}

package board

// HSV is an 8-bit hue/saturation/value color. Hue covers the full circle in 0..255.
type HSV struct {
	H uint8
	S uint8
	V uint8
}

// Palette maps every StateID to the color displayed for it.
type Palette [256]HSV

var (
	Black = HSV{}
	White = HSV{H: 0, S: 0, V: 255}
)

// scaled returns c with its value interpolated linearly from 0 (x=0) to c.V (x=max).
// Hue and saturation are left alone.
func (c HSV) scaled(x, max int) HSV {
	if max <= 0 {
		return HSV{H: c.H, S: c.S}
	}
	c.V = uint8(int(c.V) * x / max)
	return c
}

// withHeat applies the heat boost on top of the base value.
func (c HSV) withHeat(heat uint8) HSV {
	return c.scaled(int(heat), 255)
}

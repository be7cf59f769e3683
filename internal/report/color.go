package report

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/sadopc/daytracker/internal/store"
)

// Blend interpolates between low and high at pos, in linear RGB with alpha
// interpolated straight.
func Blend(low, high store.Color, pos float64) store.Color {
	pos = max(0, min(1, pos))
	lc, la := toColorful(low)
	hc, ha := toColorful(high)
	c := lc.BlendLinearRgb(hc, pos).Clamped()
	a := la + (ha-la)*pos
	return fromColorful(c, a)
}

// Hex is the #RRGGBB form of a gradient position, ready for lipgloss.
func Hex(low, high store.Color, pos float64) string {
	return Blend(low, high, pos).Hex()
}

func toColorful(c store.Color) (colorful.Color, float64) {
	v := uint32(c)
	return colorful.Color{
		R: float64(v>>16&0xFF) / 255,
		G: float64(v>>8&0xFF) / 255,
		B: float64(v&0xFF) / 255,
	}, float64(v>>24) / 255
}

func fromColorful(c colorful.Color, alpha float64) store.Color {
	r, g, b := c.RGB255()
	a := uint32(math.Round(alpha * 255))
	return store.Color(a<<24 | uint32(r)<<16 | uint32(g)<<8 | uint32(b))
}

// Package palette holds the colour helpers shared by the animation modes and
// the particle system.
package palette

import (
	"image/color"
	"math"
	"math/rand/v2"
)

// HSV converts HSV to an opaque colour (hue: 0-360, saturation: 0-1, value: 0-1).
func HSV(h, s, v float64) color.RGBA {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	c := v * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := v - c

	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}

	return color.RGBA{R: channel(r + m), G: channel(g + m), B: channel(b + m), A: 255}
}

// Random returns an opaque colour with every channel in [50, 255].
func Random(rng *rand.Rand) color.RGBA {
	return color.RGBA{
		R: uint8(50 + rng.IntN(206)),
		G: uint8(50 + rng.IntN(206)),
		B: uint8(50 + rng.IntN(206)),
		A: 255,
	}
}

// Rainbow returns a uniformly random hue at full saturation and value.
func Rainbow(rng *rand.Rand) color.RGBA {
	return HSV(rng.Float64()*360, 1, 1)
}

// Brighten adds delta to each channel, saturating at 255.
func Brighten(c color.RGBA, delta uint8) color.RGBA {
	add := func(v uint8) uint8 {
		return uint8(min(255, int(v)+int(delta)))
	}
	return color.RGBA{R: add(c.R), G: add(c.G), B: add(c.B), A: c.A}
}

// Average is the channel-wise integer mean of two colours.
func Average(a, b color.RGBA) color.RGBA {
	return color.RGBA{
		R: uint8((int(a.R) + int(b.R)) / 2),
		G: uint8((int(a.G) + int(b.G)) / 2),
		B: uint8((int(a.B) + int(b.B)) / 2),
		A: 255,
	}
}

func channel(v float64) uint8 {
	return uint8(math.Round(clamp01(v) * 255))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

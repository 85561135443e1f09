package anim

import (
	"image/color"
	"math/rand/v2"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/iburimskiy/motion-screensaver/internal/palette"
)

// Endpoint is one end of a segment, drifting on its own velocity.
type Endpoint struct {
	Pos r2.Vec
	Vel r2.Vec
}

// step moves e and reflects it off the play-field border, keeping it inside
// [0, width] x [0, height].
func (e *Endpoint) step(width, height float64) {
	e.Pos = r2.Add(e.Pos, e.Vel)
	if e.Pos.X <= 0 || e.Pos.X >= width {
		e.Vel.X = -e.Vel.X
		e.Pos.X = clampf(e.Pos.X, 0, width)
	}
	if e.Pos.Y <= 0 || e.Pos.Y >= height {
		e.Vel.Y = -e.Vel.Y
		e.Pos.Y = clampf(e.Pos.Y, 0, height)
	}
}

type Segment struct {
	A, B  Endpoint
	Color color.RGBA
	Width float32
}

// LineArt draws segments whose endpoints bounce independently.
type LineArt struct {
	Segments []Segment

	width, height float64
}

func NewLineArt(count, speed, width, height int, rng *rand.Rand) *LineArt {
	m := &LineArt{width: float64(width), height: float64(height)}
	choices := velocityChoices(speed, 1)
	randVel := func() r2.Vec {
		return r2.Vec{
			X: float64(choices[rng.IntN(len(choices))]),
			Y: float64(choices[rng.IntN(len(choices))]),
		}
	}
	randPos := func() r2.Vec {
		return r2.Vec{X: float64(rng.IntN(max(1, width))), Y: float64(rng.IntN(max(1, height)))}
	}

	m.Segments = make([]Segment, count)
	for i := range m.Segments {
		m.Segments[i] = Segment{
			A:     Endpoint{Pos: randPos(), Vel: randVel()},
			B:     Endpoint{Pos: randPos(), Vel: randVel()},
			Color: palette.Random(rng),
			Width: float32(1 + rng.IntN(3)),
		}
	}
	return m
}

func (m *LineArt) Advance() {
	for i := range m.Segments {
		m.Segments[i].A.step(m.width, m.height)
		m.Segments[i].B.step(m.width, m.height)
	}
}

func (m *LineArt) Draw(screen *ebiten.Image) {
	for _, s := range m.Segments {
		vector.StrokeLine(screen,
			float32(s.A.Pos.X), float32(s.A.Pos.Y),
			float32(s.B.Pos.X), float32(s.B.Pos.Y),
			s.Width, s.Color, true)
	}
}

package anim

import (
	"image/color"
	"math"
	"math/rand/v2"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/iburimskiy/motion-screensaver/internal/config"
	"github.com/iburimskiy/motion-screensaver/internal/palette"
	"github.com/iburimskiy/motion-screensaver/internal/particle"
)

// Spark burst sizes.
const (
	wallSparksMin = 5
	wallSparksMax = 10
	hitSparksMin  = 10
	hitSparksMax  = 20
)

// minSpeed is the smallest per-axis speed a body keeps after a collision.
const minSpeed = 1.0

// Body is a bouncing ball. Mass follows the current radius.
type Body struct {
	Pos    r2.Vec
	Vel    r2.Vec
	Radius float64
	Color  color.RGBA
}

func (b *Body) Mass() float64 { return b.Radius * b.Radius }

// Balls is the bouncing-body simulation.
type Balls struct {
	Bodies []Body

	width, height float64
	minR, maxR    int
	wallSparks    bool
	sparkMode     config.ParticleColorMode
	rng           *rand.Rand
	sparks        *particle.System
}

func NewBalls(cfg config.Config, width, height int, rng *rand.Rand, sparks *particle.System) *Balls {
	m := &Balls{
		width:      float64(width),
		height:     float64(height),
		minR:       config.MinBallRadius,
		maxR:       config.MaxBallRadius,
		wallSparks: cfg.WallSparkEnabled,
		sparkMode:  cfg.ParticleColorMode,
		rng:        rng,
		sparks:     sparks,
	}

	choices := velocityChoices(cfg.MaxVelocity, 2)
	m.Bodies = make([]Body, cfg.BallCount)
	for i := range m.Bodies {
		r := m.randomRadius()
		m.Bodies[i] = Body{
			Pos: r2.Vec{
				X: float64(randRange(rng, r, max(r+1, width-r))),
				Y: float64(randRange(rng, r, max(r+1, height-r))),
			},
			Vel: r2.Vec{
				X: float64(choices[rng.IntN(len(choices))]),
				Y: float64(choices[rng.IntN(len(choices))]),
			},
			Radius: float64(r),
			Color:  palette.Random(rng),
		}
	}
	return m
}

// Advance moves every body, resolves wall hits, then resolves every
// overlapping pair.
func (m *Balls) Advance() {
	for i := range m.Bodies {
		b := &m.Bodies[i]
		before := b.Color
		if !m.moveBody(b) {
			continue
		}
		if m.wallSparks {
			m.sparks.SpawnBurst(wallSparksMin, wallSparksMax, b.Pos, before, m.sparkMode)
		}
		b.Color = palette.Random(m.rng)
		b.Radius = float64(m.randomRadius())
		m.clamp(b)
	}

	for i := 0; i < len(m.Bodies); i++ {
		for j := i + 1; j < len(m.Bodies); j++ {
			a, b := &m.Bodies[i], &m.Bodies[j]
			if !Overlapping(a, b) {
				continue
			}
			a.Color = palette.Random(m.rng)
			b.Color = palette.Random(m.rng)
			mid := r2.Scale(0.5, r2.Add(a.Pos, b.Pos))
			m.sparks.SpawnBurst(hitSparksMin, hitSparksMax, mid, palette.Average(a.Color, b.Color), m.sparkMode)
			Collide(a, b)
		}
	}
}

// moveBody integrates one tick and reports whether a wall was hit. Every
// axis that left the play-field has its velocity sign inverted.
func (m *Balls) moveBody(b *Body) bool {
	b.Pos = r2.Add(b.Pos, b.Vel)

	hit := false
	if b.Pos.X < b.Radius || b.Pos.X > m.width-b.Radius {
		b.Vel.X = -b.Vel.X
		hit = true
	}
	if b.Pos.Y < b.Radius || b.Pos.Y > m.height-b.Radius {
		b.Vel.Y = -b.Vel.Y
		hit = true
	}
	if hit {
		m.clamp(b)
	}
	return hit
}

func (m *Balls) clamp(b *Body) {
	b.Pos.X = clampf(b.Pos.X, b.Radius, m.width-b.Radius)
	b.Pos.Y = clampf(b.Pos.Y, b.Radius, m.height-b.Radius)
}

func (m *Balls) randomRadius() int {
	return randRange(m.rng, m.minR, m.maxR)
}

func (m *Balls) Draw(screen *ebiten.Image) {
	for i := range m.Bodies {
		b := &m.Bodies[i]
		vector.DrawFilledCircle(screen, float32(b.Pos.X), float32(b.Pos.Y), float32(b.Radius), b.Color, true)
	}
}

// Overlapping reports whether the bounding circles of a and b intersect.
func Overlapping(a, b *Body) bool {
	return r2.Norm(r2.Sub(b.Pos, a.Pos)) < a.Radius+b.Radius
}

// Collide resolves an overlapping pair as a 2D elastic collision: velocities
// are split along the collision normal and tangent, the normal parts are
// exchanged with the 1D elastic formula, and the bodies are pushed apart by
// the penetration depth in inverse proportion to their mass. No velocity
// component is left below minSpeed, so a struck body never stalls.
func Collide(a, b *Body) {
	axis := r2.Sub(b.Pos, a.Pos)
	dist := r2.Norm(axis)
	if dist == 0 {
		dist = 1
		axis = r2.Vec{X: 1}
	}

	un := r2.Scale(1/dist, axis)
	ut := r2.Vec{X: -un.Y, Y: un.X}

	v1n, v1t := r2.Dot(a.Vel, un), r2.Dot(a.Vel, ut)
	v2n, v2t := r2.Dot(b.Vel, un), r2.Dot(b.Vel, ut)

	m1, m2 := a.Mass(), b.Mass()
	total := m1 + m2
	v1nAfter := (v1n*(m1-m2) + 2*m2*v2n) / total
	v2nAfter := (v2n*(m2-m1) + 2*m1*v1n) / total

	prevA, prevB := a.Vel, b.Vel
	a.Vel = r2.Add(r2.Scale(v1nAfter, un), r2.Scale(v1t, ut))
	b.Vel = r2.Add(r2.Scale(v2nAfter, un), r2.Scale(v2t, ut))

	a.Vel.X = keepMoving(a.Vel.X, -axis.X, prevA.X)
	a.Vel.Y = keepMoving(a.Vel.Y, -axis.Y, prevA.Y)
	b.Vel.X = keepMoving(b.Vel.X, axis.X, prevB.X)
	b.Vel.Y = keepMoving(b.Vel.Y, axis.Y, prevB.Y)

	if overlap := a.Radius + b.Radius - dist; overlap > 0 {
		a.Pos = r2.Sub(a.Pos, r2.Scale(overlap*m2/total, un))
		b.Pos = r2.Add(b.Pos, r2.Scale(overlap*m1/total, un))
	}
}

// keepMoving lifts a velocity component below minSpeed to minSpeed. A zero
// component takes the sign of away (pointing from the partner to the body),
// then of prev, then positive.
func keepMoving(v, away, prev float64) float64 {
	if math.Abs(v) >= minSpeed {
		return v
	}
	sign := v
	if sign == 0 {
		sign = away
	}
	if sign == 0 {
		sign = prev
	}
	if sign == 0 {
		sign = 1
	}
	return math.Copysign(minSpeed, sign)
}

// velocityChoices lists the integer speeds in [-limit, -floor] ∪ [floor, limit].
func velocityChoices(limit, floor int) []int {
	var out []int
	for v := -limit; v <= -floor; v++ {
		out = append(out, v)
	}
	for v := floor; v <= limit; v++ {
		out = append(out, v)
	}
	if len(out) == 0 {
		out = []int{-floor, floor}
	}
	return out
}

// randRange returns an int in [lo, hi).
func randRange(rng *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rng.IntN(hi-lo)
}

func clampf(v, lo, hi float64) float64 {
	if hi < lo {
		return lo
	}
	return math.Max(lo, math.Min(v, hi))
}

// Package particle implements the spark effects spawned by collisions. A
// System is owned by the render loop and must not be shared across goroutines.
package particle

import (
	"image/color"
	"math"
	"math/rand/v2"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/iburimskiy/motion-screensaver/internal/config"
	"github.com/iburimskiy/motion-screensaver/internal/palette"
)

const (
	Gravity     = 0.1
	MinSpeed    = 1.0
	MaxSpeed    = 4.0
	MinLifespan = 25
	MaxLifespan = 50

	linkedBrighten = 40
	sizeDivisor    = 12
)

// Particle is a single spark.
type Particle struct {
	Pos      r2.Vec
	Vel      r2.Vec
	Color    color.RGBA
	Lifespan int
}

// Step applies gravity, moves the spark and consumes one tick of life.
func (p *Particle) Step() {
	p.Vel.Y += Gravity
	p.Pos = r2.Add(p.Pos, p.Vel)
	p.Lifespan--
}

// Radius shrinks with remaining life but never drops below one pixel.
func (p *Particle) Radius() float32 {
	return float32(max(1, p.Lifespan/sizeDivisor))
}

// System is the active set of sparks.
type System struct {
	rng       *rand.Rand
	particles []Particle
}

func NewSystem(rng *rand.Rand) *System {
	return &System{rng: rng}
}

// Spawn adds one spark flying radially from pos.
func (s *System) Spawn(pos r2.Vec, base color.RGBA, mode config.ParticleColorMode) {
	var c color.RGBA
	if mode == config.ParticleRainbow {
		c = palette.Rainbow(s.rng)
	} else {
		c = palette.Brighten(base, linkedBrighten)
	}

	angle := s.rng.Float64() * 2 * math.Pi
	speed := MinSpeed + s.rng.Float64()*(MaxSpeed-MinSpeed)

	s.particles = append(s.particles, Particle{
		Pos:      pos,
		Vel:      r2.Vec{X: math.Cos(angle) * speed, Y: math.Sin(angle) * speed},
		Color:    c,
		Lifespan: MinLifespan + s.rng.IntN(MaxLifespan-MinLifespan+1),
	})
}

// SpawnBurst spawns a random number of sparks in [lo, hi].
func (s *System) SpawnBurst(lo, hi int, pos r2.Vec, base color.RGBA, mode config.ParticleColorMode) {
	n := lo + s.rng.IntN(hi-lo+1)
	for i := 0; i < n; i++ {
		s.Spawn(pos, base, mode)
	}
}

// Advance steps every spark and drops the ones whose life ran out in the same
// pass. Survivors are compacted to the front of the backing slice.
func (s *System) Advance() {
	live := s.particles[:0]
	for i := range s.particles {
		p := s.particles[i]
		p.Step()
		if p.Lifespan > 0 {
			live = append(live, p)
		}
	}
	clear(s.particles[len(live):])
	s.particles = live
}

// Len is the number of live sparks.
func (s *System) Len() int { return len(s.particles) }

// Particles exposes a read-only view for inspection.
func (s *System) Particles() []Particle { return s.particles }

// Reset drops every spark.
func (s *System) Reset() { s.particles = s.particles[:0] }

// Draw renders every live spark.
func (s *System) Draw(screen *ebiten.Image) {
	for i := range s.particles {
		p := &s.particles[i]
		vector.DrawFilledCircle(screen, float32(p.Pos.X), float32(p.Pos.Y), p.Radius(), p.Color, false)
	}
}

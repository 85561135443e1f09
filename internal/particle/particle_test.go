package particle

import (
	"image/color"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/iburimskiy/motion-screensaver/internal/config"
)

func newTestSystem() *System {
	return NewSystem(rand.New(rand.NewPCG(7, 11)))
}

func TestSpawnRanges(t *testing.T) {
	s := newTestSystem()
	origin := r2.Vec{X: 100, Y: 200}
	for i := 0; i < 200; i++ {
		s.Spawn(origin, color.RGBA{10, 20, 30, 255}, config.ParticleLinked)
	}

	for _, p := range s.Particles() {
		assert.Equal(t, origin, p.Pos)
		speed := r2.Norm(p.Vel)
		assert.GreaterOrEqual(t, speed, MinSpeed-1e-9)
		assert.LessOrEqual(t, speed, MaxSpeed+1e-9)
		assert.GreaterOrEqual(t, p.Lifespan, MinLifespan)
		assert.LessOrEqual(t, p.Lifespan, MaxLifespan)
		assert.Equal(t, color.RGBA{50, 60, 70, 255}, p.Color)
	}
}

func TestSpawnRainbowIgnoresBase(t *testing.T) {
	s := newTestSystem()
	s.Spawn(r2.Vec{}, color.RGBA{1, 2, 3, 255}, config.ParticleRainbow)

	c := s.Particles()[0].Color
	assert.Equal(t, uint8(255), max(c.R, c.G, c.B))
	assert.Equal(t, uint8(0), min(c.R, c.G, c.B))
}

func TestSpawnBurstCount(t *testing.T) {
	s := newTestSystem()
	for i := 0; i < 50; i++ {
		s.Reset()
		s.SpawnBurst(5, 10, r2.Vec{}, color.RGBA{}, config.ParticleLinked)
		assert.GreaterOrEqual(t, s.Len(), 5)
		assert.LessOrEqual(t, s.Len(), 10)
	}
}

func TestStepAppliesGravity(t *testing.T) {
	p := Particle{Pos: r2.Vec{X: 0, Y: 0}, Vel: r2.Vec{X: 2, Y: 0}, Lifespan: 10}
	p.Step()
	assert.Equal(t, 9, p.Lifespan)
	assert.InDelta(t, 2.0, p.Pos.X, 1e-9)
	assert.InDelta(t, Gravity, p.Pos.Y, 1e-9)
	p.Step()
	assert.InDelta(t, 3*Gravity, p.Pos.Y, 1e-9)
}

func TestLifespanDecreasesAndRemovesAtZero(t *testing.T) {
	s := newTestSystem()
	s.particles = []Particle{
		{Lifespan: 1},
		{Lifespan: 3},
		{Lifespan: 2},
	}

	s.Advance()
	require.Equal(t, 2, s.Len())
	assert.Equal(t, []int{2, 1}, lifespans(s))

	s.Advance()
	require.Equal(t, 1, s.Len())
	assert.Equal(t, []int{1}, lifespans(s))

	s.Advance()
	assert.Equal(t, 0, s.Len())

	s.Advance()
	assert.Equal(t, 0, s.Len())
}

func TestNoNonPositiveResidency(t *testing.T) {
	s := newTestSystem()
	s.SpawnBurst(10, 20, r2.Vec{X: 5, Y: 5}, color.RGBA{}, config.ParticleRainbow)

	last := math.MaxInt
	for tick := 0; tick <= MaxLifespan; tick++ {
		s.Advance()
		for _, p := range s.Particles() {
			assert.Positive(t, p.Lifespan)
			assert.Less(t, p.Lifespan, last)
		}
		last = MaxLifespan - tick
	}
	assert.Equal(t, 0, s.Len())
}

func TestRadius(t *testing.T) {
	assert.Equal(t, float32(4), (&Particle{Lifespan: 50}).Radius())
	assert.Equal(t, float32(1), (&Particle{Lifespan: 5}).Radius())
}

func lifespans(s *System) []int {
	out := make([]int, 0, s.Len())
	for _, p := range s.Particles() {
		out = append(out, p.Lifespan)
	}
	return out
}

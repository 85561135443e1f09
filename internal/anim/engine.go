// Package anim is the animation engine: one active visual mode plus the
// particle system, advanced once per tick and drawn once per frame.
package anim

import (
	"math/rand/v2"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"

	"github.com/iburimskiy/motion-screensaver/internal/config"
	"github.com/iburimskiy/motion-screensaver/internal/particle"
)

// Mode is one visual variant. Implementations own their entities for the
// lifetime of one activation.
type Mode interface {
	Advance()
	Draw(screen *ebiten.Image)
}

// Assets are the rendering resources a mode may need. Nil fields fall back
// to built-in defaults.
type Assets struct {
	GlyphFace text.Face
	Images    ImageLoader
}

// Engine holds exactly one active mode.
type Engine struct {
	kind   config.SaverMode
	mode   Mode
	sparks *particle.System
}

// New selects and initialises the mode named by cfg.SaverMode for a
// width x height play-field. cfg is expected to be normalised.
func New(cfg config.Config, width, height int, rng *rand.Rand, assets Assets) *Engine {
	sparks := particle.NewSystem(rng)
	e := &Engine{kind: cfg.SaverMode, sparks: sparks}

	switch cfg.SaverMode {
	case config.ModeSlideshow:
		loader := assets.Images
		if loader == nil {
			loader = NewAsyncLoader(width, height)
		}
		e.mode = NewSlideshow(cfg, width, height, rng, loader)
	case config.ModeLineArt:
		e.mode = NewLineArt(cfg.LineCount, cfg.LineSpeed, width, height, rng)
	case config.ModeMatrix:
		e.mode = NewGlyphRain(cfg.MatrixFontSize, cfg.MatrixSpeed, width, height, rng, assets.GlyphFace)
	default:
		e.kind = config.ModeBalls
		e.mode = NewBalls(cfg, width, height, rng, sparks)
	}
	return e
}

// Kind reports the active mode.
func (e *Engine) Kind() config.SaverMode { return e.kind }

// Mode exposes the active variant.
func (e *Engine) Mode() Mode { return e.mode }

// Sparks exposes the particle system.
func (e *Engine) Sparks() *particle.System { return e.sparks }

// Advance runs dt ticks of simulation.
func (e *Engine) Advance(dt int) {
	for i := 0; i < dt; i++ {
		e.mode.Advance()
		e.sparks.Advance()
	}
}

// Draw renders the mode, then the sparks on top.
func (e *Engine) Draw(screen *ebiten.Image) {
	e.mode.Draw(screen)
	e.sparks.Draw(screen)
}

package anim

import (
	"image/color"
	"math/rand/v2"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"

	"github.com/iburimskiy/motion-screensaver/internal/fonts"
)

const (
	minStreamLength = 10
	maxStreamLength = 30
	mutatePercent   = 20

	// Printable ASCII.
	firstGlyph = 33
	lastGlyph  = 126
)

var headColor = color.RGBA{200, 255, 200, 255}

// GlyphStream is one falling column of characters. Symbol i sits at
// Y - i*FontSize; the last symbol is drawn highlighted.
type GlyphStream struct {
	X, Y     float64
	Speed    float64
	FontSize int
	Symbols  []rune
}

func newGlyphStream(x float64, fontSize, speed int, rng *rand.Rand) GlyphStream {
	s := GlyphStream{
		X:        x,
		Y:        float64(-rng.IntN(501)),
		Speed:    float64(speed),
		FontSize: fontSize,
		Symbols:  make([]rune, randRange(rng, minStreamLength, maxStreamLength+1)),
	}
	for i := range s.Symbols {
		s.Symbols[i] = randomGlyph(rng)
	}
	return s
}

// Advance drops the stream by its speed, occasionally mutates one symbol and
// sends the stream back above the top edge once its tail clears the bottom.
func (s *GlyphStream) Advance(height float64, rng *rand.Rand) {
	s.Y += s.Speed
	if rng.IntN(100) < mutatePercent {
		s.Symbols[rng.IntN(len(s.Symbols))] = randomGlyph(rng)
	}
	if s.Y-float64(len(s.Symbols)*s.FontSize) > height {
		s.Y = float64(-rng.IntN(201))
	}
}

// SymbolColor is bright for the last symbol and fades from green to dark
// green along the rest of the column.
func (s *GlyphStream) SymbolColor(i int) color.RGBA {
	if i == len(s.Symbols)-1 {
		return headColor
	}
	g := 255 - i*(255/len(s.Symbols))
	return color.RGBA{0, uint8(max(0, g)), 70, 255}
}

func randomGlyph(rng *rand.Rand) rune {
	return rune(firstGlyph + rng.IntN(lastGlyph-firstGlyph+1))
}

// GlyphRain is a field of streams, one per font-size-wide column.
type GlyphRain struct {
	Streams []GlyphStream

	height float64
	face   text.Face
	rng    *rand.Rand
}

func NewGlyphRain(fontSize, speed, width, height int, rng *rand.Rand, face text.Face) *GlyphRain {
	m := &GlyphRain{height: float64(height), face: face, rng: rng}
	for x := 0; x < width; x += fontSize {
		m.Streams = append(m.Streams, newGlyphStream(float64(x), fontSize, speed, rng))
	}
	return m
}

func (m *GlyphRain) Advance() {
	for i := range m.Streams {
		m.Streams[i].Advance(m.height, m.rng)
	}
}

func (m *GlyphRain) Draw(screen *ebiten.Image) {
	for i := range m.Streams {
		s := &m.Streams[i]
		for j, r := range s.Symbols {
			y := s.Y - float64(j*s.FontSize)
			if y <= 0 || y >= m.height {
				continue
			}
			fonts.Draw(screen, string(r), m.face, s.X, y, s.SymbolColor(j))
		}
	}
}

// Package fonts resolves text faces for the overlays and the glyph rain.
// A missing or unreadable font file falls back to Go Mono, and a nil face
// falls back to the ebitenutil debug font.
package fonts

import (
	"bytes"
	"fmt"
	"image/color"
	"log/slog"
	"os"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"golang.org/x/image/font/gofont/gomono"
)

// Size of a debug-font cell.
const (
	debugCellWidth  = 6
	debugCellHeight = 16
)

var (
	monoOnce   sync.Once
	monoSource *text.GoTextFaceSource
	monoErr    error
)

func mono() (*text.GoTextFaceSource, error) {
	monoOnce.Do(func() {
		monoSource, monoErr = text.NewGoTextFaceSource(bytes.NewReader(gomono.TTF))
	})
	return monoSource, monoErr
}

// Load parses the font file at path. It fails for an empty path.
func Load(path string, size float64) (text.Face, error) {
	if path == "" {
		return nil, fmt.Errorf("no font path")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read font: %w", err)
	}
	src, err := text.NewGoTextFaceSource(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse font %s: %w", path, err)
	}
	return &text.GoTextFace{Source: src, Size: size}, nil
}

// Face returns the face at path, or Go Mono when path is empty or broken.
// It returns nil only when even the embedded font cannot be parsed.
func Face(path string, size float64) text.Face {
	if path != "" {
		face, err := Load(path, size)
		if err == nil {
			return face
		}
		slog.Warn("fonts: falling back to Go Mono", "path", path, "error", err)
	}
	src, err := mono()
	if err != nil {
		slog.Error("fonts: embedded font unusable", "error", err)
		return nil
	}
	return &text.GoTextFace{Source: src, Size: size}
}

// Draw renders s with its top-left corner at (x, y).
func Draw(dst *ebiten.Image, s string, face text.Face, x, y float64, clr color.Color) {
	if face == nil {
		ebitenutil.DebugPrintAt(dst, s, int(x), int(y))
		return
	}
	op := &text.DrawOptions{}
	op.GeoM.Translate(x, y)
	op.ColorScale.ScaleWithColor(clr)
	text.Draw(dst, s, face, op)
}

// Measure reports the rendered size of s.
func Measure(s string, face text.Face) (w, h float64) {
	if face == nil {
		return float64(len(s) * debugCellWidth), debugCellHeight
	}
	return text.Measure(s, face, 0)
}

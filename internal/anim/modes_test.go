package anim

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iburimskiy/motion-screensaver/internal/config"
)

func TestLineArtStaysInBounds(t *testing.T) {
	m := NewLineArt(15, 3, 320, 200, newRNG())
	require.Len(t, m.Segments, 15)

	for _, s := range m.Segments {
		assert.NotZero(t, s.A.Vel.X)
		assert.NotZero(t, s.B.Vel.Y)
		assert.GreaterOrEqual(t, s.Width, float32(1))
		assert.LessOrEqual(t, s.Width, float32(3))
	}

	for tick := 0; tick < 1000; tick++ {
		m.Advance()
		for _, s := range m.Segments {
			for _, e := range []Endpoint{s.A, s.B} {
				require.GreaterOrEqual(t, e.Pos.X, 0.0)
				require.LessOrEqual(t, e.Pos.X, 320.0)
				require.GreaterOrEqual(t, e.Pos.Y, 0.0)
				require.LessOrEqual(t, e.Pos.Y, 200.0)
			}
		}
	}
}

func TestEndpointReflects(t *testing.T) {
	e := Endpoint{}
	e.Pos.X, e.Pos.Y = 2, 50
	e.Vel.X, e.Vel.Y = -3, 1

	e.step(100, 100)

	assert.Equal(t, 3.0, e.Vel.X)
	assert.Equal(t, 0.0, e.Pos.X)
}

func TestGlyphRainColumns(t *testing.T) {
	m := NewGlyphRain(18, 3, 100, 600, newRNG(), nil)
	require.Len(t, m.Streams, 6)

	for i, s := range m.Streams {
		assert.Equal(t, float64(i*18), s.X)
		assert.GreaterOrEqual(t, s.Y, -500.0)
		assert.LessOrEqual(t, s.Y, 0.0)
		assert.GreaterOrEqual(t, len(s.Symbols), minStreamLength)
		assert.LessOrEqual(t, len(s.Symbols), maxStreamLength)
		for _, r := range s.Symbols {
			assert.GreaterOrEqual(t, r, rune(33))
			assert.LessOrEqual(t, r, rune(126))
		}
	}
}

func TestGlyphStreamResetsAboveScreen(t *testing.T) {
	rng := newRNG()
	s := GlyphStream{Y: 950, Speed: 3, FontSize: 18, Symbols: make([]rune, 20)}
	for i := range s.Symbols {
		s.Symbols[i] = 'a'
	}

	s.Advance(600, rng)
	assert.Equal(t, 953.0, s.Y, "tail still on screen: 953-360 <= 600")

	for i := 0; i < 3; i++ {
		s.Advance(600, rng)
	}
	assert.GreaterOrEqual(t, s.Y, -200.0)
	assert.LessOrEqual(t, s.Y, 0.0)
}

func TestGlyphStreamColours(t *testing.T) {
	s := GlyphStream{Symbols: make([]rune, 20)}
	assert.Equal(t, color.RGBA{0, 255, 70, 255}, s.SymbolColor(0))
	assert.Equal(t, color.RGBA{0, 255 - 5*12, 70, 255}, s.SymbolColor(5))
	assert.Equal(t, color.RGBA{0, 255 - 18*12, 70, 255}, s.SymbolColor(18))
	assert.Equal(t, color.RGBA{200, 255, 200, 255}, s.SymbolColor(19), "last symbol is highlighted")
}

// readyLoader resolves every load immediately with a fixed outcome.
type readyLoader struct {
	err   error
	paths []string
}

func (l *readyLoader) Load(path string) <-chan LoadResult {
	l.paths = append(l.paths, path)
	ch := make(chan LoadResult, 1)
	if l.err != nil {
		ch <- LoadResult{Err: l.err}
	} else {
		ch <- LoadResult{Image: image.NewRGBA(image.Rect(0, 0, 4, 4))}
	}
	return ch
}

func TestSlideshowCrossFade(t *testing.T) {
	loader := &readyLoader{}
	m := newSlideshow([]string{"a.png", "b.png"}, 1, 100, 100, loader)

	m.Advance()
	require.True(t, m.Fading(), "first image loads immediately")
	assert.Zero(t, m.Progress())

	for i := 0; i < 30; i++ {
		m.Advance()
	}
	assert.InDelta(t, 0.5, m.Progress(), 1e-9)

	for i := 0; i < 30; i++ {
		m.Advance()
	}
	assert.False(t, m.Fading())
	assert.NotNil(t, m.Current())

	// one interval of 60 ticks, then the next load
	for i := 0; i < 61; i++ {
		m.Advance()
	}
	assert.True(t, m.Fading())
	assert.Equal(t, []string{"a.png", "b.png"}, loader.paths)

	for i := 0; i < 60+61; i++ {
		m.Advance()
	}
	assert.Equal(t, []string{"a.png", "b.png", "a.png"}, loader.paths, "playlist wraps")
}

func TestSlideshowSkipsUnreadableImageAfterInterval(t *testing.T) {
	loader := &readyLoader{err: errors.New("corrupt")}
	m := newSlideshow([]string{"bad.png", "good.png"}, 1, 100, 100, loader)

	m.Advance()
	assert.False(t, m.Fading(), "failed load aborts the fade")
	assert.Nil(t, m.Current())
	require.Len(t, loader.paths, 1)

	for i := 0; i < 60; i++ {
		m.Advance()
	}
	assert.Len(t, loader.paths, 1, "waits a full interval")

	m.Advance()
	assert.Equal(t, []string{"bad.png", "good.png"}, loader.paths)
}

func TestSlideshowPendingLoadDoesNotBlock(t *testing.T) {
	never := make(chan LoadResult)
	m := newSlideshow([]string{"slow.png"}, 1, 100, 100, loaderFunc(func(string) <-chan LoadResult { return never }))

	for i := 0; i < 10; i++ {
		m.Advance()
	}
	assert.False(t, m.Fading())
	assert.Nil(t, m.Current())
}

type loaderFunc func(string) <-chan LoadResult

func (f loaderFunc) Load(path string) <-chan LoadResult { return f(path) }

func TestSlideshowEmptyPlaylist(t *testing.T) {
	m := newSlideshow(nil, 1, 100, 100, &readyLoader{})
	for i := 0; i < 100; i++ {
		m.Advance()
	}
	assert.False(t, m.Fading())
}

func TestPlaylistAndLoadScaled(t *testing.T) {
	dir := t.TempDir()
	img := image.NewRGBA(image.Rect(0, 0, 200, 100))
	f, err := os.Create(filepath.Join(dir, "wide.PNG"))
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.png"), 0o755))

	files, err := Playlist(dir)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, "wide.PNG")}, files)

	scaled, err := LoadScaled(files[0], 100, 100)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 100, 50), scaled.Bounds())

	_, err = LoadScaled(filepath.Join(dir, "notes.txt"), 100, 100)
	assert.Error(t, err)
}

func TestEngineSelectsMode(t *testing.T) {
	cases := []struct {
		mode config.SaverMode
		want any
	}{
		{config.ModeBalls, &Balls{}},
		{config.ModeLineArt, &LineArt{}},
		{config.ModeMatrix, &GlyphRain{}},
		{config.ModeSlideshow, &Slideshow{}},
		{"unknown", &Balls{}},
	}
	for _, tc := range cases {
		t.Run(string(tc.mode), func(t *testing.T) {
			cfg := config.Default()
			cfg.SaverMode = tc.mode
			cfg.SlideshowFolder = t.TempDir()
			e := New(cfg, 640, 480, newRNG(), Assets{Images: &readyLoader{}})
			assert.IsType(t, tc.want, e.Mode())
			e.Advance(5)
		})
	}
}

package anim

import (
	"image"
	"log/slog"
	"math/rand/v2"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/iburimskiy/motion-screensaver/internal/config"
)

// slide pairs a decoded image with its lazily created GPU texture.
type slide struct {
	img image.Image
	tex *ebiten.Image
}

func (s *slide) texture() *ebiten.Image {
	if s.tex == nil {
		s.tex = ebiten.NewImageFromImage(s.img)
	}
	return s.tex
}

func (s *slide) release() {
	if s != nil && s.tex != nil {
		s.tex.Deallocate()
		s.tex = nil
	}
}

// Slideshow cross-fades through a shuffled playlist. Decoding happens off
// the render loop; a pending load is polled once per tick.
type Slideshow struct {
	files []string
	index int // playlist position of next

	current, next *slide

	intervalTicks int
	fadeTicks     int
	sinceChange   int
	fadeTick      int
	fading        bool

	loader  ImageLoader
	pending <-chan LoadResult

	width, height float64
}

func NewSlideshow(cfg config.Config, width, height int, rng *rand.Rand, loader ImageLoader) *Slideshow {
	files, err := Playlist(cfg.SlideshowFolder)
	if err != nil {
		slog.Warn("slideshow: no playlist", "folder", cfg.SlideshowFolder, "error", err)
	}
	rng.Shuffle(len(files), func(i, j int) { files[i], files[j] = files[j], files[i] })
	return newSlideshow(files, cfg.SlideshowInterval, width, height, loader)
}

func newSlideshow(files []string, intervalSeconds, width, height int, loader ImageLoader) *Slideshow {
	interval := intervalSeconds * config.TicksPerSecond
	return &Slideshow{
		files:         files,
		intervalTicks: interval,
		fadeTicks:     max(1, config.TicksFor(config.FadeDuration)),
		// load the first image on the first tick
		sinceChange: interval + 1,
		loader:      loader,
		width:       float64(width),
		height:      float64(height),
	}
}

func (m *Slideshow) Advance() {
	if len(m.files) == 0 {
		return
	}

	switch {
	case m.pending != nil:
		m.poll()
	case m.fading:
		m.fadeTick++
		if m.fadeTick >= m.fadeTicks {
			m.promote()
		}
	default:
		m.sinceChange++
		if m.sinceChange > m.intervalTicks {
			m.pending = m.loader.Load(m.files[m.index])
			m.poll()
		}
	}
}

// poll collects a finished load without blocking.
func (m *Slideshow) poll() {
	select {
	case res := <-m.pending:
		m.pending = nil
		path := m.files[m.index]
		m.index = (m.index + 1) % len(m.files)
		if res.Err != nil {
			slog.Warn("slideshow: skipping image", "path", path, "error", res.Err)
			m.sinceChange = 0
			return
		}
		m.next = &slide{img: res.Image}
		m.fading = true
		m.fadeTick = 0
	default:
	}
}

func (m *Slideshow) promote() {
	m.current.release()
	m.current, m.next = m.next, nil
	m.fading = false
	m.fadeTick = 0
	m.sinceChange = 0
}

// Progress is the elapsed fraction of the running cross-fade, 0 when idle.
func (m *Slideshow) Progress() float64 {
	if !m.fading {
		return 0
	}
	return min(1, float64(m.fadeTick)/float64(m.fadeTicks))
}

// Current is the fully shown image, nil before the first load completes.
func (m *Slideshow) Current() image.Image {
	if m.current == nil {
		return nil
	}
	return m.current.img
}

// Fading reports whether a cross-fade is running.
func (m *Slideshow) Fading() bool { return m.fading }

func (m *Slideshow) Draw(screen *ebiten.Image) {
	p := m.Progress()
	if m.current != nil {
		m.drawCentered(screen, m.current, 1-p)
	}
	if m.fading && m.next != nil {
		m.drawCentered(screen, m.next, p)
	}
}

func (m *Slideshow) drawCentered(screen *ebiten.Image, s *slide, alpha float64) {
	tex := s.texture()
	b := tex.Bounds()
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate((m.width-float64(b.Dx()))/2, (m.height-float64(b.Dy()))/2)
	op.ColorScale.ScaleAlpha(float32(alpha))
	screen.DrawImage(tex, op)
}

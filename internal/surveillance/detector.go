package surveillance

import (
	"image"

	"github.com/anthonynsimon/bild/blend"
	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/segment"
)

// Detection parameters. A blur radius of 10 gives a 21-tap Gaussian.
const (
	blurRadius      = 10
	diffLevel       = 26 // changed when the difference exceeds 25
	dilateRadius    = 1
	dilateIterCount = 2
)

// Detector compares each frame with the one before it. It is not safe for
// concurrent use.
type Detector struct {
	threshold int
	prev      *image.RGBA
}

// NewDetector reports motion when a changed region covers more than
// threshold pixels.
func NewDetector(threshold int) *Detector {
	return &Detector{threshold: threshold}
}

// Process reports whether frame differs from the previous frame by a region
// larger than the threshold. The first frame only primes the reference.
func (d *Detector) Process(frame image.Image) bool {
	cur := blur.Gaussian(effect.Grayscale(frame), blurRadius)
	prev := d.prev
	d.prev = cur
	if prev == nil || prev.Bounds().Size() != cur.Bounds().Size() {
		return false
	}

	var changed image.Image = segment.Threshold(blend.Difference(prev, cur), diffLevel)
	for i := 0; i < dilateIterCount; i++ {
		changed = effect.Dilate(changed, dilateRadius)
	}
	return hasRegionLargerThan(maskOf(changed), d.threshold)
}

// Reset drops the reference frame.
func (d *Detector) Reset() { d.prev = nil }

// mask marks foreground pixels of a binary image.
type mask struct {
	w, h int
	on   []bool
}

// maskOf treats every pixel with a non-zero red channel as foreground.
func maskOf(img image.Image) *mask {
	b := img.Bounds()
	m := &mask{w: b.Dx(), h: b.Dy(), on: make([]bool, b.Dx()*b.Dy())}

	switch src := img.(type) {
	case *image.RGBA:
		for y := 0; y < m.h; y++ {
			off := src.PixOffset(b.Min.X, b.Min.Y+y)
			for x := 0; x < m.w; x++ {
				m.on[y*m.w+x] = src.Pix[off+x*4] != 0
			}
		}
	case *image.Gray:
		for y := 0; y < m.h; y++ {
			off := src.PixOffset(b.Min.X, b.Min.Y+y)
			for x := 0; x < m.w; x++ {
				m.on[y*m.w+x] = src.Pix[off+x] != 0
			}
		}
	default:
		for y := 0; y < m.h; y++ {
			for x := 0; x < m.w; x++ {
				r, _, _, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
				m.on[y*m.w+x] = r != 0
			}
		}
	}
	return m
}

// hasRegionLargerThan scans 8-connected foreground regions in raster order
// and stops at the first one whose pixel count exceeds limit.
func hasRegionLargerThan(m *mask, limit int) bool {
	seen := make([]bool, len(m.on))
	var stack []int

	for start, on := range m.on {
		if !on || seen[start] {
			continue
		}
		area := 0
		seen[start] = true
		stack = append(stack[:0], start)
		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			area++
			x, y := i%m.w, i/m.w
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if nx < 0 || ny < 0 || nx >= m.w || ny >= m.h {
						continue
					}
					j := ny*m.w + nx
					if m.on[j] && !seen[j] {
						seen[j] = true
						stack = append(stack, j)
					}
				}
			}
		}
		if area > limit {
			return true
		}
	}
	return false
}

package alert

import (
	"math"
	"sync"

	"github.com/faiface/beep"
)

// Tap wraps a beep.Streamer and keeps the last samples it played in a ring
// buffer, so the renderer can follow the alert's loudness.
type Tap struct {
	Source    beep.Streamer
	buffer    [][2]float64
	nextIndex int
	filled    bool
	mu        sync.RWMutex
}

func NewTap(src beep.Streamer, ringSize int) *Tap {
	return &Tap{
		Source: src,
		buffer: make([][2]float64, ringSize),
	}
}

func (t *Tap) Stream(samples [][2]float64) (int, bool) {
	n, ok := t.Source.Stream(samples)
	t.record(samples[:n])
	if !ok {
		// silence once the source is drained
		t.mu.Lock()
		clear(t.buffer)
		t.mu.Unlock()
	}
	return n, ok
}

func (t *Tap) Err() error { return t.Source.Err() }

func (t *Tap) record(samples [][2]float64) {
	if len(samples) == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, s := range samples {
		t.buffer[t.nextIndex] = s
		t.nextIndex++
		if t.nextIndex >= len(t.buffer) {
			t.nextIndex = 0
			t.filled = true
		}
	}
}

// Level is the RMS of the recorded samples, averaged over both channels.
func (t *Tap) Level() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := t.nextIndex
	if t.filled {
		n = len(t.buffer)
	}
	if n == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range t.buffer[:n] {
		sum += (s[0]*s[0] + s[1]*s[1]) / 2
	}
	return math.Sqrt(sum / float64(n))
}

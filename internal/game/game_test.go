package game

import (
	"testing"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/stretchr/testify/assert"

	"github.com/iburimskiy/motion-screensaver/internal/session"
)

func TestTranslate(t *testing.T) {
	got := translate(
		[]ebiten.Key{ebiten.KeyA, ebiten.KeyEnter, ebiten.KeyBackspace, ebiten.KeyEscape, ebiten.KeyNumpadEnter},
		[]rune{'a'},
		true,
	)
	want := []session.Event{
		session.Rune('a'),
		{Kind: session.KeyOther},
		{Kind: session.KeyEnter},
		{Kind: session.KeyBackspace},
		{Kind: session.KeyEscape},
		{Kind: session.KeyEnter},
		{Kind: session.PointerMotion},
	}
	assert.Equal(t, want, got)

	assert.Empty(t, translate(nil, nil, false))
}

func TestInputReaderBaseline(t *testing.T) {
	var in inputReader
	assert.Empty(t, in.observe(nil, nil, 10, 10), "first reading is the baseline")
	assert.Equal(t, []session.Event{{Kind: session.PointerMotion}}, in.observe(nil, nil, 12, 10))
	assert.Empty(t, in.observe(nil, nil, 12, 10))
}

func TestInputReaderResetAfterModeChange(t *testing.T) {
	var in inputReader
	in.observe(nil, nil, 100, 50)

	// the window went fullscreen; the resting cursor now reads elsewhere
	in.reset(settleFrames)
	for i := 0; i < settleFrames; i++ {
		assert.Empty(t, in.observe([]ebiten.Key{ebiten.KeyA}, []rune{'a'}, 640, 360), "frame %d dropped", i)
	}
	assert.Empty(t, in.observe(nil, nil, 640, 360), "cursor at rest after the switch")
	assert.Equal(t, []session.Event{{Kind: session.PointerMotion}}, in.observe(nil, nil, 641, 360))
}

func TestClockOrigin(t *testing.T) {
	cases := []struct {
		position string
		x, y     float64
	}{
		{"topleft", 20, 10},
		{"topright", 1920 - 20 - 100, 10},
		{"bottomleft", 20, 1080 - 10 - 30},
		{"bottomright", 1920 - 20 - 100, 1080 - 10 - 30},
		{"nowhere", 1920 - 20 - 100, 1080 - 10 - 30},
	}
	for _, tc := range cases {
		t.Run(tc.position, func(t *testing.T) {
			x, y := clockOrigin(tc.position, 1920, 1080, 100, 30)
			assert.Equal(t, tc.x, x)
			assert.Equal(t, tc.y, y)
		})
	}
}

func TestBoxOrigin(t *testing.T) {
	x, y := boxOrigin("center", 1000, 800)
	assert.Equal(t, 250.0, x)
	assert.Equal(t, 310.0, y)

	_, y = boxOrigin("top", 1000, 800)
	assert.Equal(t, 120.0, y)

	_, y = boxOrigin("bottom", 1000, 800)
	assert.Equal(t, 800.0-180-120, y)
}

func TestPromptMessage(t *testing.T) {
	msg, warn := promptMessage(0)
	assert.Equal(t, infoText, msg)
	assert.False(t, warn)

	msg, warn = promptMessage(2)
	assert.Equal(t, "Failed: 2 / 3 (shutdown after 3)", msg)
	assert.True(t, warn)
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "07:05:09", formatClock(time.Date(2024, 1, 1, 7, 5, 9, 0, time.UTC)))
	assert.Equal(t, "****", mask(4))
	assert.Equal(t, "", mask(0))
	assert.Equal(t, "5s", formatSeconds(4600*time.Millisecond))
	assert.Equal(t, 0.0, clamp01(-1))
	assert.Equal(t, 1.0, clamp01(3))
}

func TestIdleWatch(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	w := newIdleWatch(5*time.Second, start)

	assert.False(t, w.observe(start.Add(4*time.Second), false))
	assert.Equal(t, time.Second, w.remaining(start.Add(4*time.Second)))

	// input restarts the countdown
	assert.False(t, w.observe(start.Add(4*time.Second), true))
	assert.False(t, w.observe(start.Add(8*time.Second), false))
	assert.True(t, w.observe(start.Add(9*time.Second), false))
	assert.Zero(t, w.remaining(start.Add(20*time.Second)))
}

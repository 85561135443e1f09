package game

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/iburimskiy/motion-screensaver/internal/session"
)

// settleFrames is how many frames of input are dropped after the window
// changes mode.
const settleFrames = 2

// inputReader turns ebiten's per-frame input state into session events.
type inputReader struct {
	keys   []ebiten.Key
	chars  []rune
	lastX  int
	lastY  int
	primed bool
	settle int
}

func (in *inputReader) poll() []session.Event {
	in.keys = inpututil.AppendJustPressedKeys(in.keys[:0])
	in.chars = ebiten.AppendInputChars(in.chars[:0])
	x, y := ebiten.CursorPosition()
	return in.observe(in.keys, in.chars, x, y)
}

// observe converts one frame of raw input. The first cursor reading after a
// reset only sets the baseline.
func (in *inputReader) observe(keys []ebiten.Key, chars []rune, x, y int) []session.Event {
	moved := in.primed && (x != in.lastX || y != in.lastY)
	in.lastX, in.lastY, in.primed = x, y, true
	if in.settle > 0 {
		in.settle--
		return nil
	}
	return translate(keys, chars, moved)
}

// reset forgets the cursor baseline and drops the next frames of input. The
// same physical cursor maps to a new logical position once the window is
// resized.
func (in *inputReader) reset(frames int) {
	in.primed = false
	in.settle = frames
}

// translate orders a frame's input as typed text first, then editing keys,
// then pointer motion.
func translate(keys []ebiten.Key, chars []rune, moved bool) []session.Event {
	var events []session.Event
	for _, r := range chars {
		events = append(events, session.Rune(r))
	}
	for _, k := range keys {
		switch k {
		case ebiten.KeyEnter, ebiten.KeyNumpadEnter:
			events = append(events, session.Event{Kind: session.KeyEnter})
		case ebiten.KeyBackspace:
			events = append(events, session.Event{Kind: session.KeyBackspace})
		case ebiten.KeyEscape:
			events = append(events, session.Event{Kind: session.KeyEscape})
		default:
			events = append(events, session.Event{Kind: session.KeyOther})
		}
	}
	if moved {
		events = append(events, session.Event{Kind: session.PointerMotion})
	}
	return events
}

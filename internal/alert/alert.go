// Package alert plays an audible cue on failed password attempts.
package alert

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/flac"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
)

const (
	sampleRate    = beep.SampleRate(44100)
	toneDuration  = 250 * time.Millisecond
	toneAmplitude = 0.3
	baseFrequency = 440.0
	// rise per failed attempt, in semitones
	pitchStep = 4

	tapRingSize = 2048
)

// Player plays the alert. The zero value is a muted player.
type Player struct {
	enabled bool
	file    string

	mu       sync.Mutex
	initDone bool
	tap      *Tap
}

// NewPlayer returns a player for the configured sound file, or the built-in
// tone when file is empty.
func NewPlayer(enabled bool, file string) *Player {
	return &Player{enabled: enabled, file: file}
}

// Failure plays the cue for the given attempt number without blocking.
func (p *Player) Failure(attempt int) {
	if p == nil || !p.enabled {
		return
	}
	go func() {
		if err := p.play(attempt); err != nil {
			slog.Warn("alert: failed to play", "attempt", attempt, "error", err)
		}
	}()
}

// Level is the loudness of the cue playing right now, 0 when silent.
func (p *Player) Level() float64 {
	if p == nil {
		return 0
	}
	p.mu.Lock()
	tap := p.tap
	p.mu.Unlock()
	if tap == nil {
		return 0
	}
	return tap.Level()
}

func (p *Player) play(attempt int) error {
	var (
		src     beep.Streamer
		closeFn = func() {}
	)
	if p.file != "" {
		s, format, err := Open(p.file)
		if err != nil {
			return err
		}
		closeFn = func() { _ = s.Close() }
		src = s
		if format.SampleRate != sampleRate {
			src = beep.Resample(4, format.SampleRate, sampleRate, s)
		}
	} else {
		src = Tone(sampleRate, Frequency(attempt), toneDuration)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.initDone {
		if err := speaker.Init(sampleRate, sampleRate.N(time.Second/20)); err != nil {
			closeFn()
			return fmt.Errorf("failed to init speaker: %w", err)
		}
		p.initDone = true
	}

	tap := NewTap(src, tapRingSize)
	p.tap = tap
	speaker.Play(beep.Seq(tap, beep.Callback(closeFn)))
	return nil
}

// Frequency is the tone pitch for a failed attempt.
func Frequency(attempt int) float64 {
	return baseFrequency * math.Pow(2, float64(pitchStep*max(0, attempt-1))/12)
}

// Tone is a sine beep with a linear fade-out.
func Tone(rate beep.SampleRate, freq float64, d time.Duration) beep.Streamer {
	total := rate.N(d)
	pos := 0
	return beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		if pos >= total {
			return 0, false
		}
		i := 0
		for ; i < len(samples) && pos < total; i++ {
			env := 1 - float64(pos)/float64(total)
			v := toneAmplitude * env * math.Sin(2*math.Pi*freq*float64(pos)/float64(rate))
			samples[i] = [2]float64{v, v}
			pos++
		}
		return i, true
	})
}

// Open decodes a wav, mp3 or flac file, chosen by extension.
func Open(path string) (beep.StreamSeekCloser, beep.Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("failed to open sound: %w", err)
	}

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	ext := filepath.Ext(path)
	switch strings.ToLower(ext) {
	case ".wav":
		streamer, format, err = wav.Decode(f)
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	case ".flac":
		streamer, format, err = flac.Decode(f)
	default:
		_ = f.Close()
		return nil, beep.Format{}, errors.New("unsupported sound type: " + ext)
	}
	if err != nil {
		_ = f.Close()
		return nil, beep.Format{}, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return streamer, format, nil
}

package game

import (
	"fmt"
	"image/color"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/iburimskiy/motion-screensaver/internal/config"
	"github.com/iburimskiy/motion-screensaver/internal/fonts"
	"github.com/iburimskiy/motion-screensaver/internal/palette"
)

const (
	clockPadX = 20
	clockPadY = 10

	boxWidth   = 500
	boxHeight  = 180
	boxPadding = 25
	// share of the screen height kept above a top box or below a bottom box
	boxMargin = 0.15

	promptText = "Enter password:"
	infoText   = "Enter to confirm, Esc to clear"
)

var (
	boxFill   = color.RGBA{30, 30, 30, 255}
	boxBorder = color.RGBA{200, 200, 200, 255}
)

// clockOrigin returns the top-left corner of a w x h clock label at the
// given corner of a screenW x screenH screen.
func clockOrigin(position string, screenW, screenH, w, h float64) (x, y float64) {
	switch position {
	case "topleft":
		return clockPadX, clockPadY
	case "topright":
		return screenW - clockPadX - w, clockPadY
	case "bottomleft":
		return clockPadX, screenH - clockPadY - h
	default:
		return screenW - clockPadX - w, screenH - clockPadY - h
	}
}

// boxOrigin places the password box horizontally centred.
func boxOrigin(position string, screenW, screenH float64) (x, y float64) {
	x = (screenW - boxWidth) / 2
	switch position {
	case "top":
		y = screenH * boxMargin
	case "bottom":
		y = screenH - boxHeight - screenH*boxMargin
	default:
		y = (screenH - boxHeight) / 2
	}
	return x, y
}

// promptMessage is the line under the input: usage help until the first
// failure, then the failure count.
func promptMessage(attempts int) (msg string, warning bool) {
	if attempts > 0 {
		return fmt.Sprintf("Failed: %d / %d (shutdown after %d)", attempts, config.MaxPasswordAttempts, config.MaxPasswordAttempts), true
	}
	return infoText, false
}

type overlay struct {
	cfg         config.Config
	clockFace   text.Face
	promptFace  text.Face
	messageFace text.Face
}

func newOverlay(cfg config.Config) *overlay {
	return &overlay{
		cfg:         cfg,
		clockFace:   fonts.Face("", float64(cfg.ClockFontSize)),
		promptFace:  fonts.Face("", float64(cfg.PasswordUIFontSize)),
		messageFace: fonts.Face("", float64(cfg.PasswordUIFontSize)/2),
	}
}

func (o *overlay) drawClock(screen *ebiten.Image, now time.Time) {
	if !o.cfg.ClockEnabled {
		return
	}
	s := formatClock(now)
	w, h := fonts.Measure(s, o.clockFace)
	b := screen.Bounds()
	x, y := clockOrigin(o.cfg.ClockPosition, float64(b.Dx()), float64(b.Dy()), w, h)
	fonts.Draw(screen, s, o.clockFace, x, y, o.cfg.ClockColor.RGBA())
}

// drawBattery uses the clock's face and colour.
func (o *overlay) drawBattery(screen *ebiten.Image, st batteryStatus, now time.Time) {
	s := st.label()
	_, h := fonts.Measure(s, o.clockFace)
	b := screen.Bounds()
	sw, sh := float64(b.Dx()), float64(b.Dy())

	stacked := o.cfg.ClockEnabled && o.cfg.ClockPosition == "bottomleft"
	clockTop := 0.0
	if stacked {
		cw, ch := fonts.Measure(formatClock(now), o.clockFace)
		_, clockTop = clockOrigin(o.cfg.ClockPosition, sw, sh, cw, ch)
	}
	x, y := batteryOrigin(stacked, sh, h, clockTop)
	fonts.Draw(screen, s, o.clockFace, x, y, o.cfg.ClockColor.RGBA())
}

// drawPrompt renders the password box. level in [0, 1] brightens the border
// while the failure alert is sounding.
func (o *overlay) drawPrompt(screen *ebiten.Image, typed, attempts int, level float64) {
	b := screen.Bounds()
	bx, by := boxOrigin(o.cfg.PasswordUIPosition, float64(b.Dx()), float64(b.Dy()))

	border := boxBorder
	if level > 0 {
		border = palette.Brighten(o.cfg.PasswordUIWarningColor.RGBA(), uint8(55*clamp01(level)))
	}
	vector.DrawFilledRect(screen, float32(bx), float32(by), boxWidth, boxHeight, boxFill, false)
	vector.StrokeRect(screen, float32(bx), float32(by), boxWidth, boxHeight, 2, border, false)

	fonts.Draw(screen, promptText, o.promptFace, bx+boxPadding, by+20, o.cfg.PasswordUIPromptColor.RGBA())

	stars := mask(typed)
	_, ih := fonts.Measure(stars, o.promptFace)
	fonts.Draw(screen, stars, o.promptFace, bx+boxPadding, by+105-ih/2, o.cfg.PasswordUIInputColor.RGBA())

	msg, warning := promptMessage(attempts)
	clr := o.cfg.PasswordUIInfoColor.RGBA()
	if warning {
		clr = o.cfg.PasswordUIWarningColor.RGBA()
	}
	_, mh := fonts.Measure(msg, o.messageFace)
	fonts.Draw(screen, msg, o.messageFace, bx+boxPadding, by+boxHeight-20-mh, clr)
}

func (o *overlay) drawIdle(screen *ebiten.Image, remaining time.Duration) {
	msg := "Unlocked. The saver resumes after " + formatSeconds(remaining) + " without input."
	fonts.Draw(screen, msg, o.messageFace, clockPadX, clockPadY, o.cfg.PasswordUIInfoColor.RGBA())
}

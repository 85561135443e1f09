// Package game hosts the saver on ebiten. It runs the render loop once per
// process and hosts successive sessions in it: a session that ends with
// "continue" drops the host into idle watch, and enough idle time starts a
// fresh session.
package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/iburimskiy/motion-screensaver/internal/alert"
	"github.com/iburimskiy/motion-screensaver/internal/anim"
	"github.com/iburimskiy/motion-screensaver/internal/config"
	"github.com/iburimskiy/motion-screensaver/internal/fonts"
	"github.com/iburimskiy/motion-screensaver/internal/session"
)

const (
	windowTitle = "Screensaver"
	idleWidth   = 640
	idleHeight  = 120
)

// Deps are the collaborators shared by every session the host runs.
type Deps struct {
	Prompter  session.Prompter
	Escalator session.Escalator
	Alert     *alert.Player
	OnQuit    func()
	Rand      *rand.Rand
	Now       func() time.Time
}

type Game struct {
	ctx  context.Context
	cfg  config.Config
	deps Deps

	width, height int

	sess    *session.Session
	engine  *anim.Engine
	ui      *overlay
	battery *batteryMonitor
	input   inputReader
	idle    *idleWatch
	result  session.Result
}

func New(ctx context.Context, cfg config.Config, deps Deps) *Game {
	if deps.Rand == nil {
		deps.Rand = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64()))
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Game{
		ctx:     ctx,
		cfg:     cfg,
		deps:    deps,
		ui:      newOverlay(cfg),
		battery: newBatteryMonitor(readBattery, batteryPollInterval),
	}
}

// Run shows the saver and blocks until the last session ends. Cancelling
// ctx force-quits the running session.
func Run(ctx context.Context, cfg config.Config, deps Deps) (session.Result, error) {
	g := New(ctx, cfg, deps)

	ebiten.SetWindowTitle(windowTitle)
	ebiten.SetTPS(config.TicksPerSecond)
	ebiten.SetRunnableOnUnfocused(true)
	ebiten.SetWindowClosingHandled(true)
	ebiten.SetFullscreen(true)
	ebiten.SetCursorMode(ebiten.CursorModeHidden)

	batteryCtx, stopBattery := context.WithCancel(ctx)
	defer stopBattery()
	go g.battery.run(batteryCtx)

	if err := ebiten.RunGame(g); err != nil && !errors.Is(err, ebiten.Termination) {
		return session.Result{}, fmt.Errorf("render loop failed: %w", err)
	}
	return g.result, nil
}

func (g *Game) Update() error {
	if g.width == 0 {
		return nil
	}

	select {
	case <-g.ctx.Done():
		if g.sess == nil {
			g.result = session.Result{Reason: session.ReasonForceQuit}
			return ebiten.Termination
		}
		g.sess.ForceQuit()
	default:
	}

	events := g.input.poll()

	if g.idle != nil {
		if g.idle.observe(g.deps.Now(), len(events) > 0) {
			g.activate()
		}
		return nil
	}
	if g.sess == nil {
		g.activate()
		return nil
	}

	if !g.sess.Tick(g.ctx, events) {
		if g.sess.State() == session.StatePasswordPrompt {
			ebiten.SetCursorMode(ebiten.CursorModeVisible)
		}
		return nil
	}

	res := g.sess.Result()
	if res.Reason == session.ReasonContinue && g.cfg.AutoRestartOnIdle {
		g.enterIdle()
		return nil
	}
	g.result = res
	return ebiten.Termination
}

// activate starts a fresh session with fresh mode state.
func (g *Game) activate() {
	ebiten.SetFullscreen(true)
	ebiten.SetCursorMode(ebiten.CursorModeHidden)
	g.input.reset(settleFrames)

	g.engine = anim.New(g.cfg, g.width, g.height, g.deps.Rand, anim.Assets{
		GlyphFace: fonts.Face(g.cfg.MatrixFont, float64(g.cfg.MatrixFontSize)),
	})
	g.sess = session.New(g.cfg, session.Deps{
		Engine:    g.engine,
		Prompter:  g.deps.Prompter,
		Escalator: g.deps.Escalator,
		Alerter:   g.deps.Alert,
		Now:       g.deps.Now,
		OnQuit:    g.deps.OnQuit,
	})
	g.sess.Activate()
	g.idle = nil
	slog.Info("game: saver active", "mode", g.engine.Kind())
}

func (g *Game) enterIdle() {
	ebiten.SetFullscreen(false)
	ebiten.SetWindowSize(idleWidth, idleHeight)
	ebiten.SetCursorMode(ebiten.CursorModeVisible)
	g.input.reset(settleFrames)

	g.sess, g.engine = nil, nil
	g.idle = newIdleWatch(time.Duration(g.cfg.IdleTimeout)*time.Millisecond, g.deps.Now())
	slog.Info("game: idle watch", "timeout_ms", g.cfg.IdleTimeout)
}

func (g *Game) Draw(screen *ebiten.Image) {
	if g.idle != nil {
		g.ui.drawIdle(screen, g.idle.remaining(g.deps.Now()))
		return
	}
	if g.sess == nil {
		return
	}

	switch g.sess.State() {
	case session.StateActive:
		g.engine.Draw(screen)
	case session.StatePasswordPrompt:
		g.ui.drawPrompt(screen, g.sess.InputLen(), g.sess.Attempts(), g.deps.Alert.Level())
	default:
		return
	}
	now := g.deps.Now()
	g.ui.drawClock(screen, now)
	if st, ok := g.battery.status(); ok {
		g.ui.drawBattery(screen, st, now)
	}
}

// Layout fixes the logical screen to the first (fullscreen) size, so the
// idle window shows a scaled-down view.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	if g.width == 0 {
		g.width, g.height = outsideWidth, outsideHeight
	}
	return g.width, g.height
}

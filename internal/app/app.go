// Package app owns one saver process: the surveillance worker, the render
// loop and the signal that stops them.
package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/iburimskiy/motion-screensaver/internal/alert"
	"github.com/iburimskiy/motion-screensaver/internal/camera"
	"github.com/iburimskiy/motion-screensaver/internal/config"
	"github.com/iburimskiy/motion-screensaver/internal/game"
	"github.com/iburimskiy/motion-screensaver/internal/lockout"
	"github.com/iburimskiy/motion-screensaver/internal/session"
	"github.com/iburimskiy/motion-screensaver/internal/surveillance"
)

// ErrAlreadyRun is returned by Run on an App that has already run.
var ErrAlreadyRun = errors.New("app: already run")

// Runner runs the render loop until its last session ends.
type Runner func(ctx context.Context, cfg config.Config, deps game.Deps) (session.Result, error)

// Options override the production collaborators. Zero fields get defaults.
type Options struct {
	BaseDir    string
	Opener     camera.Opener
	Shutdowner lockout.Shutdowner
	Prompter   session.Prompter
	Alert      *alert.Player
	Runner     Runner
	// OnQuit is told when the user unlocks and chooses to quit.
	OnQuit func()
	// OnMotion receives every surveillance capture.
	OnMotion func(surveillance.MotionEvent)
}

type App struct {
	cfg  config.Config
	opts Options

	mu      sync.Mutex
	started bool
	worker  *surveillance.Worker
	cancel context.CancelFunc
	done   chan struct{}
}

// New normalises cfg, logging every replaced option.
func New(cfg config.Config, opts Options) *App {
	for _, w := range cfg.Normalize() {
		slog.Warn("app: " + w)
	}
	if opts.Opener == nil {
		opts.Opener = camera.GstOpener{Width: cfg.CameraWidth, Height: cfg.CameraHeight}
	}
	if opts.Shutdowner == nil {
		opts.Shutdowner = lockout.ExecShutdowner{DryRun: cfg.DryRunShutdown}
	}
	if opts.Prompter == nil {
		opts.Prompter = session.DialogPrompter{}
	}
	if opts.Alert == nil {
		opts.Alert = alert.NewPlayer(cfg.AlertSoundEnabled, cfg.AlertSoundFile)
	}
	if opts.Runner == nil {
		opts.Runner = game.Run
	}
	return &App{cfg: cfg, opts: opts, done: make(chan struct{})}
}

// Run shows the saver and blocks until it exits. Surveillance runs for the
// whole call when the camera is enabled. An App runs once.
func (a *App) Run(ctx context.Context) (session.Result, error) {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return session.Result{}, ErrAlreadyRun
	}
	a.started = true
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.mu.Unlock()
	defer close(a.done)
	defer cancel()

	if a.cfg.CameraEnabled {
		a.StartSurveillance(ctx)
		defer a.StopSurveillance()
	}

	policy := lockout.New(lockout.Options{
		CameraEnabled: a.cfg.CameraEnabled,
		DeviceIndex:   a.cfg.CameraDeviceIndex,
		Folder:        a.captureFolder(),
	}, a.opts.Opener, a.opts.Shutdowner)

	res, err := a.opts.Runner(ctx, a.cfg, game.Deps{
		Prompter:  a.opts.Prompter,
		Escalator: escalatorFunc(func(ctx context.Context) error {
			// free the camera for the shutdown capture
			a.StopSurveillance()
			return policy.Escalate(ctx)
		}),
		Alert:  a.opts.Alert,
		OnQuit: a.opts.OnQuit,
	})
	if err != nil {
		return res, err
	}
	slog.Info("app: saver finished", "reason", res.Reason, "interrupted", res.Interrupted)
	return res, nil
}

// StartSurveillance removes expired captures and starts the worker. It is a
// no-op while a worker is running.
func (a *App) StartSurveillance(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.worker != nil {
		return
	}

	folder := a.captureFolder()
	if n, err := surveillance.Cleanup(folder, a.cfg.CameraRetentionDays, time.Now()); err != nil {
		slog.Warn("app: capture cleanup failed", "folder", folder, "error", err)
	} else if n > 0 {
		slog.Info("app: removed old captures", "count", n)
	}

	a.worker = surveillance.NewWorker(surveillance.OptionsFrom(a.cfg, a.opts.BaseDir), a.opts.Opener)
	a.worker.OnMotion = a.opts.OnMotion
	a.worker.Start(ctx)
}

// StopSurveillance stops the worker with a bounded join. A worker that does
// not stop in time is logged and abandoned.
func (a *App) StopSurveillance() error {
	a.mu.Lock()
	w := a.worker
	a.worker = nil
	a.mu.Unlock()
	if w == nil {
		return nil
	}

	err := w.Stop(surveillance.JoinTimeout)
	if errors.Is(err, surveillance.ErrJoinTimeout) {
		slog.Warn("app: surveillance worker leaked", "timeout", surveillance.JoinTimeout)
	}
	return err
}

// Stop force-quits a running saver. It is safe from any goroutine.
func (a *App) Stop() {
	a.mu.Lock()
	cancel := a.cancel
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Join waits for Run to return.
func (a *App) Join(timeout time.Duration) error {
	select {
	case <-a.done:
		return nil
	case <-time.After(timeout):
		return errors.New("app: run did not finish in time")
	}
}

func (a *App) captureFolder() string {
	return a.cfg.CaptureFolder(a.opts.BaseDir)
}

type escalatorFunc func(ctx context.Context) error

func (f escalatorFunc) Escalate(ctx context.Context) error { return f(ctx) }

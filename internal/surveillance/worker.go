// Package surveillance watches a camera for motion while the saver runs and
// saves a still image whenever something moves.
package surveillance

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iburimskiy/motion-screensaver/internal/camera"
	"github.com/iburimskiy/motion-screensaver/internal/config"
)

// ErrJoinTimeout is returned by Stop when the worker did not finish in time.
// The goroutine is then leaked until its current camera read returns.
var ErrJoinTimeout = errors.New("surveillance: worker did not stop in time")

// DefaultInterval is the pause between frames. Together with the camera read
// timeout it bounds how long a stop request can go unnoticed.
const DefaultInterval = 100 * time.Millisecond

// JoinTimeout is how long owners wait for the worker on shutdown.
const JoinTimeout = 2 * time.Second

// missedFramesWarn is the run of empty reads after which a stall is logged.
const missedFramesWarn = 5

// MotionEvent describes one saved capture.
type MotionEvent struct {
	ID          uuid.UUID
	DeviceIndex int
	Threshold   int
	Path        string
	Time        time.Time
}

type Options struct {
	DeviceIndex int
	Folder      string
	Threshold   int
	Interval    time.Duration
}

// OptionsFrom takes the camera settings from cfg, resolving a relative
// capture folder against base.
func OptionsFrom(cfg config.Config, base string) Options {
	return Options{
		DeviceIndex: cfg.CameraDeviceIndex,
		Folder:      cfg.CaptureFolder(base),
		Threshold:   cfg.CameraMotionThreshold,
		Interval:    DefaultInterval,
	}
}

type Worker struct {
	opts     Options
	opener   camera.Opener
	detector *Detector

	// OnMotion, when set, is called on the worker goroutine after each save.
	OnMotion func(MotionEvent)
	// Now is the capture clock.
	Now func() time.Time

	startOnce sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewWorker(opts Options, opener camera.Opener) *Worker {
	return &Worker{
		opts:     opts,
		opener:   opener,
		detector: NewDetector(opts.Threshold),
		Now:      time.Now,
		done:     make(chan struct{}),
	}
}

// Start launches the worker goroutine. It runs until ctx is cancelled, Stop
// is called, or the camera fails. A read that times out is retried. Later
// calls are no-ops.
func (w *Worker) Start(ctx context.Context) {
	w.startOnce.Do(func() {
		ctx, w.cancel = context.WithCancel(ctx)
		go w.run(ctx)
	})
}

// Done is closed when the worker goroutine has returned.
func (w *Worker) Done() <-chan struct{} { return w.done }

// Stop cancels the worker and waits up to timeout for it to finish.
func (w *Worker) Stop(timeout time.Duration) error {
	if w.cancel == nil {
		return nil
	}
	w.cancel()
	select {
	case <-w.done:
		return nil
	case <-time.After(timeout):
		return ErrJoinTimeout
	}
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.done)

	dev, err := w.opener.Open(w.opts.DeviceIndex)
	if err != nil {
		slog.Error("surveillance: failed to open camera", "index", w.opts.DeviceIndex, "error", err)
		return
	}
	defer func() {
		if err := dev.Close(); err != nil {
			slog.Warn("surveillance: failed to close camera", "error", err)
		}
	}()

	slog.Info("surveillance: started", "index", w.opts.DeviceIndex, "folder", w.opts.Folder, "threshold", w.opts.Threshold)
	defer slog.Info("surveillance: stopped")

	missed := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		frame, err := dev.Read()
		if errors.Is(err, camera.ErrNoFrame) {
			missed++
			if missed == missedFramesWarn {
				slog.Warn("surveillance: camera is not delivering frames", "missed", missed)
			}
			continue
		}
		if err != nil {
			slog.Error("surveillance: failed to read frame", "error", err)
			return
		}
		if missed >= missedFramesWarn {
			slog.Info("surveillance: camera delivering frames again", "missed", missed)
		}
		missed = 0
		if w.detector.Process(frame) {
			w.capture(frame)
		}

		if w.opts.Interval > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.opts.Interval):
			}
		}
	}
}

func (w *Worker) capture(frame image.Image) {
	now := w.Now()
	path, err := SaveCapture(w.opts.Folder, frame, now, "")
	if err != nil {
		slog.Error("surveillance: failed to save capture", "error", err)
		return
	}

	ev := MotionEvent{
		ID:          uuid.New(),
		DeviceIndex: w.opts.DeviceIndex,
		Threshold:   w.opts.Threshold,
		Path:        path,
		Time:        now,
	}
	slog.Info("surveillance: motion captured", "path", path, "event_id", ev.ID)
	if w.OnMotion != nil {
		w.OnMotion(ev)
	}
}

// Package lockout takes a last camera still and powers the host off after
// too many failed password attempts.
package lockout

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/iburimskiy/motion-screensaver/internal/camera"
	"github.com/iburimskiy/motion-screensaver/internal/surveillance"
)

// captureReads is how many read timeouts a freshly opened camera gets to
// deliver its first frame.
const captureReads = 5

// Shutdowner powers off the host.
type Shutdowner interface {
	Shutdown(ctx context.Context) error
}

// Command returns the platform shutdown command.
func Command(goos string) []string {
	if goos == "windows" {
		return []string{"shutdown", "/s", "/f", "/t", "1"}
	}
	return []string{"shutdown", "-h", "now"}
}

// ExecShutdowner runs the platform shutdown command. With DryRun set it only
// logs the command.
type ExecShutdowner struct {
	DryRun bool
}

func (s ExecShutdowner) Shutdown(ctx context.Context) error {
	argv := Command(runtime.GOOS)
	if s.DryRun {
		slog.Warn("lockout: dry run, not shutting down", "command", argv)
		return nil
	}
	out, err := exec.CommandContext(ctx, argv[0], argv[1:]...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("shutdown command failed: %w: %s", err, out)
	}
	return nil
}

type Options struct {
	CameraEnabled bool
	DeviceIndex   int
	Folder        string
}

// Policy runs the escalation at most once per process.
type Policy struct {
	opts     Options
	opener   camera.Opener
	shutdown Shutdowner
	now      func() time.Time

	once sync.Once
	err  error
}

func New(opts Options, opener camera.Opener, shutdown Shutdowner) *Policy {
	return &Policy{opts: opts, opener: opener, shutdown: shutdown, now: time.Now}
}

// Escalate takes the pre-shutdown capture, when a camera is configured, and
// then issues the shutdown. A failed capture never blocks the shutdown.
// Calls after the first return the first result.
func (p *Policy) Escalate(ctx context.Context) error {
	p.once.Do(func() {
		slog.Warn("lockout: too many failed attempts, shutting down")
		if p.opts.CameraEnabled && p.opener != nil {
			if path, err := p.capture(); err != nil {
				slog.Error("lockout: pre-shutdown capture failed", "error", err)
			} else {
				slog.Info("lockout: pre-shutdown capture saved", "path", path)
			}
		}
		p.err = p.shutdown.Shutdown(ctx)
		if p.err != nil {
			slog.Error("lockout: shutdown failed", "error", p.err)
		}
	})
	return p.err
}

func (p *Policy) capture() (string, error) {
	dev, err := p.opener.Open(p.opts.DeviceIndex)
	if err != nil {
		return "", fmt.Errorf("failed to open camera %d: %w", p.opts.DeviceIndex, err)
	}
	defer dev.Close()

	var frame image.Image
	for i := 0; i < captureReads; i++ {
		frame, err = dev.Read()
		if !errors.Is(err, camera.ErrNoFrame) {
			break
		}
		slog.Debug("lockout: waiting for camera", "attempt", i+1)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read frame: %w", err)
	}
	return surveillance.SaveCapture(p.opts.Folder, frame, p.now(), surveillance.ShutdownSuffix)
}

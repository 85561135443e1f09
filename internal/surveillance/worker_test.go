package surveillance

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iburimskiy/motion-screensaver/internal/camera"
)

var errEndOfTape = errors.New("end of tape")

// tapeDevice replays frames, then fails. A nil frame plays back as a read
// timeout.
type tapeDevice struct {
	mu     sync.Mutex
	frames []image.Image
	reads  int
	closed bool
}

func (d *tapeDevice) Read() (image.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reads++
	if len(d.frames) == 0 {
		return nil, errEndOfTape
	}
	f := d.frames[0]
	d.frames = d.frames[1:]
	if f == nil {
		return nil, camera.ErrNoFrame
	}
	return f, nil
}

func (d *tapeDevice) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return nil
}

func openerFor(dev camera.Device) camera.Opener {
	return camera.OpenerFunc(func(int) (camera.Device, error) { return dev, nil })
}

func testOptions(t *testing.T) Options {
	return Options{DeviceIndex: 0, Folder: filepath.Join(t.TempDir(), "captures"), Threshold: 1000}
}

func waitDone(t *testing.T, w *Worker) {
	t.Helper()
	select {
	case <-w.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not finish")
	}
}

func listCaptures(t *testing.T, folder string) []string {
	t.Helper()
	entries, err := os.ReadDir(folder)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestWorkerCapturesMotionOnce(t *testing.T) {
	bg := solidFrame(160, 120, color.RGBA{20, 20, 20, 255})
	dev := &tapeDevice{frames: []image.Image{bg, frameWithSquare(160, 120, 40, 30, 60)}}
	opts := testOptions(t)

	var events []MotionEvent
	w := NewWorker(opts, openerFor(dev))
	w.OnMotion = func(ev MotionEvent) { events = append(events, ev) }
	w.Start(context.Background())
	waitDone(t, w)

	names := listCaptures(t, opts.Folder)
	require.Len(t, names, 1)
	assert.True(t, strings.HasPrefix(names[0], "capture_"))
	assert.True(t, strings.HasSuffix(names[0], ".jpg"))

	require.Len(t, events, 1)
	assert.Equal(t, filepath.Join(opts.Folder, names[0]), events[0].Path)
	assert.Equal(t, 1000, events[0].Threshold)
	assert.NotEqual(t, uuid.Nil, events[0].ID)
	assert.True(t, dev.closed)
}

func TestWorkerRetriesAfterReadTimeout(t *testing.T) {
	bg := solidFrame(160, 120, color.RGBA{20, 20, 20, 255})
	dev := &tapeDevice{frames: []image.Image{nil, bg, nil, nil, frameWithSquare(160, 120, 40, 30, 60)}}
	opts := testOptions(t)
	opts.Interval = time.Millisecond

	var events []MotionEvent
	w := NewWorker(opts, openerFor(dev))
	w.OnMotion = func(ev MotionEvent) { events = append(events, ev) }
	w.Start(context.Background())
	waitDone(t, w)

	assert.Equal(t, 6, dev.reads, "every frame read, then the tape error")
	assert.Len(t, events, 1)
	assert.Len(t, listCaptures(t, opts.Folder), 1)
}

func TestWorkerStopsWhileCameraIsSilent(t *testing.T) {
	w := NewWorker(testOptions(t), openerFor(silentDevice{}))
	w.Start(context.Background())

	require.NoError(t, w.Stop(time.Second))
	waitDone(t, w)
}

// silentDevice never produces a frame.
type silentDevice struct{}

func (silentDevice) Read() (image.Image, error) {
	time.Sleep(time.Millisecond)
	return nil, camera.ErrNoFrame
}
func (silentDevice) Close() error { return nil }

func TestWorkerIdenticalFramesCaptureNothing(t *testing.T) {
	bg := solidFrame(160, 120, color.RGBA{20, 20, 20, 255})
	dev := &tapeDevice{frames: []image.Image{bg, bg, bg}}
	opts := testOptions(t)

	w := NewWorker(opts, openerFor(dev))
	w.Start(context.Background())
	waitDone(t, w)

	assert.Empty(t, listCaptures(t, opts.Folder))
}

func TestWorkerOpenFailure(t *testing.T) {
	opener := camera.OpenerFunc(func(int) (camera.Device, error) { return nil, errors.New("no such device") })
	w := NewWorker(testOptions(t), opener)
	w.Start(context.Background())
	waitDone(t, w)
	assert.NoError(t, w.Stop(time.Second))
}

// loopDevice serves the same frame forever.
type loopDevice struct{ frame image.Image }

func (d loopDevice) Read() (image.Image, error) { return d.frame, nil }
func (d loopDevice) Close() error               { return nil }

func TestWorkerStop(t *testing.T) {
	opts := testOptions(t)
	opts.Interval = 5 * time.Millisecond
	w := NewWorker(opts, openerFor(loopDevice{frame: solidFrame(32, 24, color.Black)}))
	w.Start(context.Background())

	require.NoError(t, w.Stop(time.Second))
	waitDone(t, w)
}

func TestWorkerStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	w := NewWorker(testOptions(t), openerFor(loopDevice{frame: solidFrame(8, 8, color.Black)}))
	w.Start(ctx)
	cancel()
	waitDone(t, w)
}

// stuckDevice blocks in Read until released.
type stuckDevice struct{ release chan struct{} }

func (d stuckDevice) Read() (image.Image, error) {
	<-d.release
	return nil, camera.ErrNoFrame
}
func (d stuckDevice) Close() error { return nil }

func TestWorkerStopTimeout(t *testing.T) {
	dev := stuckDevice{release: make(chan struct{})}
	w := NewWorker(testOptions(t), openerFor(dev))
	w.Start(context.Background())

	err := w.Stop(20 * time.Millisecond)
	assert.ErrorIs(t, err, ErrJoinTimeout)

	close(dev.release)
	waitDone(t, w)
}

func TestStopBeforeStart(t *testing.T) {
	w := NewWorker(testOptions(t), openerFor(loopDevice{}))
	assert.NoError(t, w.Stop(time.Millisecond))
}

package lockout

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iburimskiy/motion-screensaver/internal/camera"
)

type fakeShutdowner struct {
	calls int
	err   error
}

func (s *fakeShutdowner) Shutdown(context.Context) error {
	s.calls++
	return s.err
}

type stillDevice struct {
	err    error
	misses int // read timeouts before the first frame
	reads  int
	closed bool
}

func (d *stillDevice) Read() (image.Image, error) {
	d.reads++
	if d.reads <= d.misses {
		return nil, camera.ErrNoFrame
	}
	if d.err != nil {
		return nil, d.err
	}
	return image.NewRGBA(image.Rect(0, 0, 8, 8)), nil
}

func (d *stillDevice) Close() error {
	d.closed = true
	return nil
}

func TestEscalateCapturesThenShutsDown(t *testing.T) {
	folder := filepath.Join(t.TempDir(), "captures")
	dev := &stillDevice{}
	var opened []int
	opener := camera.OpenerFunc(func(i int) (camera.Device, error) {
		opened = append(opened, i)
		return dev, nil
	})
	sd := &fakeShutdowner{}

	p := New(Options{CameraEnabled: true, DeviceIndex: 2, Folder: folder}, opener, sd)
	require.NoError(t, p.Escalate(context.Background()))

	assert.Equal(t, []int{2}, opened)
	assert.True(t, dev.closed)
	assert.Equal(t, 1, sd.calls)

	entries, err := os.ReadDir(folder)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasSuffix(entries[0].Name(), "_shutdown.jpg"))
}

func TestCaptureWaitsForCameraWarmUp(t *testing.T) {
	folder := t.TempDir()
	dev := &stillDevice{misses: captureReads - 1}
	sd := &fakeShutdowner{}

	p := New(Options{CameraEnabled: true, Folder: folder}, openerFor(dev), sd)
	require.NoError(t, p.Escalate(context.Background()))

	assert.Equal(t, captureReads, dev.reads)
	entries, err := os.ReadDir(folder)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, 1, sd.calls)
}

func TestCaptureGivesUpOnSilentCamera(t *testing.T) {
	folder := t.TempDir()
	dev := &stillDevice{misses: 100}
	sd := &fakeShutdowner{}

	p := New(Options{CameraEnabled: true, Folder: folder}, openerFor(dev), sd)
	require.NoError(t, p.Escalate(context.Background()))

	assert.Equal(t, captureReads, dev.reads)
	entries, err := os.ReadDir(folder)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, 1, sd.calls, "shutdown still happens")
	assert.True(t, dev.closed)
}

func openerFor(dev camera.Device) camera.Opener {
	return camera.OpenerFunc(func(int) (camera.Device, error) { return dev, nil })
}

func TestEscalateRunsOnce(t *testing.T) {
	sd := &fakeShutdowner{err: errors.New("permission denied")}
	p := New(Options{}, nil, sd)

	err1 := p.Escalate(context.Background())
	err2 := p.Escalate(context.Background())

	assert.Equal(t, 1, sd.calls)
	assert.EqualError(t, err1, "permission denied")
	assert.Equal(t, err1, err2)
}

func TestCaptureFailureDoesNotBlockShutdown(t *testing.T) {
	cases := map[string]camera.Opener{
		"open fails": camera.OpenerFunc(func(int) (camera.Device, error) {
			return nil, errors.New("busy")
		}),
		"read fails": camera.OpenerFunc(func(int) (camera.Device, error) {
			return &stillDevice{err: camera.ErrNoFrame}, nil
		}),
	}
	for name, opener := range cases {
		t.Run(name, func(t *testing.T) {
			sd := &fakeShutdowner{}
			p := New(Options{CameraEnabled: true, Folder: t.TempDir()}, opener, sd)
			require.NoError(t, p.Escalate(context.Background()))
			assert.Equal(t, 1, sd.calls)
		})
	}
}

func TestCameraDisabledSkipsCapture(t *testing.T) {
	opener := camera.OpenerFunc(func(int) (camera.Device, error) {
		t.Fatal("camera must not be opened")
		return nil, nil
	})
	sd := &fakeShutdowner{}
	require.NoError(t, New(Options{}, opener, sd).Escalate(context.Background()))
	assert.Equal(t, 1, sd.calls)
}

func TestCommand(t *testing.T) {
	assert.Equal(t, []string{"shutdown", "/s", "/f", "/t", "1"}, Command("windows"))
	assert.Equal(t, []string{"shutdown", "-h", "now"}, Command("linux"))
	assert.Equal(t, []string{"shutdown", "-h", "now"}, Command("darwin"))
}

func TestDryRun(t *testing.T) {
	assert.NoError(t, ExecShutdowner{DryRun: true}.Shutdown(context.Background()))
}

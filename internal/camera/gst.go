package camera

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"
)

var gstOnce sync.Once

// GstOpener opens local cameras through a GStreamer pipeline ending in an
// appsink that keeps only the newest frame.
type GstOpener struct {
	Width, Height int
	ReadTimeout   time.Duration
}

func (o GstOpener) Open(index int) (Device, error) {
	gstOnce.Do(func() { gst.Init(nil) })

	timeout := o.ReadTimeout
	if timeout <= 0 {
		timeout = DefaultReadTimeout
	}

	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline: %w", err)
	}

	src, err := sourceElement(index)
	if err != nil {
		return nil, err
	}
	convert, err := gst.NewElement("videoconvert")
	if err != nil {
		return nil, fmt.Errorf("failed to create videoconvert: %w", err)
	}
	scale, err := gst.NewElement("videoscale")
	if err != nil {
		return nil, fmt.Errorf("failed to create videoscale: %w", err)
	}
	capsfilter, err := gst.NewElement("capsfilter")
	if err != nil {
		return nil, fmt.Errorf("failed to create capsfilter: %w", err)
	}
	caps := fmt.Sprintf("video/x-raw,format=RGB,width=%d,height=%d", o.Width, o.Height)
	capsfilter.SetProperty("caps", gst.NewCapsFromString(caps))

	sink, err := app.NewAppSink()
	if err != nil {
		return nil, fmt.Errorf("failed to create appsink: %w", err)
	}
	sink.SetProperty("sync", false)
	sink.SetProperty("max-buffers", 1)
	sink.SetProperty("drop", true)

	d := &gstDevice{
		pipeline: pipeline,
		frames:   make(chan []byte, 1),
		failed:   make(chan struct{}),
		stop:     make(chan struct{}),
		width:    o.Width,
		height:   o.Height,
		timeout:  timeout,
	}
	sink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: d.onNewSample,
	})

	if err := pipeline.AddMany(src, convert, scale, capsfilter, sink.Element); err != nil {
		return nil, fmt.Errorf("failed to add elements: %w", err)
	}
	if err := gst.ElementLinkMany(src, convert, scale, capsfilter, sink.Element); err != nil {
		return nil, fmt.Errorf("failed to link elements: %w", err)
	}
	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		pipeline.SetState(gst.StateNull)
		return nil, fmt.Errorf("failed to open camera %d: %w", index, err)
	}

	go d.monitorBus()

	slog.Debug("camera: pipeline playing", "index", index, "caps", caps)
	return d, nil
}

// sourceElement picks the platform capture source.
func sourceElement(index int) (*gst.Element, error) {
	var (
		src *gst.Element
		err error
	)
	switch runtime.GOOS {
	case "windows":
		src, err = gst.NewElement("ksvideosrc")
		if err == nil {
			src.SetProperty("device-index", index)
		}
	case "darwin":
		src, err = gst.NewElement("avfvideosrc")
		if err == nil {
			src.SetProperty("device-index", index)
		}
	default:
		src, err = gst.NewElement("v4l2src")
		if err == nil {
			src.SetProperty("device", fmt.Sprintf("/dev/video%d", index))
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create camera source: %w", err)
	}
	return src, nil
}

// busPollInterval bounds how long the bus monitor takes to notice Close.
const busPollInterval = 50 * time.Millisecond

type gstDevice struct {
	pipeline *gst.Pipeline
	frames   chan []byte

	// failed is closed once err holds a fatal pipeline error.
	failed chan struct{}
	err    error

	stop     chan struct{}
	stopOnce sync.Once

	width, height int
	timeout       time.Duration
}

// onNewSample copies the newest frame out of GStreamer. An unread older
// frame is replaced.
func (d *gstDevice) onNewSample(sink *app.Sink) gst.FlowReturn {
	sample := sink.PullSample()
	if sample == nil {
		return gst.FlowEOS
	}
	buffer := sample.GetBuffer()
	if buffer == nil {
		slog.Warn("camera: sample without buffer, skipping frame")
		return gst.FlowOK
	}

	mapInfo := buffer.Map(gst.MapRead)
	data := mapInfo.Bytes()
	if len(data) == 0 {
		buffer.Unmap()
		return gst.FlowOK
	}
	frame := make([]byte, len(data))
	copy(frame, data)
	buffer.Unmap()

	select {
	case <-d.frames:
	default:
	}
	select {
	case d.frames <- frame:
	default:
	}
	return gst.FlowOK
}

// monitorBus watches the pipeline bus until Close or the first error or
// end of stream.
func (d *gstDevice) monitorBus() {
	bus := d.pipeline.GetPipelineBus()
	for {
		select {
		case <-d.stop:
			return
		default:
		}

		msg := bus.TimedPop(busPollInterval)
		if msg == nil {
			continue
		}
		switch msg.Type() {
		case gst.MessageEOS:
			d.fail(errors.New("camera: end of stream"))
			return
		case gst.MessageError:
			gerr := msg.ParseError()
			slog.Error("camera: pipeline error", "error", gerr.Error(), "debug", gerr.DebugString())
			d.fail(fmt.Errorf("camera: pipeline error: %s", gerr.Error()))
			return
		case gst.MessageStateChanged:
			if msg.Source() == d.pipeline.GetName() {
				old, cur := msg.ParseStateChanged()
				slog.Debug("camera: pipeline state changed", "from", old, "to", cur)
			}
		}
	}
}

func (d *gstDevice) fail(err error) {
	d.err = err
	close(d.failed)
}

func (d *gstDevice) Read() (image.Image, error) {
	select {
	case <-d.failed:
		return nil, d.err
	default:
	}

	select {
	case <-d.failed:
		return nil, d.err
	case data := <-d.frames:
		stride := rgbStride(d.width)
		if len(data) < stride*d.height {
			stride = d.width * 3
		}
		return RGBToImage(data, d.width, d.height, stride)
	case <-time.After(d.timeout):
		return nil, ErrNoFrame
	}
}

func (d *gstDevice) Close() error {
	d.stopOnce.Do(func() { close(d.stop) })
	if err := d.pipeline.SetState(gst.StateNull); err != nil {
		return fmt.Errorf("failed to set pipeline to NULL: %w", err)
	}
	return nil
}

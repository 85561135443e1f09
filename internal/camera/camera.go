// Package camera opens local capture devices and hands out decoded frames.
package camera

import (
	"errors"
	"image"
	"time"
)

// ErrNoFrame is returned by Read when no frame arrived within the read
// timeout. It is transient; any other Read error means the device is gone.
var ErrNoFrame = errors.New("camera: no frame")

// DefaultReadTimeout bounds a single Read.
const DefaultReadTimeout = time.Second

// Device is an open capture device. Read and Close must be called from the
// same goroutine.
type Device interface {
	Read() (image.Image, error)
	Close() error
}

// Opener opens the capture device with the given index.
type Opener interface {
	Open(index int) (Device, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(index int) (Device, error)

func (f OpenerFunc) Open(index int) (Device, error) { return f(index) }

// RGBToImage copies packed 24-bit RGB rows into an RGBA image. stride is the
// byte length of one source row; 0 means width*3.
func RGBToImage(data []byte, width, height, stride int) (*image.RGBA, error) {
	if stride == 0 {
		stride = width * 3
	}
	if width <= 0 || height <= 0 || stride < width*3 {
		return nil, errors.New("camera: bad frame geometry")
	}
	if len(data) < stride*(height-1)+width*3 {
		return nil, errors.New("camera: short frame")
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		src := data[y*stride : y*stride+width*3]
		dst := img.Pix[y*img.Stride : y*img.Stride+width*4]
		for x := 0; x < width; x++ {
			dst[x*4+0] = src[x*3+0]
			dst[x*4+1] = src[x*3+1]
			dst[x*4+2] = src[x*3+2]
			dst[x*4+3] = 0xff
		}
	}
	return img, nil
}

// rgbStride is the row length GStreamer uses for packed RGB: rounded up to a
// multiple of 4 bytes.
func rgbStride(width int) int {
	return (width*3 + 3) &^ 3
}

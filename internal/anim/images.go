package anim

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

var supportedImages = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".bmp":  true,
	".gif":  true,
}

// Playlist lists the supported images directly inside folder, sorted by name.
func Playlist(folder string) ([]string, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, fmt.Errorf("failed to read slideshow folder: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !supportedImages[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		files = append(files, filepath.Join(folder, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// LoadScaled decodes the image at path and scales it to fit inside
// width x height, preserving aspect ratio.
func LoadScaled(path string, width, height int) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return FitInto(src, width, height), nil
}

// FitInto scales src to the largest size that fits width x height.
func FitInto(src image.Image, width, height int) image.Image {
	b := src.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 || width <= 0 || height <= 0 {
		return src
	}
	ratio := min(float64(width)/float64(b.Dx()), float64(height)/float64(b.Dy()))
	w := max(1, int(float64(b.Dx())*ratio))
	h := max(1, int(float64(b.Dy())*ratio))

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

// LoadResult is the outcome of one background decode.
type LoadResult struct {
	Image image.Image
	Err   error
}

// ImageLoader starts loading path and delivers exactly one result on the
// returned channel.
type ImageLoader interface {
	Load(path string) <-chan LoadResult
}

type asyncLoader struct {
	width, height int
}

// NewAsyncLoader decodes and scales each image on its own goroutine so the
// render loop never waits on disk.
func NewAsyncLoader(width, height int) ImageLoader {
	return asyncLoader{width: width, height: height}
}

func (l asyncLoader) Load(path string) <-chan LoadResult {
	ch := make(chan LoadResult, 1)
	go func() {
		img, err := LoadScaled(path, l.width, l.height)
		ch <- LoadResult{Image: img, Err: err}
	}()
	return ch
}

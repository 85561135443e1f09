package surveillance

import (
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"time"
)

const jpegQuality = 90

// ShutdownSuffix marks the capture taken just before a lockout shutdown.
const ShutdownSuffix = "shutdown"

// CaptureName returns capture_YYYYMMDD_HHMMSS_<suffix>.jpg. An empty suffix
// is replaced by the microseconds of t.
func CaptureName(t time.Time, suffix string) string {
	if suffix == "" {
		suffix = fmt.Sprintf("%06d", t.Nanosecond()/1000)
	}
	return "capture_" + t.Format("20060102_150405") + "_" + suffix + ".jpg"
}

// SaveCapture writes img as a JPEG into folder, creating the folder when
// needed, and returns the file path.
func SaveCapture(folder string, img image.Image, t time.Time, suffix string) (string, error) {
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return "", fmt.Errorf("failed to create capture folder: %w", err)
	}

	path := filepath.Join(folder, CaptureName(t, suffix))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create capture: %w", err)
	}
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to encode capture: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to write capture: %w", err)
	}
	return path, nil
}

package surveillance

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Cleanup deletes regular files in folder last modified more than days ago.
// days <= 0 keeps everything, and a missing folder is not an error.
func Cleanup(folder string, days int, now time.Time) (int, error) {
	if days <= 0 {
		return 0, nil
	}
	entries, err := os.ReadDir(folder)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to scan capture folder: %w", err)
	}

	cutoff := now.Add(-time.Duration(days) * 24 * time.Hour)
	removed := 0
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		path := filepath.Join(folder, e.Name())
		info, err := e.Info()
		if err != nil {
			slog.Warn("surveillance: skipping capture", "path", path, "error", err)
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			slog.Warn("surveillance: failed to delete old capture", "path", path, "error", err)
			continue
		}
		removed++
		slog.Info("surveillance: deleted old capture", "path", path)
	}
	return removed, nil
}

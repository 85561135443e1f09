package game

import (
	"strings"
	"time"
)

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// formatClock formats t as HH:MM:SS
func formatClock(t time.Time) string {
	return t.Format("15:04:05")
}

// mask hides typed characters.
func mask(n int) string {
	return strings.Repeat("*", n)
}

// formatSeconds renders a whole number of seconds, e.g. "5s".
func formatSeconds(d time.Duration) string {
	return d.Round(time.Second).String()
}

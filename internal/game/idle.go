package game

import "time"

// idleWatch fires once no input has been seen for timeout.
type idleWatch struct {
	timeout time.Duration
	since   time.Time
}

func newIdleWatch(timeout time.Duration, now time.Time) *idleWatch {
	return &idleWatch{timeout: timeout, since: now}
}

// observe records whether the frame had input and reports whether the idle
// timeout has elapsed.
func (w *idleWatch) observe(now time.Time, active bool) bool {
	if active {
		w.since = now
		return false
	}
	return now.Sub(w.since) >= w.timeout
}

func (w *idleWatch) remaining(now time.Time) time.Duration {
	return max(0, w.timeout-now.Sub(w.since))
}

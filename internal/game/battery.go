package game

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/distatus/battery"
)

const (
	batteryPollInterval = 30 * time.Second
	// gap between the battery line and a bottom-left clock above it
	batteryGap = 5
)

// batteryStatus is the combined charge of every battery in the host.
type batteryStatus struct {
	Percent int
	Plugged bool
}

func (s batteryStatus) label() string {
	state := "discharging"
	if s.Plugged {
		state = "charging"
		if s.Percent == 100 {
			state = "charged"
		}
	}
	return fmt.Sprintf("Battery: %d%% (%s)", s.Percent, state)
}

// readBattery reports false on hosts without a readable battery.
func readBattery() (batteryStatus, bool) {
	all, err := battery.GetAll()
	if err != nil && len(all) == 0 {
		return batteryStatus{}, false
	}
	return summarize(all)
}

// summarize adds up the charge of every battery that reports a capacity.
func summarize(all []*battery.Battery) (batteryStatus, bool) {
	var current, full float64
	plugged := false
	for _, b := range all {
		if b == nil || b.Full <= 0 {
			continue
		}
		current += b.Current
		full += b.Full
		switch b.State.Raw {
		case battery.Charging, battery.Full:
			plugged = true
		}
	}
	if full <= 0 {
		return batteryStatus{}, false
	}
	pct := int(math.Round(100 * current / full))
	return batteryStatus{Percent: max(0, min(100, pct)), Plugged: plugged}, true
}

// batteryMonitor polls off the render loop and keeps the latest reading.
type batteryMonitor struct {
	read     func() (batteryStatus, bool)
	interval time.Duration
	latest   atomic.Pointer[batteryStatus]
}

func newBatteryMonitor(read func() (batteryStatus, bool), interval time.Duration) *batteryMonitor {
	return &batteryMonitor{read: read, interval: interval}
}

func (m *batteryMonitor) run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		m.poll()
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (m *batteryMonitor) poll() {
	st, ok := m.read()
	if !ok {
		m.latest.Store(nil)
		return
	}
	m.latest.Store(&st)
}

func (m *batteryMonitor) status() (batteryStatus, bool) {
	st := m.latest.Load()
	if st == nil {
		return batteryStatus{}, false
	}
	return *st, true
}

// batteryOrigin places the battery label at the bottom-left corner, or just
// above the clock when the clock sits there too.
func batteryOrigin(belowClock bool, screenH, h, clockTop float64) (x, y float64) {
	bottom := screenH - clockPadY
	if belowClock {
		bottom = clockTop - batteryGap
	}
	return clockPadX, bottom - h
}

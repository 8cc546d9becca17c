// Package rate estimates transfer speed and ETA from byte-count samples.
package rate

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/segpull/segpull/internal/engine/types"
)

// Estimator keeps a bounded window of samples for the instantaneous speed
// plus the very first sample for an all-time average.
type Estimator struct {
	mu         sync.Mutex
	window     []types.Sample
	windowSize int

	started    bool
	startBytes int64
	startTime  time.Time

	now func() time.Time
}

// New returns an estimator with the given window size (default 10 when <= 0).
func New(windowSize int) *Estimator {
	return NewWithNow(windowSize, time.Now)
}

// NewWithNow returns an estimator with a custom time source (for tests).
func NewWithNow(windowSize int, now func() time.Time) *Estimator {
	if windowSize <= 0 {
		windowSize = types.DefaultSpeedWindow
	}
	if now == nil {
		now = time.Now
	}
	return &Estimator{windowSize: windowSize, now: now}
}

// Record appends a sample, evicting the oldest one when the window is full.
func (e *Estimator) Record(bytes int64, at time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.started {
		e.started = true
		e.startBytes = bytes
		e.startTime = at
	}

	e.window = append(e.window, types.Sample{Bytes: bytes, At: at})
	if len(e.window) > e.windowSize {
		// Copy down instead of reslicing so the backing array stays bounded
		n := copy(e.window, e.window[len(e.window)-e.windowSize:])
		e.window = e.window[:n]
	}
}

// Speed returns bytes per second across the current window.
// Unavailable with fewer than two samples or a non-positive time delta.
func (e *Estimator) Speed() (float64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speedLocked()
}

func (e *Estimator) speedLocked() (float64, bool) {
	if len(e.window) < 2 {
		return 0, false
	}
	first := e.window[0]
	last := e.window[len(e.window)-1]
	dt := last.At.Sub(first.At).Seconds()
	if dt <= 0 {
		return 0, false
	}
	return float64(last.Bytes-first.Bytes) / dt, true
}

// ETA returns the seconds left to move from current to total bytes.
// Returns 0 when nothing remains; unavailable when there is no positive speed.
func (e *Estimator) ETA(total, current int64) (int64, bool) {
	speed, ok := e.Speed()
	if !ok || speed <= 0 {
		return 0, false
	}
	remaining := total - current
	if remaining <= 0 {
		return 0, true
	}
	return int64(math.Round(float64(remaining) / speed)), true
}

// ETAFormatted is ETA rendered with FormatETA.
func (e *Estimator) ETAFormatted(total, current int64) (string, bool) {
	secs, ok := e.ETA(total, current)
	if !ok {
		return "", false
	}
	return FormatETA(secs), true
}

// FormatETA renders seconds as 1h1m, 1m30s or 45s. Non-positive values render as 0s.
func FormatETA(seconds int64) string {
	if seconds <= 0 {
		return "0s"
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh%dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm%ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

// Elapsed returns the time since the first recorded sample, 0 before any sample.
func (e *Estimator) Elapsed() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started {
		return 0
	}
	d := e.now().Sub(e.startTime)
	if d < 0 {
		return 0
	}
	return d
}

// AverageSpeed returns bytes per second since the first sample.
// The denominator is measured against the clock, not the last sample, so the
// value keeps decaying while no new samples arrive.
func (e *Estimator) AverageSpeed() (float64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started || len(e.window) == 0 {
		return 0, false
	}
	elapsed := e.now().Sub(e.startTime).Seconds()
	if elapsed <= 0 {
		return 0, false
	}
	last := e.window[len(e.window)-1]
	return float64(last.Bytes-e.startBytes) / elapsed, true
}

// Len returns the number of samples currently in the window.
func (e *Estimator) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.window)
}

// Reset drops every sample and the start markers.
func (e *Estimator) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.window = nil
	e.started = false
	e.startBytes = 0
	e.startTime = time.Time{}
}

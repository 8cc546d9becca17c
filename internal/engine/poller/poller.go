// Package poller samples the agent's segment status file in the background
// while a transfer attempt runs.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/segpull/segpull/internal/engine/events"
	"github.com/segpull/segpull/internal/engine/rate"
	"github.com/segpull/segpull/internal/engine/snapshot"
	"github.com/segpull/segpull/internal/engine/types"
	"github.com/segpull/segpull/internal/utils"
)

// Config tunes a Poller. Zero values fall back to the defaults in types.
type Config struct {
	Interval   time.Duration
	StopGrace  time.Duration
	WindowSize int
	Now        func() time.Time
}

// ConfigFromRuntime builds a poller Config from engine settings
func ConfigFromRuntime(r *types.RuntimeConfig) Config {
	return Config{
		Interval:   r.GetPollInterval(),
		StopGrace:  r.GetStopGrace(),
		WindowSize: r.GetSpeedWindow(),
	}
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = types.DefaultPollInterval
	}
	if c.StopGrace <= 0 {
		c.StopGrace = types.DefaultStopGrace
	}
	if c.WindowSize <= 0 {
		c.WindowSize = types.DefaultSpeedWindow
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Poller owns one background sampling loop and a private rate estimator.
type Poller struct {
	path       string
	cfg        Config
	onProgress func(events.SegmentProgressMsg)
	estimator  *rate.Estimator

	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
	clean    bool
}

// New creates a poller for the given status file. onProgress runs on the
// poller goroutine and must not block.
func New(statusPath string, cfg Config, onProgress func(events.SegmentProgressMsg)) *Poller {
	cfg = cfg.withDefaults()
	return &Poller{
		path:       statusPath,
		cfg:        cfg,
		onProgress: onProgress,
		estimator:  rate.NewWithNow(cfg.WindowSize, cfg.Now),
		clean:      true,
	}
}

// Start launches the sampling loop. Calling Start twice is a no-op.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done != nil {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.loop(loopCtx, p.done)
}

func (p *Poller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		// Stop may have raced the tick
		if ctx.Err() != nil {
			return
		}
		p.Sample()
	}
}

// Sample performs one tick: read, parse, record, emit.
// A missing file or read error skips the tick and reports false.
func (p *Poller) Sample() bool {
	snap, ok, err := snapshot.ParseFile(p.path)
	if err != nil {
		utils.Debug("poller: skipping tick for %s: %v", p.path, err)
		return false
	}
	if !ok {
		return false
	}

	total := snap.TotalDownloaded()
	p.estimator.Record(total, p.cfg.Now())

	msg := events.SegmentProgressMsg{
		TotalSize:       snap.TotalSize,
		HasSize:         snap.HasSize,
		Segments:        snap.Segments,
		TotalDownloaded: total,
		OverallPercent:  snap.OverallPercent(),
		Elapsed:         p.estimator.Elapsed(),
	}
	msg.Speed, msg.HasSpeed = p.estimator.Speed()
	if snap.HasSize && snap.TotalSize > 0 {
		msg.ETA, _ = p.estimator.ETAFormatted(snap.TotalSize, total)
	}
	msg.AverageSpeed, msg.HasAverage = p.estimator.AverageSpeed()

	if p.onProgress != nil {
		p.onProgress(msg)
	}
	return true
}

// Stop cancels the loop and waits up to the grace period for it to exit.
// It returns false if the loop was still running and has been abandoned.
// Safe to call more than once and before Start.
func (p *Poller) Stop() bool {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		cancel, done := p.cancel, p.done
		p.mu.Unlock()
		if cancel == nil {
			return
		}

		cancel()

		timer := time.NewTimer(p.cfg.StopGrace)
		defer timer.Stop()
		select {
		case <-done:
		case <-timer.C:
			p.clean = false
			utils.Debug("poller: loop for %s did not exit within %v, abandoning", p.path, p.cfg.StopGrace)
		}
	})
	return p.clean
}

// Package retry re-runs corrupted transfers with the same or fewer segments.
//
// Each segment count gets ParallelRetries attempts. After that the count is
// halved, down to a single segment. Corruption at one segment is final.
// Every other failure is returned at once.
package retry

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/segpull/segpull/internal/engine/attempt"
	"github.com/segpull/segpull/internal/engine/events"
	"github.com/segpull/segpull/internal/engine/snapshot"
	"github.com/segpull/segpull/internal/engine/types"
	"github.com/segpull/segpull/internal/utils"
)

// AttemptRunner runs one transfer attempt
type AttemptRunner interface {
	Run(ctx context.Context, spec attempt.Spec) (string, error)
}

// State is the retry position for one download request
type State struct {
	Segments        int
	AttemptsAtLevel int
}

// Next returns the state for the attempt after a corrupted one.
// ok is false when no further attempt is allowed.
func (s State) Next(parallelRetries int) (next State, ok bool) {
	if s.AttemptsAtLevel+1 < parallelRetries {
		return State{Segments: s.Segments, AttemptsAtLevel: s.AttemptsAtLevel + 1}, true
	}
	if s.Segments > 1 {
		return State{Segments: max(1, s.Segments/2)}, true
	}
	return s, false
}

// Result summarizes a finished request
type Result struct {
	Path     string
	Attempts int // Agent invocations made
	Segments int // Segment count of the last attempt
}

// Controller drives attempts for one download request at a time
type Controller struct {
	Runner          AttemptRunner
	ParallelRetries int  // Attempts per segment count, default 2
	Disabled        bool // Make exactly one attempt
	DownloadID      string
	OnRetry         func(events.RetryMsg)
}

// New returns a controller configured from engine settings
func New(runner AttemptRunner, rc *types.RuntimeConfig) *Controller {
	return &Controller{
		Runner:          runner,
		ParallelRetries: rc.GetParallelRetries(),
		Disabled:        !rc.RetryEnabled(),
	}
}

// Run executes attempts until one succeeds, a non-corruption error occurs,
// or degradation is exhausted. Attempts never overlap.
func (c *Controller) Run(ctx context.Context, spec attempt.Spec) (Result, error) {
	parallelRetries := c.ParallelRetries
	if parallelRetries <= 0 {
		parallelRetries = types.DefaultParallelRetries
	}

	state := State{Segments: max(1, spec.Segments)}
	var res Result

	for {
		cur := spec
		cur.Segments = state.Segments
		if res.Attempts > 0 {
			// The partial file was deleted; continuing is meaningless
			cur.Resume = false
		}

		res.Attempts++
		res.Segments = cur.Segments
		path, err := c.Runner.Run(ctx, cur)
		if err == nil {
			res.Path = path
			return res, nil
		}
		if c.Disabled || !types.IsCorruption(err) {
			return res, err
		}

		if cleanErr := Cleanup(cur.LocalPath); cleanErr != nil {
			return res, errors.Join(err, cleanErr)
		}

		next, ok := state.Next(parallelRetries)
		if !ok {
			utils.Debug("retry: giving up on %s after %d attempts", cur.LocalPath, res.Attempts)
			return res, err
		}

		var ce *types.CorruptionError
		errors.As(err, &ce)
		utils.Debug("retry: attempt %d at %d segments corrupted, next at %d segments", res.Attempts, cur.Segments, next.Segments)
		if c.OnRetry != nil {
			c.OnRetry(events.RetryMsg{
				DownloadID:   c.DownloadID,
				Attempt:      res.Attempts,
				FromSegments: cur.Segments,
				ToSegments:   next.Segments,
				Diagnostic:   ce.Diagnostic,
			})
		}
		state = next

		if ctx.Err() != nil {
			return res, ctx.Err()
		}
	}
}

// Cleanup removes a local file and its segment status file.
// Missing files are not an error.
func Cleanup(localPath string) error {
	for _, p := range []string{localPath, snapshot.StatusPath(localPath)} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to remove %s: %w", p, err)
		}
	}
	return nil
}

package download

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/segpull/segpull/internal/engine/agent"
	"github.com/segpull/segpull/internal/engine/attempt"
	"github.com/segpull/segpull/internal/engine/events"
	"github.com/segpull/segpull/internal/engine/retry"
	"github.com/segpull/segpull/internal/engine/state"
	"github.com/segpull/segpull/internal/engine/types"
	"github.com/segpull/segpull/internal/utils"
)

// LockSuffix names the lock file guarding a destination
const LockSuffix = ".lock"

var (
	probeMu    sync.Mutex
	probeCache = map[string]agent.Info{}
)

// ProbeAgent checks the agent once per binary per process.
// Only successful probes are cached.
func ProbeAgent(ctx context.Context, binary string) (agent.Info, error) {
	probeMu.Lock()
	defer probeMu.Unlock()

	if info, ok := probeCache[binary]; ok {
		return info, nil
	}
	info, err := agent.Probe(ctx, binary)
	if err != nil {
		return info, err
	}
	utils.Debug("Agent %s found at %s (version %s)", binary, info.Path, info.Version)
	probeCache[binary] = info
	return info, nil
}

// ResolveDestPath returns the destination for cfg: DestPath when set,
// otherwise OutputPath joined with the filename.
func ResolveDestPath(cfg types.DownloadConfig, filename string) string {
	if cfg.DestPath != "" {
		return cfg.DestPath
	}
	dir := cfg.OutputPath
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, filename)
}

// Download fetches one target with the retry controller and returns the final path.
// Lifecycle events go to cfg.ProgressCh when it is set.
func Download(ctx context.Context, cfg types.DownloadConfig) (string, error) {
	rc := cfg.Runtime
	if cfg.ID == "" {
		cfg.ID = uuid.New().String()
	}

	target, err := agent.ParseTarget(cfg.Target)
	if err != nil {
		sendEvent(cfg.ProgressCh, events.DownloadErrorMsg{DownloadID: cfg.ID, Err: err})
		return "", err
	}
	if target.Password == "" {
		target.Password = cfg.Password
	}

	filename := cfg.Filename
	if filename == "" {
		filename = path.Base(target.RemotePath)
	}
	destPath := ResolveDestPath(cfg, filename)

	fail := func(err error) (string, error) {
		utils.Debug("Download %s failed: %v", cfg.ID, err)
		sendEvent(cfg.ProgressCh, events.DownloadErrorMsg{DownloadID: cfg.ID, Filename: filename, Err: err})
		return "", err
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	if _, err := ProbeAgent(ctx, rc.GetAgentBinary()); err != nil {
		return fail(err)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fail(fmt.Errorf("failed to create output directory: %w", err))
	}

	lock := flock.New(destPath + LockSuffix)
	locked, err := lock.TryLock()
	if err != nil {
		return fail(fmt.Errorf("failed to lock %s: %w", destPath, err))
	}
	if !locked {
		return fail(fmt.Errorf("%w: %s", types.ErrOutputLocked, destPath))
	}
	defer func() {
		_ = lock.Unlock()
		_ = os.Remove(lock.Path())
	}()

	if !cfg.IsResume {
		if err := retry.Cleanup(destPath); err != nil {
			return fail(err)
		}
	}

	segments := rc.GetSegments()
	sendEvent(cfg.ProgressCh, events.DownloadStartedMsg{
		DownloadID: cfg.ID,
		Target:     target.String(),
		Filename:   filename,
		DestPath:   destPath,
		Segments:   segments,
		Resume:     cfg.IsResume,
	})

	ctrl := retry.New(attempt.NewRunner(rc), rc)
	ctrl.DownloadID = cfg.ID
	ctrl.OnRetry = func(m events.RetryMsg) {
		m.Filename = filename
		sendEvent(cfg.ProgressCh, m)
	}

	spec := attempt.Spec{
		Target:    target,
		LocalPath: destPath,
		Segments:  segments,
		Resume:    cfg.IsResume,
		OnSegments: func(m events.SegmentProgressMsg) {
			m.DownloadID = cfg.ID
			offerEvent(cfg.ProgressCh, m)
		},
		OnProgress: func(m events.ProgressMsg) {
			m.DownloadID = cfg.ID
			offerEvent(cfg.ProgressCh, m)
		},
		OnLine: func(line string) {
			utils.Debug("[%s] %s", filename, line)
		},
	}

	start := time.Now()
	res, runErr := ctrl.Run(ctx, spec)
	elapsed := time.Since(start)

	entry := types.DownloadEntry{
		ID:          cfg.ID,
		Target:      target.String(),
		DestPath:    destPath,
		Filename:    filename,
		Status:      outcomeStatus(runErr),
		Segments:    res.Segments,
		Attempts:    res.Attempts,
		CompletedAt: time.Now().Unix(),
		TimeTaken:   elapsed.Milliseconds(),
	}
	if runErr != nil {
		entry.Error = runErr.Error()
	} else if info, err := os.Stat(res.Path); err == nil {
		entry.TotalSize = info.Size()
	}
	recordHistory(entry)

	if runErr != nil {
		return fail(runErr)
	}

	utils.Debug("Download %s complete: %s in %s after %d attempts", cfg.ID, res.Path, elapsed, res.Attempts)
	sendEvent(cfg.ProgressCh, events.DownloadCompleteMsg{
		DownloadID: cfg.ID,
		Filename:   filename,
		DestPath:   res.Path,
		Elapsed:    elapsed,
		Total:      entry.TotalSize,
		Attempts:   res.Attempts,
	})
	return res.Path, nil
}

func outcomeStatus(err error) string {
	switch {
	case err == nil:
		return types.StatusCompleted
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return types.StatusCancelled
	case types.IsCorruption(err):
		return types.StatusCorrupt
	default:
		return types.StatusError
	}
}

func recordHistory(e types.DownloadEntry) {
	if err := state.RecordDownload(e); err != nil && !errors.Is(err, state.ErrNotConfigured) {
		utils.Debug("Failed to record history for %s: %v", e.ID, err)
	}
}

// sendEvent delivers a lifecycle event, blocking until the consumer takes it
func sendEvent(ch chan<- any, msg any) {
	if ch != nil {
		ch <- msg
	}
}

// offerEvent delivers a progress event unless the consumer is behind.
// The next sample supersedes a dropped one.
func offerEvent(ch chan<- any, msg any) {
	if ch == nil {
		return
	}
	select {
	case ch <- msg:
	default:
	}
}

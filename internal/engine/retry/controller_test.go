package retry

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segpull/segpull/internal/engine/attempt"
	"github.com/segpull/segpull/internal/engine/events"
	"github.com/segpull/segpull/internal/engine/snapshot"
	"github.com/segpull/segpull/internal/engine/types"
)

// scriptedRunner returns the queued results in order and records every call
type scriptedRunner struct {
	t        *testing.T
	results  []error
	calls    []attempt.Spec
	leftover []bool // whether output or status existed when the call started
	write    bool   // create output and status files on every call
}

func (r *scriptedRunner) Run(_ context.Context, spec attempt.Spec) (string, error) {
	_, outErr := os.Stat(spec.LocalPath)
	_, stErr := os.Stat(snapshot.StatusPath(spec.LocalPath))
	r.leftover = append(r.leftover, outErr == nil || stErr == nil)
	r.calls = append(r.calls, spec)

	if r.write {
		require.NoError(r.t, os.WriteFile(spec.LocalPath, []byte("partial"), 0644))
		require.NoError(r.t, os.WriteFile(snapshot.StatusPath(spec.LocalPath), []byte("size=7\n"), 0644))
	}

	i := len(r.calls) - 1
	if i >= len(r.results) {
		r.t.Fatalf("unexpected attempt %d", i+1)
	}
	if err := r.results[i]; err != nil {
		return "", err
	}
	return spec.LocalPath, nil
}

func (r *scriptedRunner) segments() []int {
	var out []int
	for _, c := range r.calls {
		out = append(out, c.Segments)
	}
	return out
}

func corrupt(segments int) error {
	return &types.CorruptionError{Path: "x", Diagnostic: "CRC failed", Segments: segments}
}

func TestState_Next(t *testing.T) {
	tests := []struct {
		name  string
		in    State
		pr    int
		want  State
		alive bool
	}{
		{"repeat same level", State{4, 0}, 2, State{4, 1}, true},
		{"halve after retries", State{4, 1}, 2, State{2, 0}, true},
		{"odd count halves down", State{3, 0}, 1, State{1, 0}, true},
		{"single segment exhausted", State{1, 0}, 1, State{1, 0}, false},
		{"single segment repeats", State{1, 0}, 3, State{1, 1}, true},
		{"single segment last retry", State{1, 2}, 3, State{1, 2}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.in.Next(tt.pr)
			assert.Equal(t, tt.alive, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestState_StrictlyDecreasing(t *testing.T) {
	for n := 2; n <= 64; n++ {
		next, ok := State{Segments: n}.Next(1)
		require.True(t, ok)
		assert.Less(t, next.Segments, n)
		assert.GreaterOrEqual(t, next.Segments, 1)
	}
}

func TestController_DegradesThenSucceeds(t *testing.T) {
	local := filepath.Join(t.TempDir(), "a.zip")
	runner := &scriptedRunner{t: t, write: true, results: []error{corrupt(4), corrupt(4), nil}}

	var notices []events.RetryMsg
	c := &Controller{Runner: runner, ParallelRetries: 2, DownloadID: "dl-1", OnRetry: func(m events.RetryMsg) {
		notices = append(notices, m)
	}}

	res, err := c.Run(context.Background(), attempt.Spec{LocalPath: local, Segments: 4, Resume: true})
	require.NoError(t, err)

	assert.Equal(t, []int{4, 4, 2}, runner.segments())
	assert.Equal(t, Result{Path: local, Attempts: 3, Segments: 2}, res)

	// First attempt keeps the caller's resume flag, retries never resume
	assert.True(t, runner.calls[0].Resume)
	assert.False(t, runner.calls[1].Resume)
	assert.False(t, runner.calls[2].Resume)

	require.Len(t, notices, 2)
	assert.Equal(t, events.RetryMsg{DownloadID: "dl-1", Attempt: 1, FromSegments: 4, ToSegments: 4, Diagnostic: "CRC failed"}, notices[0])
	assert.Equal(t, 2, notices[1].ToSegments)
	assert.True(t, notices[1].Degraded())
}

func TestController_CleansUpBeforeEachRetry(t *testing.T) {
	local := filepath.Join(t.TempDir(), "a.rar")
	runner := &scriptedRunner{t: t, write: true, results: []error{corrupt(2), corrupt(2), nil}}

	c := &Controller{Runner: runner, ParallelRetries: 2}
	_, err := c.Run(context.Background(), attempt.Spec{LocalPath: local, Segments: 2})
	require.NoError(t, err)

	assert.Equal(t, []bool{false, false, false}, runner.leftover)
}

func TestController_ExhaustsAndRaisesCorruption(t *testing.T) {
	local := filepath.Join(t.TempDir(), "a.7z")
	last := corrupt(1)
	runner := &scriptedRunner{t: t, write: true, results: []error{corrupt(2), last}}

	var notices int
	c := &Controller{Runner: runner, ParallelRetries: 1, OnRetry: func(events.RetryMsg) { notices++ }}
	res, err := c.Run(context.Background(), attempt.Spec{LocalPath: local, Segments: 2})

	require.Error(t, err)
	assert.Same(t, last, err, "the last corruption error is returned verbatim")
	assert.Equal(t, []int{2, 1}, runner.segments())
	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, 1, notices)

	// The corrupt output of the final attempt is removed too
	_, statErr := os.Stat(local)
	assert.True(t, os.IsNotExist(statErr))
}

func TestController_FullDegradationSequence(t *testing.T) {
	local := filepath.Join(t.TempDir(), "a.zip")
	results := make([]error, 8)
	for i := range results {
		results[i] = corrupt(0)
	}
	runner := &scriptedRunner{t: t, results: results}

	c := &Controller{Runner: runner, ParallelRetries: 2}
	_, err := c.Run(context.Background(), attempt.Spec{LocalPath: local, Segments: 8})

	assert.True(t, types.IsCorruption(err))
	assert.Equal(t, []int{8, 8, 4, 4, 2, 2, 1, 1}, runner.segments())
}

func TestController_NonCorruptionPropagatesImmediately(t *testing.T) {
	errs := []error{
		&types.ProcessError{ExitCode: 1, Output: "Login failed"},
		&types.OutputMissingError{Path: "x"},
		errors.New("something else"),
	}
	for _, want := range errs {
		t.Run(want.Error(), func(t *testing.T) {
			runner := &scriptedRunner{t: t, results: []error{want}}
			c := &Controller{Runner: runner, ParallelRetries: 2, OnRetry: func(events.RetryMsg) {
				t.Error("no retry notice expected")
			}}

			_, err := c.Run(context.Background(), attempt.Spec{LocalPath: filepath.Join(t.TempDir(), "a.zip"), Segments: 4})
			assert.Same(t, want, err)
			assert.Len(t, runner.calls, 1)
		})
	}
}

func TestController_Disabled(t *testing.T) {
	local := filepath.Join(t.TempDir(), "a.zip")
	runner := &scriptedRunner{t: t, write: true, results: []error{corrupt(4)}}

	c := &Controller{Runner: runner, ParallelRetries: 2, Disabled: true}
	res, err := c.Run(context.Background(), attempt.Spec{LocalPath: local, Segments: 4})

	assert.True(t, types.IsCorruption(err))
	assert.Equal(t, 1, res.Attempts)
	// Left in place for inspection
	_, statErr := os.Stat(local)
	assert.NoError(t, statErr)
}

func TestController_CancelledBetweenAttempts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runner := &scriptedRunner{t: t, results: []error{corrupt(4)}}

	c := &Controller{Runner: runner, ParallelRetries: 2, OnRetry: func(events.RetryMsg) { cancel() }}
	_, err := c.Run(ctx, attempt.Spec{LocalPath: filepath.Join(t.TempDir(), "a.zip"), Segments: 4})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, runner.calls, 1)
}

func TestController_Defaults(t *testing.T) {
	runner := &scriptedRunner{t: t, results: []error{corrupt(0), nil}}
	c := &Controller{Runner: runner}

	res, err := c.Run(context.Background(), attempt.Spec{LocalPath: filepath.Join(t.TempDir(), "a.zip"), Segments: 0})
	require.NoError(t, err)
	// Segment count floors at one; default of two attempts per level
	assert.Equal(t, []int{1, 1}, runner.segments())
	assert.Equal(t, 2, res.Attempts)
}

func TestNew(t *testing.T) {
	c := New(&scriptedRunner{t: t}, nil)
	assert.Equal(t, types.DefaultParallelRetries, c.ParallelRetries)
	assert.False(t, c.Disabled)

	c = New(&scriptedRunner{t: t}, &types.RuntimeConfig{ParallelRetries: 5, DisableRetry: true})
	assert.Equal(t, 5, c.ParallelRetries)
	assert.True(t, c.Disabled)
}

func TestCleanup(t *testing.T) {
	dir := t.TempDir()
	local := filepath.Join(dir, "f.bin")
	require.NoError(t, os.WriteFile(local, []byte("x"), 0644))
	require.NoError(t, os.WriteFile(snapshot.StatusPath(local), []byte("x"), 0644))

	require.NoError(t, Cleanup(local))
	assert.NoFileExists(t, local)
	assert.NoFileExists(t, snapshot.StatusPath(local))

	// Second call finds nothing to remove
	assert.NoError(t, Cleanup(local))
}

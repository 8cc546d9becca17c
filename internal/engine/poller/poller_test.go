package poller

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segpull/segpull/internal/engine/events"
	"github.com/segpull/segpull/internal/engine/types"
)

type recorder struct {
	mu   sync.Mutex
	msgs []events.SegmentProgressMsg
}

func (r *recorder) add(m events.SegmentProgressMsg) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, m)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

func (r *recorder) last() events.SegmentProgressMsg {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.msgs[len(r.msgs)-1]
}

func fastConfig() Config {
	return Config{Interval: 10 * time.Millisecond, StopGrace: time.Second}
}

func TestPoller_EmitsProgress(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.bin"+types.StatusSuffix)
	require.NoError(t, os.WriteFile(path, []byte("size=1000\n0.pos=100\n0.limit=500\n1.pos=700\n1.limit=1000\n"), 0644))

	rec := &recorder{}
	p := New(path, fastConfig(), rec.add)
	p.Start(context.Background())

	require.Eventually(t, func() bool { return rec.count() >= 2 }, 2*time.Second, 5*time.Millisecond)
	assert.True(t, p.Stop())

	msg := rec.last()
	assert.Equal(t, int64(1000), msg.TotalSize)
	assert.True(t, msg.HasSize)
	assert.Equal(t, int64(300), msg.TotalDownloaded)
	assert.InDelta(t, 30.0, msg.OverallPercent, 1e-9)
	require.Len(t, msg.Segments, 2)
	assert.Equal(t, int64(500), msg.Segments[1].Start)
}

func TestPoller_MissingFileIsSilent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not-yet"+types.StatusSuffix)

	rec := &recorder{}
	p := New(path, fastConfig(), rec.add)
	p.Start(context.Background())

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, 0, rec.count())

	// The agent creates the file later
	require.NoError(t, os.WriteFile(path, []byte("size=10\n0.pos=5\n0.limit=10\n"), 0644))
	require.Eventually(t, func() bool { return rec.count() >= 1 }, 2*time.Second, 5*time.Millisecond)

	assert.True(t, p.Stop())
}

func TestPoller_ReadErrorIsSwallowed(t *testing.T) {
	// A directory at the status path makes every read fail
	path := filepath.Join(t.TempDir(), "dir"+types.StatusSuffix)
	require.NoError(t, os.Mkdir(path, 0755))

	rec := &recorder{}
	p := New(path, fastConfig(), rec.add)
	assert.False(t, p.Sample())

	p.Start(context.Background())
	time.Sleep(50 * time.Millisecond)
	assert.True(t, p.Stop())
	assert.Equal(t, 0, rec.count())
}

func TestPoller_SpeedFromSuccessiveSnapshots(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f"+types.StatusSuffix)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	rec := &recorder{}
	p := New(path, Config{Now: clock}, rec.add)

	require.NoError(t, os.WriteFile(path, []byte("size=10000\n0.pos=0\n0.limit=10000\n"), 0644))
	require.True(t, p.Sample())
	first := rec.last()
	assert.False(t, first.HasSpeed)
	assert.Equal(t, "", first.ETA)

	now = now.Add(2 * time.Second)
	require.NoError(t, os.WriteFile(path, []byte("size=10000\n0.pos=4000\n0.limit=10000\n"), 0644))
	require.True(t, p.Sample())

	msg := rec.last()
	require.True(t, msg.HasSpeed)
	assert.InDelta(t, 2000.0, msg.Speed, 1e-9)
	assert.Equal(t, "3s", msg.ETA)
	assert.Equal(t, 2*time.Second, msg.Elapsed)
	require.True(t, msg.HasAverage)
	assert.InDelta(t, 2000.0, msg.AverageSpeed, 1e-9)
}

func TestPoller_UnknownSizeHasNoETA(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f"+types.StatusSuffix)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rec := &recorder{}
	p := New(path, Config{Now: func() time.Time { return now }}, rec.add)

	require.NoError(t, os.WriteFile(path, []byte("size=-2\n0.pos=0\n0.limit=100\n"), 0644))
	p.Sample()
	now = now.Add(time.Second)
	require.NoError(t, os.WriteFile(path, []byte("size=-2\n0.pos=50\n0.limit=100\n"), 0644))
	p.Sample()

	msg := rec.last()
	assert.True(t, msg.HasSpeed)
	assert.Equal(t, "", msg.ETA)
	assert.Equal(t, types.UnknownSize, msg.TotalSize)
}

func TestPoller_StopAbandonsStuckLoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f"+types.StatusSuffix)
	require.NoError(t, os.WriteFile(path, []byte("size=10\n0.pos=1\n0.limit=10\n"), 0644))

	entered := make(chan struct{})
	release := make(chan struct{})
	defer close(release)

	var once sync.Once
	p := New(path, Config{Interval: 5 * time.Millisecond, StopGrace: 50 * time.Millisecond}, func(events.SegmentProgressMsg) {
		once.Do(func() { close(entered) })
		<-release
	})
	p.Start(context.Background())

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("callback never ran")
	}

	start := time.Now()
	assert.False(t, p.Stop(), "stuck loop should be abandoned")
	assert.Less(t, time.Since(start), time.Second)

	// Repeated Stop keeps the first result and does not wait again
	assert.False(t, p.Stop())
}

func TestPoller_StopBeforeStart(t *testing.T) {
	p := New("unused", Config{}, nil)
	assert.True(t, p.Stop())
}

func TestPoller_StopExitsBeforeLongInterval(t *testing.T) {
	p := New(filepath.Join(t.TempDir(), "x"), Config{Interval: time.Hour, StopGrace: time.Second}, nil)
	p.Start(context.Background())

	start := time.Now()
	assert.True(t, p.Stop())
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestPoller_ParentContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := New(filepath.Join(t.TempDir(), "x"), fastConfig(), nil)
	p.Start(ctx)
	cancel()

	assert.True(t, p.Stop())
}

func TestConfigFromRuntime(t *testing.T) {
	cfg := ConfigFromRuntime(nil)
	assert.Equal(t, types.DefaultPollInterval, cfg.Interval)
	assert.Equal(t, types.DefaultStopGrace, cfg.StopGrace)
	assert.Equal(t, types.DefaultSpeedWindow, cfg.WindowSize)

	cfg = ConfigFromRuntime(&types.RuntimeConfig{PollInterval: 250 * time.Millisecond, SpeedWindow: 4})
	assert.Equal(t, 250*time.Millisecond, cfg.Interval)
	assert.Equal(t, 4, cfg.WindowSize)
}

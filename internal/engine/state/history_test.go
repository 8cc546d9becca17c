package state

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segpull/segpull/internal/engine/types"
)

func setupDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	require.NoError(t, Configure(path))
	t.Cleanup(func() { _ = CloseDB() })
	return path
}

func entry(id string, completedAt int64) types.DownloadEntry {
	return types.DownloadEntry{
		ID:          id,
		Target:      "sftp://user@host/files/" + id + ".zip",
		DestPath:    "/tmp/" + id + ".zip",
		Filename:    id + ".zip",
		Status:      types.StatusCompleted,
		TotalSize:   1024,
		Segments:    4,
		Attempts:    1,
		CompletedAt: completedAt,
		TimeTaken:   1500,
	}
}

func TestNotConfigured(t *testing.T) {
	require.NoError(t, CloseDB())

	assert.ErrorIs(t, RecordDownload(entry("a", 1)), ErrNotConfigured)
	_, err := ListDownloads(0)
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = GetDownload("a")
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.ErrorIs(t, RemoveDownload("a"), ErrNotConfigured)
}

func TestRecordAndGet(t *testing.T) {
	setupDB(t)

	want := entry("first", 100)
	want.Status = types.StatusCorrupt
	want.Error = "archive corrupted after 3 attempts"
	want.Segments = 1
	want.Attempts = 3
	require.NoError(t, RecordDownload(want))

	got, err := GetDownload("first")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want, *got)
}

func TestGetDownload_Missing(t *testing.T) {
	setupDB(t)

	got, err := GetDownload("nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRecordDownload_Upsert(t *testing.T) {
	setupDB(t)

	e := entry("same", 100)
	require.NoError(t, RecordDownload(e))

	e.Status = types.StatusError
	e.Error = "lftp exited with code 1"
	e.Attempts = 2
	require.NoError(t, RecordDownload(e))

	list, err := ListDownloads(0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, types.StatusError, list[0].Status)
	assert.Equal(t, 2, list[0].Attempts)
	assert.Equal(t, "lftp exited with code 1", list[0].Error)
}

func TestListDownloads_OrderAndLimit(t *testing.T) {
	setupDB(t)

	require.NoError(t, RecordDownload(entry("old", 100)))
	require.NoError(t, RecordDownload(entry("new", 300)))
	require.NoError(t, RecordDownload(entry("mid", 200)))

	all, err := ListDownloads(0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"new", "mid", "old"}, []string{all[0].ID, all[1].ID, all[2].ID})

	top, err := ListDownloads(2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "new", top[0].ID)
	assert.Equal(t, "mid", top[1].ID)
}

func TestListDownloads_Empty(t *testing.T) {
	setupDB(t)

	list, err := ListDownloads(10)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestRemoveDownload(t *testing.T) {
	setupDB(t)

	require.NoError(t, RecordDownload(entry("keep", 1)))
	require.NoError(t, RecordDownload(entry("drop", 2)))

	require.NoError(t, RemoveDownload("drop"))
	require.NoError(t, RemoveDownload("never-existed"))

	list, err := ListDownloads(0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "keep", list[0].ID)
}

func TestConfigure_Reopen(t *testing.T) {
	path := setupDB(t)
	require.NoError(t, RecordDownload(entry("persisted", 1)))
	require.NoError(t, CloseDB())

	require.NoError(t, Configure(path))
	got, err := GetDownload("persisted")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "persisted", got.ID)
}

func TestRecordDownload_Concurrent(t *testing.T) {
	setupDB(t)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- RecordDownload(entry(string(rune('a'+i)), int64(i)))
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	list, err := ListDownloads(0)
	require.NoError(t, err)
	assert.Len(t, list, 20)
}

// Package state persists the outcome of finished downloads in a sqlite
// database. It is a record only: nothing here feeds back into retry decisions.
package state

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/segpull/segpull/internal/engine/types"
	"github.com/segpull/segpull/internal/utils"

	_ "modernc.org/sqlite" // pure Go driver, registers "sqlite"
)

// ErrNotConfigured is returned when the store is used before Configure
var ErrNotConfigured = errors.New("history store not configured")

var (
	mu sync.Mutex
	db *sql.DB
)

const schema = `
CREATE TABLE IF NOT EXISTS downloads (
	id TEXT PRIMARY KEY,
	target TEXT NOT NULL,
	dest_path TEXT NOT NULL,
	filename TEXT NOT NULL,
	status TEXT NOT NULL,
	total_size INTEGER DEFAULT 0,
	segments INTEGER DEFAULT 0,
	attempts INTEGER DEFAULT 0,
	error TEXT,
	completed_at INTEGER NOT NULL,
	time_taken INTEGER DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_downloads_completed ON downloads(completed_at);
CREATE INDEX IF NOT EXISTS idx_downloads_status ON downloads(status);
`

// Configure opens (creating if needed) the history database at dbPath.
// Calling it again closes the previous handle first.
func Configure(dbPath string) error {
	mu.Lock()
	defer mu.Unlock()

	if db != nil {
		_ = db.Close()
		db = nil
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	// Batch workers record concurrently; one writer avoids SQLITE_BUSY churn
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to connect to history database: %w", err)
	}
	if _, err := conn.Exec(schema); err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to create tables: %w", err)
	}

	db = conn
	utils.Debug("History store opened at %s", dbPath)
	return nil
}

// CloseDB closes the database if open
func CloseDB() error {
	mu.Lock()
	defer mu.Unlock()

	if db == nil {
		return nil
	}
	err := db.Close()
	db = nil
	return err
}

func handle() (*sql.DB, error) {
	mu.Lock()
	defer mu.Unlock()
	if db == nil {
		return nil, ErrNotConfigured
	}
	return db, nil
}

// RecordDownload adds or replaces the entry with the same ID
func RecordDownload(e types.DownloadEntry) error {
	conn, err := handle()
	if err != nil {
		return err
	}

	_, err = conn.Exec(`
		INSERT INTO downloads (id, target, dest_path, filename, status, total_size, segments, attempts, error, completed_at, time_taken)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			target = excluded.target,
			dest_path = excluded.dest_path,
			filename = excluded.filename,
			status = excluded.status,
			total_size = excluded.total_size,
			segments = excluded.segments,
			attempts = excluded.attempts,
			error = excluded.error,
			completed_at = excluded.completed_at,
			time_taken = excluded.time_taken`,
		e.ID, e.Target, e.DestPath, e.Filename, e.Status, e.TotalSize,
		e.Segments, e.Attempts, e.Error, e.CompletedAt, e.TimeTaken)
	if err != nil {
		return fmt.Errorf("failed to record download %s: %w", e.ID, err)
	}
	return nil
}

// ListDownloads returns the most recent entries first. limit <= 0 means all.
func ListDownloads(limit int) ([]types.DownloadEntry, error) {
	conn, err := handle()
	if err != nil {
		return nil, err
	}

	query := `SELECT id, target, dest_path, filename, status, total_size, segments, attempts, error, completed_at, time_taken
		FROM downloads ORDER BY completed_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	entries := []types.DownloadEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetDownload returns the entry with the given ID, or nil if absent
func GetDownload(id string) (*types.DownloadEntry, error) {
	conn, err := handle()
	if err != nil {
		return nil, err
	}

	row := conn.QueryRow(`SELECT id, target, dest_path, filename, status, total_size, segments, attempts, error, completed_at, time_taken
		FROM downloads WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// RemoveDownload deletes the entry with the given ID. Missing IDs are not an error.
func RemoveDownload(id string) error {
	conn, err := handle()
	if err != nil {
		return err
	}
	if _, err := conn.Exec(`DELETE FROM downloads WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to remove download %s: %w", id, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (types.DownloadEntry, error) {
	var e types.DownloadEntry
	var errText sql.NullString
	err := s.Scan(&e.ID, &e.Target, &e.DestPath, &e.Filename, &e.Status, &e.TotalSize,
		&e.Segments, &e.Attempts, &errText, &e.CompletedAt, &e.TimeTaken)
	if err != nil {
		return e, err
	}
	e.Error = errText.String
	return e, nil
}

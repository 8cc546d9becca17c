package utils

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const logPrefix = "debug-"

var (
	logDir    string
	logMu     sync.Mutex
	debugFile *os.File
	debugOnce sync.Once
	logger    = slog.New(slog.NewTextHandler(io.Discard, nil))
)

// ConfigureDebug sets the directory debug logs are written to.
// Must be called before the first Debug call to take effect.
func ConfigureDebug(dir string) {
	logMu.Lock()
	defer logMu.Unlock()
	logDir = dir
}

func openLogger() {
	logMu.Lock()
	defer logMu.Unlock()
	if logDir == "" {
		return
	}
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return
	}
	name := logPrefix + time.Now().Format("20060102-150405") + ".log"
	f, err := os.Create(filepath.Join(logDir, name))
	if err != nil {
		return
	}
	debugFile = f
	handler := slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger = slog.New(handler).With(
		slog.String("app", "segpull"),
		slog.Int("pid", os.Getpid()),
	)
}

// Logger returns the structured debug logger
func Logger() *slog.Logger {
	debugOnce.Do(openLogger)
	logMu.Lock()
	defer logMu.Unlock()
	return logger
}

// Debug writes a formatted message to the current debug log
func Debug(format string, args ...any) {
	l := Logger()
	l.Debug(fmt.Sprintf(format, args...))
	if debugFile != nil {
		debugFile.Sync() // Flush immediately
	}
}

// CleanupLogs removes all but the newest keep debug logs in dir
func CleanupLogs(dir string, keep int) error {
	if keep <= 0 {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var logs []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), logPrefix) || !strings.HasSuffix(e.Name(), ".log") {
			continue
		}
		logs = append(logs, e.Name())
	}
	if len(logs) <= keep {
		return nil
	}

	// Timestamped names sort chronologically
	sort.Strings(logs)
	for _, name := range logs[:len(logs)-keep] {
		if err := os.Remove(filepath.Join(dir, name)); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

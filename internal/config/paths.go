package config

import (
	"os"
	"path/filepath"
)

// HomeEnv overrides the application directory
const HomeEnv = "SEGPULL_HOME"

// GetAppDir returns the directory holding settings, history and logs.
// Defaults to ~/.segpull.
func GetAppDir() string {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".segpull"
	}
	return filepath.Join(home, ".segpull")
}

// GetStateDir returns the directory holding the history database
func GetStateDir() string {
	return filepath.Join(GetAppDir(), "state")
}

// GetLogsDir returns the directory holding debug logs
func GetLogsDir() string {
	return filepath.Join(GetAppDir(), "logs")
}

// GetHistoryDBPath returns the sqlite history database path
func GetHistoryDBPath() string {
	return filepath.Join(GetStateDir(), "history.db")
}

// EnsureDirs creates all application directories
func EnsureDirs() error {
	for _, dir := range []string{GetAppDir(), GetStateDir(), GetLogsDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}

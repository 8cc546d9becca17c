package cmd

import (
	"os"
	"testing"

	"github.com/segpull/segpull/internal/config"
)

func TestMain(m *testing.M) {
	tmpDir, err := os.MkdirTemp("", "segpull-cmd-test-*")
	if err == nil {
		_ = os.Setenv(config.HomeEnv, tmpDir)
	}

	code := m.Run()

	if err == nil {
		_ = os.RemoveAll(tmpDir)
	}
	os.Exit(code)
}

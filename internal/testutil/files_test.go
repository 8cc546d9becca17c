package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func TestCreateTestFile(t *testing.T) {
	dir := t.TempDir()

	path, err := CreateTestFile(dir, "test.bin", 1024, true)
	if err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}
	if err := VerifyFileSize(path, 1024); err != nil {
		t.Error(err)
	}
	if err := VerifyFileSize(path, 10); err == nil {
		t.Error("Should fail for wrong size")
	}
}

func TestFakeLFTP(t *testing.T) {
	dir := t.TempDir()
	bin := WriteFakeLFTP(t, dir)

	good, err := CreateTestFile(dir, "good.bin", 300, false)
	if err != nil {
		t.Fatal(err)
	}
	logPath := filepath.Join(dir, "calls.log")
	out := filepath.Join(dir, "out", "file.bin")
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		t.Fatal(err)
	}

	cmd := exec.Command(bin, "-c", `open sftp://h; pget -n 3 -c "/r/file.bin" -o "`+out+`"`)
	cmd.Env = append(os.Environ(), FakeLogEnv+"="+logPath, FakeGoodEnv+"="+good)
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("fake lftp failed: %v\n%s", err, output)
	}

	if err := VerifyFileSize(out, 300); err != nil {
		t.Error(err)
	}
	if !FileExists(out + ".lftp-pget-status") {
		t.Error("status file should be written")
	}
	calls, _ := os.ReadFile(logPath)
	if strings.TrimSpace(string(calls)) != "3 c" {
		t.Errorf("log = %q, want \"3 c\"", calls)
	}
}

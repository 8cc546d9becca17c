// Package testutil provides testing utilities for segpull.
package testutil

import (
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
)

// CreateTestFile writes a file of the given size filled with zeros or random bytes
func CreateTestFile(dir, name string, size int64, random bool) (string, error) {
	path := filepath.Join(dir, name)
	data := make([]byte, size)
	if random {
		if _, err := rand.Read(data); err != nil {
			return "", err
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return path, nil
}

// FileExists reports whether path exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// VerifyFileSize checks that path has exactly the expected size
func VerifyFileSize(path string, expected int64) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Size() != expected {
		return fmt.Errorf("expected size %d, got %d", expected, info.Size())
	}
	return nil
}

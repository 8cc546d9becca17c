package types

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrAgentNotFound is returned before any attempt when the transfer agent is not installed
	ErrAgentNotFound = errors.New("transfer agent not found in PATH")

	// ErrOutputLocked means another process owns the output file
	ErrOutputLocked = errors.New("output file is locked by another download")
)

// ProcessError is a nonzero agent exit. Output is the combined stdout/stderr.
type ProcessError struct {
	ExitCode int
	Output   string
}

func (e *ProcessError) Error() string {
	out := strings.TrimSpace(e.Output)
	if out == "" {
		return fmt.Sprintf("transfer agent exited with code %d", e.ExitCode)
	}
	// Last line is usually the agent's own error message
	if i := strings.LastIndexByte(out, '\n'); i >= 0 {
		out = out[i+1:]
	}
	return fmt.Sprintf("transfer agent exited with code %d: %s", e.ExitCode, out)
}

// OutputMissingError means the agent exited cleanly but left no output file
type OutputMissingError struct {
	Path string
}

func (e *OutputMissingError) Error() string {
	return fmt.Sprintf("output file not found after transfer: %s", e.Path)
}

// CorruptionHint is attached to corruption errors
const CorruptionHint = "corruption at a byte offset usually means a segment boundary was misaligned; retrying with fewer segments may help"

// CorruptionError means the transferred archive failed its integrity check
type CorruptionError struct {
	Path       string
	Tool       string
	Diagnostic string
	Segments   int
}

func (e *CorruptionError) Error() string {
	msg := fmt.Sprintf("integrity check failed for %s", e.Path)
	if e.Tool != "" {
		msg += " (" + e.Tool + ")"
	}
	if d := strings.TrimSpace(e.Diagnostic); d != "" {
		msg += ": " + d
	}
	return msg
}

// Hint returns a human readable explanation of the likely cause
func (e *CorruptionError) Hint() string {
	return CorruptionHint
}

// IsCorruption reports whether err wraps a CorruptionError
func IsCorruption(err error) bool {
	var ce *CorruptionError
	return errors.As(err, &ce)
}

// Package attempt runs a single invocation of the transfer agent and
// classifies how it ended.
package attempt

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/segpull/segpull/internal/engine/agent"
	"github.com/segpull/segpull/internal/engine/events"
	"github.com/segpull/segpull/internal/engine/poller"
	"github.com/segpull/segpull/internal/engine/snapshot"
	"github.com/segpull/segpull/internal/engine/types"
	"github.com/segpull/segpull/internal/engine/verify"
	"github.com/segpull/segpull/internal/utils"
)

// maxLineSize bounds one line of agent output
const maxLineSize = 1024 * 1024

// Spec describes one attempt
type Spec struct {
	Target    agent.Target
	LocalPath string
	Segments  int
	Resume    bool

	// OnSegments receives snapshot-based progress from the poller goroutine.
	// When nil, no poller runs.
	OnSegments func(events.SegmentProgressMsg)
	// OnProgress receives coarse progress scraped from agent output on the calling goroutine.
	OnProgress func(events.ProgressMsg)
	// OnLine receives every raw output line.
	OnLine func(string)
}

// Runner starts the agent, streams its output and classifies the result.
type Runner struct {
	Builder    agent.CommandBuilder
	Verifier   verify.Verifier // nil skips integrity checks
	Poll       poller.Config
	Timeout    time.Duration
	NetRetries int
}

// NewRunner builds a Runner from engine settings
func NewRunner(rc *types.RuntimeConfig) *Runner {
	r := &Runner{
		Builder:    agent.LFTP{Binary: rc.GetAgentBinary()},
		Poll:       poller.ConfigFromRuntime(rc),
		Timeout:    rc.GetAgentTimeout(),
		NetRetries: rc.GetAgentNetRetries(),
	}
	if rc.VerifyEnabled() {
		r.Verifier = verify.NewCLIVerifier()
	}
	return r
}

// Run performs one attempt and returns the local path on success.
// Failures are *types.ProcessError, *types.OutputMissingError or
// *types.CorruptionError; a cancelled ctx returns ctx.Err().
func (r *Runner) Run(ctx context.Context, spec Spec) (string, error) {
	local := spec.LocalPath
	if err := os.MkdirAll(filepath.Dir(local), 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	builder := r.Builder
	if builder == nil {
		builder = agent.LFTP{}
	}
	desc := builder.Build(spec.Target, agent.Options{
		LocalPath:  local,
		Segments:   spec.Segments,
		Resume:     spec.Resume,
		Track:      spec.OnSegments != nil,
		Timeout:    r.Timeout,
		NetRetries: r.NetRetries,
	})

	cmd := exec.CommandContext(ctx, desc.Path, desc.Args...)
	cmd.Env = append(os.Environ(), desc.Env...)

	// stdout and stderr share one pipe so lines keep their relative order
	pr, pw, err := os.Pipe()
	if err != nil {
		return "", fmt.Errorf("failed to create output pipe: %w", err)
	}
	defer pr.Close()
	cmd.Stdout = pw
	cmd.Stderr = pw

	stdin, err := cmd.StdinPipe()
	if err != nil {
		pw.Close()
		return "", fmt.Errorf("failed to create stdin pipe: %w", err)
	}

	utils.Debug("attempt: starting %s (segments=%d resume=%v)", spec.Target, spec.Segments, spec.Resume)
	if err := cmd.Start(); err != nil {
		pw.Close()
		if errors.Is(err, exec.ErrNotFound) {
			return "", fmt.Errorf("%w: %s", types.ErrAgentNotFound, desc.Path)
		}
		return "", fmt.Errorf("failed to start transfer agent: %w", err)
	}
	// The agent never reads input
	stdin.Close()
	// Only the child holds the write end now, so EOF means it exited
	pw.Close()

	// Unblock the reader if the caller gives up while a grandchild still holds the pipe
	stopClose := context.AfterFunc(ctx, func() { pr.Close() })
	defer stopClose()

	var p *poller.Poller
	if spec.OnSegments != nil {
		p = poller.New(snapshot.StatusPath(local), r.Poll, spec.OnSegments)
		p.Start(ctx)
	}

	output := readLines(pr, spec)

	waitErr := cmd.Wait()
	if p != nil {
		p.Stop()
	}

	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			utils.Debug("attempt: agent exited with code %d", exitErr.ExitCode())
			return "", &types.ProcessError{ExitCode: exitErr.ExitCode(), Output: output}
		}
		return "", fmt.Errorf("waiting for transfer agent: %w", waitErr)
	}

	if _, err := os.Stat(local); err != nil {
		return "", &types.OutputMissingError{Path: local}
	}

	if r.Verifier != nil && verify.IsArchive(local) {
		res, err := r.Verifier.Verify(ctx, local)
		if err != nil {
			return "", fmt.Errorf("verifying %s: %w", local, err)
		}
		if !res.OK {
			utils.Debug("attempt: %s failed integrity check (%s): %s", local, res.Tool, res.Diagnostic)
			return "", &types.CorruptionError{
				Path:       local,
				Tool:       res.Tool,
				Diagnostic: res.Diagnostic,
				Segments:   spec.Segments,
			}
		}
	}

	return local, nil
}

// readLines consumes agent output until EOF, forwarding each line and
// returning everything read verbatim.
func readLines(r io.Reader, spec Spec) string {
	var buf strings.Builder

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	scanner.Split(scanLinesOrCR)

	for scanner.Scan() {
		line := scanner.Text()
		buf.WriteString(line)
		buf.WriteByte('\n')

		if spec.OnLine != nil {
			spec.OnLine(line)
		}
		if spec.OnProgress != nil {
			if msg, ok := agent.ParseOutputLine(line); ok {
				spec.OnProgress(msg)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		utils.Debug("attempt: output reader stopped: %v", err)
		// Keep draining so the agent never blocks on a full pipe
		io.Copy(io.Discard, r)
	}

	return buf.String()
}

// scanLinesOrCR splits on \n, \r\n or a bare \r; lftp redraws its status line with \r.
func scanLinesOrCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		advance = i + 1
		if data[i] == '\r' {
			if i+1 < len(data) {
				if data[i+1] == '\n' {
					advance++
				}
			} else if !atEOF {
				// Need one more byte to tell \r from \r\n
				return 0, nil, nil
			}
		}
		return advance, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

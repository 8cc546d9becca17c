package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"testing"

	"github.com/segpull/segpull/internal/engine/agent"
	"github.com/segpull/segpull/internal/engine/types"
)

// RequireShell skips the test when /bin/sh scripts cannot run
func RequireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported on windows")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

// ScriptAgent is a CommandBuilder that runs a shell script in place of lftp.
// The script sees OUT, STATUS, SEGMENTS and RESUME in its environment.
type ScriptAgent struct {
	Script string
}

// Build implements agent.CommandBuilder
func (s ScriptAgent) Build(_ agent.Target, opts agent.Options) agent.Command {
	resume := "0"
	if opts.Resume {
		resume = "1"
	}
	return agent.Command{
		Path: "/bin/sh",
		Args: []string{"-c", s.Script},
		Env: []string{
			"OUT=" + opts.LocalPath,
			"STATUS=" + opts.LocalPath + types.StatusSuffix,
			"SEGMENTS=" + strconv.Itoa(opts.Segments),
			"RESUME=" + resume,
		},
	}
}

// Environment read by the fake lftp written by WriteFakeLFTP
const (
	FakeLogEnv    = "FAKE_LFTP_LOG"     // File each invocation appends "<segments> <c|->" to
	FakeGoodEnv   = "FAKE_LFTP_GOOD"    // File copied to the output
	FakeBadEnv    = "FAKE_LFTP_BAD"     // File copied when segments exceed FAKE_LFTP_GOOD_AT
	FakeGoodAtEnv = "FAKE_LFTP_GOOD_AT" // Highest segment count producing the good file
	FakeExitEnv   = "FAKE_LFTP_EXIT"    // Exit code; no output is written when nonzero
	FakeSleepEnv  = "FAKE_LFTP_SLEEP"   // Seconds to sleep before transferring
)

const fakeLFTP = `#!/bin/sh
if [ "$1" = "--version" ]; then
	echo "LFTP | Version 4.9.2 | Copyright (c) fake"
	exit 0
fi
script="$2"
out=$(printf '%s' "$script" | sed -n 's/.* -o "\(.*\)"$/\1/p')
n=$(printf '%s' "$script" | sed -n 's/.*pget -n \([0-9]*\).*/\1/p')
cont="-"
case "$script" in *"pget -n $n -c "*) cont="c";; esac
if [ -n "$FAKE_LFTP_LOG" ]; then
	echo "$n $cont" >> "$FAKE_LFTP_LOG"
fi
echo "Connecting to fake host"
if [ -n "$FAKE_LFTP_SLEEP" ]; then
	sleep "$FAKE_LFTP_SLEEP"
fi
if [ -n "$FAKE_LFTP_EXIT" ] && [ "$FAKE_LFTP_EXIT" != "0" ]; then
	echo "pget: Fatal error: max-retries exceeded" >&2
	exit "$FAKE_LFTP_EXIT"
fi
src="$FAKE_LFTP_GOOD"
if [ -n "$FAKE_LFTP_GOOD_AT" ] && [ "$n" -gt "$FAKE_LFTP_GOOD_AT" ]; then
	src="$FAKE_LFTP_BAD"
fi
size=$(wc -c < "$src" | tr -d ' ')
printf 'size=%s\n0.pos=%s\n0.limit=%s\n' "$size" "$size" "$size" > "$out.lftp-pget-status"
cp "$src" "$out"
echo "$size bytes transferred in 1 second"
exit 0
`

// WriteFakeLFTP writes an executable lftp stand-in into dir and returns its path.
// Its behaviour is controlled through the Fake*Env variables.
func WriteFakeLFTP(t *testing.T, dir string) string {
	t.Helper()
	RequireShell(t)
	path := filepath.Join(dir, "lftp")
	if err := os.WriteFile(path, []byte(fakeLFTP), 0755); err != nil {
		t.Fatalf("failed to write fake lftp: %v", err)
	}
	return path
}

package agent

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/segpull/segpull/internal/engine/types"
)

// ProbeTimeout bounds the --version query
const ProbeTimeout = 5 * time.Second

var versionRe = regexp.MustCompile(`(?i)version\s+(\d+(?:\.\d+)+)`)

// Info describes an installed agent
type Info struct {
	Path    string
	Version string
}

// Probe checks that binary is on PATH and asks it for its version.
// A missing binary yields an error wrapping types.ErrAgentNotFound.
func Probe(ctx context.Context, binary string) (Info, error) {
	if binary == "" {
		binary = types.DefaultAgentBinary
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		return Info{}, fmt.Errorf("%w: %s", types.ErrAgentNotFound, binary)
	}

	ctx, cancel := context.WithTimeout(ctx, ProbeTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, path, "--version").CombinedOutput()
	if err != nil {
		return Info{Path: path}, fmt.Errorf("%s --version: %w", binary, err)
	}
	return Info{Path: path, Version: ParseVersion(string(out))}, nil
}

// ParseVersion extracts "4.9.2" from "LFTP | Version 4.9.2 | Copyright ...".
// Falls back to the first non-empty line.
func ParseVersion(out string) string {
	if m := versionRe.FindStringSubmatch(out); m != nil {
		return m[1]
	}
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

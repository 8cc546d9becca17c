package agent

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/segpull/segpull/internal/engine/events"
)

// Each pattern is matched on its own; lines rarely carry every field.
var (
	atBytesRe     = regexp.MustCompile(`\bat (\d+)\b`)
	transferredRe = regexp.MustCompile(`\b(\d+) bytes transferred\b`)
	percentRe     = regexp.MustCompile(`\((\d{1,3})%\)`)
	speedRe       = regexp.MustCompile(`(\d+(?:\.\d+)?\s*[KMGT]?i?B?/s)`)
	etaRe         = regexp.MustCompile(`\beta:\s*([0-9hms]+)`)
)

// ParseOutputLine extracts whatever progress fields a line of agent output
// carries. ok is false when nothing was recognized.
func ParseOutputLine(line string) (events.ProgressMsg, bool) {
	var msg events.ProgressMsg
	line = strings.TrimSpace(line)
	if line == "" {
		return msg, false
	}
	found := false

	if m := atBytesRe.FindStringSubmatch(line); m != nil {
		if n, err := strconv.ParseInt(m[1], 10, 64); err == nil {
			msg.Downloaded, msg.HasBytes = n, true
			found = true
		}
	} else if m := transferredRe.FindStringSubmatch(line); m != nil {
		if n, err := strconv.ParseInt(m[1], 10, 64); err == nil {
			msg.Downloaded, msg.HasBytes = n, true
			found = true
		}
	}

	if m := percentRe.FindStringSubmatch(line); m != nil {
		if p, err := strconv.Atoi(m[1]); err == nil && p <= 100 {
			msg.Percent, msg.HasPercent = float64(p), true
			found = true
		}
	}

	if m := speedRe.FindStringSubmatch(line); m != nil {
		msg.Speed = strings.ReplaceAll(m[1], " ", "")
		found = true
	}

	if m := etaRe.FindStringSubmatch(line); m != nil {
		msg.ETA = m[1]
		found = true
	}

	return msg, found
}

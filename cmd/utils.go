package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/muesli/termenv"

	"github.com/segpull/segpull/internal/engine/events"
	"github.com/segpull/segpull/internal/engine/types"
	"github.com/segpull/segpull/internal/tui"
	"github.com/segpull/segpull/internal/tui/colors"
	"github.com/segpull/segpull/internal/utils"
)

// readTargetsFromFile reads targets from a file, one per line.
// Blank lines and lines starting with # are skipped.
func readTargetsFromFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open batch file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var targets []string
	scanner := bufio.NewScanner(file)

	// Long URLs with embedded credentials exceed the default 64KB token
	const maxCapacity = 1024 * 1024
	scanner.Buffer(make([]byte, 0, 64*1024), maxCapacity)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			targets = append(targets, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}
	return targets, nil
}

// shortID trims a download ID for display
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// headlessPrinter writes one line per lifecycle event and one per
// tenth of progress
type headlessPrinter struct {
	out      *termenv.Output
	lastTick map[string]int
	names    map[string]string

	completed int
	failed    int
}

func newHeadlessPrinter(w io.Writer) *headlessPrinter {
	return &headlessPrinter{
		out:      termenv.NewOutput(w),
		lastTick: make(map[string]int),
		names:    make(map[string]string),
	}
}

func (h *headlessPrinter) styled(s, hex string) string {
	return h.out.String(s).Foreground(h.out.Color(hex)).String()
}

func (h *headlessPrinter) line(label, hex, id, text string) {
	_, _ = fmt.Fprintf(h.out, "%s %s [%s]\n", h.styled(label, hex), text, shortID(id))
}

func (h *headlessPrinter) name(id, filename string) string {
	if filename != "" {
		h.names[id] = filename
		return filename
	}
	if n, ok := h.names[id]; ok {
		return n
	}
	return shortID(id)
}

// Handle prints msg if it is worth a line
func (h *headlessPrinter) Handle(msg any) {
	switch m := msg.(type) {
	case events.DownloadQueuedMsg:
		h.line("Queued:", string(colors.Gray), m.DownloadID, h.name(m.DownloadID, m.Filename))

	case events.DownloadStartedMsg:
		text := fmt.Sprintf("%s -> %s (%d segments)", h.name(m.DownloadID, m.Filename), m.DestPath, m.Segments)
		if m.Resume {
			text += ", resuming"
		}
		h.line("Started:", string(colors.NeonCyan), m.DownloadID, text)

	case events.SegmentProgressMsg:
		if !m.HasSize || m.TotalSize <= 0 {
			return
		}
		tick := int(m.OverallPercent / 10)
		if tick <= h.lastTick[m.DownloadID] || tick >= 10 {
			return
		}
		h.lastTick[m.DownloadID] = tick
		h.line("Progress:", string(colors.LightGray), m.DownloadID, fmt.Sprintf("%s %s of %s at %s, eta %s",
			h.name(m.DownloadID, ""),
			utils.FormatPercent(m.OverallPercent),
			utils.FormatBytes(m.TotalSize),
			utils.FormatSpeed(m.Speed, m.HasSpeed),
			valueOr(m.ETA, "--")))

	case events.RetryMsg:
		h.lastTick[m.DownloadID] = 0
		h.line("Retry:", string(colors.Orange), m.DownloadID, fmt.Sprintf("%s attempt %d corrupted (%s), retrying with %d segments",
			h.name(m.DownloadID, m.Filename), m.Attempt, firstLine(m.Diagnostic), m.ToSegments))

	case events.DownloadCompleteMsg:
		h.completed++
		h.line("Completed:", string(colors.Green), m.DownloadID, fmt.Sprintf("%s %s in %s after %d attempt(s)",
			m.DestPath, utils.FormatBytes(m.Total), utils.FormatDuration(m.Elapsed), m.Attempts))

	case events.DownloadErrorMsg:
		h.failed++
		h.line("Error:", string(colors.Red), m.DownloadID, fmt.Sprintf("%s: %v", h.name(m.DownloadID, m.Filename), m.Err))
		var ce *types.CorruptionError
		if errors.As(m.Err, &ce) {
			_, _ = fmt.Fprintln(h.out, "  "+h.styled(ce.Hint(), string(colors.Yellow)))
		}
	}
}

// Summary prints the final tally
func (h *headlessPrinter) Summary() {
	_, _ = fmt.Fprintf(h.out, "Finished: %d completed, %d failed\n", h.completed, h.failed)
}

// printFinalReport lists each download's outcome after the TUI exits
func printFinalReport(w io.Writer, downloads []*tui.DownloadModel) {
	for _, d := range downloads {
		switch {
		case d.Failed():
			_, _ = fmt.Fprintf(w, "✖ %s: %v\n", d.Filename, d.Err())
		case d.Done():
			_, _ = fmt.Fprintf(w, "✔ %s\n", d.DestPath)
		default:
			_, _ = fmt.Fprintf(w, "- %s: not finished\n", d.Filename)
		}
	}
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

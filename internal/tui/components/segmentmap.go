package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/segpull/segpull/internal/engine/types"
	"github.com/segpull/segpull/internal/tui/colors"
)

// SegmentState is the display state of one segment
type SegmentState int

const (
	SegmentPending SegmentState = iota
	SegmentActive
	SegmentDone
)

// fill levels for a cell, empty to full
var levels = []string{"·", "▁", "▂", "▃", "▄", "▅", "▆", "▇", "█"}

// SegmentMapModel visualizes the agent's segments, one cell each
type SegmentMapModel struct {
	Segments []types.Segment
	Width    int  // UI render width (columns * 2)
	Failed   bool // Last attempt failed its integrity check
}

// NewSegmentMapModel creates a new segment map visualization
func NewSegmentMapModel(segments []types.Segment, width int, failed bool) SegmentMapModel {
	return SegmentMapModel{
		Segments: segments,
		Width:    width,
		Failed:   failed,
	}
}

// StateOf classifies a segment by how much of its range is written
func StateOf(s types.Segment) SegmentState {
	switch {
	case s.Size() > 0 && s.Downloaded() >= s.Size():
		return SegmentDone
	case s.Downloaded() > 0:
		return SegmentActive
	default:
		return SegmentPending
	}
}

// Level returns the fill glyph index for a segment, 0 (empty) to 8 (full)
func Level(s types.Segment) int {
	if StateOf(s) == SegmentDone {
		return len(levels) - 1
	}
	lvl := int(s.Percent() / 100 * float64(len(levels)-1))
	if lvl < 0 {
		lvl = 0
	}
	if lvl == 0 && s.Downloaded() > 0 {
		lvl = 1
	}
	if lvl > len(levels)-2 {
		lvl = len(levels) - 2
	}
	return lvl
}

func (m SegmentMapModel) cols() int {
	cols := m.Width / 2
	if cols < 1 {
		cols = 1
	}
	return cols
}

// View renders the segment grid
func (m SegmentMapModel) View() string {
	if len(m.Segments) == 0 {
		return ""
	}

	pendingStyle := lipgloss.NewStyle().Foreground(colors.DarkGray)
	activeStyle := lipgloss.NewStyle().Foreground(colors.NeonPink)
	doneStyle := lipgloss.NewStyle().Foreground(colors.StateDownloading)
	failedStyle := lipgloss.NewStyle().Foreground(colors.StateError)

	cols := m.cols()
	var s strings.Builder
	for i, seg := range m.Segments {
		if i > 0 && i%cols == 0 {
			s.WriteRune('\n')
		} else if i > 0 {
			s.WriteRune(' ')
		}

		glyph := levels[Level(seg)]
		switch {
		case m.Failed:
			s.WriteString(failedStyle.Render(glyph))
		case StateOf(seg) == SegmentDone:
			s.WriteString(doneStyle.Render(glyph))
		case StateOf(seg) == SegmentActive:
			s.WriteString(activeStyle.Render(glyph))
		default:
			s.WriteString(pendingStyle.Render(glyph))
		}
	}
	return s.String()
}

// Bar renders the whole file as one line of width columns, each column
// filled when the byte it stands for has been written.
func (m SegmentMapModel) Bar(width int) string {
	if len(m.Segments) == 0 || width < 1 {
		return ""
	}
	first := m.Segments[0].Start
	total := m.Segments[len(m.Segments)-1].Limit - first
	if total <= 0 {
		return ""
	}

	filledStyle := lipgloss.NewStyle().Foreground(colors.NeonPink)
	if m.Failed {
		filledStyle = filledStyle.Foreground(colors.StateError)
	}
	emptyStyle := lipgloss.NewStyle().Foreground(colors.DarkGray)

	bytesPerCol := float64(total) / float64(width)
	var s strings.Builder
	seg := 0
	for c := 0; c < width; c++ {
		offset := first + int64((float64(c)+0.5)*bytesPerCol)
		for seg < len(m.Segments)-1 && offset >= m.Segments[seg].Limit {
			seg++
		}
		if offset < m.Segments[seg].Pos {
			s.WriteString(filledStyle.Render("━"))
		} else {
			s.WriteString(emptyStyle.Render("─"))
		}
	}
	return s.String()
}

// CalculateHeight returns the number of lines View needs for count segments
func CalculateHeight(count int, width int) int {
	if count == 0 {
		return 0
	}
	cols := SegmentMapModel{Width: width}.cols()
	return (count + cols - 1) / cols
}

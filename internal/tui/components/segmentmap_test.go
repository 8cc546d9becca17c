package components

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"

	"github.com/segpull/segpull/internal/engine/types"
)

func segs() []types.Segment {
	return []types.Segment{
		{Index: 0, Start: 0, Pos: 1000, Limit: 1000},   // done
		{Index: 1, Start: 1000, Pos: 1500, Limit: 2000}, // half
		{Index: 2, Start: 2000, Pos: 2000, Limit: 3000}, // pending
		{Index: 3, Start: 3000, Pos: 3001, Limit: 4000}, // barely started
	}
}

func TestStateOf(t *testing.T) {
	s := segs()
	want := []SegmentState{SegmentDone, SegmentActive, SegmentPending, SegmentActive}
	for i, seg := range s {
		if got := StateOf(seg); got != want[i] {
			t.Errorf("segment %d: StateOf = %v, want %v", i, got, want[i])
		}
	}
}

func TestLevel(t *testing.T) {
	s := segs()
	tests := []struct {
		seg  types.Segment
		want int
	}{
		{s[0], 8},
		{s[1], 4},
		{s[2], 0},
		// any progress shows at least one step
		{s[3], 1},
		// not full until done
		{types.Segment{Start: 0, Pos: 999, Limit: 1000}, 7},
	}
	for _, tt := range tests {
		if got := Level(tt.seg); got != tt.want {
			t.Errorf("Level(%+v) = %d, want %d", tt.seg, got, tt.want)
		}
	}
}

func TestView_OneCellPerSegment(t *testing.T) {
	m := NewSegmentMapModel(segs(), 80, false)
	out := m.View()
	if strings.Contains(out, "\n") {
		t.Errorf("4 segments should fit on one row at width 80:\n%s", out)
	}
	for _, glyph := range []string{"█", "▄", "·", "▁"} {
		if !strings.Contains(out, glyph) {
			t.Errorf("View missing glyph %q: %q", glyph, out)
		}
	}
}

func TestView_Wraps(t *testing.T) {
	m := NewSegmentMapModel(segs(), 4, false) // 2 columns
	lines := strings.Split(m.View(), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(lines))
	}
	if CalculateHeight(len(segs()), 4) != 2 {
		t.Errorf("CalculateHeight = %d, want 2", CalculateHeight(len(segs()), 4))
	}
}

func TestView_Empty(t *testing.T) {
	if NewSegmentMapModel(nil, 80, false).View() != "" {
		t.Error("no segments should render nothing")
	}
	if CalculateHeight(0, 80) != 0 {
		t.Error("no segments should need no height")
	}
}

func TestBar_Width(t *testing.T) {
	m := NewSegmentMapModel(segs(), 80, false)
	bar := m.Bar(40)
	if w := lipgloss.Width(bar); w != 40 {
		t.Errorf("bar width = %d, want 40", w)
	}
	filled := strings.Count(bar, "━")
	// 1000 + 500 + 0 + 1 of 4000 bytes
	if filled < 14 || filled > 16 {
		t.Errorf("filled columns = %d, want about 15", filled)
	}
}

func TestBar_Degenerate(t *testing.T) {
	if NewSegmentMapModel(nil, 0, false).Bar(10) != "" {
		t.Error("no segments should render no bar")
	}
	zero := []types.Segment{{Start: 0, Pos: 0, Limit: 0}}
	if NewSegmentMapModel(zero, 0, false).Bar(10) != "" {
		t.Error("zero-length file should render no bar")
	}
	if NewSegmentMapModel(segs(), 0, false).Bar(0) != "" {
		t.Error("zero width should render no bar")
	}
}

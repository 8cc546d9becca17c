package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segpull/segpull/internal/engine/types"
)

func TestParse_FourSegments(t *testing.T) {
	raw := "size=1000\n" +
		"0.pos=100\n0.limit=250\n" +
		"1.pos=300\n1.limit=500\n" +
		"2.pos=500\n2.limit=750\n" +
		"3.pos=800\n3.limit=1000\n"

	snap := Parse(raw)

	require.True(t, snap.HasSize)
	assert.Equal(t, int64(1000), snap.TotalSize)
	require.Len(t, snap.Segments, 4)

	want := []types.Segment{
		{Index: 0, Start: 0, Pos: 100, Limit: 250},
		{Index: 1, Start: 250, Pos: 300, Limit: 500},
		{Index: 2, Start: 500, Pos: 500, Limit: 750},
		{Index: 3, Start: 750, Pos: 800, Limit: 1000},
	}
	assert.Equal(t, want, snap.Segments)

	assert.Equal(t, int64(100+50+0+50), snap.TotalDownloaded())
	assert.InDelta(t, 20.0, snap.OverallPercent(), 1e-9)
	assert.InDelta(t, 40.0, snap.Segments[0].Percent(), 1e-9)
	assert.InDelta(t, 0.0, snap.Segments[2].Percent(), 1e-9)
}

func TestParse_StartChainsFromPreviousLimit(t *testing.T) {
	snap := Parse("size=900\n0.pos=10\n0.limit=300\n1.pos=310\n1.limit=600\n2.pos=610\n2.limit=900")

	require.Len(t, snap.Segments, 3)
	assert.Equal(t, int64(0), snap.Segments[0].Start)
	for k := 1; k < len(snap.Segments); k++ {
		assert.Equal(t, snap.Segments[k-1].Limit, snap.Segments[k].Start, "segment %d", k)
	}
}

func TestParse_DropsIncompleteSegment(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"pos only", "size=600\n0.pos=50\n0.limit=200\n1.pos=250\n2.pos=450\n2.limit=600"},
		{"limit only", "size=600\n0.pos=50\n0.limit=200\n1.limit=400\n2.pos=450\n2.limit=600"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := Parse(tt.raw)
			require.Len(t, snap.Segments, 2)
			assert.Equal(t, 0, snap.Segments[0].Index)
			assert.Equal(t, 2, snap.Segments[1].Index)
			// Start comes from the last kept segment, not from the dropped one
			assert.Equal(t, int64(200), snap.Segments[1].Start)
			assert.Equal(t, int64(250), snap.Segments[1].Downloaded())
		})
	}
}

func TestParse_NonContiguousIndices(t *testing.T) {
	snap := Parse("0.pos=10\n0.limit=100\n5.pos=150\n5.limit=300")

	require.Len(t, snap.Segments, 2)
	assert.Equal(t, 5, snap.Segments[1].Index)
	assert.Equal(t, int64(100), snap.Segments[1].Start)
}

func TestParse_OrderIndependent(t *testing.T) {
	ordered := Parse("size=400\n0.pos=50\n0.limit=200\n1.pos=250\n1.limit=400")
	shuffled := Parse("1.limit=400\n0.limit=200\nsize=400\n1.pos=250\n0.pos=50")

	assert.Equal(t, ordered, shuffled)
}

func TestParse_UnknownSizeSentinel(t *testing.T) {
	snap := Parse("size=-2\n0.pos=10\n0.limit=100")

	require.True(t, snap.HasSize)
	assert.Equal(t, types.UnknownSize, snap.TotalSize)
	assert.Equal(t, int64(10), snap.TotalDownloaded())
	assert.Equal(t, 0.0, snap.OverallPercent())
}

func TestParse_ZeroSize(t *testing.T) {
	snap := Parse("size=0")
	assert.True(t, snap.HasSize)
	assert.Equal(t, 0.0, snap.OverallPercent())
}

func TestParse_Empty(t *testing.T) {
	snap := Parse("")

	assert.False(t, snap.HasSize)
	assert.Empty(t, snap.Segments)
	assert.Equal(t, int64(0), snap.TotalDownloaded())
	assert.Equal(t, 0.0, snap.OverallPercent())
}

func TestParse_IgnoresGarbage(t *testing.T) {
	raw := "size=abc\n" +
		"garbage\n" +
		"=5\n" +
		"x.pos=5\n" +
		"-1.pos=5\n" +
		"+1.pos=5\n" +
		"0.speed=5\n" +
		"0.pos=-5\n" +
		"0.pos=40\n" +
		"0.limit=80\n" +
		"1.pos=9"

	snap := Parse(raw)

	assert.False(t, snap.HasSize)
	require.Len(t, snap.Segments, 1)
	assert.Equal(t, types.Segment{Index: 0, Start: 0, Pos: 40, Limit: 80}, snap.Segments[0])
}

func TestParse_ToleratesWhitespaceAndCRLF(t *testing.T) {
	snap := Parse("size = 200\r\n 0.pos=20 \r\n0.limit= 200\r\n")

	require.True(t, snap.HasSize)
	assert.Equal(t, int64(200), snap.TotalSize)
	require.Len(t, snap.Segments, 1)
	assert.Equal(t, int64(200), snap.Segments[0].Limit)
}

func TestParse_TruncatedMidWrite(t *testing.T) {
	// The agent was rewriting the file; the last line is cut short
	snap := Parse("size=1000\n0.pos=100\n0.limit=500\n1.pos=600\n1.lim")

	require.Len(t, snap.Segments, 1)
	assert.Equal(t, int64(100), snap.TotalDownloaded())
}

func TestParse_SumOfSegmentsMatchesTotal(t *testing.T) {
	inputs := []string{
		"size=100\n0.pos=10\n0.limit=50\n1.pos=70\n1.limit=100",
		"size=-2\n0.pos=0\n0.limit=0",
		"0.pos=5\n0.limit=10\n3.pos=12\n3.limit=20\n7.pos=30\n7.limit=30",
	}
	for _, raw := range inputs {
		snap := Parse(raw)
		var sum int64
		for _, seg := range snap.Segments {
			sum += seg.Downloaded()
		}
		assert.Equal(t, sum, snap.TotalDownloaded(), raw)
	}
}

func TestSegment_ZeroSizePercent(t *testing.T) {
	seg := types.Segment{Start: 100, Pos: 100, Limit: 100}
	assert.Equal(t, int64(0), seg.Size())
	assert.Equal(t, 0.0, seg.Percent())
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	local := filepath.Join(dir, "movie.mkv")

	t.Run("missing file is not an error", func(t *testing.T) {
		snap, ok, err := ParseFile(StatusPath(local))
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, snap.Segments)
	})

	t.Run("existing file", func(t *testing.T) {
		require.NoError(t, os.WriteFile(StatusPath(local), []byte("size=10\n0.pos=4\n0.limit=10\n"), 0644))
		snap, ok, err := ParseFile(StatusPath(local))
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, int64(4), snap.TotalDownloaded())
	})

	t.Run("read error is returned", func(t *testing.T) {
		// A directory cannot be read as a file
		_, ok, err := ParseFile(dir)
		assert.Error(t, err)
		assert.False(t, ok)
	})
}

func TestStatusPath(t *testing.T) {
	assert.Equal(t, "/tmp/a.rar.lftp-pget-status", StatusPath("/tmp/a.rar"))
}

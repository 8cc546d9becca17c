package types

import "time"

// Segment is one parallel byte range of a segmented transfer.
// Start is derived from the preceding segment; Pos and Limit are absolute offsets.
type Segment struct {
	Index int   `json:"index"`
	Start int64 `json:"start"`
	Pos   int64 `json:"pos"`
	Limit int64 `json:"limit"`
}

// Downloaded returns the bytes written so far for this segment
func (s Segment) Downloaded() int64 {
	return s.Pos - s.Start
}

// Size returns the length of the segment's byte range
func (s Segment) Size() int64 {
	return s.Limit - s.Start
}

// Percent returns completion in 0-100, or 0 for an empty range
func (s Segment) Percent() float64 {
	size := s.Size()
	if size == 0 {
		return 0
	}
	return 100 * float64(s.Downloaded()) / float64(size)
}

// UnknownSize is the agent's sentinel for "size unknown / error state"
const UnknownSize int64 = -2

// SegmentSnapshot is one point-in-time parse of the agent's status file
type SegmentSnapshot struct {
	TotalSize int64     `json:"total_size"`
	HasSize   bool      `json:"has_size"` // False when no size line was seen
	Segments  []Segment `json:"segments"`
}

// TotalDownloaded sums the downloaded bytes of all segments
func (s SegmentSnapshot) TotalDownloaded() int64 {
	var total int64
	for _, seg := range s.Segments {
		total += seg.Downloaded()
	}
	return total
}

// OverallPercent returns completion in 0-100, or 0 when the size is unknown
func (s SegmentSnapshot) OverallPercent() float64 {
	if !s.HasSize || s.TotalSize <= 0 {
		return 0
	}
	return 100 * float64(s.TotalDownloaded()) / float64(s.TotalSize)
}

// Sample is one (bytes, time) observation fed to the rate estimator
type Sample struct {
	Bytes int64
	At    time.Time
}

// Download statuses recorded in history
const (
	StatusCompleted = "completed"
	StatusError     = "error"
	StatusCorrupt   = "corrupt"
	StatusCancelled = "cancelled"
)

// DownloadEntry represents a finished download in the history store
type DownloadEntry struct {
	ID          string `json:"id"`
	Target      string `json:"target"`
	DestPath    string `json:"dest_path"`
	Filename    string `json:"filename"`
	Status      string `json:"status"`
	TotalSize   int64  `json:"total_size"`
	Segments    int    `json:"segments"`     // Segment count of the final attempt
	Attempts    int    `json:"attempts"`     // Total agent invocations
	Error       string `json:"error"`        // Empty on success
	CompletedAt int64  `json:"completed_at"` // Unix timestamp
	TimeTaken   int64  `json:"time_taken"`   // Duration in milliseconds
}

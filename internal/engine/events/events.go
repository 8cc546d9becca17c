package events

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/segpull/segpull/internal/engine/types"
)

// ProgressMsg is a coarse progress update scraped from the agent's output.
// Each field is optional; the Has* flags say which ones the line carried.
type ProgressMsg struct {
	DownloadID string
	Downloaded int64
	Total      int64
	Percent    float64
	Speed      string // Agent's own rate text, e.g. "1.2M/s"
	ETA        string // Agent's own eta text, e.g. "3m12s"

	HasBytes   bool
	HasPercent bool
}

// SegmentProgressMsg is emitted by the segment poller on every successful sample
type SegmentProgressMsg struct {
	DownloadID      string
	TotalSize       int64
	HasSize         bool
	Segments        []types.Segment
	TotalDownloaded int64
	OverallPercent  float64

	Speed        float64 // bytes per second over the sample window
	HasSpeed     bool
	ETA          string // formatted, empty when unavailable
	Elapsed      time.Duration
	AverageSpeed float64 // bytes per second since the first sample
	HasAverage   bool
}

// RetryMsg is a side-channel notice that a corrupted attempt is being retried
type RetryMsg struct {
	DownloadID   string
	Filename     string
	Attempt      int // 1-based number of the attempt that failed
	FromSegments int
	ToSegments   int
	Diagnostic   string
}

// Degraded reports whether the retry uses fewer segments than the failed attempt
func (m RetryMsg) Degraded() bool {
	return m.ToSegments < m.FromSegments
}

// DownloadCompleteMsg signals that the download finished successfully
type DownloadCompleteMsg struct {
	DownloadID string
	Filename   string
	DestPath   string
	Elapsed    time.Duration
	Total      int64
	Attempts   int
}

// DownloadErrorMsg signals that an error occurred
type DownloadErrorMsg struct {
	DownloadID string
	Filename   string
	Err        error
}

func (m DownloadErrorMsg) MarshalJSON() ([]byte, error) {
	type encoded struct {
		DownloadID string `json:"DownloadID"`
		Filename   string `json:"Filename,omitempty"`
		Err        string `json:"Err,omitempty"`
	}

	out := encoded{
		DownloadID: m.DownloadID,
		Filename:   m.Filename,
	}
	if m.Err != nil {
		out.Err = m.Err.Error()
	}

	return json.Marshal(out)
}

func (m *DownloadErrorMsg) UnmarshalJSON(data []byte) error {
	var aux struct {
		DownloadID string          `json:"DownloadID"`
		Filename   string          `json:"Filename"`
		Err        json.RawMessage `json:"Err"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	m.DownloadID = aux.DownloadID
	m.Filename = aux.Filename
	m.Err = nil

	if len(aux.Err) == 0 {
		return nil
	}

	var errStr string
	if err := json.Unmarshal(aux.Err, &errStr); err == nil {
		if errStr != "" {
			m.Err = errors.New(errStr)
		}
		return nil
	}

	raw := string(aux.Err)
	if raw != "" && raw != "null" {
		m.Err = errors.New(raw)
	}
	return nil
}

// DownloadStartedMsg is sent when the first agent attempt is about to launch
type DownloadStartedMsg struct {
	DownloadID string
	Target     string
	Filename   string
	DestPath   string
	Segments   int
	Resume     bool
}

// DownloadQueuedMsg is sent when a batch entry is waiting for a worker slot
type DownloadQueuedMsg struct {
	DownloadID string
	Target     string
	Filename   string
}

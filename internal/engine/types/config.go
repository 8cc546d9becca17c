package types

import (
	"time"
)

// Size constants
const (
	KB = 1024
	MB = 1024 * KB
	GB = 1024 * MB

	// Megabyte as float for display calculations
	Megabyte = 1024.0 * 1024.0

	// StatusSuffix is appended to the local path by the agent for its segment status file
	StatusSuffix = ".lftp-pget-status"
)

// Agent defaults
const (
	DefaultAgentBinary     = "lftp"
	DefaultAgentTimeout    = 30 * time.Second
	DefaultAgentNetRetries = 3
	DefaultSFTPPort        = 22
)

// Segment and retry defaults
const (
	DefaultSegments        = 4
	MaxSegments            = 32
	DefaultParallelRetries = 2
)

// Progress sampling defaults
const (
	DefaultPollInterval = 1 * time.Second
	DefaultStopGrace    = 2 * time.Second
	DefaultSpeedWindow  = 10
)

// Channel buffer sizes
const (
	ProgressChannelBuffer = 100
)

// DownloadConfig contains all parameters needed to start a download
type DownloadConfig struct {
	Target     string // sftp://user@host:port/path
	OutputPath string // Directory the file lands in
	DestPath   string // Full destination path (computed when empty)
	ID         string
	Filename   string
	Password   string
	IsResume   bool // Continue an existing partial file instead of starting over
	ProgressCh chan<- any
	Runtime    *RuntimeConfig
}

// RuntimeConfig holds dynamic settings that can override defaults
type RuntimeConfig struct {
	AgentBinary     string
	AgentTimeout    time.Duration
	AgentNetRetries int

	Segments        int
	ParallelRetries int
	DisableRetry    bool
	DisableVerify   bool

	PollInterval time.Duration
	StopGrace    time.Duration
	SpeedWindow  int
}

// GetAgentBinary returns the configured agent binary or the default
func (r *RuntimeConfig) GetAgentBinary() string {
	if r == nil || r.AgentBinary == "" {
		return DefaultAgentBinary
	}
	return r.AgentBinary
}

// GetAgentTimeout returns configured value or default
func (r *RuntimeConfig) GetAgentTimeout() time.Duration {
	if r == nil || r.AgentTimeout <= 0 {
		return DefaultAgentTimeout
	}
	return r.AgentTimeout
}

// GetAgentNetRetries returns configured value or default
func (r *RuntimeConfig) GetAgentNetRetries() int {
	if r == nil || r.AgentNetRetries <= 0 {
		return DefaultAgentNetRetries
	}
	return r.AgentNetRetries
}

// GetSegments returns the configured segment count, clamped to [1, MaxSegments]
func (r *RuntimeConfig) GetSegments() int {
	if r == nil || r.Segments <= 0 {
		return DefaultSegments
	}
	if r.Segments > MaxSegments {
		return MaxSegments
	}
	return r.Segments
}

// GetParallelRetries returns how many attempts are made at one segment count
// before halving it
func (r *RuntimeConfig) GetParallelRetries() int {
	if r == nil || r.ParallelRetries <= 0 {
		return DefaultParallelRetries
	}
	return r.ParallelRetries
}

// RetryEnabled reports whether corrupted transfers are retried
func (r *RuntimeConfig) RetryEnabled() bool {
	return r == nil || !r.DisableRetry
}

// VerifyEnabled reports whether archives are integrity checked after transfer
func (r *RuntimeConfig) VerifyEnabled() bool {
	return r == nil || !r.DisableVerify
}

// GetPollInterval returns configured value or default
func (r *RuntimeConfig) GetPollInterval() time.Duration {
	if r == nil || r.PollInterval <= 0 {
		return DefaultPollInterval
	}
	return r.PollInterval
}

// GetStopGrace returns configured value or default
func (r *RuntimeConfig) GetStopGrace() time.Duration {
	if r == nil || r.StopGrace <= 0 {
		return DefaultStopGrace
	}
	return r.StopGrace
}

// GetSpeedWindow returns configured value or default
func (r *RuntimeConfig) GetSpeedWindow() int {
	if r == nil || r.SpeedWindow <= 0 {
		return DefaultSpeedWindow
	}
	return r.SpeedWindow
}

package tui

import "time"

const (
	// Timeouts and Intervals
	TickInterval = 200 * time.Millisecond

	// Layout Offsets and Padding
	HeaderWidthOffset      = 2
	ProgressBarWidthOffset = 4
	DefaultPaddingX        = 1
	DefaultPaddingY        = 0
	MinCardWidth           = 40

	// Speed graph samples kept per download
	SpeedHistoryLen = 120

	// Units
	Megabyte = 1024.0 * 1024.0
)

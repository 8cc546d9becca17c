package utils

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// FormatBytes renders a byte count using binary units, e.g. "1.5 MiB"
func FormatBytes(n int64) string {
	if n < 0 {
		return "?"
	}
	return humanize.IBytes(uint64(n))
}

// FormatSpeed renders bytes per second, or "--" when unavailable
func FormatSpeed(bps float64, ok bool) string {
	if !ok || bps <= 0 {
		return "--"
	}
	return humanize.IBytes(uint64(bps)) + "/s"
}

// FormatDuration renders a duration truncated to whole seconds
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	return d.Truncate(time.Second).String()
}

// FormatPercent renders a 0-100 value with one decimal
func FormatPercent(p float64) string {
	return fmt.Sprintf("%.1f%%", p)
}

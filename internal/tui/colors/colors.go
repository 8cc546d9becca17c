// Package colors holds the shared terminal palette.
package colors

import "github.com/charmbracelet/lipgloss"

// Dracula based palette
var (
	NeonPurple = lipgloss.Color("#bd93f9")
	NeonPink   = lipgloss.Color("#ff79c6")
	NeonCyan   = lipgloss.Color("#8be9fd")
	Green      = lipgloss.Color("#50fa7b")
	Red        = lipgloss.Color("#ff5555")
	Orange     = lipgloss.Color("#ffb86c")
	Yellow     = lipgloss.Color("#f1fa8c")
	Foreground = lipgloss.Color("#f8f8f2")
	LightGray  = lipgloss.Color("#a9b1d6")
	Gray       = lipgloss.Color("#6272a4")
	DarkGray   = lipgloss.Color("#44475a")
	Background = lipgloss.Color("#282a36")

	StateDownloading = Green
	StateRetrying    = Orange
	StateError       = Red
	StateDone        = NeonPurple
	StateQueued      = Yellow
)

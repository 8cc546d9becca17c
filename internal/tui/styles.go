package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/segpull/segpull/internal/tui/colors"
)

var (
	// Colors
	ColorPrimary   = colors.NeonPurple // Dracula Purple
	ColorSecondary = colors.NeonPink   // Dracula Pink
	ColorSuccess   = colors.Green      // Dracula Green
	ColorError     = colors.Red        // Dracula Red
	ColorWarning   = colors.Orange     // Dracula Orange
	ColorText      = colors.Foreground // Dracula Foreground
	ColorSubtext   = colors.Gray       // Dracula Comment
	ColorBorder    = colors.DarkGray   // Dracula Selection

	ColorNeonPink  = colors.NeonPink
	ColorNeonCyan  = colors.NeonCyan
	ColorLightGray = colors.LightGray
	ColorGray      = colors.Gray

	ColorStateDownloading = colors.StateDownloading
	ColorStateRetrying    = colors.StateRetrying
	ColorStateError       = colors.StateError
	ColorStateDone        = colors.StateDone
	ColorStateQueued      = colors.StateQueued

	// Styles
	AppStyle = lipgloss.NewStyle().
			Padding(DefaultPaddingX, 2).
			Foreground(ColorText)

	LogoStyle = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true)

	// Stats Style in Header
	StatsStyle = lipgloss.NewStyle().
			Foreground(ColorSubtext).
			Padding(DefaultPaddingY, DefaultPaddingX)

	// Base Card Style
	CardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(DefaultPaddingY, DefaultPaddingX)

	// Selected Card Style (highlighted border)
	SelectedCardStyle = CardStyle.
				BorderForeground(ColorSecondary)

	// Text inside the card
	CardTitleStyle = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true)

	CardStatsStyle = lipgloss.NewStyle().
			Foreground(ColorSubtext).
			Italic(true)

	RetryNoticeStyle = lipgloss.NewStyle().
				Foreground(ColorWarning)

	ErrorTextStyle = lipgloss.NewStyle().
			Foreground(ColorError)

	HintStyle = lipgloss.NewStyle().
			Foreground(ColorLightGray).
			Italic(true)

	// Details pane
	StatsLabelStyle = lipgloss.NewStyle().
			Foreground(ColorNeonCyan).
			Width(12)

	StatsValueStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	// Tabs
	TabStyle = lipgloss.NewStyle().
			Foreground(ColorLightGray).
			Padding(0, 1)

	ActiveTabStyle = lipgloss.NewStyle().
			Foreground(ColorNeonPink).
			Bold(true).
			Underline(true).
			Padding(0, 1)

	FooterStyle = lipgloss.NewStyle().
			Foreground(ColorLightGray).
			Padding(0, 1)
)

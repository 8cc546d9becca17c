package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/segpull/segpull/internal/config"
)

// viewSettings renders the active configuration as a read-only btop-style page
func (m RootModel) viewSettings() string {
	width := 76
	if m.width < width+4 {
		width = max(m.width-4, 30)
	}

	categories := config.CategoryOrder()
	metadata := config.GetSettingsMetadata()

	tab := m.SettingsActiveTab
	if tab < 0 || tab >= len(categories) {
		tab = 0
	}
	tabBar := renderTabs(tab, categories)

	values := m.getSettingsValues()
	labelWidth := 26

	var rows []string
	for _, meta := range metadata[categories[tab]] {
		label := lipgloss.NewStyle().
			Foreground(ColorLightGray).
			Width(labelWidth).
			Render(meta.Label)
		value := lipgloss.NewStyle().
			Foreground(ColorNeonCyan).
			Bold(true).
			Render(formatSettingValue(values[meta.Key], meta.Type))
		desc := lipgloss.NewStyle().
			Foreground(ColorGray).
			PaddingLeft(2).
			Width(width - 6).
			Render(meta.Description)
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Left, label, value), desc, "")
	}

	helpText := lipgloss.NewStyle().
		Foreground(ColorGray).
		Render(fmt.Sprintf("[1-%d] Tab  [←/→] Switch  [Esc] Back    Edit %s to change", len(categories), config.GetSettingsPath()))

	content := lipgloss.JoinVertical(lipgloss.Left,
		append(append([]string{tabBar, ""}, rows...), helpText)...,
	)

	box := renderBtopBox("Settings", lipgloss.NewStyle().Padding(0, 1).Render(content), width, 0, ColorNeonPink, false)

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

// getSettingsValues maps every dotted setting key to its current value
func (m RootModel) getSettingsValues() map[string]any {
	s := m.Settings
	return map[string]any{
		"general.default_download_dir":     s.General.DefaultDownloadDir,
		"general.max_concurrent_downloads": s.General.MaxConcurrentDownloads,
		"general.theme":                    s.General.Theme,
		"general.log_retention_count":      s.General.LogRetentionCount,

		"agent.binary":      s.Agent.Binary,
		"agent.timeout":     s.Agent.Timeout,
		"agent.net_retries": s.Agent.NetRetries,

		"transfer.segments":         s.Transfer.Segments,
		"transfer.parallel_retries": s.Transfer.ParallelRetries,
		"transfer.retry_enabled":    s.Transfer.RetryEnabled,
		"transfer.verify_archives":  s.Transfer.VerifyArchives,
		"transfer.auto_resume":      s.Transfer.AutoResume,

		"progress.poll_interval": s.Progress.PollInterval,
		"progress.stop_grace":    s.Progress.StopGrace,
		"progress.speed_window":  s.Progress.SpeedWindow,
	}
}

func formatSettingValue(value any, typ string) string {
	if value == nil {
		return "-"
	}

	switch typ {
	case "bool":
		if b, ok := value.(bool); ok {
			if b {
				return "On"
			}
			return "Off"
		}
	case "duration":
		if d, ok := value.(time.Duration); ok {
			return d.String()
		}
	case "int":
		if i, ok := value.(int); ok {
			return fmt.Sprintf("%d", i)
		}
	case "string":
		if s, ok := value.(string); ok {
			if s == "" {
				return "(default)"
			}
			return s
		}
	}
	return fmt.Sprintf("%v", value)
}

package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/segpull/segpull/internal/engine/events"
	"github.com/segpull/segpull/internal/engine/types"
	"github.com/segpull/segpull/internal/tui/components"
	"github.com/segpull/segpull/internal/utils"
)

func (m RootModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	switch m.state {
	case SettingsState:
		return m.viewSettings()
	case DetailState:
		if d := m.GetSelectedDownload(); d != nil {
			w := min(m.width-2, 100)
			box := renderBtopBox("Download Details", renderFocusedDetails(d, w-2), w, m.height-2, ColorNeonPink, false)
			return lipgloss.JoinVertical(lipgloss.Left, box, FooterStyle.Render("[Esc] Back  [Ctrl+C] Quit"))
		}
	}

	cardWidth := max(m.width-HeaderWidthOffset, MinCardWidth)

	header := lipgloss.JoinHorizontal(lipgloss.Center,
		LogoStyle.Render("segpull"),
		StatsStyle.Render(m.headerStats()),
	)

	var cards []string
	if len(m.downloads) == 0 {
		cards = append(cards, lipgloss.NewStyle().Foreground(ColorNeonCyan).Padding(1, 2).Render("Waiting for downloads..."))
	}
	for i, d := range m.downloads {
		cards = append(cards, renderCard(d, cardWidth, i == m.cursor))
	}

	footer := FooterStyle.Render("[↑/↓] Select  [Enter] Details  [S] Settings  [Q] Quit")
	if m.sourceClosed || (len(m.downloads) > 0 && m.AllDone()) {
		footer = FooterStyle.Render(m.summary())
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		lipgloss.JoinVertical(lipgloss.Left, cards...),
		footer,
	)
}

func (m RootModel) headerStats() string {
	active, queued, done := m.CalculateStats()
	return fmt.Sprintf("%d active  %d queued  %d done  %s",
		active, queued, done, utils.FormatSpeed(m.calcTotalSpeed(), true))
}

func (m RootModel) summary() string {
	ok, failed := 0, 0
	for _, d := range m.downloads {
		if d.Failed() {
			failed++
		} else if d.done {
			ok++
		}
	}
	return fmt.Sprintf("Finished: %d completed, %d failed", ok, failed)
}

// renderCard draws one download: title, status, bar, segment map and stats
func renderCard(d *DownloadModel, width int, selected bool) string {
	inner := width - 4

	title := lipgloss.JoinHorizontal(lipgloss.Left,
		CardTitleStyle.Render(truncateString(d.Filename, inner-16)),
		"  ",
		getDownloadStatus(d),
	)

	d.progress.Width = max(inner-ProgressBarWidthOffset, 10)
	bar := d.progress.View()
	if !d.done {
		bar = d.progress.ViewAs(d.Percent / 100)
	}

	lines := []string{title, bar}

	if len(d.Segments) > 0 && !d.done {
		segMap := components.NewSegmentMapModel(d.Segments, inner, false)
		lines = append(lines, segMap.View())
	}

	lines = append(lines, CardStatsStyle.Render(statsLine(d)))

	if n := len(d.Retries); n > 0 && !d.Failed() {
		lines = append(lines, RetryNoticeStyle.Render(retryNotice(d.Retries[n-1])))
	}

	if d.err != nil {
		lines = append(lines, ErrorTextStyle.Render(truncateString(d.err.Error(), inner)))
		var ce *types.CorruptionError
		if errors.As(d.err, &ce) {
			lines = append(lines, HintStyle.Render(ce.Hint()))
		}
	}

	style := CardStyle
	if selected {
		style = SelectedCardStyle
	}
	return style.Width(inner).Render(strings.Join(lines, "\n"))
}

func statsLine(d *DownloadModel) string {
	size := utils.FormatBytes(d.Downloaded)
	if d.HasTotal {
		size += " / " + utils.FormatBytes(d.Total)
	}
	parts := []string{size}

	switch {
	case d.done:
		parts = append(parts, "in "+utils.FormatDuration(d.Elapsed))
	case d.HasSpeed:
		parts = append(parts, utils.FormatSpeed(d.Speed, true))
	case d.AgentSpeed != "":
		parts = append(parts, d.AgentSpeed)
	}
	if d.ETA != "" && !d.done {
		parts = append(parts, "ETA "+d.ETA)
	}
	if d.SegmentCount > 0 {
		parts = append(parts, fmt.Sprintf("%d segments", d.SegmentCount))
	}
	if d.Attempts > 1 {
		parts = append(parts, fmt.Sprintf("attempt %d", d.Attempts))
	}
	return strings.Join(parts, " • ")
}

func retryNotice(r events.RetryMsg) string {
	msg := fmt.Sprintf("↻ attempt %d corrupted, retrying with %d segments", r.Attempt, r.ToSegments)
	if r.Degraded() {
		msg = fmt.Sprintf("↻ attempt %d corrupted, reducing segments %d → %d", r.Attempt, r.FromSegments, r.ToSegments)
	}
	if r.Diagnostic != "" {
		msg += ": " + firstLine(r.Diagnostic)
	}
	return msg
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// Helper to render the detailed info pane
func renderFocusedDetails(d *DownloadModel, w int) string {
	contentWidth := max(w-6, 20)

	divider := lipgloss.NewStyle().
		Foreground(ColorGray).
		Render(strings.Repeat("─", contentWidth))

	row := func(label, value string) string {
		return lipgloss.JoinHorizontal(lipgloss.Left, StatsLabelStyle.Render(label), StatsValueStyle.Render(value))
	}

	size := utils.FormatBytes(d.Downloaded) + " / ?"
	if d.HasTotal {
		size = fmt.Sprintf("%s / %s (%s)", utils.FormatBytes(d.Downloaded), utils.FormatBytes(d.Total), utils.FormatPercent(d.Percent))
	}

	fileInfo := lipgloss.JoinVertical(lipgloss.Left,
		row("Filename:", truncateString(d.Filename, contentWidth-14)),
		row("Status:", getDownloadStatus(d)),
		row("Size:", size),
		row("Dest:", truncateString(d.DestPath, contentWidth-14)),
		row("Source:", truncateString(d.Target, contentWidth-14)),
	)

	d.progress.Width = max(contentWidth-4, 10)
	progView := d.progress.ViewAs(d.Percent / 100)

	segSection := lipgloss.NewStyle().Foreground(ColorGray).Render("No segment data")
	if len(d.Segments) > 0 {
		segMap := components.NewSegmentMapModel(d.Segments, contentWidth, d.Failed())
		var perSeg []string
		for _, seg := range d.Segments {
			perSeg = append(perSeg, fmt.Sprintf("#%-2d %s / %s  %s",
				seg.Index, utils.FormatBytes(seg.Downloaded()), utils.FormatBytes(seg.Size()), utils.FormatPercent(seg.Percent())))
		}
		segSection = lipgloss.JoinVertical(lipgloss.Left,
			segMap.Bar(contentWidth),
			segMap.View(),
			"",
			lipgloss.NewStyle().Foreground(ColorLightGray).Render(strings.Join(perSeg, "\n")),
		)
	}

	avg := utils.FormatSpeed(d.AverageSpeed, d.HasAverage)
	statsSection := lipgloss.JoinVertical(lipgloss.Left,
		row("Speed:", utils.FormatSpeed(d.Speed, d.HasSpeed)),
		row("Average:", avg),
		row("ETA:", valueOr(d.ETA, "--")),
		row("Elapsed:", utils.FormatDuration(d.Elapsed)),
		row("Segments:", fmt.Sprintf("%d", d.SegmentCount)),
		row("Attempt:", fmt.Sprintf("%d", d.Attempts)),
	)

	graphHeight := 4
	maxSpeed := graphScale(d.SpeedHistory)
	graph := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(6).Foreground(ColorGray).Align(lipgloss.Right).Render(fmt.Sprintf("%.0f", maxSpeed)),
		" ",
		renderSpeedGraph(d.SpeedHistory, contentWidth-8, graphHeight, maxSpeed, ColorNeonPink),
	)

	sections := []string{
		"",
		fileInfo,
		divider,
		progView,
		divider,
		segSection,
		divider,
		statsSection,
		divider,
		lipgloss.NewStyle().Foreground(ColorNeonCyan).Bold(true).Render("Speed (MB/s)"),
		graph,
	}

	if len(d.Retries) > 0 {
		sections = append(sections, divider)
		for _, r := range d.Retries {
			sections = append(sections, RetryNoticeStyle.Render(truncateString(retryNotice(r), contentWidth)))
		}
	}
	if d.err != nil {
		sections = append(sections, divider, ErrorTextStyle.Width(contentWidth).Render(d.err.Error()))
	}

	return lipgloss.NewStyle().
		Padding(0, 2).
		Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func getDownloadStatus(d *DownloadModel) string {
	style := lipgloss.NewStyle()

	switch {
	case d.err != nil && types.IsCorruption(d.err):
		return style.Foreground(ColorStateError).Render("✖ Corrupted")
	case d.err != nil:
		return style.Foreground(ColorStateError).Render("✖ Error")
	case d.done:
		return style.Foreground(ColorStateDone).Render("✔ Completed")
	case d.queued:
		return style.Foreground(ColorStateQueued).Render("o Queued")
	case len(d.Retries) > 0:
		return style.Foreground(ColorStateRetrying).Render("↻ Retrying")
	default:
		return style.Foreground(ColorStateDownloading).Render("⬇ Downloading")
	}
}

// calcTotalSpeed sums the current speed of running downloads in bytes/s
func (m RootModel) calcTotalSpeed() float64 {
	total := 0.0
	for _, d := range m.downloads {
		if d.Active() && d.HasSpeed {
			total += d.Speed
		}
	}
	return total
}

func (m RootModel) CalculateStats() (active, queued, done int) {
	for _, d := range m.downloads {
		switch {
		case d.done:
			done++
		case d.queued:
			queued++
		default:
			active++
		}
	}
	return
}

func truncateString(s string, i int) string {
	if i < 1 {
		i = 1
	}
	runes := []rune(s)
	if len(runes) > i {
		return string(runes[:i]) + "..."
	}
	return s
}

func renderTabs(activeTab int, labels []string) string {
	var rendered []string
	for i, label := range labels {
		style := TabStyle
		if i == activeTab {
			style = ActiveTabStyle
		}
		rendered = append(rendered, style.Render(fmt.Sprintf("[%d] %s", i+1, label)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

// renderBtopBox creates a btop-style box with title embedded in the top border
// titleRight: if true, title appears on the right side; if false, title appears on the left
// Example (left):  ╭─ TITLE ─────────────────────────────────╮
// Example (right): ╭─────────────────────────────────── TITLE ─╮
func renderBtopBox(title string, content string, width, height int, borderColor lipgloss.Color, titleRight bool) string {
	const (
		topLeft     = "╭"
		topRight    = "╮"
		bottomLeft  = "╰"
		bottomRight = "╯"
		horizontal  = "─"
		vertical    = "│"
	)

	innerWidth := max(width-2, 1)
	borderStyle := lipgloss.NewStyle().Foreground(borderColor)
	titleStyle := lipgloss.NewStyle().Foreground(ColorNeonCyan).Bold(true)

	titleText := fmt.Sprintf(" %s ", title)
	remainingWidth := max(innerWidth-lipgloss.Width(titleText)-1, 0)

	var topBorder string
	if titleRight {
		topBorder = borderStyle.Render(topLeft+strings.Repeat(horizontal, remainingWidth)) +
			titleStyle.Render(titleText) +
			borderStyle.Render(horizontal+topRight)
	} else {
		topBorder = borderStyle.Render(topLeft+horizontal) +
			titleStyle.Render(titleText) +
			borderStyle.Render(strings.Repeat(horizontal, remainingWidth)+topRight)
	}

	bottomBorder := borderStyle.Render(bottomLeft + strings.Repeat(horizontal, innerWidth) + bottomRight)

	contentLines := strings.Split(content, "\n")
	innerHeight := height - 2
	if innerHeight < len(contentLines) {
		innerHeight = len(contentLines)
	}

	wrapped := make([]string, 0, innerHeight)
	for i := 0; i < innerHeight; i++ {
		line := ""
		if i < len(contentLines) {
			line = contentLines[i]
		}
		if w := lipgloss.Width(line); w < innerWidth {
			line += strings.Repeat(" ", innerWidth-w)
		} else if w > innerWidth {
			line = lipgloss.NewStyle().MaxWidth(innerWidth).Render(line)
		}
		wrapped = append(wrapped, borderStyle.Render(vertical)+line+borderStyle.Render(vertical))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		topBorder,
		strings.Join(wrapped, "\n"),
		bottomBorder,
	)
}

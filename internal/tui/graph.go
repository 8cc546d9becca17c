package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// sub-row fill glyphs, 0 to 8 eighths
var graphBlocks = []string{" ", "▁", "▂", "▃", "▄", "▅", "▆", "▇", "█"}

// renderSpeedGraph draws data as a right aligned bar graph over a dashed grid.
// Values are scaled against maxVal; samples older than width are dropped.
func renderSpeedGraph(data []float64, width, height int, maxVal float64, color lipgloss.Color) string {
	if width < 1 || height < 1 {
		return ""
	}
	if maxVal <= 0 {
		maxVal = 1
	}

	gridStyle := lipgloss.NewStyle().Foreground(ColorGray)
	barStyle := lipgloss.NewStyle().Foreground(color)

	rows := make([][]string, height)
	for i := range rows {
		rows[i] = make([]string, width)
		for j := range rows[i] {
			if i%2 == 0 {
				rows[i][j] = gridStyle.Render("╌")
			} else {
				rows[i][j] = " "
			}
		}
	}

	visible := data
	if len(visible) > width {
		visible = visible[len(visible)-width:]
	}
	offset := width - len(visible)

	for x, val := range visible {
		pct := val / maxVal
		if pct < 0 {
			pct = 0
		}
		if pct > 1 {
			pct = 1
		}
		eighths := int(pct * float64(height) * 8)

		for y := 0; y < height && eighths > 0; y++ {
			fill := min(eighths, 8)
			eighths -= fill
			rows[height-1-y][offset+x] = barStyle.Render(graphBlocks[fill])
		}
	}

	lines := make([]string, height)
	for i, row := range rows {
		lines[i] = strings.Join(row, "")
	}
	return strings.Join(lines, "\n")
}

// graphScale rounds the peak of data up to a readable axis maximum
func graphScale(data []float64) float64 {
	peak := 1.0
	for _, v := range data {
		if v > peak {
			peak = v
		}
	}
	peak *= 1.1
	if peak >= 5 {
		return float64(int((peak+4.99)/5) * 5)
	}
	return float64(int(peak + 0.99))
}

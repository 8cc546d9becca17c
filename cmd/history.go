package cmd

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/segpull/segpull/internal/engine/state"
	"github.com/segpull/segpull/internal/engine/types"
	"github.com/segpull/segpull/internal/tui/colors"
	"github.com/segpull/segpull/internal/utils"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List finished downloads",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		remove, _ := cmd.Flags().GetString("remove")

		if remove != "" {
			if err := state.RemoveDownload(remove); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", remove)
			return nil
		}

		entries, err := state.ListDownloads(limit)
		if err != nil {
			return err
		}
		printHistory(cmd.OutOrStdout(), entries, time.Now())
		return nil
	},
}

func init() {
	historyCmd.Flags().IntP("limit", "l", 20, "Number of entries to show (0 for all)")
	historyCmd.Flags().String("remove", "", "Remove the entry with this ID")
}

func statusColor(status string) lipgloss.Color {
	switch status {
	case types.StatusCompleted:
		return colors.Green
	case types.StatusCorrupt, types.StatusError:
		return colors.Red
	default:
		return colors.Yellow
	}
}

// printHistory renders entries newest first as a table
func printHistory(w io.Writer, entries []types.DownloadEntry, now time.Time) {
	if len(entries) == 0 {
		_, _ = fmt.Fprintln(w, "No downloads recorded yet.")
		return
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		size := "-"
		if e.TotalSize > 0 {
			size = utils.FormatBytes(e.TotalSize)
		}
		rows = append(rows, []string{
			shortID(e.ID),
			e.Filename,
			e.Status,
			size,
			strconv.Itoa(e.Segments),
			strconv.Itoa(e.Attempts),
			utils.FormatDuration(time.Duration(e.TimeTaken) * time.Millisecond),
			humanize.RelTime(time.Unix(e.CompletedAt, 0), now, "ago", "from now"),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colors.Gray)).
		Headers("ID", "FILE", "STATUS", "SIZE", "SEGS", "TRIES", "TOOK", "WHEN").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			style := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return style.Bold(true).Foreground(colors.NeonPurple)
			}
			if col == 2 && row >= 0 && row < len(entries) {
				return style.Foreground(statusColor(entries[row].Status))
			}
			return style
		})
	_, _ = fmt.Fprintln(w, t.Render())

	for _, e := range entries {
		if e.Error != "" {
			_, _ = fmt.Fprintf(w, "%s: %s\n", shortID(e.ID), firstLine(e.Error))
		}
	}
}

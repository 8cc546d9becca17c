package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/segpull/segpull/internal/config"
	"github.com/segpull/segpull/internal/engine/events"
	"github.com/segpull/segpull/internal/utils"
)

// Update handles messages and updates the model
func (m RootModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case events.DownloadQueuedMsg:
		m.ensure(msg.DownloadID, msg.Target, msg.Filename)
		cmds = append(cmds, listenForActivity(m.progressChan))

	case events.DownloadStartedMsg:
		d := m.ensure(msg.DownloadID, msg.Target, msg.Filename)
		d.Target = msg.Target
		d.Filename = msg.Filename
		d.DestPath = msg.DestPath
		d.SegmentCount = msg.Segments
		d.StartTime = time.Now()
		d.queued = false
		utils.Debug("TUI: %s started with %d segments", msg.Filename, msg.Segments)
		cmds = append(cmds, listenForActivity(m.progressChan))

	case events.SegmentProgressMsg:
		if d := m.find(msg.DownloadID); d != nil && !d.done {
			d.queued = false
			d.Segments = msg.Segments
			d.Downloaded = msg.TotalDownloaded
			d.HasTotal = msg.HasSize && msg.TotalSize > 0
			if d.HasTotal {
				d.Total = msg.TotalSize
			}
			d.Percent = msg.OverallPercent
			d.Speed = msg.Speed
			d.HasSpeed = msg.HasSpeed
			d.ETA = msg.ETA
			d.Elapsed = msg.Elapsed
			d.AverageSpeed = msg.AverageSpeed
			d.HasAverage = msg.HasAverage

			if msg.HasSpeed {
				d.SpeedHistory = append(d.SpeedHistory, msg.Speed/Megabyte)
				if len(d.SpeedHistory) > SpeedHistoryLen {
					d.SpeedHistory = d.SpeedHistory[len(d.SpeedHistory)-SpeedHistoryLen:]
				}
			}
			if d.HasTotal {
				cmds = append(cmds, d.progress.SetPercent(d.Percent/100))
			}
		}
		cmds = append(cmds, listenForActivity(m.progressChan))

	case events.ProgressMsg:
		// Coarse output only fills in what the status file has not told us
		if d := m.find(msg.DownloadID); d != nil && !d.done {
			d.queued = false
			if msg.Speed != "" {
				d.AgentSpeed = msg.Speed
			}
			if d.Segments == nil {
				if msg.HasBytes {
					d.Downloaded = msg.Downloaded
					if msg.Total > 0 {
						d.Total = msg.Total
						d.HasTotal = true
					}
				}
				if msg.HasPercent {
					d.Percent = msg.Percent
					cmds = append(cmds, d.progress.SetPercent(msg.Percent/100))
				}
				if msg.ETA != "" {
					d.ETA = msg.ETA
				}
			}
		}
		cmds = append(cmds, listenForActivity(m.progressChan))

	case events.RetryMsg:
		if d := m.find(msg.DownloadID); d != nil {
			d.Retries = append(d.Retries, msg)
			d.Attempts = msg.Attempt + 1
			d.SegmentCount = msg.ToSegments
			// The corrupted file was removed; the next attempt starts from zero
			d.Segments = nil
			d.Downloaded = 0
			d.Percent = 0
			d.ETA = ""
			d.HasSpeed = false
			cmds = append(cmds, d.progress.SetPercent(0))
		}
		cmds = append(cmds, listenForActivity(m.progressChan))

	case events.DownloadCompleteMsg:
		if d := m.find(msg.DownloadID); d != nil {
			d.done = true
			d.queued = false
			d.Elapsed = msg.Elapsed
			d.Attempts = msg.Attempts
			d.DestPath = msg.DestPath
			if msg.Total > 0 {
				d.Total = msg.Total
				d.HasTotal = true
			}
			d.Downloaded = d.Total
			d.Percent = 100
			d.ETA = ""
			cmds = append(cmds, d.progress.SetPercent(1.0))
		}
		cmds = append(cmds, listenForActivity(m.progressChan))

	case events.DownloadErrorMsg:
		d := m.ensure(msg.DownloadID, "", msg.Filename)
		d.err = msg.Err
		d.done = true
		d.queued = false
		d.ETA = ""
		if !d.StartTime.IsZero() && d.Elapsed == 0 {
			d.Elapsed = time.Since(d.StartTime)
		}
		cmds = append(cmds, listenForActivity(m.progressChan))

	case sourceClosedMsg:
		m.sourceClosed = true
		return m, tea.Quit

	case tickMsg:
		for _, d := range m.downloads {
			// Without a status file the elapsed time only moves here
			if d.Active() && d.Segments == nil {
				d.Elapsed = time.Since(d.StartTime)
			}
		}
		return m, tickCmd()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	// Propagate messages to progress bars
	for i := range m.downloads {
		newModel, cmd := m.downloads[i].progress.Update(msg)
		if p, ok := newModel.(progress.Model); ok {
			m.downloads[i].progress = p
		}
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m RootModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" || (key == "q" && m.state == DashboardState) {
		if !m.AllDone() && m.onQuit != nil {
			m.onQuit()
		}
		return m, tea.Quit
	}

	switch m.state {
	case DashboardState:
		switch key {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.downloads)-1 {
				m.cursor++
			}
		case "enter":
			if len(m.downloads) > 0 {
				m.state = DetailState
			}
		case "s":
			m.state = SettingsState
			m.SettingsActiveTab = 0
		}

	case DetailState:
		switch key {
		case "esc", "q", "enter":
			m.state = DashboardState
		}

	case SettingsState:
		switch key {
		case "esc", "q", "s":
			m.state = DashboardState
		case "left", "h":
			if m.SettingsActiveTab > 0 {
				m.SettingsActiveTab--
			}
		case "right", "l", "tab":
			if m.SettingsActiveTab < len(config.CategoryOrder())-1 {
				m.SettingsActiveTab++
			}
		default:
			if len(key) == 1 && key[0] >= '1' && int(key[0]-'1') < len(config.CategoryOrder()) {
				m.SettingsActiveTab = int(key[0] - '1')
			}
		}
	}
	return m, nil
}

package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/segpull/segpull/internal/config"
	"github.com/segpull/segpull/internal/engine/events"
	"github.com/segpull/segpull/internal/engine/types"
)

type UIState int

const (
	DashboardState UIState = iota
	DetailState
	SettingsState
)

// DownloadModel is the dashboard's view of one download
type DownloadModel struct {
	ID       string
	Target   string
	Filename string
	DestPath string

	Total      int64
	HasTotal   bool
	Downloaded int64
	Percent    float64

	Segments     []types.Segment
	SegmentCount int

	Speed        float64
	HasSpeed     bool
	ETA          string
	AgentSpeed   string // Rate text from the agent's own output
	Elapsed      time.Duration
	AverageSpeed float64
	HasAverage   bool
	SpeedHistory []float64 // MB/s per sample

	Attempts int
	Retries  []events.RetryMsg

	StartTime time.Time

	progress progress.Model

	queued bool
	done   bool
	err    error
}

// NewDownloadModel creates a model for a download the UI has just heard of
func NewDownloadModel(id, target, filename string) *DownloadModel {
	return &DownloadModel{
		ID:        id,
		Target:    target,
		Filename:  filename,
		StartTime: time.Now(),
		Attempts:  1,
		queued:    true,
		progress:  progress.New(progress.WithDefaultGradient()),
	}
}

// Active reports whether the download has started and not finished
func (d *DownloadModel) Active() bool {
	return !d.queued && !d.done
}

// Failed reports whether the download ended with an error
func (d *DownloadModel) Failed() bool {
	return d.done && d.err != nil
}

// Done reports whether the download finished, successfully or not
func (d *DownloadModel) Done() bool {
	return d.done
}

// Err returns the error the download ended with
func (d *DownloadModel) Err() error {
	return d.err
}

type RootModel struct {
	downloads []*DownloadModel
	width     int
	height    int
	state     UIState
	cursor    int

	progressChan <-chan any // Events from the download service
	onQuit       func()     // Cancels running downloads
	sourceClosed bool

	Settings          *config.Settings
	SettingsActiveTab int
}

// InitialRootModel builds the dashboard. onQuit runs when the user quits
// before every download has finished.
func InitialRootModel(progressChan <-chan any, settings *config.Settings, onQuit func()) RootModel {
	if settings == nil {
		settings = config.DefaultSettings()
	}
	return RootModel{
		downloads:    make([]*DownloadModel, 0),
		state:        DashboardState,
		progressChan: progressChan,
		onQuit:       onQuit,
		Settings:     settings,
	}
}

// sourceClosedMsg means no more events will arrive
type sourceClosedMsg struct{}

type tickMsg time.Time

func (m RootModel) Init() tea.Cmd {
	return tea.Batch(listenForActivity(m.progressChan), tickCmd())
}

func listenForActivity(sub <-chan any) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-sub
		if !ok {
			return sourceClosedMsg{}
		}
		return msg
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(TickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Downloads returns the tracked downloads in arrival order
func (m RootModel) Downloads() []*DownloadModel {
	return m.downloads
}

func (m RootModel) find(id string) *DownloadModel {
	for _, d := range m.downloads {
		if d.ID == id {
			return d
		}
	}
	return nil
}

// ensure returns the model for id, creating it when the queued event was missed
func (m *RootModel) ensure(id, target, filename string) *DownloadModel {
	if d := m.find(id); d != nil {
		return d
	}
	d := NewDownloadModel(id, target, filename)
	m.downloads = append(m.downloads, d)
	return d
}

// GetSelectedDownload returns the download under the cursor
func (m RootModel) GetSelectedDownload() *DownloadModel {
	if m.cursor < 0 || m.cursor >= len(m.downloads) {
		return nil
	}
	return m.downloads[m.cursor]
}

// AllDone reports whether every tracked download has finished
func (m RootModel) AllDone() bool {
	for _, d := range m.downloads {
		if !d.done {
			return false
		}
	}
	return true
}

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. SEGPULL_TRANSFER_SEGMENTS=8
const EnvPrefix = "SEGPULL"

// Settings holds all user-configurable application settings organized by category.
type Settings struct {
	General  GeneralSettings  `json:"general" mapstructure:"general"`
	Agent    AgentSettings    `json:"agent" mapstructure:"agent"`
	Transfer TransferSettings `json:"transfer" mapstructure:"transfer"`
	Progress ProgressSettings `json:"progress" mapstructure:"progress"`
}

// GeneralSettings contains application behavior settings.
type GeneralSettings struct {
	DefaultDownloadDir     string `json:"default_download_dir" mapstructure:"default_download_dir"`
	MaxConcurrentDownloads int    `json:"max_concurrent_downloads" mapstructure:"max_concurrent_downloads"`
	Theme                  int    `json:"theme" mapstructure:"theme"`
	LogRetentionCount      int    `json:"log_retention_count" mapstructure:"log_retention_count"`
}

const (
	ThemeAdaptive = 0
	ThemeLight    = 1
	ThemeDark     = 2
)

// AgentSettings configures the external transfer agent.
type AgentSettings struct {
	Binary     string        `json:"binary" mapstructure:"binary"`
	Timeout    time.Duration `json:"timeout" mapstructure:"timeout"`
	NetRetries int           `json:"net_retries" mapstructure:"net_retries"`
}

// TransferSettings contains segmenting and retry parameters.
type TransferSettings struct {
	Segments        int  `json:"segments" mapstructure:"segments"`
	ParallelRetries int  `json:"parallel_retries" mapstructure:"parallel_retries"`
	RetryEnabled    bool `json:"retry_enabled" mapstructure:"retry_enabled"`
	VerifyArchives  bool `json:"verify_archives" mapstructure:"verify_archives"`
	AutoResume      bool `json:"auto_resume" mapstructure:"auto_resume"`
}

// ProgressSettings tunes segment status sampling.
type ProgressSettings struct {
	PollInterval time.Duration `json:"poll_interval" mapstructure:"poll_interval"`
	StopGrace    time.Duration `json:"stop_grace" mapstructure:"stop_grace"`
	SpeedWindow  int           `json:"speed_window" mapstructure:"speed_window"`
}

// SettingMeta provides metadata for a single setting (for help output).
type SettingMeta struct {
	Key         string // Dotted viper key
	Label       string // Human-readable label
	Description string
	Type        string // "string", "int", "bool", "duration"
}

// GetSettingsMetadata returns metadata for all settings organized by category.
func GetSettingsMetadata() map[string][]SettingMeta {
	return map[string][]SettingMeta{
		"General": {
			{Key: "general.default_download_dir", Label: "Default Download Dir", Description: "Directory for downloads when -o is not given.", Type: "string"},
			{Key: "general.max_concurrent_downloads", Label: "Max Concurrent Downloads", Description: "Downloads running at once in batch mode (1-10).", Type: "int"},
			{Key: "general.theme", Label: "App Theme", Description: "UI Theme (System, Light, Dark).", Type: "int"},
			{Key: "general.log_retention_count", Label: "Log Retention Count", Description: "Number of recent log files to keep.", Type: "int"},
		},
		"Agent": {
			{Key: "agent.binary", Label: "Agent Binary", Description: "Name or path of the lftp executable.", Type: "string"},
			{Key: "agent.timeout", Label: "Network Timeout", Description: "lftp net:timeout for each connection (e.g., 30s).", Type: "duration"},
			{Key: "agent.net_retries", Label: "Network Retries", Description: "lftp net:max-retries before an attempt fails.", Type: "int"},
		},
		"Transfer": {
			{Key: "transfer.segments", Label: "Segments", Description: "Parallel segments per file (1-32).", Type: "int"},
			{Key: "transfer.parallel_retries", Label: "Parallel Retries", Description: "Attempts at one segment count before halving it.", Type: "int"},
			{Key: "transfer.retry_enabled", Label: "Retry Corruption", Description: "Retry corrupted archives with fewer segments.", Type: "bool"},
			{Key: "transfer.verify_archives", Label: "Verify Archives", Description: "Run an integrity check on archives after transfer.", Type: "bool"},
			{Key: "transfer.auto_resume", Label: "Auto Resume", Description: "Continue partial files left by an earlier run.", Type: "bool"},
		},
		"Progress": {
			{Key: "progress.poll_interval", Label: "Poll Interval", Description: "How often the segment status file is sampled (e.g., 1s).", Type: "duration"},
			{Key: "progress.stop_grace", Label: "Stop Grace", Description: "How long to wait for the sampler to exit (e.g., 2s).", Type: "duration"},
			{Key: "progress.speed_window", Label: "Speed Window", Description: "Samples used for the instantaneous speed.", Type: "int"},
		},
	}
}

// CategoryOrder returns the order of categories for display.
func CategoryOrder() []string {
	return []string{"General", "Agent", "Transfer", "Progress"}
}

// DefaultSettings returns a new Settings instance with sensible defaults.
func DefaultSettings() *Settings {
	homeDir, _ := os.UserHomeDir()
	defaultDir := filepath.Join(homeDir, "Downloads")

	return &Settings{
		General: GeneralSettings{
			DefaultDownloadDir:     defaultDir,
			MaxConcurrentDownloads: 2,
			Theme:                  ThemeAdaptive,
			LogRetentionCount:      5,
		},
		Agent: AgentSettings{
			Binary:     "lftp",
			Timeout:    30 * time.Second,
			NetRetries: 3,
		},
		Transfer: TransferSettings{
			Segments:        4,
			ParallelRetries: 2,
			RetryEnabled:    true,
			VerifyArchives:  true,
			AutoResume:      true,
		},
		Progress: ProgressSettings{
			PollInterval: 1 * time.Second,
			StopGrace:    2 * time.Second,
			SpeedWindow:  10,
		},
	}
}

// GetSettingsPath returns the path to the settings JSON file.
func GetSettingsPath() string {
	return filepath.Join(GetAppDir(), "settings.json")
}

func setDefaults(v *viper.Viper, d *Settings) {
	v.SetDefault("general.default_download_dir", d.General.DefaultDownloadDir)
	v.SetDefault("general.max_concurrent_downloads", d.General.MaxConcurrentDownloads)
	v.SetDefault("general.theme", d.General.Theme)
	v.SetDefault("general.log_retention_count", d.General.LogRetentionCount)

	v.SetDefault("agent.binary", d.Agent.Binary)
	v.SetDefault("agent.timeout", d.Agent.Timeout)
	v.SetDefault("agent.net_retries", d.Agent.NetRetries)

	v.SetDefault("transfer.segments", d.Transfer.Segments)
	v.SetDefault("transfer.parallel_retries", d.Transfer.ParallelRetries)
	v.SetDefault("transfer.retry_enabled", d.Transfer.RetryEnabled)
	v.SetDefault("transfer.verify_archives", d.Transfer.VerifyArchives)
	v.SetDefault("transfer.auto_resume", d.Transfer.AutoResume)

	v.SetDefault("progress.poll_interval", d.Progress.PollInterval)
	v.SetDefault("progress.stop_grace", d.Progress.StopGrace)
	v.SetDefault("progress.speed_window", d.Progress.SpeedWindow)
}

// LoadSettings loads settings from disk layered over defaults, then applies
// SEGPULL_* environment overrides. Returns defaults if the file doesn't exist.
func LoadSettings() (*Settings, error) {
	path := GetSettingsPath()

	v := viper.New()
	setDefaults(v, DefaultSettings())

	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error reading settings file %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("error decoding settings: %w", err)
	}

	return &settings, nil
}

// SaveSettings saves settings to disk atomically.
func SaveSettings(s *Settings) error {
	path := GetSettingsPath()

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	// Atomic write: write to temp file, then rename
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return err
	}

	return os.Rename(tempPath, path)
}

// RuntimeConfig is the subset of Settings passed to the download engine
type RuntimeConfig struct {
	AgentBinary     string
	AgentTimeout    time.Duration
	AgentNetRetries int
	Segments        int
	ParallelRetries int
	RetryEnabled    bool
	VerifyArchives  bool
	PollInterval    time.Duration
	StopGrace       time.Duration
	SpeedWindow     int
}

// ToRuntimeConfig creates a RuntimeConfig from user Settings
func (s *Settings) ToRuntimeConfig() *RuntimeConfig {
	return &RuntimeConfig{
		AgentBinary:     s.Agent.Binary,
		AgentTimeout:    s.Agent.Timeout,
		AgentNetRetries: s.Agent.NetRetries,
		Segments:        s.Transfer.Segments,
		ParallelRetries: s.Transfer.ParallelRetries,
		RetryEnabled:    s.Transfer.RetryEnabled,
		VerifyArchives:  s.Transfer.VerifyArchives,
		PollInterval:    s.Progress.PollInterval,
		StopGrace:       s.Progress.StopGrace,
		SpeedWindow:     s.Progress.SpeedWindow,
	}
}

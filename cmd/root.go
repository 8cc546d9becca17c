package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/segpull/segpull/internal/config"
	"github.com/segpull/segpull/internal/engine/state"
	"github.com/segpull/segpull/internal/utils"
)

// Version information - set via ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// globalSettings is loaded once per invocation in PersistentPreRunE
var globalSettings *config.Settings

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "segpull",
	Short: "Segmented SFTP downloads that recover from corrupted transfers",
	Long: `segpull drives lftp's segmented pget to pull files over SFTP.
It shows live per-segment progress and, when a finished archive fails its
integrity check, retries the transfer with fewer segments.`,
	Version:      Version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initializeGlobalState()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = state.CloseDB()
	},
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("segpull version {{.Version}} (built %s)\n", BuildTime))
	rootCmd.AddCommand(getCmd, doctorCmd, historyCmd)
}

// initializeGlobalState loads settings and sets up logging and the history store.
// Only an unusable app directory is fatal.
func initializeGlobalState() error {
	settings, err := config.LoadSettings()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
		settings = config.DefaultSettings()
	}
	globalSettings = settings

	if err := config.EnsureDirs(); err != nil {
		return fmt.Errorf("failed to create %s: %w", config.GetAppDir(), err)
	}

	logsDir := config.GetLogsDir()
	utils.ConfigureDebug(logsDir)
	if err := utils.CleanupLogs(logsDir, settings.General.LogRetentionCount); err != nil {
		utils.Debug("Log cleanup failed: %v", err)
	}

	if err := state.Configure(config.GetHistoryDBPath()); err != nil {
		// Downloads still work without history
		utils.Debug("History store unavailable: %v", err)
	}
	return nil
}

// currentSettings returns the loaded settings, or defaults outside a command run
func currentSettings() *config.Settings {
	if globalSettings == nil {
		return config.DefaultSettings()
	}
	return globalSettings
}

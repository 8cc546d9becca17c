package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/segpull/segpull/internal/config"
	"github.com/segpull/segpull/internal/download"
	"github.com/segpull/segpull/internal/engine/agent"
	"github.com/segpull/segpull/internal/engine/types"
	"github.com/segpull/segpull/internal/tui"
	"github.com/segpull/segpull/internal/utils"
)

// PasswordEnv supplies the SFTP password when the target URL has none
const PasswordEnv = "SEGPULL_PASSWORD"

var getCmd = &cobra.Command{
	Use:   "get [sftp-url]...",
	Short: "Download one or more files over SFTP",
	Long: `get downloads each sftp://[user@]host[:port]/path target with lftp pget.
Archives are verified after transfer and retried with fewer segments when corrupted.`,
	Args: cobra.ArbitraryArgs,
	RunE: runGet,
}

func init() {
	addGetFlags(getCmd)
}

func addGetFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", "", "Directory to save files in (default: settings download dir)")
	cmd.Flags().IntP("segments", "n", 0, "Segments per file (default: settings, max 32)")
	cmd.Flags().StringP("batch", "b", "", "File containing targets to download (one per line)")
	cmd.Flags().IntP("parallel", "j", 0, "Downloads to run at once (default: settings)")
	cmd.Flags().Int("parallel-retries", 0, "Attempts at one segment count before halving it (default: settings)")
	cmd.Flags().Bool("no-resume", false, "Discard partial files instead of continuing them")
	cmd.Flags().Bool("no-retry", false, "Do not retry corrupted archives")
	cmd.Flags().Bool("no-verify", false, "Skip the archive integrity check")
	cmd.Flags().Bool("mirror-dirs", false, "Recreate host/remote directories under the output directory")
	cmd.Flags().Bool("headless", false, "Print events as lines instead of running the TUI")
}

// getOptions are the get flags after defaults from settings have been applied
type getOptions struct {
	outputDir       string
	segments        int
	batchFile       string
	parallel        int
	parallelRetries int
	noResume        bool
	noRetry         bool
	noVerify        bool
	mirrorDirs      bool
	headless        bool
}

func readGetOptions(cmd *cobra.Command, settings *config.Settings) getOptions {
	var o getOptions
	o.outputDir, _ = cmd.Flags().GetString("output")
	o.segments, _ = cmd.Flags().GetInt("segments")
	o.batchFile, _ = cmd.Flags().GetString("batch")
	o.parallel, _ = cmd.Flags().GetInt("parallel")
	o.parallelRetries, _ = cmd.Flags().GetInt("parallel-retries")
	o.noResume, _ = cmd.Flags().GetBool("no-resume")
	o.noRetry, _ = cmd.Flags().GetBool("no-retry")
	o.noVerify, _ = cmd.Flags().GetBool("no-verify")
	o.mirrorDirs, _ = cmd.Flags().GetBool("mirror-dirs")
	o.headless, _ = cmd.Flags().GetBool("headless")

	if o.outputDir == "" {
		o.outputDir = settings.General.DefaultDownloadDir
	}
	if o.outputDir == "" {
		o.outputDir = "."
	}
	if o.parallel <= 0 {
		o.parallel = settings.General.MaxConcurrentDownloads
	}
	return o
}

// buildRuntimeConfig layers command line overrides over settings
func buildRuntimeConfig(settings *config.Settings, o getOptions) *types.RuntimeConfig {
	rc := types.ConvertRuntimeConfig(settings.ToRuntimeConfig())
	if o.segments > 0 {
		rc.Segments = o.segments
	}
	if o.parallelRetries > 0 {
		rc.ParallelRetries = o.parallelRetries
	}
	if o.noRetry {
		rc.DisableRetry = true
	}
	if o.noVerify {
		rc.DisableVerify = true
	}
	return rc
}

// buildDownloadConfigs validates every target before anything is transferred
func buildDownloadConfigs(targets []string, o getOptions, rc *types.RuntimeConfig, resume bool) ([]types.DownloadConfig, error) {
	password := os.Getenv(PasswordEnv)

	configs := make([]types.DownloadConfig, 0, len(targets))
	var errs []error
	for _, target := range targets {
		if _, err := agent.ParseTarget(target); err != nil {
			errs = append(errs, err)
			continue
		}

		outputDir := o.outputDir
		if o.mirrorDirs {
			dir, err := utils.ExtractRemoteDir(target)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid target %q: %w", target, err))
				continue
			}
			outputDir = filepath.Join(outputDir, dir)
		}

		configs = append(configs, types.DownloadConfig{
			Target:     target,
			OutputPath: outputDir,
			Filename:   utils.RemoteFilename(target),
			Password:   password,
			IsResume:   resume,
			Runtime:    rc,
		})
	}
	return configs, errors.Join(errs...)
}

func runGet(cmd *cobra.Command, args []string) error {
	settings := currentSettings()
	opts := readGetOptions(cmd, settings)

	targets := append([]string{}, args...)
	if opts.batchFile != "" {
		fileTargets, err := readTargetsFromFile(opts.batchFile)
		if err != nil {
			return err
		}
		targets = append(targets, fileTargets...)
	}
	if len(targets) == 0 {
		return errors.New("no targets: pass sftp URLs or --batch FILE")
	}

	rc := buildRuntimeConfig(settings, opts)
	resume := settings.Transfer.AutoResume && !opts.noResume
	configs, err := buildDownloadConfigs(targets, opts, rc, resume)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	useTUI := !opts.headless && isatty.IsTerminal(os.Stdout.Fd())
	utils.Debug("get: %d targets, %d at once, tui=%v resume=%v", len(configs), opts.parallel, useTUI, resume)

	if useTUI {
		applyTheme(settings.General.Theme)
		return runWithTUI(ctx, configs, opts.parallel, settings)
	}
	return runHeadless(ctx, os.Stdout, configs, opts.parallel)
}

// startPool queues every config and closes the returned channel once the pool drains.
// The pool's joined error arrives on done.
func startPool(ctx context.Context, configs []types.DownloadConfig, parallel int) (*download.WorkerPool, <-chan any, <-chan error) {
	progressCh := make(chan any, types.ProgressChannelBuffer)
	pool := download.NewWorkerPool(ctx, progressCh, parallel)
	done := make(chan error, 1)

	go func() {
		for _, cfg := range configs {
			pool.Add(cfg)
		}
		err := pool.Wait()
		close(progressCh)
		done <- err
	}()
	return pool, progressCh, done
}

func runHeadless(ctx context.Context, w io.Writer, configs []types.DownloadConfig, parallel int) error {
	_, progressCh, done := startPool(ctx, configs, parallel)

	printer := newHeadlessPrinter(w)
	for msg := range progressCh {
		printer.Handle(msg)
	}
	printer.Summary()
	return failureSummary(<-done, len(configs))
}

func runWithTUI(ctx context.Context, configs []types.DownloadConfig, parallel int, settings *config.Settings) error {
	pool, progressCh, done := startPool(ctx, configs, parallel)

	m := tui.InitialRootModel(progressCh, settings, pool.CancelAll)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	final, runErr := p.Run()

	// Quitting early leaves workers blocked on lifecycle events
	pool.CancelAll()
	go func() {
		for range progressCh {
		}
	}()
	poolErr := <-done

	if rm, ok := final.(tui.RootModel); ok {
		printFinalReport(os.Stdout, rm.Downloads())
	}
	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return fmt.Errorf("error running TUI: %w", runErr)
	}
	return failureSummary(poolErr, len(configs))
}

// failureSummary condenses the pool's joined error into one line
func failureSummary(err error, total int) error {
	if err == nil {
		return nil
	}
	failed := 1
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		failed = len(joined.Unwrap())
	}
	if total == 1 {
		return err
	}
	return fmt.Errorf("%d of %d downloads failed", failed, total)
}

func applyTheme(theme int) {
	switch theme {
	case config.ThemeLight:
		lipgloss.SetHasDarkBackground(false)
	case config.ThemeDark:
		lipgloss.SetHasDarkBackground(true)
	}
}

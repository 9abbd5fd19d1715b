// Package cmd provides the CLI commands for songbook.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/songbook/internal/config"
	sberrors "github.com/Aman-CERP/songbook/internal/errors"
	"github.com/Aman-CERP/songbook/internal/logging"
	"github.com/Aman-CERP/songbook/pkg/version"
)

// app carries state shared by every subcommand of one root command.
type app struct {
	debug   bool
	dataDir string // --data-dir, overrides paths.data_dir
	plain   bool   // --plain, disables the TUI

	cfg            *config.Config
	cfgErr         error
	loggingCleanup func()
}

// config returns the loaded configuration with flag overrides applied.
func (a *app) config() (*config.Config, error) {
	if a.cfgErr != nil {
		return nil, a.cfgErr
	}
	return a.cfg, nil
}

// NewRootCmd creates the root command for the songbook CLI.
func NewRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "songbook",
		Short: "Manage a searchable song library",
		Long: `songbook keeps a library of song lyrics in a durable record store,
an in-memory snapshot and a full-text search index, and keeps the three
in step on every change.

Import song text files, watch a folder for edits, and search lyrics.`,
		Version:       version.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.SetVersionTemplate("songbook version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug logging to stderr and ~/.songbook/logs/")
	cmd.PersistentFlags().StringVar(&a.dataDir, "data-dir", "", "Library directory (overrides paths.data_dir)")
	cmd.PersistentFlags().BoolVar(&a.plain, "plain", false, "Plain progress output even on a terminal")

	cmd.PersistentPreRunE = a.setup
	cmd.PersistentPostRunE = a.teardown

	cmd.AddCommand(newListCmd(a))
	cmd.AddCommand(newShowCmd(a))
	cmd.AddCommand(newImportCmd(a))
	cmd.AddCommand(newExportCmd(a))
	cmd.AddCommand(newUpdateCmd(a))
	cmd.AddCommand(newRemoveCmd(a))
	cmd.AddCommand(newSearchCmd(a))
	cmd.AddCommand(newCheckCmd(a))
	cmd.AddCommand(newStatusCmd(a))
	cmd.AddCommand(newWatchCmd(a))
	cmd.AddCommand(newConfigCmd(a))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// setup loads configuration and starts logging. A configuration error is
// kept for the commands that need it, so version and config still run.
func (a *app) setup(_ *cobra.Command, _ []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	a.cfg, a.cfgErr = config.Load(cwd)
	if a.cfgErr == nil && a.dataDir != "" {
		a.cfg.Paths.DataDir = a.dataDir
	}

	logCfg := logging.DefaultConfig()
	if a.cfg != nil {
		logCfg.Level = a.cfg.Logging.Level
		logCfg.MaxSizeMB = a.cfg.Logging.MaxSizeMB
		logCfg.MaxFiles = a.cfg.Logging.MaxFiles
		if a.cfg.Logging.File != "" {
			logCfg.FilePath = a.cfg.Logging.File
		}
	}
	if a.debug {
		logCfg.Level = "debug"
		logCfg.WriteToStderr = true
	}

	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	a.loggingCleanup = cleanup
	slog.SetDefault(logger)

	if a.debug {
		slog.Debug("debug_logging_enabled",
			slog.String("log_file", logCfg.FilePath),
			slog.String("version", version.Version))
	}
	return nil
}

func (a *app) teardown(_ *cobra.Command, _ []string) error {
	if a.loggingCleanup != nil {
		a.loggingCleanup()
		a.loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := NewRootCmd().ExecuteContext(ctx)
	if err != nil {
		fmt.Fprint(os.Stderr, sberrors.FormatForCLI(err))
	}
	return err
}

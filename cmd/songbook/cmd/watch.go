package cmd

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/songbook/internal/importer"
	"github.com/Aman-CERP/songbook/internal/output"
	"github.com/Aman-CERP/songbook/internal/ui"
	"github.com/Aman-CERP/songbook/internal/watcher"
)

func newWatchCmd(a *app) *cobra.Command {
	var polling bool

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Keep the library in step with a folder of song files",
		Long: `Import every song file under <dir>, then watch it: new files are
added, edited files update their song, and deleted files remove it.
Runs until interrupted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withLibrary(cmd.Context(), func(lib *library) error {
				return runWatch(cmd, a, lib, args[0], polling)
			})
		},
	}

	cmd.Flags().BoolVar(&polling, "poll", false, "Poll the folder instead of using file system notifications")

	return cmd
}

func runWatch(cmd *cobra.Command, a *app, lib *library, dir string, polling bool) error {
	ctx := cmd.Context()
	cfg := lib.cfg
	out := output.New(cmd.OutOrStdout())

	logChanges(lib.manager)
	folder := importer.NewFolderSync(lib.manager, dir, importer.Options{
		Extensions: cfg.Import.Extensions,
		Workers:    cfg.Import.Workers,
	}, slog.Default())

	r := a.renderer(cmd, dir)
	if err := r.Start(ctx); err != nil {
		return err
	}
	start := time.Now()
	r.SetStage(ui.StageSyncing)
	primed, err := folder.Prime(ctx)
	if err != nil {
		_ = r.Stop()
		return err
	}
	r.Report(1)
	total, err := loadWithProgress(ctx, r, lib.manager)
	if err != nil {
		_ = r.Stop()
		return err
	}
	r.Complete(ui.CompletionStats{
		Songs:    total,
		Added:    primed.Added,
		Updated:  primed.Updated,
		Failed:   primed.Failed,
		Duration: time.Since(start),
	})
	_ = r.Stop()

	w := watcher.New(watcher.Options{
		DebounceWindow: cfg.WatchDebounceDuration(),
		Extensions:     cfg.Import.Extensions,
		ForcePolling:   polling,
	})
	defer func() { _ = w.Stop() }()

	out.Statusf("👀", "Watching %s (%s), Ctrl+C to stop", dir, w.Type())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.Start(gctx, dir)
	})
	g.Go(func() error {
		_, err := folder.Run(gctx, w, func(s importer.SyncStats) {
			out.Statusf("↻", "%d added, %d updated, %d removed, %d failed",
				s.Added, s.Updated, s.Removed, s.Failed)
		})
		return err
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

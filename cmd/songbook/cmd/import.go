package cmd

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	sberrors "github.com/Aman-CERP/songbook/internal/errors"
	"github.com/Aman-CERP/songbook/internal/importer"
	"github.com/Aman-CERP/songbook/internal/output"
	"github.com/Aman-CERP/songbook/internal/songs"
	"github.com/Aman-CERP/songbook/internal/ui"
)

// renderer builds the progress renderer for a command. Progress goes to
// stderr so stdout stays parseable.
func (a *app) renderer(cmd *cobra.Command, title string) ui.Renderer {
	return ui.NewRenderer(ui.NewConfig(cmd.ErrOrStderr(),
		ui.WithForcePlain(a.plain),
		ui.WithNoColor(ui.DetectNoColor()),
		ui.WithTitle(title)))
}

// logChanges registers a listener that records library change
// notifications in the log.
func logChanges(m *songs.Manager) {
	m.Register(songs.ListenerFunc(func() {
		slog.Info("library_changed")
	}))
}

func newImportCmd(a *app) *cobra.Command {
	var noNotify bool

	cmd := &cobra.Command{
		Use:   "import <file|dir>...",
		Short: "Import song files into the library",
		Long: `Import song text files. Directories are searched recursively for files
with the configured extensions (import.extensions).

A song file starts with the title line, followed by optional "Key: value"
header lines (Author, CCLI, Year, Publisher, Copyright, Key, Capo, Info,
Sequence, Translation-<lang>), a blank line, and the lyrics. Blank lines
separate sections; a line such as "Verse 1" or "Chorus" titles a section.`,
		Example: `  songbook import hymns/
  songbook import "Amazing Grace.txt" "Be Thou My Vision.txt"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withLibrary(cmd.Context(), func(lib *library) error {
				return runImport(cmd, a, lib, args, !noNotify)
			})
		},
	}

	cmd.Flags().BoolVar(&noNotify, "no-notify", false, "Do not notify library listeners")

	return cmd
}

func runImport(cmd *cobra.Command, a *app, lib *library, paths []string, notify bool) error {
	ctx := cmd.Context()
	start := time.Now()

	r := a.renderer(cmd, lib.cfg.Paths.DataDir)
	if err := r.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = r.Stop() }()

	r.SetStage(ui.StageParsing)
	res, err := importer.Import(ctx, paths, importer.Options{
		Extensions: lib.cfg.Import.Extensions,
		Workers:    lib.cfg.Import.Workers,
		Progress:   r,
	})
	if err != nil {
		return err
	}
	for _, f := range res.Failures {
		r.AddError(ui.ErrorEvent{Path: f.Path, Err: f.Err})
	}
	if len(res.Songs) == 0 {
		return sberrors.ValidationError("no readable song files found", nil).
			WithSuggestion("check the file format with 'songbook import --help'")
	}

	logChanges(lib.manager)
	if !lib.manager.Add(ctx, res.Songs, notify) {
		return sberrors.ValidationError("none of the songs has lyrics", nil)
	}
	added := 0
	for _, v := range res.Songs {
		if v.ID != 0 {
			added++
		}
	}
	if added == 0 {
		return sberrors.StoreUnavailable("songs could not be saved", nil).
			WithSuggestion("see the log file for the store error")
	}

	total, err := loadWithProgress(ctx, r, lib.manager)
	if err != nil {
		return err
	}

	r.Complete(ui.CompletionStats{
		Songs:    total,
		Added:    added,
		Failed:   len(res.Failures),
		Duration: time.Since(start),
	})
	_ = r.Stop()

	out := output.New(cmd.OutOrStdout())
	for _, v := range res.Songs {
		if v.ID != 0 {
			out.SongRow(v)
		}
	}
	return nil
}

// loadWithProgress rebuilds the snapshot while showing progress.
func loadWithProgress(ctx context.Context, r ui.Renderer, m *songs.Manager) (int, error) {
	r.SetStage(ui.StageLoading)
	all, err := m.All(ctx, r)
	return len(all), err
}

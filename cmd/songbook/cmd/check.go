package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/songbook/internal/output"
	"github.com/Aman-CERP/songbook/internal/ui"
)

func newCheckCmd(a *app) *cobra.Command {
	var (
		repair     bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify that the search index matches the stored songs",
		Long: `Compare the stored songs with the search index. Orphans are index
entries for songs that no longer exist; missing entries are songs the
index does not know about. --repair fixes both.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withLibrary(cmd.Context(), func(lib *library) error {
				ctx := cmd.Context()

				r := a.renderer(cmd, lib.cfg.Paths.DataDir)
				if err := r.Start(ctx); err != nil {
					return err
				}
				start := time.Now()
				total, err := loadWithProgress(ctx, r, lib.manager)
				if err != nil {
					_ = r.Stop()
					return err
				}
				r.Complete(ui.CompletionStats{Songs: total, Duration: time.Since(start)})
				_ = r.Stop()

				result, err := lib.manager.Verify(ctx, repair)
				if err != nil {
					return err
				}

				out := output.New(cmd.OutOrStdout())
				if jsonOutput {
					return out.JSON(result)
				}
				if result.Consistent() {
					out.Successf("Index is consistent: %d songs, %d indexed", result.Checked, result.Indexed)
					return nil
				}
				out.Warningf("%d inconsistencies found", len(result.Inconsistencies))
				for _, issue := range result.Inconsistencies {
					out.Statusf("", "%-8s song %d: %s", issue.Kind, issue.SongID, issue.Details)
				}
				if repair {
					out.Successf("Repaired %d", result.Repaired)
				} else {
					out.Status("", "Run 'songbook check --repair' to fix them")
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&repair, "repair", false, "Fix the inconsistencies found")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

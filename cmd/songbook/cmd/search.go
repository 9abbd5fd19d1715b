package cmd

import (
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	sberrors "github.com/Aman-CERP/songbook/internal/errors"
	"github.com/Aman-CERP/songbook/internal/output"
)

func newSearchCmd(a *app) *cobra.Command {
	var (
		limit      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search song titles, authors and lyrics",
		Long: `Full-text search over the library, best match first. Titles weigh
more than lyrics. Very common words ("the", "and", "oh") are ignored.`,
		Example: `  songbook search "amazing grace"
  songbook search morning -n 5
  songbook search "wont let go" --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.TrimSpace(strings.Join(args, " "))
			if query == "" {
				return sberrors.New(sberrors.ErrCodeQueryEmpty, "search query is empty", nil)
			}

			return a.withLibrary(cmd.Context(), func(lib *library) error {
				slog.Info("search_started", slog.String("query", query), slog.Int("limit", limit))
				results, err := lib.manager.Search(cmd.Context(), query, limit)
				if err != nil {
					return err
				}
				slog.Info("search_complete", slog.Int("results", len(results)))

				out := output.New(cmd.OutOrStdout())
				if jsonOutput {
					return out.JSON(results)
				}
				if len(results) == 0 {
					out.Warningf("No songs match %q", query)
					return nil
				}
				for _, v := range results {
					out.SongRow(v)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of results")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

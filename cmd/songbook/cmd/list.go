package cmd

import (
	"strings"

	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/songbook/internal/output"
	"github.com/Aman-CERP/songbook/internal/song"
)

func newListCmd(a *app) *cobra.Command {
	var (
		filter     string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every song in the library",
		Long: `List every song, ordered by title, author and ID.

--filter narrows the list with a fuzzy match against title and author,
best match first.`,
		Example: `  songbook list
  songbook list --filter "amzng grce"
  songbook list --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withLibrary(cmd.Context(), func(lib *library) error {
				views, err := lib.manager.All(cmd.Context(), nil)
				if err != nil {
					return err
				}
				if filter != "" {
					views = fuzzyFilter(views, filter)
				}

				out := output.New(cmd.OutOrStdout())
				if jsonOutput {
					return out.JSON(views)
				}
				for _, v := range views {
					out.SongRow(v)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "", "Fuzzy filter on title and author")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

// songSource exposes songs to the fuzzy matcher as "title author".
type songSource []*song.View

func (s songSource) String(i int) string {
	return strings.TrimSpace(s[i].Title + " " + s[i].Author)
}

func (s songSource) Len() int { return len(s) }

// fuzzyFilter returns the songs matching pattern, best match first.
func fuzzyFilter(views []*song.View, pattern string) []*song.View {
	matches := fuzzy.FindFrom(pattern, songSource(views))
	out := make([]*song.View, 0, len(matches))
	for _, m := range matches {
		out = append(out, views[m.Index])
	}
	return out
}

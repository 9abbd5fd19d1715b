package cmd

import (
	"slices"

	"github.com/spf13/cobra"

	sberrors "github.com/Aman-CERP/songbook/internal/errors"
	"github.com/Aman-CERP/songbook/internal/output"
	"github.com/Aman-CERP/songbook/internal/song"
)

func newRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>...",
		Short: "Remove songs from the library",
		Long: `Remove one or more songs. The removal is all-or-nothing: if any song
cannot be removed, none is. Songs that are stored but unreadable can be
removed by ID too.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := parseSongID(arg)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			slices.Sort(ids)
			ids = slices.Compact(ids)

			return a.withLibrary(cmd.Context(), func(lib *library) error {
				views := make([]*song.View, len(ids))
				for i, id := range ids {
					views[i] = &song.View{ID: id}
				}

				logChanges(lib.manager)
				if !lib.manager.Remove(cmd.Context(), views) {
					for _, id := range ids {
						found, err := lib.manager.Exists(cmd.Context(), id)
						if err != nil {
							return err
						}
						if !found {
							return sberrors.NotFound(id)
						}
					}
					return sberrors.StoreUnavailable("songs could not be removed; nothing was changed", nil).
						WithSuggestion("see the log file for the store error")
				}

				output.New(cmd.OutOrStdout()).Successf("Removed %d songs", len(views))
				return nil
			})
		},
	}
}

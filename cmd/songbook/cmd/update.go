package cmd

import (
	"github.com/spf13/cobra"

	sberrors "github.com/Aman-CERP/songbook/internal/errors"
	"github.com/Aman-CERP/songbook/internal/importer"
	"github.com/Aman-CERP/songbook/internal/output"
)

func newUpdateCmd(a *app) *cobra.Command {
	var addIfMissing bool

	cmd := &cobra.Command{
		Use:   "update <id> <file>",
		Short: "Replace a song with the contents of a song file",
		Long: `Replace the stored song <id> with the song parsed from <file>.

With --add-if-missing, a song that no longer exists is created instead;
it receives a new ID.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSongID(args[0])
			if err != nil {
				return err
			}
			v, err := importer.ParseFile(args[1])
			if err != nil {
				return err
			}
			v.ID = id

			return a.withLibrary(cmd.Context(), func(lib *library) error {
				logChanges(lib.manager)
				if !lib.manager.Update(cmd.Context(), v, addIfMissing) {
					found, err := lib.manager.Exists(cmd.Context(), id)
					if err != nil {
						return err
					}
					if addIfMissing || found {
						return sberrors.StoreUnavailable("song could not be updated", nil).
							WithDetail("id", args[0]).
							WithSuggestion("see the log file for the store error")
					}
					return sberrors.NotFound(id).
						WithSuggestion("use --add-if-missing to create it")
				}

				out := output.New(cmd.OutOrStdout())
				if v.ID != id {
					out.Successf("Song %d was missing; added as %d", id, v.ID)
				} else {
					out.Successf("Updated song %d", id)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&addIfMissing, "add-if-missing", false, "Create the song if it does not exist")

	return cmd
}

package cmd

import (
	"strconv"

	"github.com/spf13/cobra"

	sberrors "github.com/Aman-CERP/songbook/internal/errors"
	"github.com/Aman-CERP/songbook/internal/output"
)

func newShowCmd(a *app) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one song with its lyrics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSongID(args[0])
			if err != nil {
				return err
			}
			return a.withLibrary(cmd.Context(), func(lib *library) error {
				v, found, err := lib.manager.Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				if !found {
					return sberrors.NotFound(id)
				}

				out := output.New(cmd.OutOrStdout())
				if jsonOutput {
					return out.JSON(v)
				}
				out.Song(v)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

// parseSongID parses a positive song ID argument.
func parseSongID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, sberrors.ValidationError("song ID must be a positive integer", err).
			WithDetail("id", arg)
	}
	return id, nil
}

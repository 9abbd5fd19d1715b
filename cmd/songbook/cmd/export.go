package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	sberrors "github.com/Aman-CERP/songbook/internal/errors"
	"github.com/Aman-CERP/songbook/internal/importer"
	"github.com/Aman-CERP/songbook/internal/output"
)

func newExportCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "export <dir>",
		Short: "Write every song to a song file",
		Long: `Write each song to <dir> in the format read by 'songbook import'.
Files are named "<title> (<id>).txt". Existing files are kept unless
--force is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return sberrors.IOError("cannot create export directory", err).WithDetail("path", dir)
			}

			return a.withLibrary(cmd.Context(), func(lib *library) error {
				views, err := lib.manager.All(cmd.Context(), nil)
				if err != nil {
					return err
				}

				out := output.New(cmd.OutOrStdout())
				written, skipped := 0, 0
				for _, v := range views {
					path := filepath.Join(dir, exportFileName(v.Title, v.ID))
					if !force {
						if _, err := os.Stat(path); err == nil {
							skipped++
							continue
						}
					}
					if err := os.WriteFile(path, []byte(importer.Render(v)), 0o644); err != nil {
						return sberrors.IOError("cannot write song file", err).WithDetail("path", path)
					}
					written++
				}

				out.Successf("Exported %d songs to %s", written, dir)
				if skipped > 0 {
					out.Warningf("%d existing files kept; use --force to overwrite", skipped)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files")

	return cmd
}

// exportFileName builds a portable file name from a song title.
func exportFileName(title string, id int64) string {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		if r < 0x20 {
			return -1
		}
		return r
	}, strings.TrimSpace(title))
	clean = strings.TrimLeft(clean, ".")
	if clean == "" {
		clean = "untitled"
	}
	return fmt.Sprintf("%s (%d).txt", clean, id)
}

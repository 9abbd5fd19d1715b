package cmd

import (
	"io/fs"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/songbook/internal/store"
	"github.com/Aman-CERP/songbook/internal/ui"
)

func newStatusCmd(a *app) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show library health",
		Long: `Show song and index counts, on-disk sizes and the cache policy.

When another process holds the library, only what is visible on disk is
reported.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			dataDir := cfg.Paths.DataDir
			base := store.IndexBasePath(dataDir)

			info := ui.StatusInfo{
				DataDir:      dataDir,
				StoreBackend: cfg.Store.Backend,
				IndexBackend: cfg.Index.Backend,
				CachePolicy:  cfg.Cache.Policy,
			}
			if existing := store.DetectIndexBackend(base); existing != "" {
				info.IndexBackend = string(existing)
			}
			storePaths := []string{
				filepath.Join(dataDir, "songs.db"),
				filepath.Join(dataDir, "songs.db-wal"),
				filepath.Join(dataDir, "songs.bolt"),
			}
			info.StoreSize, info.LastModified = pathsSize(storePaths...)
			info.IndexSize, _ = pathsSize(base+".db", base+".db-wal", base+".bleve")

			dirLock := store.NewDirLock(dataDir)
			if locked, err := dirLock.TryLock(); err != nil || !locked {
				info.Locked = true
			} else {
				_ = dirLock.Unlock()
				err := a.withLibrary(cmd.Context(), func(lib *library) error {
					views, err := lib.manager.All(cmd.Context(), nil)
					if err != nil {
						return err
					}
					stats := lib.manager.Stats()
					info.Songs = len(views)
					info.Indexed = stats.Indexed
					info.IndexFresh = stats.IndexFresh
					info.CachePolicy = stats.CachePolicy
					return nil
				})
				if err != nil {
					return err
				}
			}

			r := ui.NewStatusRenderer(cmd.OutOrStdout(), !ui.IsTTY(cmd.OutOrStdout()) || ui.DetectNoColor())
			if jsonOutput {
				return r.RenderJSON(info)
			}
			return r.Render(info)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

// pathsSize sums the sizes of the files and directory trees at paths,
// skipping any that do not exist, and returns the newest modification time.
func pathsSize(paths ...string) (int64, time.Time) {
	var total int64
	var newest time.Time
	for _, p := range paths {
		_ = filepath.WalkDir(p, func(_ string, d fs.DirEntry, err error) error {
			if err != nil {
				if d == nil {
					return err
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}
			fi, err := d.Info()
			if err != nil {
				return nil
			}
			total += fi.Size()
			if fi.ModTime().After(newest) {
				newest = fi.ModTime()
			}
			return nil
		})
	}
	return total, newest
}

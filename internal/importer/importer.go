package importer

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	sberrors "github.com/Aman-CERP/songbook/internal/errors"
	"github.com/Aman-CERP/songbook/internal/song"
	"github.com/Aman-CERP/songbook/internal/songs"
	"github.com/Aman-CERP/songbook/internal/watcher"
)

// Options controls file discovery and parsing.
type Options struct {
	// Extensions selects files inside directories. Files named explicitly
	// are always read.
	Extensions []string
	// Workers bounds parallel parsing. Default: runtime.NumCPU().
	Workers int
	// Progress receives the parsed fraction. May be nil.
	Progress songs.ProgressReporter
}

// Failure is a file that could not be parsed.
type Failure struct {
	Path string
	Err  error
}

// Result holds the songs parsed from a set of files, in path order.
type Result struct {
	Songs    []*song.View
	Paths    []string
	Failures []Failure
}

// Collect expands paths into the song files they name. Directories are
// walked recursively, skipping hidden entries and files whose extension
// is not in exts. The result is sorted and free of duplicates.
func Collect(paths []string, exts []string) ([]string, error) {
	filter := watcher.NewFilter(exts)
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, sberrors.New(sberrors.ErrCodeFileNotFound, "cannot read "+p, err)
		}
		if !info.IsDir() {
			files = append(files, filepath.Clean(p))
			continue
		}

		root := p
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			rel, _ := filepath.Rel(root, path)
			if rel == "." {
				return nil
			}
			if !filter.Match(rel, d.IsDir()) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.IsDir() {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, sberrors.IOError("failed to walk "+p, err)
		}
	}
	slices.Sort(files)
	return slices.Compact(files), nil
}

// ParseFile reads and parses one song file.
func ParseFile(path string) (*song.View, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, sberrors.New(sberrors.ErrCodeFileNotFound, "cannot open song file", err).
			WithDetail("path", path)
	}
	defer f.Close()

	v, err := Parse(f)
	var se *sberrors.SongbookError
	if errors.As(err, &se) {
		return nil, se.WithDetail("path", path)
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Load parses files in parallel. Unparseable files are reported as
// failures; only cancellation aborts the load.
func Load(ctx context.Context, files []string, opts Options) (*Result, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	progress := opts.Progress
	if progress == nil {
		progress = songs.ProgressFunc(func(float64) {})
	}
	defer progress.Report(songs.ProgressDone)

	parsed := make([]*song.View, len(files))
	errs := make([]error, len(files))
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			parsed[i], errs[i] = ParseFile(path)
			progress.Report(float64(done.Add(1)) / float64(len(files)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{}
	for i, path := range files {
		if errs[i] != nil {
			res.Failures = append(res.Failures, Failure{Path: path, Err: errs[i]})
			continue
		}
		res.Songs = append(res.Songs, parsed[i])
		res.Paths = append(res.Paths, path)
	}
	return res, nil
}

// Import collects and loads paths in one step.
func Import(ctx context.Context, paths []string, opts Options) (*Result, error) {
	files, err := Collect(paths, opts.Extensions)
	if err != nil {
		return nil, err
	}
	return Load(ctx, files, opts)
}

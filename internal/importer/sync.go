package importer

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	sberrors "github.com/Aman-CERP/songbook/internal/errors"
	"github.com/Aman-CERP/songbook/internal/song"
	"github.com/Aman-CERP/songbook/internal/songs"
	"github.com/Aman-CERP/songbook/internal/watcher"
)

// Library is the part of the song manager a folder sync drives.
type Library interface {
	All(ctx context.Context, progress songs.ProgressReporter) ([]*song.View, error)
	Add(ctx context.Context, views []*song.View, notify bool) bool
	Update(ctx context.Context, v *song.View, addIfMissing bool) bool
	Remove(ctx context.Context, views []*song.View) bool
}

// SyncStats counts what a sync step did.
type SyncStats struct {
	Added     int `json:"added"`
	Updated   int `json:"updated"`
	Removed   int `json:"removed"`
	Unchanged int `json:"unchanged"`
	Failed    int `json:"failed"`
}

func (s *SyncStats) merge(o SyncStats) {
	s.Added += o.Added
	s.Updated += o.Updated
	s.Removed += o.Removed
	s.Unchanged += o.Unchanged
	s.Failed += o.Failed
}

// FolderSync mirrors the song files of one folder into a Library. It
// remembers which song each file produced so edits become updates and
// deletions become removals.
type FolderSync struct {
	lib    Library
	root   string
	opts   Options
	logger *slog.Logger

	mu     sync.Mutex
	byPath map[string]int64
}

// NewFolderSync creates a sync for root. A nil logger uses slog.Default.
func NewFolderSync(lib Library, root string, opts Options, logger *slog.Logger) *FolderSync {
	if logger == nil {
		logger = slog.Default()
	}
	return &FolderSync{
		lib:    lib,
		root:   root,
		opts:   opts,
		logger: logger,
		byPath: make(map[string]int64),
	}
}

func songKey(v *song.View) string {
	return strings.ToLower(v.Title) + "\x00" + strings.ToLower(v.Author)
}

// Prime imports every song file under the root. A file whose title and
// author match a stored song is linked to it, and updated if its content
// differs; the rest are added.
func (s *FolderSync) Prime(ctx context.Context) (SyncStats, error) {
	var stats SyncStats

	res, err := Import(ctx, []string{s.root}, s.opts)
	if err != nil {
		return stats, err
	}
	for _, f := range res.Failures {
		s.logger.Warn("song_file_skipped", append([]any{slog.String("path", f.Path)}, sberrors.LogAttrs(f.Err)...)...)
		stats.Failed++
	}

	existing, err := s.lib.All(ctx, nil)
	if err != nil {
		return stats, err
	}
	byKey := make(map[string]*song.View, len(existing))
	for _, v := range existing {
		byKey[songKey(v)] = v
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var added []*song.View
	var addedPaths []string
	for i, v := range res.Songs {
		rel := s.rel(res.Paths[i])
		stored, ok := byKey[songKey(v)]
		if !ok {
			added = append(added, v)
			addedPaths = append(addedPaths, rel)
			continue
		}

		v.ID = stored.ID
		switch {
		case Render(stored) == Render(v):
			stats.Unchanged++
		case s.lib.Update(ctx, v, true):
			stats.Updated++
		default:
			stats.Failed++
			continue
		}
		s.byPath[rel] = v.ID
	}

	if len(added) > 0 && s.lib.Add(ctx, added, true) {
		for i, v := range added {
			if v.ID == 0 {
				stats.Failed++
				continue
			}
			s.byPath[addedPaths[i]] = v.ID
			stats.Added++
		}
	}

	s.logger.Info("folder_primed",
		slog.String("root", s.root),
		slog.Int("added", stats.Added),
		slog.Int("updated", stats.Updated),
		slog.Int("unchanged", stats.Unchanged),
		slog.Int("failed", stats.Failed))
	return stats, nil
}

func (s *FolderSync) rel(path string) string {
	if r, err := filepath.Rel(s.root, path); err == nil {
		return r
	}
	return path
}

// Apply maps a batch of file events onto the library.
func (s *FolderSync) Apply(ctx context.Context, events []watcher.FileEvent) SyncStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats SyncStats
	for _, ev := range events {
		log := s.logger.With(slog.String("path", ev.Path), slog.String("op", ev.Operation.String()))

		if ev.Operation == watcher.OpDelete {
			id, ok := s.byPath[ev.Path]
			if !ok {
				continue
			}
			if s.lib.Remove(ctx, []*song.View{{ID: id}}) {
				stats.Removed++
			} else {
				log.Warn("song_remove_failed", slog.Int64("song_id", id))
				stats.Failed++
			}
			delete(s.byPath, ev.Path)
			continue
		}

		v, err := ParseFile(filepath.Join(s.root, ev.Path))
		if err != nil {
			log.Warn("song_file_skipped", sberrors.LogAttrs(err)...)
			stats.Failed++
			continue
		}

		if id, ok := s.byPath[ev.Path]; ok {
			v.ID = id
			if !s.lib.Update(ctx, v, true) {
				log.Warn("song_update_failed", slog.Int64("song_id", id))
				stats.Failed++
				continue
			}
			s.byPath[ev.Path] = v.ID
			stats.Updated++
			continue
		}

		if !s.lib.Add(ctx, []*song.View{v}, true) || v.ID == 0 {
			log.Warn("song_add_failed")
			stats.Failed++
			continue
		}
		s.byPath[ev.Path] = v.ID
		stats.Added++
	}
	return stats
}

// Tracked returns the song ID linked to a path relative to the root.
func (s *FolderSync) Tracked(rel string) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byPath[rel]
	return id, ok
}

// Run applies batches from w until ctx ends or w stops. onBatch, if set,
// is called after each applied batch.
func (s *FolderSync) Run(ctx context.Context, w *watcher.Watcher, onBatch func(SyncStats)) (SyncStats, error) {
	var total SyncStats
	for {
		select {
		case <-ctx.Done():
			return total, ctx.Err()
		case batch, ok := <-w.Events():
			if !ok {
				return total, nil
			}
			stats := s.Apply(ctx, batch)
			total.merge(stats)
			if onBatch != nil {
				onBatch(stats)
			}
		case err, ok := <-w.Errors():
			if !ok {
				return total, nil
			}
			s.logger.Warn("watcher_error", slog.String("error", err.Error()))
		}
	}
}

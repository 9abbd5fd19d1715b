package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/Aman-CERP/songbook/internal/cache"
	"github.com/Aman-CERP/songbook/internal/config"
	sberrors "github.com/Aman-CERP/songbook/internal/errors"
	"github.com/Aman-CERP/songbook/internal/songs"
	"github.com/Aman-CERP/songbook/internal/store"
)

// library is an opened song library: the locked data directory, its
// record store and search index, and the Manager over them.
type library struct {
	cfg     *config.Config
	lock    *store.DirLock
	records store.RecordStore
	index   store.SongIndex
	manager *songs.Manager
	backend store.IndexBackend
}

// openLibrary locks the data directory and opens the configured stores.
// An existing index keeps its backend even if the configuration changed.
func openLibrary(ctx context.Context, cfg *config.Config) (*library, error) {
	dataDir := cfg.Paths.DataDir
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, sberrors.IOError("cannot create library directory", err).WithDetail("path", dataDir)
	}

	lock := store.NewDirLock(dataDir)
	if err := lock.Acquire(ctx, cfg.LockTimeoutDuration()); err != nil {
		return nil, err
	}

	lib := &library{cfg: cfg, lock: lock}
	ok := false
	defer func() {
		if !ok {
			_ = lib.Close()
		}
	}()

	records, err := store.OpenRecordStore(store.OpenOptions{
		DataDir:      dataDir,
		Backend:      cfg.Store.Backend,
		SQLiteDriver: cfg.Store.SQLiteDriver,
	})
	if err != nil {
		return nil, err
	}
	lib.records = records

	base := store.IndexBasePath(dataDir)
	backend := store.IndexBackend(cfg.Index.Backend)
	if existing := store.DetectIndexBackend(base); existing != "" && existing != backend {
		slog.Warn("index_backend_mismatch",
			slog.String("configured", string(backend)),
			slog.String("existing", string(existing)))
		backend = existing
	}
	if cfg.Store.Backend == string(store.RecordBackendMemory) {
		// A persistent index would outlive the records it describes.
		base = ""
	}

	idx, err := store.NewSongIndexWithBackend(base, store.DefaultIndexConfig(), string(backend))
	if err != nil {
		return nil, sberrors.New(sberrors.ErrCodeIndexFailed, "cannot open search index", err)
	}
	if cfg.Index.QueryCacheSize > 0 {
		idx = store.NewCachedIndex(idx, cfg.Index.QueryCacheSize)
	}
	lib.index = idx
	lib.backend = backend

	lib.manager = songs.New(records, idx,
		songs.WithCachePolicy(cache.PolicyByName(cfg.Cache.Policy, cfg.Cache.MemoryLimitMB)),
		songs.WithLogger(slog.Default()))

	slog.Debug("library_opened",
		slog.String("data_dir", dataDir),
		slog.String("store", records.Backend()),
		slog.String("index", string(backend)))

	ok = true
	return lib, nil
}

// Close releases the index, the record store and the lock, in that order.
func (l *library) Close() error {
	var errs []error
	if l.index != nil {
		errs = append(errs, l.index.Close())
	}
	if l.records != nil {
		errs = append(errs, l.records.Close())
	}
	if l.lock != nil {
		errs = append(errs, l.lock.Unlock())
	}
	return errors.Join(errs...)
}

// withLibrary opens the library for the duration of fn.
func (a *app) withLibrary(ctx context.Context, fn func(*library) error) error {
	cfg, err := a.config()
	if err != nil {
		return err
	}
	lib, err := openLibrary(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = lib.Close() }()
	return fn(lib)
}

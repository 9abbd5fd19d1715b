package store

import (
	"fmt"
	"path/filepath"

	sberrors "github.com/Aman-CERP/songbook/internal/errors"
)

// RecordBackend names a record store implementation.
type RecordBackend string

const (
	RecordBackendSQLite RecordBackend = "sqlite"
	RecordBackendBolt   RecordBackend = "bolt"
	RecordBackendMemory RecordBackend = "memory"
)

// OpenOptions selects and locates a record store.
type OpenOptions struct {
	// DataDir is the library directory. Ignored by the memory backend.
	DataDir string
	// Backend is "sqlite" (default), "bolt" or "memory".
	Backend string
	// SQLiteDriver is "purego" (default) or "cgo".
	SQLiteDriver string
}

// OpenRecordStore opens the record store described by opts.
func OpenRecordStore(opts OpenOptions) (RecordStore, error) {
	switch RecordBackend(opts.Backend) {
	case RecordBackendSQLite, "":
		driver, err := SQLiteDriverFor(opts.SQLiteDriver)
		if err != nil {
			return nil, sberrors.ConfigError(err.Error(), err)
		}
		return NewSQLiteStore(filepath.Join(opts.DataDir, "songs.db"), driver)

	case RecordBackendBolt:
		return NewBoltStore(filepath.Join(opts.DataDir, "songs.bolt"))

	case RecordBackendMemory:
		return NewMemoryStore(), nil

	default:
		err := fmt.Errorf("unknown store backend: %s (valid options: sqlite, bolt, memory)", opts.Backend)
		return nil, sberrors.New(sberrors.ErrCodeUnsupportedBackend, err.Error(), err)
	}
}

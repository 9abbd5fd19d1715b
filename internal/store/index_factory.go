package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// IndexBackend names a search index implementation.
type IndexBackend string

const (
	// IndexBackendSQLite uses SQLite FTS5 (default). WAL mode allows
	// concurrent readers from other processes.
	IndexBackendSQLite IndexBackend = "sqlite"

	// IndexBackendBleve uses Bleve v2. Bleve holds an exclusive lock on
	// its directory, so only one process may open it.
	IndexBackendBleve IndexBackend = "bleve"
)

// NewSongIndexWithBackend opens a SongIndex. basePath has no extension;
// ".db" or ".bleve" is appended per backend. An empty basePath creates an
// in-memory index.
func NewSongIndexWithBackend(basePath string, config IndexConfig, backend string) (SongIndex, error) {
	switch backend {
	case string(IndexBackendSQLite), "":
		var path string
		if basePath != "" {
			path = basePath + ".db"
		}
		return NewSQLiteSongIndex(path, config)

	case string(IndexBackendBleve):
		var path string
		if basePath != "" {
			path = basePath + ".bleve"
		}
		return NewBleveSongIndex(path, config)

	default:
		return nil, fmt.Errorf("unknown index backend: %s (valid options: sqlite, bleve)", backend)
	}
}

// DetectIndexBackend reports which backend an existing index under
// basePath uses, or "" if there is none.
func DetectIndexBackend(basePath string) IndexBackend {
	if fileExists(basePath + ".db") {
		return IndexBackendSQLite
	}
	if dirExists(basePath + ".bleve") {
		return IndexBackendBleve
	}
	return ""
}

// IndexBasePath returns the index base path inside a library directory.
func IndexBasePath(dataDir string) string {
	return filepath.Join(dataDir, "search")
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/songbook/internal/song"
)

// recordStores opens one of every backend for contract tests.
func recordStores(t *testing.T) map[string]RecordStore {
	t.Helper()
	dir := t.TempDir()

	sqliteStore, err := NewSQLiteStore(filepath.Join(dir, "songs.db"), DriverPureGo)
	require.NoError(t, err)
	boltStore, err := NewBoltStore(filepath.Join(dir, "songs.bolt"))
	require.NoError(t, err)

	stores := map[string]RecordStore{
		"memory": NewMemoryStore(),
		"sqlite": sqliteStore,
		"bolt":   boltStore,
	}
	t.Cleanup(func() {
		for _, s := range stores {
			_ = s.Close()
		}
	})
	return stores
}

// songIndexes opens one in-memory index per backend.
func songIndexes(t *testing.T) map[string]SongIndex {
	t.Helper()

	sqliteIdx, err := NewSQLiteSongIndex("", DefaultIndexConfig())
	require.NoError(t, err)
	bleveIdx, err := NewBleveSongIndex("", DefaultIndexConfig())
	require.NoError(t, err)

	indexes := map[string]SongIndex{
		"sqlite": sqliteIdx,
		"bleve":  bleveIdx,
		"cached": NewCachedIndex(mustSQLiteIndex(t), 8),
	}
	t.Cleanup(func() {
		for _, idx := range indexes {
			_ = idx.Close()
		}
	})
	return indexes
}

func mustSQLiteIndex(t *testing.T) *SQLiteSongIndex {
	t.Helper()
	idx, err := NewSQLiteSongIndex("", DefaultIndexConfig())
	require.NoError(t, err)
	return idx
}

func newRecord(title, lyrics string) *song.Record {
	return &song.Record{Title: title, Author: "Anon", Lyrics: lyrics}
}

func newView(id int64, title, author string, lines ...string) *song.View {
	return &song.View{
		ID:       id,
		Title:    title,
		Author:   author,
		Sections: []song.Section{{Title: "Verse 1", Lines: lines}},
	}
}

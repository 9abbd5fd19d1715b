// Package store provides the persistence layer for songs: record stores
// (SQLite, bbolt, in-memory) that hold the canonical song records, and
// search indexes (SQLite FTS5, Bleve) that hold the searchable projection.
package store

import (
	"context"

	"github.com/Aman-CERP/songbook/internal/song"
)

// Tx is the set of record operations available inside a unit of work.
type Tx interface {
	// FetchAll returns every stored record. Rows that cannot be decoded are
	// returned with Record.Err set rather than failing the call.
	FetchAll(ctx context.Context) ([]*song.Record, error)

	// FetchByID returns the record with id, or a RecordNotFound error.
	FetchByID(ctx context.Context, id int64) (*song.Record, error)

	// Save inserts a new record and assigns its ID.
	Save(ctx context.Context, r *song.Record) error

	// Update overwrites an existing record. RecordNotFound if absent.
	Update(ctx context.Context, r *song.Record) error

	// Delete removes a record by ID. RecordNotFound if absent.
	Delete(ctx context.Context, r *song.Record) error
}

// RecordStore persists song records.
type RecordStore interface {
	// RunUnitOfWork runs fn in one atomic scope. Changes commit only when
	// fn returns nil; otherwise every change made through tx is discarded.
	// Commit failures surface as StoreUnavailable errors.
	RunUnitOfWork(ctx context.Context, fn func(tx Tx) error) error

	// Backend names the storage engine.
	Backend() string

	Close() error
}

// SearchResult is one search hit.
type SearchResult struct {
	SongID       int64
	Score        float64
	MatchedTerms []string
}

// SongIndex is the full-text projection of the song collection, keyed by
// song ID. Add replaces any existing entry for the same ID.
type SongIndex interface {
	Add(ctx context.Context, v *song.View) error
	AddAll(ctx context.Context, views []*song.View) error
	Remove(ctx context.Context, v *song.View) error

	// Clear drops every entry.
	Clear(ctx context.Context) error

	// Search returns matching song IDs, best first.
	Search(ctx context.Context, query string, limit int) ([]*SearchResult, error)

	// AllIDs returns every indexed song ID (for consistency checks).
	AllIDs() ([]int64, error)

	// Count returns the number of indexed songs.
	Count() int

	Close() error
}

// IndexConfig configures lyric tokenization for the search index.
type IndexConfig struct {
	// StopWords are dropped from indexed text and queries.
	StopWords []string

	// MinTokenLength is the shortest token kept (default: 2).
	MinTokenLength int
}

// DefaultIndexConfig returns the default index configuration.
func DefaultIndexConfig() IndexConfig {
	return IndexConfig{
		StopWords:      DefaultLyricStopWords,
		MinTokenLength: 2,
	}
}

// DefaultLyricStopWords are words common enough in lyrics to carry no
// signal for search.
var DefaultLyricStopWords = []string{
	"the", "and", "of", "to", "in", "is", "it", "for", "on", "with",
	"be", "as", "at", "by", "an", "or", "so",
	"oh", "ooh", "la", "na", "yeah",
}

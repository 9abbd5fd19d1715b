package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Aman-CERP/songbook/internal/song"
)

// SQLiteSongIndex is a SongIndex backed by SQLite FTS5. WAL mode lets a
// second process read while the library is being edited.
type SQLiteSongIndex struct {
	mu        sync.RWMutex
	db        *sql.DB
	path      string
	config    IndexConfig
	closed    bool
	stopWords map[string]struct{}
}

var _ SongIndex = (*SQLiteSongIndex)(nil)

// validateSQLiteIndex checks an existing index file before it is opened.
// A missing file is valid.
func validateSQLiteIndex(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	db, err := sql.Open(DriverPureGo, path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("cannot open for validation: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database corrupted: %s", result)
	}

	var count int
	err = db.QueryRow(`SELECT COUNT(*) FROM sqlite_master
	                   WHERE type='table' AND name='fts_songs'`).Scan(&count)
	if err != nil {
		return fmt.Errorf("cannot query schema: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("FTS5 table 'fts_songs' missing")
	}
	return nil
}

// NewSQLiteSongIndex opens or creates an FTS5 index at path. An empty path
// creates an in-memory index. A corrupted file is discarded and recreated.
func NewSQLiteSongIndex(path string, config IndexConfig) (*SQLiteSongIndex, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
		}

		if validErr := validateSQLiteIndex(path); validErr != nil {
			slog.Warn("sqlite_index_corrupted",
				slog.String("path", path),
				slog.String("error", validErr.Error()))
			if removeErr := os.Remove(path); removeErr != nil && !os.IsNotExist(removeErr) {
				return nil, fmt.Errorf("search index corrupted at %s and cannot remove: %w (original error: %v)", path, removeErr, validErr)
			}
			_ = os.Remove(path + "-wal")
			_ = os.Remove(path + "-shm")
		}
		dsn = path
	}

	db, err := openSQLite(DriverPureGo, dsn)
	if err != nil {
		return nil, err
	}

	if config.MinTokenLength <= 0 {
		config.MinTokenLength = DefaultIndexConfig().MinTokenLength
	}
	idx := &SQLiteSongIndex{
		db:        db,
		path:      path,
		config:    config,
		stopWords: BuildStopWordMap(config.StopWords),
	}
	if err := idx.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return idx, nil
}

func (s *SQLiteSongIndex) initSchema() error {
	const schema = `
	CREATE VIRTUAL TABLE IF NOT EXISTS fts_songs USING fts5(
		song_id UNINDEXED,
		title,
		author,
		lyrics,
		tokenize='unicode61'
	);

	-- FTS5 rowids are not stable across rebuilds; track IDs separately.
	CREATE TABLE IF NOT EXISTS song_ids (
		song_id INTEGER PRIMARY KEY
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// normalize runs text through the same tokenization used for queries.
func (s *SQLiteSongIndex) normalize(text string) []string {
	return FilterStopWords(TokenizeLyrics(text, s.config.MinTokenLength), s.stopWords)
}

// Add indexes one song, replacing any previous entry.
func (s *SQLiteSongIndex) Add(ctx context.Context, v *song.View) error {
	return s.AddAll(ctx, []*song.View{v})
}

// AddAll indexes songs in one transaction.
func (s *SQLiteSongIndex) AddAll(ctx context.Context, views []*song.View) error {
	if len(views) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("index is closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// FTS5 tables don't support REPLACE, so delete first.
	deleteStmt, err := tx.PrepareContext(ctx, `DELETE FROM fts_songs WHERE song_id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare delete statement: %w", err)
	}
	defer deleteStmt.Close()

	insertStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO fts_songs(song_id, title, author, lyrics) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare FTS statement: %w", err)
	}
	defer insertStmt.Close()

	idStmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO song_ids(song_id) VALUES (?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare ID statement: %w", err)
	}
	defer idStmt.Close()

	for _, v := range views {
		doc := toBleveSong(v)
		if _, err := deleteStmt.ExecContext(ctx, v.ID); err != nil {
			return fmt.Errorf("failed to delete existing song %d: %w", v.ID, err)
		}
		if _, err := insertStmt.ExecContext(ctx, v.ID,
			strings.Join(s.normalize(doc.Title), " "),
			strings.Join(s.normalize(doc.Author), " "),
			strings.Join(s.normalize(doc.Lyrics), " "),
		); err != nil {
			return fmt.Errorf("failed to index song %d: %w", v.ID, err)
		}
		if _, err := idStmt.ExecContext(ctx, v.ID); err != nil {
			return fmt.Errorf("failed to track song ID %d: %w", v.ID, err)
		}
	}

	return tx.Commit()
}

// Remove drops a song from the index. Removing an absent song is a no-op.
func (s *SQLiteSongIndex) Remove(ctx context.Context, v *song.View) error {
	return s.exec(ctx,
		[]string{`DELETE FROM fts_songs WHERE song_id = ?`, `DELETE FROM song_ids WHERE song_id = ?`},
		v.ID)
}

// Clear deletes every indexed song.
func (s *SQLiteSongIndex) Clear(ctx context.Context) error {
	return s.exec(ctx, []string{`DELETE FROM fts_songs`, `DELETE FROM song_ids`})
}

// exec runs statements in one transaction with the same arguments.
func (s *SQLiteSongIndex) exec(ctx context.Context, stmts []string, args ...any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("index is closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return fmt.Errorf("index update failed: %w", err)
		}
	}
	return tx.Commit()
}

// Search matches every query term, best BM25 score first. Title and author
// hits weigh more than lyric hits.
func (s *SQLiteSongIndex) Search(ctx context.Context, queryStr string, limit int) ([]*SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("index is closed")
	}

	tokens := s.normalize(queryStr)
	if len(tokens) == 0 {
		return []*SearchResult{}, nil
	}

	quoted := make([]string, len(tokens))
	for i, t := range tokens {
		quoted[i] = `"` + t + `"`
	}

	// bm25() is negative, lower is better. Weights follow column order.
	const q = `
		SELECT song_id, bm25(fts_songs, 0.0, 3.0, 1.5, 1.0) AS score
		FROM fts_songs
		WHERE fts_songs MATCH ?
		ORDER BY score
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, q, strings.Join(quoted, " "), limit)
	if err != nil {
		if strings.Contains(err.Error(), "fts5:") || strings.Contains(err.Error(), "syntax error") {
			return []*SearchResult{}, nil
		}
		return nil, fmt.Errorf("search failed: %w", err)
	}
	defer rows.Close()

	results := []*SearchResult{}
	for rows.Next() {
		var id int64
		var score float64
		if err := rows.Scan(&id, &score); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, &SearchResult{SongID: id, Score: -score, MatchedTerms: tokens})
	}
	return results, rows.Err()
}

// AllIDs returns every indexed song ID in ascending order.
func (s *SQLiteSongIndex) AllIDs() ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("index is closed")
	}

	rows, err := s.db.Query(`SELECT song_id FROM song_ids ORDER BY song_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query IDs: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan ID: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Count returns the number of indexed songs.
func (s *SQLiteSongIndex) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0
	}
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM song_ids`).Scan(&n); err != nil {
		return 0
	}
	return n
}

// Close checkpoints the WAL and closes the database. Idempotent.
func (s *SQLiteSongIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.db.Close()
}

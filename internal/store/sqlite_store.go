package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	sberrors "github.com/Aman-CERP/songbook/internal/errors"
	"github.com/Aman-CERP/songbook/internal/song"
)

// SQLiteStore is a RecordStore backed by a SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	driver string
}

var _ RecordStore = (*SQLiteStore)(nil)

// NewSQLiteStore opens or creates the songs database at path using the
// given database/sql driver name. An empty path opens an in-memory database.
func NewSQLiteStore(path, driver string) (*SQLiteStore, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
		}
		dsn = path
	}

	db, err := openSQLite(driver, dsn)
	if err != nil {
		return nil, sberrors.StoreUnavailable("cannot open song database", err).
			WithDetail("path", path)
	}

	s := &SQLiteStore{db: db, driver: driver}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, sberrors.StoreUnavailable("cannot initialize song database", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS songs (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		title        TEXT NOT NULL,
		author       TEXT NOT NULL DEFAULT '',
		lyrics       TEXT NOT NULL DEFAULT '',
		ccli         TEXT NOT NULL DEFAULT '',
		year         TEXT NOT NULL DEFAULT '',
		publisher    TEXT NOT NULL DEFAULT '',
		copyright    TEXT NOT NULL DEFAULT '',
		song_key     TEXT NOT NULL DEFAULT '',
		capo         TEXT NOT NULL DEFAULT '',
		info         TEXT NOT NULL DEFAULT '',
		sequence     TEXT NOT NULL DEFAULT '',
		translations TEXT NOT NULL DEFAULT '{}',
		theme        TEXT
	);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Backend returns "sqlite".
func (s *SQLiteStore) Backend() string { return "sqlite" }

// RunUnitOfWork runs fn inside one SQL transaction.
func (s *SQLiteStore) RunUnitOfWork(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return sberrors.StoreUnavailable("failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&sqlTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return sberrors.StoreUnavailable("failed to commit transaction", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type sqlTx struct {
	tx *sql.Tx
}

const songColumns = `id, title, author, lyrics, ccli, year, publisher, copyright,
	song_key, capo, info, sequence, translations, theme`

type rowScanner interface {
	Scan(dest ...any) error
}

// scanRecord reads one row. Undecodable JSON columns set Record.Err.
func scanRecord(row rowScanner) (*song.Record, error) {
	var r song.Record
	var translations string
	var theme sql.NullString
	if err := row.Scan(&r.ID, &r.Title, &r.Author, &r.Lyrics, &r.CCLI, &r.Year,
		&r.Publisher, &r.Copyright, &r.Key, &r.Capo, &r.Info, &r.Sequence,
		&translations, &theme); err != nil {
		return nil, err
	}

	if translations != "" && translations != "{}" {
		if err := json.Unmarshal([]byte(translations), &r.Translations); err != nil {
			r.Err = fmt.Errorf("translations: %w", err)
		}
	}
	if theme.Valid && theme.String != "" {
		r.Theme = &song.Theme{}
		if err := json.Unmarshal([]byte(theme.String), r.Theme); err != nil {
			r.Theme = nil
			r.Err = fmt.Errorf("theme: %w", err)
		}
	}
	return &r, nil
}

// encodeJSONColumns prepares the JSON-encoded columns of r.
func encodeJSONColumns(r *song.Record) (translations string, theme sql.NullString, err error) {
	translations = "{}"
	if len(r.Translations) > 0 {
		data, err := json.Marshal(r.Translations)
		if err != nil {
			return "", theme, err
		}
		translations = string(data)
	}
	if r.Theme != nil {
		data, err := json.Marshal(r.Theme)
		if err != nil {
			return "", theme, err
		}
		theme = sql.NullString{String: string(data), Valid: true}
	}
	return translations, theme, nil
}

func (t *sqlTx) FetchAll(ctx context.Context) ([]*song.Record, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT `+songColumns+` FROM songs ORDER BY id`)
	if err != nil {
		return nil, sberrors.StoreUnavailable("failed to query songs", err)
	}
	defer rows.Close()

	var records []*song.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, sberrors.StoreUnavailable("failed to scan song", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, sberrors.StoreUnavailable("failed to read songs", err)
	}
	return records, nil
}

func (t *sqlTx) FetchByID(ctx context.Context, id int64) (*song.Record, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+songColumns+` FROM songs WHERE id = ?`, id)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sberrors.NotFound(id)
	}
	if err != nil {
		return nil, sberrors.StoreUnavailable("failed to fetch song", err)
	}
	return r, nil
}

func (t *sqlTx) Save(ctx context.Context, r *song.Record) error {
	translations, theme, err := encodeJSONColumns(r)
	if err != nil {
		return sberrors.InternalError("failed to encode song", err)
	}

	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO songs (title, author, lyrics, ccli, year, publisher, copyright,
			song_key, capo, info, sequence, translations, theme)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Title, r.Author, r.Lyrics, r.CCLI, r.Year, r.Publisher, r.Copyright,
		r.Key, r.Capo, r.Info, r.Sequence, translations, theme)
	if err != nil {
		return sberrors.StoreUnavailable("failed to save song", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return sberrors.StoreUnavailable("failed to read new song ID", err)
	}
	r.ID = id
	return nil
}

func (t *sqlTx) Update(ctx context.Context, r *song.Record) error {
	translations, theme, err := encodeJSONColumns(r)
	if err != nil {
		return sberrors.InternalError("failed to encode song", err)
	}

	res, err := t.tx.ExecContext(ctx, `
		UPDATE songs SET title = ?, author = ?, lyrics = ?, ccli = ?, year = ?,
			publisher = ?, copyright = ?, song_key = ?, capo = ?, info = ?,
			sequence = ?, translations = ?, theme = ?
		WHERE id = ?`,
		r.Title, r.Author, r.Lyrics, r.CCLI, r.Year, r.Publisher, r.Copyright,
		r.Key, r.Capo, r.Info, r.Sequence, translations, theme, r.ID)
	if err != nil {
		return sberrors.StoreUnavailable("failed to update song", err)
	}
	return requireOneRow(res, r.ID)
}

func (t *sqlTx) Delete(ctx context.Context, r *song.Record) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM songs WHERE id = ?`, r.ID)
	if err != nil {
		return sberrors.StoreUnavailable("failed to delete song", err)
	}
	return requireOneRow(res, r.ID)
}

func requireOneRow(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return sberrors.StoreUnavailable("failed to read affected rows", err)
	}
	if n == 0 {
		return sberrors.NotFound(id)
	}
	return nil
}

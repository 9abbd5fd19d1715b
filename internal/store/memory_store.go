package store

import (
	"context"
	"maps"
	"sort"
	"sync"

	sberrors "github.com/Aman-CERP/songbook/internal/errors"
	"github.com/Aman-CERP/songbook/internal/song"
)

// MemoryStore is a RecordStore held in memory. Each unit of work edits a
// private copy of the table that replaces the shared one on success.
type MemoryStore struct {
	mu     sync.Mutex
	rows   map[int64]song.Record
	nextID int64
}

var _ RecordStore = (*MemoryStore)(nil)

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[int64]song.Record), nextID: 1}
}

// Backend returns "memory".
func (s *MemoryStore) Backend() string { return "memory" }

// RunUnitOfWork runs fn against a copy of the table and publishes it when
// fn succeeds. Units of work are serialized.
func (s *MemoryStore) RunUnitOfWork(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{rows: maps.Clone(s.rows), nextID: s.nextID}
	if err := fn(tx); err != nil {
		return err
	}
	s.rows, s.nextID = tx.rows, tx.nextID
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

type memTx struct {
	rows   map[int64]song.Record
	nextID int64
}

// copyRecord detaches r from caller-owned maps and themes.
func copyRecord(r song.Record) *song.Record {
	r.Translations = maps.Clone(r.Translations)
	r.Theme = r.Theme.Clone()
	return &r
}

func (t *memTx) FetchAll(ctx context.Context) ([]*song.Record, error) {
	ids := make([]int64, 0, len(t.rows))
	for id := range t.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	records := make([]*song.Record, 0, len(ids))
	for _, id := range ids {
		records = append(records, copyRecord(t.rows[id]))
	}
	return records, nil
}

func (t *memTx) FetchByID(ctx context.Context, id int64) (*song.Record, error) {
	r, ok := t.rows[id]
	if !ok {
		return nil, sberrors.NotFound(id)
	}
	return copyRecord(r), nil
}

func (t *memTx) Save(ctx context.Context, r *song.Record) error {
	r.ID = t.nextID
	t.nextID++
	t.rows[r.ID] = *copyRecord(*r)
	return nil
}

func (t *memTx) Update(ctx context.Context, r *song.Record) error {
	if _, ok := t.rows[r.ID]; !ok {
		return sberrors.NotFound(r.ID)
	}
	t.rows[r.ID] = *copyRecord(*r)
	return nil
}

func (t *memTx) Delete(ctx context.Context, r *song.Record) error {
	if _, ok := t.rows[r.ID]; !ok {
		return sberrors.NotFound(r.ID)
	}
	delete(t.rows, r.ID)
	return nil
}

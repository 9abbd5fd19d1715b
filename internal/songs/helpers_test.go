package songs

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	sberrors "github.com/Aman-CERP/songbook/internal/errors"
	"github.com/Aman-CERP/songbook/internal/logging"
	"github.com/Aman-CERP/songbook/internal/song"
	"github.com/Aman-CERP/songbook/internal/store"
)

// faultyStore wraps a RecordStore and injects failures into its Tx.
type faultyStore struct {
	store.RecordStore

	units      atomic.Int32
	failUpdate bool
	failDelete bool
	failSave   bool
}

func (s *faultyStore) RunUnitOfWork(ctx context.Context, fn func(tx store.Tx) error) error {
	s.units.Add(1)
	return s.RecordStore.RunUnitOfWork(ctx, func(tx store.Tx) error {
		return fn(&faultyTx{Tx: tx, s: s})
	})
}

type faultyTx struct {
	store.Tx
	s *faultyStore
}

func (t *faultyTx) Update(ctx context.Context, r *song.Record) error {
	if t.s.failUpdate {
		return sberrors.StoreUnavailable("injected update failure", nil)
	}
	return t.Tx.Update(ctx, r)
}

func (t *faultyTx) Delete(ctx context.Context, r *song.Record) error {
	if t.s.failDelete {
		return sberrors.StoreUnavailable("injected delete failure", nil)
	}
	return t.Tx.Delete(ctx, r)
}

func (t *faultyTx) Save(ctx context.Context, r *song.Record) error {
	if t.s.failSave {
		return sberrors.StoreUnavailable("injected save failure", nil)
	}
	return t.Tx.Save(ctx, r)
}

// countingIndex counts bulk loads.
type countingIndex struct {
	store.SongIndex
	bulkLoads atomic.Int32
}

func (c *countingIndex) AddAll(ctx context.Context, views []*song.View) error {
	c.bulkLoads.Add(1)
	return c.SongIndex.AddAll(ctx, views)
}

// countingListener records notifications.
type countingListener struct {
	mu    sync.Mutex
	calls int
}

func (l *countingListener) DatabaseChanged() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
}

func (l *countingListener) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

type fixture struct {
	mgr   *Manager
	store *faultyStore
	index *countingIndex
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	idx, err := store.NewSQLiteSongIndex("", store.DefaultIndexConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	f := &fixture{
		store: &faultyStore{RecordStore: store.NewMemoryStore()},
		index: &countingIndex{SongIndex: idx},
	}
	opts = append([]Option{WithLogger(logging.Nop())}, opts...)
	f.mgr = New(f.store, f.index, opts...)
	return f
}

// seed saves records straight into the store, bypassing the Manager.
func (f *fixture) seed(t *testing.T, records ...*song.Record) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.store.RecordStore.RunUnitOfWork(ctx, func(tx store.Tx) error {
		for _, r := range records {
			if err := tx.Save(ctx, r); err != nil {
				return err
			}
		}
		return nil
	}))
}

func (f *fixture) storedTitles(t *testing.T) []string {
	t.Helper()
	ctx := context.Background()
	var titles []string
	require.NoError(t, f.store.RecordStore.RunUnitOfWork(ctx, func(tx store.Tx) error {
		all, err := tx.FetchAll(ctx)
		for _, r := range all {
			titles = append(titles, r.Title)
		}
		return err
	}))
	return titles
}

func newSong(title, author string, lines ...string) *song.View {
	if len(lines) == 0 {
		lines = []string{title + " la la"}
	}
	return &song.View{
		Title:    title,
		Author:   author,
		Sections: []song.Section{{Title: "Verse 1", Lines: lines}},
	}
}

func titles(views []*song.View) []string {
	out := make([]string, len(views))
	for i, v := range views {
		out[i] = v.Title
	}
	return out
}

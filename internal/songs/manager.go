// Package songs coordinates the song collection across the record store,
// the snapshot cache and the search index.
//
// Every operation runs under one mutex per Manager, so callers never
// observe the three views in a torn state. Mutations invalidate the
// snapshot before touching the store; reads rebuild it on demand and bulk
// load the index only when the freshness flag asks for it.
package songs

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/Aman-CERP/songbook/internal/cache"
	sberrors "github.com/Aman-CERP/songbook/internal/errors"
	"github.com/Aman-CERP/songbook/internal/index"
	"github.com/Aman-CERP/songbook/internal/song"
	"github.com/Aman-CERP/songbook/internal/store"
)

// Manager owns the synchronization between a RecordStore, a SongIndex and
// the in-memory snapshot. Construct one per library with New.
type Manager struct {
	mu sync.Mutex

	store    store.RecordStore
	index    store.SongIndex
	snapshot *cache.Snapshot[*song.View]
	// indexFresh means the index must be bulk loaded on the next rebuild.
	indexFresh bool
	listeners  []Listener

	checker *index.ConsistencyChecker
	logger  *slog.Logger
	policy  cache.Policy
}

// Option configures a Manager.
type Option func(*Manager)

// WithCachePolicy sets the snapshot eviction policy.
func WithCachePolicy(p cache.Policy) Option {
	return func(m *Manager) { m.policy = p }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// New creates a Manager over rs and idx. The index starts out fresh, so
// the first read populates it.
func New(rs store.RecordStore, idx store.SongIndex, opts ...Option) *Manager {
	m := &Manager{
		store:      rs,
		index:      idx,
		indexFresh: true,
		logger:     slog.Default(),
		policy:     cache.ExplicitPolicy{},
	}
	for _, opt := range opts {
		opt(m)
	}
	m.snapshot = cache.NewSnapshot[*song.View](m.policy)
	m.checker = index.NewConsistencyChecker(idx, m.logger)
	return m
}

// Stats describes the Manager's cache state.
type Stats struct {
	SnapshotPresent bool   `json:"snapshot_present"`
	IndexFresh      bool   `json:"index_fresh"`
	Indexed         int    `json:"indexed"`
	Listeners       int    `json:"listeners"`
	CachePolicy     string `json:"cache_policy"`
	Evictions       int    `json:"evictions"`
}

// Stats returns a point-in-time view of the cache state.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{
		SnapshotPresent: m.snapshot.Present(),
		IndexFresh:      m.indexFresh,
		Indexed:         m.index.Count(),
		Listeners:       len(m.listeners),
		CachePolicy:     m.snapshot.PolicyName(),
		Evictions:       m.snapshot.Evictions(),
	}
}

// All returns every readable song in title, author, ID order. The result
// is shared and must not be modified. progress may be nil.
func (m *Manager) All(ctx context.Context, progress ProgressReporter) ([]*song.View, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadLocked(ctx, progress)
}

// Invalidate drops the snapshot; the next read rebuilds it from the store.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot.Invalidate()
}

func (m *Manager) loadLocked(ctx context.Context, progress ProgressReporter) ([]*song.View, error) {
	if progress == nil {
		progress = nopProgress{}
	}
	defer progress.Report(ProgressDone)

	if views, ok := m.snapshot.Get(); ok {
		return views, nil
	}

	var records []*song.Record
	err := m.store.RunUnitOfWork(ctx, func(tx store.Tx) error {
		var err error
		records, err = tx.FetchAll(ctx)
		return err
	})
	if err != nil {
		m.logger.Error("songs_load_failed", sberrors.LogAttrs(err)...)
		return nil, err
	}

	views := make([]*song.View, 0, len(records))
	for i, r := range records {
		v, err := song.FromRecord(r)
		if err != nil {
			m.logger.Warn("song_skipped",
				append([]any{slog.Int64("song_id", r.ID)}, sberrors.LogAttrs(err)...)...)
		} else {
			views = append(views, v)
		}
		progress.Report(float64(i+1) / float64(len(records)))
	}
	song.Sort(views)

	if m.indexFresh {
		if err := m.index.AddAll(ctx, views); err != nil {
			// Stay fresh so the next rebuild tries again.
			m.logger.Warn("index_bulk_load_failed",
				slog.Int("count", len(views)),
				slog.String("error", err.Error()))
		} else {
			m.indexFresh = false
			m.logger.Debug("index_bulk_loaded", slog.Int("count", len(views)))
		}
	}

	m.snapshot.Put(views)
	return views, nil
}

// Get returns the song with id from the snapshot.
func (m *Manager) Get(ctx context.Context, id int64) (*song.View, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	views, err := m.loadLocked(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	for _, v := range views {
		if v.ID == id {
			return v, true, nil
		}
	}
	return nil, false, nil
}

// Search runs query against the index and resolves hits to songs, best
// first. Hits with no stored song are dropped.
func (m *Manager) Search(ctx context.Context, query string, limit int) ([]*song.View, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	views, err := m.loadLocked(ctx, nil)
	if err != nil {
		return nil, err
	}

	hits, err := m.index.Search(ctx, query, limit)
	if err != nil {
		return nil, sberrors.New(sberrors.ErrCodeSearchFailed, "search failed", err).
			WithDetail("query", query)
	}

	byID := make(map[int64]*song.View, len(views))
	for _, v := range views {
		byID[v.ID] = v
	}
	results := make([]*song.View, 0, len(hits))
	for _, h := range hits {
		if v, ok := byID[h.SongID]; ok {
			results = append(results, v)
		}
	}
	return results, nil
}

// Add persists views and returns true when at least one had content.
// Views without sections are dropped first; if none remain nothing is
// touched and Add returns false. Store failures are logged, not returned.
//
// On success each saved view's ID is set to the ID the store assigned.
// Views returned by All, Get or Search are shared and are never written
// to; pass a Clone to learn the assigned ID.
func (m *Manager) Add(ctx context.Context, views []*song.View, notify bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	ok, _ := m.addLocked(ctx, m.detachLocked(views), notify)
	return ok
}

// detachLocked replaces views that belong to the published snapshot with
// copies, so writing IDs back never reaches a shared slice.
func (m *Manager) detachLocked(views []*song.View) []*song.View {
	published, ok := m.snapshot.Peek()
	if !ok || len(published) == 0 {
		return views
	}
	shared := make(map[*song.View]struct{}, len(published))
	for _, v := range published {
		shared[v] = struct{}{}
	}

	var out []*song.View
	for i, v := range views {
		if _, isShared := shared[v]; !isShared {
			continue
		}
		if out == nil {
			out = slices.Clone(views)
		}
		out[i] = v.Clone()
	}
	if out == nil {
		return views
	}
	return out
}

// AddOne is Add for a single song, with notification.
func (m *Manager) AddOne(ctx context.Context, v *song.View) bool {
	return m.Add(ctx, []*song.View{v}, true)
}

// addLocked reports whether any view was attempted, plus the store error.
func (m *Manager) addLocked(ctx context.Context, views []*song.View, notify bool) (bool, error) {
	survivors := make([]*song.View, 0, len(views))
	for _, v := range views {
		if v != nil && len(v.Sections) > 0 {
			survivors = append(survivors, v)
		}
	}
	if len(survivors) == 0 {
		m.logger.Debug("songs_add_rejected", slog.Int("requested", len(views)))
		return false, nil
	}

	m.snapshot.Invalidate()
	if err := m.index.Clear(ctx); err != nil {
		m.logger.Warn("index_clear_failed", slog.String("error", err.Error()))
	}
	m.indexFresh = true

	records := make([]*song.Record, len(survivors))
	err := m.store.RunUnitOfWork(ctx, func(tx store.Tx) error {
		for i, v := range survivors {
			r := song.ToRecord(v)
			if err := tx.Save(ctx, r); err != nil {
				return err
			}
			records[i] = r
		}
		return nil
	})
	if err != nil {
		m.logger.Warn("songs_add_failed",
			append([]any{slog.Int("count", len(survivors))}, sberrors.LogAttrs(err)...)...)
	} else {
		for i, v := range survivors {
			v.ID = records[i].ID
		}
		m.logger.Info("songs_added", slog.Int("count", len(survivors)))
	}

	if _, loadErr := m.loadLocked(ctx, nil); loadErr != nil {
		m.logger.Warn("songs_rebuild_failed", slog.String("error", loadErr.Error()))
	}
	if notify {
		m.fireLocked()
	}
	return true, err
}

// Update writes view over the stored song with the same ID and notifies
// listeners on success. A nil view is rejected.
//
// A missing song is created instead when addIfMissing is set. Any other
// store failure triggers a repair: the song is removed and created again,
// and the create is skipped if the removal itself failed, so a song is
// never duplicated. When Update returns false the index is reset and
// rebuilt from the store on the next read.
func (m *Manager) Update(ctx context.Context, v *song.View, addIfMissing bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if v == nil {
		m.logger.Warn("song_update_rejected", slog.String("reason", "nil view"))
		return false
	}
	v = m.detachLocked([]*song.View{v})[0]
	log := m.logger.With(slog.Int64("song_id", v.ID))

	if err := m.index.Remove(ctx, v); err != nil {
		log.Debug("index_remove_failed", slog.String("error", err.Error()))
	}
	m.snapshot.Invalidate()

	if m.updateLocked(ctx, v, addIfMissing, log) {
		return true
	}
	m.resetIndexLocked(ctx)
	return false
}

func (m *Manager) updateLocked(ctx context.Context, v *song.View, addIfMissing bool, log *slog.Logger) bool {
	err := m.store.RunUnitOfWork(ctx, func(tx store.Tx) error {
		r, err := tx.FetchByID(ctx, v.ID)
		if err != nil {
			return err
		}
		song.ApplyToRecord(v, r)
		return tx.Update(ctx, r)
	})

	switch store.Classify(err) {
	case store.OutcomeOK:
		if err := m.index.Add(ctx, v); err != nil {
			log.Warn("index_add_failed", slog.String("error", err.Error()))
		}
		log.Info("song_updated")
		m.fireLocked()
		return true

	case store.OutcomeNotFound:
		if !addIfMissing {
			log.Warn("song_update_not_found")
			return false
		}
		log.Info("song_update_fallback_create")
		ok, _ := m.addLocked(ctx, []*song.View{v}, true)
		return ok

	default:
		log.Warn("song_update_failed", sberrors.LogAttrs(err)...)
		return m.repairLocked(ctx, v, log)
	}
}

// resetIndexLocked empties the index and marks it fresh, so the next read
// reloads it from whatever the store holds.
func (m *Manager) resetIndexLocked(ctx context.Context) {
	m.snapshot.Invalidate()
	if err := m.index.Clear(ctx); err != nil {
		m.logger.Warn("index_clear_failed", slog.String("error", err.Error()))
	}
	m.indexFresh = true
}

// repairLocked replaces a song whose update failed with remove then create.
func (m *Manager) repairLocked(ctx context.Context, v *song.View, log *slog.Logger) bool {
	if outcome := m.removeLocked(ctx, []*song.View{v}); outcome == store.OutcomeStoreError {
		log.Error("song_repair_failed", slog.String("stage", "remove"))
		return false
	}

	ok, err := m.addLocked(ctx, []*song.View{v}, false)
	if !ok || err != nil {
		log.Error("song_repair_failed", slog.String("stage", "create"))
		return false
	}

	log.Info("song_repaired", slog.Int64("new_id", v.ID))
	m.fireLocked()
	return true
}

// Remove deletes views in one unit of work. Any failure, including a
// missing song, rolls back the whole batch and returns false with the
// index and listeners untouched. Only the ID of each view is read.
func (m *Manager) Remove(ctx context.Context, views []*song.View) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(views) == 0 {
		return true
	}
	if slices.Contains(views, nil) {
		m.logger.Warn("songs_remove_rejected", slog.String("reason", "nil view"))
		return false
	}
	if m.removeLocked(ctx, views) != store.OutcomeOK {
		return false
	}
	m.fireLocked()
	return true
}

// RemoveOne is Remove for a single song.
func (m *Manager) RemoveOne(ctx context.Context, v *song.View) bool {
	return m.Remove(ctx, []*song.View{v})
}

func (m *Manager) removeLocked(ctx context.Context, views []*song.View) store.Outcome {
	m.snapshot.Invalidate()

	err := m.store.RunUnitOfWork(ctx, func(tx store.Tx) error {
		for _, v := range views {
			r, err := tx.FetchByID(ctx, v.ID)
			if err != nil {
				return err
			}
			if err := tx.Delete(ctx, r); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		m.logger.Warn("songs_remove_failed",
			append([]any{slog.Int("count", len(views))}, sberrors.LogAttrs(err)...)...)
		return store.Classify(err)
	}

	for _, v := range views {
		if err := m.index.Remove(ctx, v); err != nil {
			m.logger.Warn("index_remove_failed",
				slog.Int64("song_id", v.ID),
				slog.String("error", err.Error()))
		}
	}
	m.logger.Info("songs_removed", slog.Int("count", len(views)))
	return store.OutcomeOK
}

// Exists reports whether the store holds a song with id, including one
// that cannot be decoded and is therefore missing from All.
func (m *Manager) Exists(ctx context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	err := m.store.RunUnitOfWork(ctx, func(tx store.Tx) error {
		_, err := tx.FetchByID(ctx, id)
		return err
	})
	switch store.Classify(err) {
	case store.OutcomeOK:
		return true, nil
	case store.OutcomeNotFound:
		return false, nil
	default:
		return false, err
	}
}

// Verify compares the stored songs with the index. With repair set,
// orphaned entries are removed and missing songs re-indexed.
func (m *Manager) Verify(ctx context.Context, repair bool) (*index.CheckResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	views, err := m.loadLocked(ctx, nil)
	if err != nil {
		return nil, err
	}

	result, err := m.checker.Check(ctx, views)
	if err != nil {
		return nil, sberrors.New(sberrors.ErrCodeIndexFailed, "consistency check failed", err)
	}
	if repair && !result.Consistent() {
		n, err := m.checker.Repair(ctx, views, result.Inconsistencies)
		result.Repaired = n
		if err != nil {
			return result, err
		}
	}
	return result, nil
}

// Package index checks and repairs agreement between the record store and
// the search index.
package index

import (
	"context"
	"log/slog"
	"time"

	"github.com/Aman-CERP/songbook/internal/song"
	"github.com/Aman-CERP/songbook/internal/store"
)

// InconsistencyType categorizes detected issues.
type InconsistencyType int

const (
	// InconsistencyOrphan is an index entry with no stored song.
	InconsistencyOrphan InconsistencyType = iota
	// InconsistencyMissing is a stored song absent from the index.
	InconsistencyMissing
)

func (t InconsistencyType) String() string {
	switch t {
	case InconsistencyOrphan:
		return "orphan"
	case InconsistencyMissing:
		return "missing"
	default:
		return "unknown"
	}
}

// Inconsistency is one detected cross-store issue.
type Inconsistency struct {
	Type    InconsistencyType `json:"-"`
	Kind    string            `json:"type"`
	SongID  int64             `json:"song_id"`
	Details string            `json:"details"`
}

// CheckResult is the outcome of a consistency check.
type CheckResult struct {
	// Checked is the number of stored songs verified.
	Checked         int             `json:"checked"`
	Indexed         int             `json:"indexed"`
	Inconsistencies []Inconsistency `json:"inconsistencies"`
	// Repaired counts issues fixed by Repair; zero when no repair ran.
	Repaired int           `json:"repaired"`
	Duration time.Duration `json:"duration_ns"`
}

// Consistent reports whether no issues were found.
func (r *CheckResult) Consistent() bool {
	return len(r.Inconsistencies) == 0
}

// ConsistencyChecker compares the stored songs, which are the source of
// truth, against the IDs held by a search index.
type ConsistencyChecker struct {
	index  store.SongIndex
	logger *slog.Logger
}

// NewConsistencyChecker creates a checker over idx. A nil logger uses
// slog.Default.
func NewConsistencyChecker(idx store.SongIndex, logger *slog.Logger) *ConsistencyChecker {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConsistencyChecker{index: idx, logger: logger}
}

// Check finds orphaned and missing index entries. O(n) in the number of
// songs plus index entries.
func (c *ConsistencyChecker) Check(ctx context.Context, songs []*song.View) (*CheckResult, error) {
	start := time.Now()

	stored := make(map[int64]bool, len(songs))
	for _, v := range songs {
		stored[v.ID] = true
	}

	indexedIDs, err := c.index.AllIDs()
	if err != nil {
		return nil, err
	}
	indexed := make(map[int64]bool, len(indexedIDs))

	var issues []Inconsistency
	for _, id := range indexedIDs {
		indexed[id] = true
		if !stored[id] {
			issues = append(issues, newInconsistency(InconsistencyOrphan, id,
				"index entry without a stored song"))
		}
	}
	for _, v := range songs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !indexed[v.ID] {
			issues = append(issues, newInconsistency(InconsistencyMissing, v.ID,
				"stored song missing from the index"))
		}
	}

	return &CheckResult{
		Checked:         len(songs),
		Indexed:         len(indexedIDs),
		Inconsistencies: issues,
		Duration:        time.Since(start),
	}, nil
}

func newInconsistency(t InconsistencyType, id int64, details string) Inconsistency {
	return Inconsistency{Type: t, Kind: t.String(), SongID: id, Details: details}
}

// Repair removes orphans from the index and re-adds missing songs. Each
// fix is best effort; failures are logged and the count of fixed issues is
// returned.
func (c *ConsistencyChecker) Repair(ctx context.Context, songs []*song.View, issues []Inconsistency) (int, error) {
	byID := make(map[int64]*song.View, len(songs))
	for _, v := range songs {
		byID[v.ID] = v
	}

	var missing []*song.View
	repaired := 0
	for _, issue := range issues {
		if err := ctx.Err(); err != nil {
			return repaired, err
		}
		switch issue.Type {
		case InconsistencyOrphan:
			if err := c.index.Remove(ctx, &song.View{ID: issue.SongID}); err != nil {
				c.logger.Warn("orphan_remove_failed",
					slog.Int64("song_id", issue.SongID),
					slog.String("error", err.Error()))
				continue
			}
			repaired++
		case InconsistencyMissing:
			if v, ok := byID[issue.SongID]; ok {
				missing = append(missing, v)
			}
		}
	}

	if len(missing) > 0 {
		if err := c.index.AddAll(ctx, missing); err != nil {
			c.logger.Warn("missing_reindex_failed",
				slog.Int("count", len(missing)),
				slog.String("error", err.Error()))
		} else {
			repaired += len(missing)
		}
	}

	c.logger.Info("consistency_repaired",
		slog.Int("issues", len(issues)),
		slog.Int("repaired", repaired))
	return repaired, nil
}

// QuickCheck compares counts only.
func (c *ConsistencyChecker) QuickCheck(storedCount int) bool {
	indexed := c.index.Count()
	if indexed != storedCount {
		c.logger.Debug("index_count_mismatch",
			slog.Int("stored", storedCount),
			slog.Int("indexed", indexed))
		return false
	}
	return true
}

package ui

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Aman-CERP/songbook/internal/songs"
)

func TestProgressTracker_Report(t *testing.T) {
	// Given: a fresh tracker
	p := NewProgressTracker()
	assert.Equal(t, StageLoading, p.Stats().Stage)

	// When: progress moves forward then backward
	p.Report(0.6)
	p.Report(0.4)

	// Then: progress does not regress
	assert.InDelta(t, 0.6, p.Stats().Progress, 1e-9)

	// When: fractions are out of range
	p.Report(7)

	// Then: they are clamped
	assert.InDelta(t, 1.0, p.Stats().Progress, 1e-9)
	assert.False(t, p.Stats().Done)
}

func TestProgressTracker_DoneAndStageReset(t *testing.T) {
	// Given: a tracker mid-stage
	p := NewProgressTracker()
	p.Report(0.3)

	// When: the done sentinel arrives
	p.Report(songs.ProgressDone)

	// Then: the stage is complete
	stats := p.Stats()
	assert.True(t, stats.Done)
	assert.InDelta(t, 1.0, stats.Progress, 1e-9)
	assert.Zero(t, stats.ETA)

	// When: a new stage begins
	p.SetStage(StageSyncing)

	// Then: progress restarts
	stats = p.Stats()
	assert.Equal(t, StageSyncing, stats.Stage)
	assert.False(t, stats.Done)
	assert.Zero(t, stats.Progress)
}

func TestProgressTracker_ETA(t *testing.T) {
	// Given: a stage that has been running for a while
	p := NewProgressTracker()
	p.stageStart = time.Now().Add(-10 * time.Second)

	// When: it is a quarter done
	p.Report(0.25)

	// Then: roughly three times the elapsed time remains
	eta := p.Stats().ETA
	assert.InDelta(t, (30 * time.Second).Seconds(), eta.Seconds(), 2)
}

func TestProgressTracker_Errors(t *testing.T) {
	// Given: a tracker
	p := NewProgressTracker()

	// When: errors and warnings are recorded
	p.AddError(ErrorEvent{Path: "a.txt", Err: errors.New("boom")})
	p.AddError(ErrorEvent{Path: "b.txt", Err: errors.New("meh"), IsWarn: true})

	// Then: they are kept apart and returned as copies
	assert.Len(t, p.Errors(), 1)
	assert.Len(t, p.Warnings(), 1)
	errs := p.Errors()
	errs[0].Path = "changed"
	assert.Equal(t, "a.txt", p.Errors()[0].Path)
}

func TestProgressTracker_Concurrent(t *testing.T) {
	// Given: a tracker shared by reporters and readers
	p := NewProgressTracker()
	var wg sync.WaitGroup

	// When: many goroutines report and read at once
	for i := range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := range 100 {
				p.Report(float64(i*100+j) / 800)
			}
		}()
		go func() {
			defer wg.Done()
			for range 100 {
				_ = p.Stats()
			}
		}()
	}
	wg.Wait()

	// Then: progress stays in range
	assert.LessOrEqual(t, p.Stats().Progress, 1.0)
}

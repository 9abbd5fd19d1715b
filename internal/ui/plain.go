package ui

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/Aman-CERP/songbook/internal/songs"
)

// plainStep is the percentage granularity of plain progress lines.
const plainStep = 10

// PlainRenderer outputs plain text progress (for CI/pipes).
type PlainRenderer struct {
	mu       sync.Mutex
	out      io.Writer
	tracker  *ProgressTracker
	lastStep int
	finished bool
}

var _ Renderer = (*PlainRenderer)(nil)

// NewPlainRenderer creates a plain text renderer.
func NewPlainRenderer(cfg Config) *PlainRenderer {
	return &PlainRenderer{
		out:     cfg.Output,
		tracker: NewProgressTracker(),
	}
}

// Start implements Renderer.
func (r *PlainRenderer) Start(ctx context.Context) error {
	return nil
}

// SetStage implements Renderer.
func (r *PlainRenderer) SetStage(stage Stage) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tracker.SetStage(stage)
	r.lastStep = 0
	r.finished = false
	_, _ = fmt.Fprintf(r.out, "[%s] %s...\n", stage.Icon(), stage)
}

// Report implements songs.ProgressReporter. A line is written each time
// progress crosses a new step and once when the stage finishes.
func (r *PlainRenderer) Report(fraction float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tracker.Report(fraction)
	stats := r.tracker.Stats()

	if fraction == songs.ProgressDone {
		if !r.finished {
			r.finished = true
			_, _ = fmt.Fprintf(r.out, "[%s] done\n", stats.Stage.Icon())
		}
		return
	}

	step := int(stats.Progress*100) / plainStep * plainStep
	if step <= r.lastStep {
		return
	}
	r.lastStep = step
	_, _ = fmt.Fprintf(r.out, "[%s] %3d%%\n", stats.Stage.Icon(), step)
}

// AddError implements Renderer.
func (r *PlainRenderer) AddError(event ErrorEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tracker.AddError(event)

	prefix := "ERROR"
	if event.IsWarn {
		prefix = "WARN"
	}
	if event.Path != "" {
		_, _ = fmt.Fprintf(r.out, "%s: %s: %v\n", prefix, event.Path, event.Err)
	} else {
		_, _ = fmt.Fprintf(r.out, "%s: %v\n", prefix, event.Err)
	}
}

// Complete implements Renderer.
func (r *PlainRenderer) Complete(stats CompletionStats) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tracker.SetStage(StageComplete)
	_, _ = fmt.Fprintln(r.out, completionLine(stats))
}

// Stop implements Renderer.
func (r *PlainRenderer) Stop() error {
	return nil
}

// completionLine renders the one-line summary shared by both renderers.
func completionLine(stats CompletionStats) string {
	line := fmt.Sprintf("Complete: %d songs", stats.Songs)
	if stats.Added+stats.Updated+stats.Removed > 0 {
		line += fmt.Sprintf(" (%d added, %d updated, %d removed)", stats.Added, stats.Updated, stats.Removed)
	}
	if stats.Duration > 0 {
		line += " in " + stats.Duration.Round(100*time.Millisecond).String()
	}
	if stats.Failed > 0 {
		line += fmt.Sprintf(", %d failed", stats.Failed)
	}
	return line
}

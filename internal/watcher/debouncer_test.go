package watcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receiveBatch(t *testing.T, d *Debouncer, timeout time.Duration) []FileEvent {
	t.Helper()
	select {
	case events := <-d.Output():
		return events
	case <-time.After(timeout):
		t.Fatal("timeout waiting for debounced events")
		return nil
	}
}

func TestDebouncer_SingleEventPassesThrough(t *testing.T) {
	// Given: a debouncer with a short window
	d := NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	// When: one event is added
	d.Add(FileEvent{Path: "grace.song", Operation: OpCreate})

	// Then: it arrives after the window
	events := receiveBatch(t, d, time.Second)
	require.Len(t, events, 1)
	assert.Equal(t, "grace.song", events[0].Path)
	assert.Equal(t, OpCreate, events[0].Operation)
}

func TestDebouncer_Coalescing(t *testing.T) {
	tests := []struct {
		name string
		ops  []Operation
		want []Operation
	}{
		{"modify bursts collapse", []Operation{OpModify, OpModify, OpModify}, []Operation{OpModify}},
		{"create then modify stays create", []Operation{OpCreate, OpModify}, []Operation{OpCreate}},
		{"modify then delete is delete", []Operation{OpModify, OpDelete}, []Operation{OpDelete}},
		{"delete then create is modify", []Operation{OpDelete, OpCreate}, []Operation{OpModify}},
		{"create then modify then delete cancels", []Operation{OpCreate, OpModify, OpDelete}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDebouncer(30 * time.Millisecond)
			defer d.Stop()

			for _, op := range tt.ops {
				d.Add(FileEvent{Path: "x.song", Operation: op})
			}

			if tt.want == nil {
				select {
				case events := <-d.Output():
					t.Fatalf("expected no events, got %v", events)
				case <-time.After(150 * time.Millisecond):
				}
				return
			}
			events := receiveBatch(t, d, time.Second)
			require.Len(t, events, 1)
			assert.Equal(t, tt.want[0], events[0].Operation)
		})
	}
}

func TestDebouncer_BatchSortedByPath(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	d.Add(FileEvent{Path: "c.song", Operation: OpCreate})
	d.Add(FileEvent{Path: "a.song", Operation: OpModify})
	d.Add(FileEvent{Path: "b.song", Operation: OpDelete})

	events := receiveBatch(t, d, time.Second)
	require.Len(t, events, 3)
	assert.Equal(t, "a.song", events[0].Path)
	assert.Equal(t, "b.song", events[1].Path)
	assert.Equal(t, "c.song", events[2].Path)
}

func TestDebouncer_StopClosesOutput(t *testing.T) {
	d := NewDebouncer(time.Second)
	d.Add(FileEvent{Path: "pending.song", Operation: OpCreate})

	d.Stop()
	d.Stop()
	d.Add(FileEvent{Path: "late.song", Operation: OpCreate})

	_, ok := <-d.Output()
	assert.False(t, ok)
}

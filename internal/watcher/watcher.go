package watcher

import (
	"errors"
	"time"
)

// Operation is the kind of change observed for a path.
type Operation int

const (
	// OpCreate is a new file.
	OpCreate Operation = iota
	// OpModify is a changed file.
	OpModify
	// OpDelete is a removed file. Renames are reported as a delete of the
	// old path followed by a create of the new one.
	OpDelete
)

func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// FileEvent is one observed change.
type FileEvent struct {
	// Path is relative to the watched root.
	Path      string
	Operation Operation
	IsDir     bool
	Timestamp time.Time
}

// Options configures a Watcher.
type Options struct {
	// DebounceWindow is how long a path must stay quiet before its
	// coalesced event is emitted. Default: 300ms
	DebounceWindow time.Duration

	// PollInterval is the scan interval in polling mode. Default: 2s
	PollInterval time.Duration

	// EventBufferSize is the capacity of the batch channel. Default: 100
	EventBufferSize int

	// Extensions limits events to files with these extensions. Empty
	// means every non-hidden file.
	Extensions []string

	// ForcePolling skips fsnotify.
	ForcePolling bool
}

// DefaultOptions returns the default watcher options.
func DefaultOptions() Options {
	return Options{
		DebounceWindow:  300 * time.Millisecond,
		PollInterval:    2 * time.Second,
		EventBufferSize: 100,
	}
}

// Validate rejects negative durations and sizes.
func (o Options) Validate() error {
	if o.DebounceWindow < 0 || o.PollInterval < 0 {
		return errors.New("watcher durations must not be negative")
	}
	if o.EventBufferSize < 0 {
		return errors.New("watcher buffer size must not be negative")
	}
	return nil
}

// WithDefaults returns o with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	defaults := DefaultOptions()
	if o.DebounceWindow == 0 {
		o.DebounceWindow = defaults.DebounceWindow
	}
	if o.PollInterval == 0 {
		o.PollInterval = defaults.PollInterval
	}
	if o.EventBufferSize == 0 {
		o.EventBufferSize = defaults.EventBufferSize
	}
	return o
}

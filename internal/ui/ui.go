// Package ui provides terminal progress and status display for songbook.
package ui

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/Aman-CERP/songbook/internal/songs"
)

// Stage is a phase of a long-running library operation.
type Stage int

const (
	// StageParsing reads song files from disk.
	StageParsing Stage = iota
	// StageLoading builds the song snapshot and search index.
	StageLoading
	// StageSyncing applies folder changes to the library.
	StageSyncing
	// StageComplete indicates the operation finished.
	StageComplete
)

var stageLabels = [...]struct{ name, tag string }{
	StageParsing:  {"Parsing", "PARSE"},
	StageLoading:  {"Loading", "LOAD"},
	StageSyncing:  {"Syncing", "SYNC"},
	StageComplete: {"Complete", "DONE"},
}

func (s Stage) known() bool { return s >= 0 && int(s) < len(stageLabels) }

// String returns the human-readable stage name.
func (s Stage) String() string {
	if !s.known() {
		return "Unknown"
	}
	return stageLabels[s].name
}

// Icon returns the short stage tag used in plain output.
func (s Stage) Icon() string {
	if !s.known() {
		return "???"
	}
	return stageLabels[s].tag
}

// ErrorEvent is a per-file problem surfaced during an operation.
type ErrorEvent struct {
	Path   string
	Err    error
	IsWarn bool
}

// CompletionStats summarizes a finished operation.
type CompletionStats struct {
	Songs    int
	Added    int
	Updated  int
	Removed  int
	Failed   int
	Duration time.Duration
}

// Renderer displays progress. It doubles as the Manager's progress
// reporter: Report receives fractions for the current stage, and
// songs.ProgressDone finishes the stage.
type Renderer interface {
	songs.ProgressReporter

	// Start initializes the renderer.
	Start(ctx context.Context) error

	// SetStage switches to stage and resets its progress.
	SetStage(stage Stage)

	// AddError records a per-file error or warning.
	AddError(event ErrorEvent)

	// Complete shows the final summary.
	Complete(stats CompletionStats)

	// Stop stops the renderer and cleans up.
	Stop() error
}

// Config configures the UI renderer.
type Config struct {
	Output     io.Writer
	ForcePlain bool
	NoColor    bool
	Title      string // header shown by the TUI, usually the library path
}

// ConfigOption adjusts a Config.
type ConfigOption func(*Config)

// WithForcePlain selects plain output even on a terminal.
func WithForcePlain(force bool) ConfigOption { return func(c *Config) { c.ForcePlain = force } }

// WithNoColor drops colors from the TUI.
func WithNoColor(noColor bool) ConfigOption { return func(c *Config) { c.NoColor = noColor } }

// WithTitle sets the TUI header, usually the library or folder path.
func WithTitle(title string) ConfigOption { return func(c *Config) { c.Title = title } }

// NewConfig builds a Config writing to output.
func NewConfig(output io.Writer, opts ...ConfigOption) Config {
	cfg := Config{Output: output}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// NewRenderer picks the TUI for an interactive terminal and plain lines
// everywhere else, including CI logs.
func NewRenderer(cfg Config) Renderer {
	if !cfg.ForcePlain && !DetectCI() {
		if tui, err := NewTUIRenderer(cfg); err == nil {
			return tui
		}
	}
	return NewPlainRenderer(cfg)
}

// IsTTY reports whether w is a terminal. Only *os.File can be one.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// DetectNoColor reports whether NO_COLOR is set, to any value.
func DetectNoColor() bool {
	_, set := os.LookupEnv("NO_COLOR")
	return set
}

// ciMarkers are environment variables set by common CI systems.
var ciMarkers = []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "BUILDKITE", "TRAVIS"}

// DetectCI reports whether a CI system is running us. CI=false does not
// count.
func DetectCI() bool {
	for _, name := range ciMarkers {
		if v, ok := os.LookupEnv(name); ok && v != "false" {
			return true
		}
	}
	return false
}

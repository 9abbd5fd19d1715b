package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// StatusInfo describes the health of a song library.
type StatusInfo struct {
	DataDir      string    `json:"data_dir"`
	StoreBackend string    `json:"store_backend"`
	IndexBackend string    `json:"index_backend"`
	Songs        int       `json:"songs"`
	Indexed      int       `json:"indexed"`
	LastModified time.Time `json:"last_modified"`

	// Storage sizes in bytes
	StoreSize int64 `json:"store_size"`
	IndexSize int64 `json:"index_size"`

	CachePolicy string `json:"cache_policy"`
	IndexFresh  bool   `json:"index_fresh"`
	Locked      bool   `json:"locked"` // another process holds the library
}

// StatusRenderer prints a StatusInfo for people or for scripts.
type StatusRenderer struct {
	out    io.Writer
	styles Styles
}

// NewStatusRenderer creates a status renderer.
func NewStatusRenderer(out io.Writer, noColor bool) *StatusRenderer {
	return &StatusRenderer{out: out, styles: GetStyles(noColor)}
}

// Render prints info as an indented report.
func (r *StatusRenderer) Render(info StatusInfo) error {
	var b strings.Builder
	b.WriteString(r.styles.Header.Render("Library: "+info.DataDir) + "\n\n")

	row := func(indent, label, value string) {
		fmt.Fprintf(&b, "%s%-15s%s\n", indent, label, value)
	}
	row("  ", "Songs:", strconv.Itoa(info.Songs))
	row("  ", "Indexed:", r.indexed(info))
	if !info.LastModified.IsZero() {
		row("  ", "Last modified:", formatTime(info.LastModified))
	}

	b.WriteString("\n  Storage:\n")
	fmt.Fprintf(&b, "    Records (%s): %s\n", info.StoreBackend, FormatBytes(info.StoreSize))
	fmt.Fprintf(&b, "    Index (%s):   %s\n\n", info.IndexBackend, FormatBytes(info.IndexSize))

	row("  ", "Cache policy:", info.CachePolicy)
	if info.Locked {
		row("  ", "Lock:", r.styles.Warning.Render("held by another process"))
	}

	_, err := io.WriteString(r.out, b.String())
	return err
}

// RenderJSON prints info as indented JSON.
func (r *StatusRenderer) RenderJSON(info StatusInfo) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(info)
}

func (r *StatusRenderer) indexed(info StatusInfo) string {
	n := strconv.Itoa(info.Indexed)
	if info.Indexed != info.Songs {
		return r.styles.Warning.Render(n + " (out of sync, run 'songbook check --repair')")
	}
	return r.styles.Success.Render(n)
}

// ageUnits drive formatTime, smallest first.
var ageUnits = []struct {
	limit time.Duration
	unit  time.Duration
	name  string
}{
	{time.Hour, time.Minute, "minute"},
	{24 * time.Hour, time.Hour, "hour"},
	{7 * 24 * time.Hour, 24 * time.Hour, "day"},
}

// formatTime describes t relative to now, falling back to a date after a
// week.
func formatTime(t time.Time) string {
	age := time.Since(t)
	if age < time.Minute {
		return "just now"
	}
	for _, u := range ageUnits {
		if age >= u.limit {
			continue
		}
		n := int(age / u.unit)
		if n == 1 {
			return "1 " + u.name + " ago"
		}
		return fmt.Sprintf("%d %ss ago", n, u.name)
	}
	return t.Format("2006-01-02 15:04")
}

// FormatBytes renders a byte count with a binary unit, e.g. "1.5 KB".
func FormatBytes(n int64) string {
	if n < 1024 {
		return fmt.Sprintf("%d B", n)
	}
	value := float64(n) / 1024
	for _, unit := range []string{"KB", "MB"} {
		if value < 1024 {
			return fmt.Sprintf("%.1f %s", value, unit)
		}
		value /= 1024
	}
	return fmt.Sprintf("%.1f GB", value)
}

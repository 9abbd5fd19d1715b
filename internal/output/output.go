// Package output provides consistent CLI output formatting for songs and
// status messages.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/Aman-CERP/songbook/internal/song"
	"github.com/Aman-CERP/songbook/internal/ui"
)

// Writer provides formatted output for CLI.
type Writer struct {
	out    io.Writer
	styles ui.Styles
}

// New creates a Writer. Color is used only on a terminal without NO_COLOR.
func New(out io.Writer) *Writer {
	return NewWithColor(out, ui.IsTTY(out) && !ui.DetectNoColor())
}

// NewWithColor creates a Writer with color forced on or off.
func NewWithColor(out io.Writer, color bool) *Writer {
	return &Writer{out: out, styles: ui.GetStyles(!color)}
}

// Status prints a status message with an icon.
// Errors from writing are intentionally ignored for console output.
func (w *Writer) Status(icon, msg string) {
	if icon != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
	} else {
		_, _ = fmt.Fprintf(w.out, "   %s\n", msg)
	}
}

// Statusf prints a formatted status message with an icon.
func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

// Success prints a success message with checkmark.
func (w *Writer) Success(msg string) {
	w.Status(w.styles.Success.Render("✓"), msg)
}

// Successf prints a formatted success message.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warning prints a warning message.
func (w *Writer) Warning(msg string) {
	w.Status(w.styles.Warning.Render("⚠"), msg)
}

// Warningf prints a formatted warning message.
func (w *Writer) Warningf(format string, args ...any) {
	w.Warning(fmt.Sprintf(format, args...))
}

// Error prints an error message.
func (w *Writer) Error(msg string) {
	w.Status(w.styles.Error.Render("✗"), msg)
}

// Errorf prints a formatted error message.
func (w *Writer) Errorf(format string, args ...any) {
	w.Error(fmt.Sprintf(format, args...))
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}

// SongRow prints a one-line listing entry: ID, title and author.
func (w *Writer) SongRow(v *song.View) {
	line := fmt.Sprintf("%s  %s", w.styles.SongID.Render(fmt.Sprintf("%6d", v.ID)), w.styles.SongTitle.Render(v.Title))
	if v.Author != "" {
		line += "  " + w.styles.SongAuthor.Render(v.Author)
	}
	_, _ = fmt.Fprintln(w.out, line)
}

// Song prints the full song: header fields, then each section.
func (w *Writer) Song(v *song.View) {
	_, _ = fmt.Fprintln(w.out, w.styles.SongTitle.Render(v.Title))

	fields := []struct{ label, value string }{
		{"ID", fmt.Sprint(v.ID)},
		{"Author", v.Author},
		{"CCLI", v.CCLI},
		{"Year", v.Year},
		{"Publisher", v.Publisher},
		{"Copyright", v.Copyright},
		{"Key", v.Key},
		{"Capo", v.Capo},
		{"Sequence", v.Sequence},
		{"Info", v.Info},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		_, _ = fmt.Fprintf(w.out, "%s %s\n", w.styles.Label.Render(fmt.Sprintf("%-10s", f.label+":")), f.value)
	}

	if len(v.Translations) > 0 {
		langs := make([]string, 0, len(v.Translations))
		for lang := range v.Translations {
			langs = append(langs, lang)
		}
		slices.Sort(langs)
		_, _ = fmt.Fprintf(w.out, "%s %s\n", w.styles.Label.Render(fmt.Sprintf("%-10s", "Languages:")), strings.Join(langs, ", "))
	}

	for _, s := range v.Sections {
		_, _ = fmt.Fprintln(w.out)
		if s.Title != "" {
			_, _ = fmt.Fprintln(w.out, w.styles.Section.Render(s.Title))
		}
		for _, line := range s.Lines {
			_, _ = fmt.Fprintln(w.out, line)
		}
	}
}

// JSON prints v as indented JSON.
func (w *Writer) JSON(v any) error {
	enc := json.NewEncoder(w.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

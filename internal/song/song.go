// Package song defines the song data model: the durable Record kept by the
// store, the display-oriented View derived from it, and the Theme attached
// to both.
package song

import (
	"cmp"
	"maps"
	"slices"
	"strings"
)

// Theme describes how a song is styled when displayed.
type Theme struct {
	Name       string `json:"name"`
	Font       string `json:"font"`
	FontColor  string `json:"font_color"`
	Background string `json:"background"`
}

// DefaultTheme returns the theme substituted when a song has none.
func DefaultTheme() *Theme {
	return &Theme{
		Name:       "Default",
		Font:       "Sans Serif",
		FontColor:  "#FFFFFF",
		Background: "#000000",
	}
}

// Clone returns a copy of t, or nil.
func (t *Theme) Clone() *Theme {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// Record is the durable, canonical form of a song as kept by a record store.
type Record struct {
	ID           int64             `json:"id"`
	Title        string            `json:"title"`
	Author       string            `json:"author,omitempty"`
	Lyrics       string            `json:"lyrics"` // EncodeSections form
	CCLI         string            `json:"ccli,omitempty"`
	Year         string            `json:"year,omitempty"`
	Publisher    string            `json:"publisher,omitempty"`
	Copyright    string            `json:"copyright,omitempty"`
	Key          string            `json:"key,omitempty"`
	Capo         string            `json:"capo,omitempty"`
	Info         string            `json:"info,omitempty"`
	Translations map[string]string `json:"translations,omitempty"`
	Sequence     string            `json:"sequence,omitempty"`
	Theme        *Theme            `json:"theme,omitempty"`

	// Err is set by a store adapter that could not decode the stored row.
	// Such records are returned rather than failing the whole fetch.
	Err error `json:"-"`
}

// Section is one titled block of lyrics, e.g. a verse or chorus.
type Section struct {
	Title string   `json:"title,omitempty"`
	Lines []string `json:"lines"`
	Theme *Theme   `json:"theme,omitempty"`
}

// View is the display form of a song: the record's attributes plus its
// lyrics split into ordered sections.
type View struct {
	ID           int64             `json:"id"`
	Title        string            `json:"title"`
	Author       string            `json:"author,omitempty"`
	CCLI         string            `json:"ccli,omitempty"`
	Year         string            `json:"year,omitempty"`
	Publisher    string            `json:"publisher,omitempty"`
	Copyright    string            `json:"copyright,omitempty"`
	Key          string            `json:"key,omitempty"`
	Capo         string            `json:"capo,omitempty"`
	Info         string            `json:"info,omitempty"`
	Translations map[string]string `json:"translations,omitempty"`
	Sequence     string            `json:"sequence,omitempty"`
	Theme        *Theme            `json:"theme,omitempty"`
	Sections     []Section         `json:"sections"`
}

// Clone returns a deep copy of v.
func (v *View) Clone() *View {
	c := *v
	c.Translations = maps.Clone(v.Translations)
	c.Theme = v.Theme.Clone()
	if v.Sections != nil {
		c.Sections = make([]Section, len(v.Sections))
		for i, s := range v.Sections {
			s.Lines = slices.Clone(s.Lines)
			s.Theme = s.Theme.Clone()
			c.Sections[i] = s
		}
	}
	return &c
}

// Lyrics renders the sections back into a lyrics body.
func (v *View) Lyrics() string {
	return RenderLyrics(v.Sections)
}

// SearchText returns the text the search index matches against.
func (v *View) SearchText() string {
	var sb strings.Builder
	sb.WriteString(v.Title)
	sb.WriteByte('\n')
	sb.WriteString(v.Author)
	for _, s := range v.Sections {
		for _, line := range s.Lines {
			sb.WriteByte('\n')
			sb.WriteString(line)
		}
	}
	return sb.String()
}

// Compare orders views by case-folded title, then author, then ID.
// IDs are unique, so this is a total order over stored songs.
func Compare(a, b *View) int {
	if c := cmp.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title)); c != 0 {
		return c
	}
	if c := cmp.Compare(strings.ToLower(a.Author), strings.ToLower(b.Author)); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// Sort orders views in place by Compare.
func Sort(views []*View) {
	slices.SortFunc(views, Compare)
}

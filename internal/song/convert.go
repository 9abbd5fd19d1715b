package song

import (
	"maps"

	sberrors "github.com/Aman-CERP/songbook/internal/errors"
)

// FromRecord materializes a view from a stored record. The record's theme,
// or the default when absent, is set on the view and on every section.
// Only a record that failed to decode yields a RecordCorrupt error; empty
// fields are carried over as they are.
func FromRecord(r *Record) (*View, error) {
	if r == nil {
		return nil, sberrors.RecordCorrupt(0, nil)
	}
	if r.Err != nil {
		return nil, sberrors.RecordCorrupt(r.ID, r.Err)
	}

	sections := DecodeSections(r.Lyrics)

	theme := r.Theme
	if theme == nil {
		theme = DefaultTheme()
	}
	for i := range sections {
		sections[i].Theme = theme
	}

	return &View{
		ID:           r.ID,
		Title:        r.Title,
		Author:       r.Author,
		CCLI:         r.CCLI,
		Year:         r.Year,
		Publisher:    r.Publisher,
		Copyright:    r.Copyright,
		Key:          r.Key,
		Capo:         r.Capo,
		Info:         r.Info,
		Translations: maps.Clone(r.Translations),
		Sequence:     r.Sequence,
		Theme:        theme,
		Sections:     sections,
	}, nil
}

// ToRecord builds a new record from a view.
func ToRecord(v *View) *Record {
	r := &Record{}
	ApplyToRecord(v, r)
	return r
}

// ApplyToRecord copies every mutable field of v onto r in place. The
// stored theme is the first section's theme, or the default.
func ApplyToRecord(v *View, r *Record) {
	r.ID = v.ID
	r.Title = v.Title
	r.Author = v.Author
	r.Lyrics = EncodeSections(v.Sections)
	r.CCLI = v.CCLI
	r.Year = v.Year
	r.Publisher = v.Publisher
	r.Copyright = v.Copyright
	r.Key = v.Key
	r.Capo = v.Capo
	r.Info = v.Info
	r.Translations = maps.Clone(v.Translations)
	r.Sequence = v.Sequence
	r.Theme = resolveTheme(v)
	r.Err = nil
}

func resolveTheme(v *View) *Theme {
	if len(v.Sections) > 0 && v.Sections[0].Theme != nil {
		return v.Sections[0].Theme.Clone()
	}
	return DefaultTheme()
}

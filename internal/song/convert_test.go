package song

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sberrors "github.com/Aman-CERP/songbook/internal/errors"
)

func sampleRecord() *Record {
	return &Record{
		ID:           7,
		Title:        "Amazing Grace",
		Author:       "John Newton",
		Lyrics:       "Verse 1\nAmazing grace\n\nVerse 2\nT'was grace",
		CCLI:         "22025",
		Year:         "1779",
		Key:          "G",
		Capo:         "2",
		Translations: map[string]string{"de": "Erstaunliche Gnade"},
		Sequence:     "V1 V2",
	}
}

func TestFromRecord_SubstitutesDefaultTheme(t *testing.T) {
	// Given: a record without a theme
	rec := sampleRecord()

	// When: materializing it
	v, err := FromRecord(rec)

	// Then: the default theme is on the view and every section
	require.NoError(t, err)
	require.Len(t, v.Sections, 2)
	assert.Equal(t, DefaultTheme(), v.Theme)
	for _, s := range v.Sections {
		assert.Equal(t, DefaultTheme(), s.Theme)
	}
	assert.Equal(t, "Amazing Grace", v.Title)
	assert.Equal(t, "22025", v.CCLI)
	assert.Equal(t, "Erstaunliche Gnade", v.Translations["de"])
}

func TestFromRecord_PropagatesRecordTheme(t *testing.T) {
	rec := sampleRecord()
	rec.Theme = &Theme{Name: "Blue", Background: "#0000FF"}

	v, err := FromRecord(rec)

	require.NoError(t, err)
	assert.Equal(t, "Blue", v.Sections[1].Theme.Name)
}

func TestFromRecord_RejectsCorruptRecords(t *testing.T) {
	tests := []struct {
		name string
		rec  *Record
	}{
		{"nil", nil},
		{"decode error", &Record{ID: 1, Err: errors.New("bad json")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromRecord(tt.rec)
			require.Error(t, err)
			assert.True(t, sberrors.HasCode(err, sberrors.ErrCodeRecordCorrupt))
		})
	}
}

func TestFromRecord_KeepsEmptyFields(t *testing.T) {
	// Given: records that decoded fine but have no title or no lyrics
	for _, rec := range []*Record{
		{ID: 2, Lyrics: "line"},
		{ID: 3, Title: "Empty"},
	} {
		// When: materializing them
		v, err := FromRecord(rec)

		// Then: they are views, not corrupt records
		require.NoError(t, err)
		assert.Equal(t, rec.ID, v.ID)
		assert.Equal(t, rec.Title, v.Title)
	}
}

func TestFromRecord_CopiesTranslations(t *testing.T) {
	rec := sampleRecord()
	v, err := FromRecord(rec)
	require.NoError(t, err)

	v.Translations["fr"] = "Grâce étonnante"

	assert.NotContains(t, rec.Translations, "fr")
}

func TestToRecord_RoundTrip(t *testing.T) {
	// Given: a view built from a record
	v, err := FromRecord(sampleRecord())
	require.NoError(t, err)

	// When: converting back and forth
	again, err := FromRecord(ToRecord(v))

	// Then: the views are equal
	require.NoError(t, err)
	assert.Equal(t, v, again)
}

func TestToRecord_UsesFirstSectionTheme(t *testing.T) {
	v := &View{Title: "T", Sections: []Section{{Lines: []string{"x"}, Theme: &Theme{Name: "Dark"}}}}
	assert.Equal(t, "Dark", ToRecord(v).Theme.Name)

	v.Sections[0].Theme = nil
	assert.Equal(t, DefaultTheme(), ToRecord(v).Theme)
}

func TestApplyToRecord_UpdatesInPlace(t *testing.T) {
	rec := sampleRecord()
	rec.Err = errors.New("stale")
	v := &View{ID: 7, Title: "New Title", Sections: []Section{{Title: "Chorus", Lines: []string{"la"}}}}

	ApplyToRecord(v, rec)

	assert.Equal(t, int64(7), rec.ID)
	assert.Equal(t, "New Title", rec.Title)
	assert.Equal(t, v.Sections, DecodeSections(rec.Lyrics))
	assert.Empty(t, rec.CCLI)
	assert.NoError(t, rec.Err)
}

func TestToRecord_KeepsUnusualSections(t *testing.T) {
	// Given: sections the plain lyrics format cannot express
	v := &View{Title: "T", Sections: []Section{
		{Title: "Pre Chorus", Lines: []string{"a"}},
		{Title: "Solo"},
		{Lines: []string{"Chorus", "b"}},
	}}

	// When: storing and materializing
	got, err := FromRecord(ToRecord(v))

	// Then: titles, lines and the empty section survive
	require.NoError(t, err)
	require.Len(t, got.Sections, 3)
	for i, want := range v.Sections {
		assert.Equal(t, want.Title, got.Sections[i].Title)
		assert.Equal(t, want.Lines, got.Sections[i].Lines)
	}
}

package song

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLyrics_SplitsOnBlankLines(t *testing.T) {
	lyrics := "Verse 1\nAmazing grace\nHow sweet the sound\n\n\nChorus:\nMy chains are gone\n\nno label here\nsecond line"

	sections := ParseLyrics(lyrics)

	require.Len(t, sections, 3)
	assert.Equal(t, "Verse 1", sections[0].Title)
	assert.Equal(t, []string{"Amazing grace", "How sweet the sound"}, sections[0].Lines)
	assert.Equal(t, "Chorus", sections[1].Title)
	assert.Equal(t, []string{"My chains are gone"}, sections[1].Lines)
	assert.Empty(t, sections[2].Title)
	assert.Equal(t, []string{"no label here", "second line"}, sections[2].Lines)
}

func TestParseLyrics_EmptyAndLabelOnly(t *testing.T) {
	assert.Empty(t, ParseLyrics(""))
	assert.Empty(t, ParseLyrics("   \n\n\t\n"))
	assert.Empty(t, ParseLyrics("Chorus\n\nVerse 2"))
}

func TestParseLyrics_HandlesCRLF(t *testing.T) {
	sections := ParseLyrics("Bridge\r\nline one\r\n\r\nline two")
	require.Len(t, sections, 2)
	assert.Equal(t, "Bridge", sections[0].Title)
	assert.Equal(t, []string{"line one"}, sections[0].Lines)
}

func TestRenderLyrics_IsStableUnderReparse(t *testing.T) {
	lyrics := "Verse 1\nline a\nline b\n\nChorus\nline c\n\nline d"

	rendered := RenderLyrics(ParseLyrics(lyrics))

	assert.Equal(t, lyrics, rendered)
	assert.Equal(t, ParseLyrics(lyrics), ParseLyrics(rendered))
}

func TestIsSectionTitle(t *testing.T) {
	for _, s := range []string{"Verse", "verse 12", "CHORUS", "Pre-Chorus 2:", " Bridge ", "[Solo]"} {
		assert.True(t, IsSectionTitle(s), s)
	}
	for _, s := range []string{"Versed in love", "Chorus of angels", ""} {
		assert.False(t, IsSectionTitle(s), s)
	}
}

func TestRenderLyrics_BracketsFreeFormTitles(t *testing.T) {
	sections := []Section{
		{Title: "Verse 1", Lines: []string{"a"}},
		{Title: "Pre Chorus", Lines: []string{"b"}},
	}

	rendered := RenderLyrics(sections)

	assert.Equal(t, "Verse 1\na\n\n[Pre Chorus]\nb", rendered)
	assert.Equal(t, sections, ParseLyrics(rendered))
}

func TestEncodeSections_RoundTrip(t *testing.T) {
	// Given: sections with free-form titles, an empty section and blank lines
	sections := []Section{
		{Title: "Pre Chorus", Lines: []string{"a"}},
		{Title: "Solo"},
		{Lines: []string{"Chorus", "", "  b  "}},
	}

	// When: encoding and decoding
	got := DecodeSections(EncodeSections(sections))

	// Then: nothing is lost or reinterpreted
	assert.Equal(t, sections, got)
}

func TestDecodeSections_PlainLyrics(t *testing.T) {
	assert.Nil(t, DecodeSections(EncodeSections(nil)))
	assert.Nil(t, DecodeSections(""))

	// Plain text, including text that starts with a bracketed title
	got := DecodeSections("[Intro]\nhum\n\nVerse 1\nline")
	require.Len(t, got, 2)
	assert.Equal(t, "Intro", got[0].Title)
	assert.Equal(t, []string{"hum"}, got[0].Lines)
	assert.Equal(t, "Verse 1", got[1].Title)
}

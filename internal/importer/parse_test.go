package importer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sberrors "github.com/Aman-CERP/songbook/internal/errors"
	"github.com/Aman-CERP/songbook/internal/song"
)

const amazingGrace = `Amazing Grace
Author: John Newton
CCLI: 22025
Key: G
Sequence: V1 V2
Translation-es: Sublime gracia
Translation-es: del Señor
Tempo: slow

Verse 1
Amazing grace how sweet the sound
That saved a wretch like me

Verse 2:
'Twas grace that taught my heart to fear
`

func TestParse_FullSong(t *testing.T) {
	v, err := Parse(strings.NewReader(amazingGrace))
	require.NoError(t, err)

	assert.Equal(t, "Amazing Grace", v.Title)
	assert.Equal(t, "John Newton", v.Author)
	assert.Equal(t, "22025", v.CCLI)
	assert.Equal(t, "G", v.Key)
	assert.Equal(t, "V1 V2", v.Sequence)
	assert.Equal(t, map[string]string{"es": "Sublime gracia\ndel Señor"}, v.Translations)

	require.Len(t, v.Sections, 2)
	assert.Equal(t, "Verse 1", v.Sections[0].Title)
	assert.Equal(t, []string{"Amazing grace how sweet the sound", "That saved a wretch like me"}, v.Sections[0].Lines)
	assert.Equal(t, "Verse 2", v.Sections[1].Title)
}

func TestParse_NoHeaderBlock(t *testing.T) {
	// Given: lyrics start right after the title
	v, err := Parse(strings.NewReader("\n\nShort Song\nChorus\nla la sing\n\nVerse 1\nwords"))
	require.NoError(t, err)

	assert.Equal(t, "Short Song", v.Title)
	require.Len(t, v.Sections, 2)
	assert.Equal(t, "Chorus", v.Sections[0].Title)
	assert.Equal(t, []string{"la la sing"}, v.Sections[0].Lines)
}

func TestParse_Errors(t *testing.T) {
	tests := map[string]string{
		"empty":     "",
		"blank":     "\n\n  \n",
		"no lyrics": "Title Only\nAuthor: Someone\n\n",
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(input))
			assert.True(t, sberrors.HasCode(err, sberrors.ErrCodeSongFormat), "got %v", err)
		})
	}
}

func TestParse_HandlesCRLFAndBOM(t *testing.T) {
	v, err := Parse(strings.NewReader("\ufeffHymn\r\nAuthor: A\r\n\r\nline one\r\nline two\r\n"))
	require.NoError(t, err)

	assert.Equal(t, "Hymn", v.Title)
	assert.Equal(t, "A", v.Author)
	require.Len(t, v.Sections, 1)
	assert.Equal(t, []string{"line one", "line two"}, v.Sections[0].Lines)
}

func TestRender_RoundTrip(t *testing.T) {
	in := &song.View{
		Title:        "Be Still My Soul",
		Author:       "Katharina von Schlegel",
		Copyright:    "Public Domain",
		Capo:         "2",
		Translations: map[string]string{"de": "Stille, mein Wille", "fr": "Calme"},
		Sections: []song.Section{
			{Title: "Verse 1", Lines: []string{"Be still my soul", "The Lord is on thy side"}},
			{Title: "Chorus", Lines: []string{"Hold on"}},
		},
	}

	out, err := Parse(strings.NewReader(Render(in)))
	require.NoError(t, err)

	assert.Equal(t, in.Title, out.Title)
	assert.Equal(t, in.Author, out.Author)
	assert.Equal(t, in.Copyright, out.Copyright)
	assert.Equal(t, in.Capo, out.Capo)
	assert.Equal(t, in.Translations, out.Translations)
	assert.Equal(t, in.Sections, out.Sections)
}

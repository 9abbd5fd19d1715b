// Package importer reads song text files into the library and keeps a
// watched folder in sync with it.
//
// A song file starts with the title on its first line, followed by
// optional "Key: value" header lines. After the first blank line comes the
// lyrics body, split into sections by blank lines:
//
//	Amazing Grace
//	Author: John Newton
//	CCLI: 22025
//
//	Verse 1
//	Amazing grace how sweet the sound
//	That saved a wretch like me
package importer

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	sberrors "github.com/Aman-CERP/songbook/internal/errors"
	"github.com/Aman-CERP/songbook/internal/song"
)

// headerFields maps lower-cased header keys to the view field they set.
var headerFields = map[string]func(v *song.View, value string){
	"author":    func(v *song.View, s string) { v.Author = s },
	"ccli":      func(v *song.View, s string) { v.CCLI = s },
	"year":      func(v *song.View, s string) { v.Year = s },
	"publisher": func(v *song.View, s string) { v.Publisher = s },
	"copyright": func(v *song.View, s string) { v.Copyright = s },
	"key":       func(v *song.View, s string) { v.Key = s },
	"capo":      func(v *song.View, s string) { v.Capo = s },
	"info":      func(v *song.View, s string) { v.Info = s },
	"sequence":  func(v *song.View, s string) { v.Sequence = s },
}

// translationPrefix introduces a header carrying one line of a
// translation, e.g. "Translation-es: Sublime gracia". Repeated keys append
// lines; blank lines are not representable.
const translationPrefix = "translation-"

// Parse reads one song. Unknown header keys are ignored. A missing title
// or an empty lyrics body is an ERR_407_SONG_FORMAT error.
func Parse(r io.Reader) (*song.View, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	v := &song.View{}
	var body []string
	inHeader, sawTitle := true, false
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), " \t\r")
		switch {
		case !sawTitle:
			if strings.TrimSpace(line) == "" {
				continue
			}
			v.Title = strings.TrimSpace(strings.TrimPrefix(line, "\ufeff"))
			sawTitle = true
		case inHeader && strings.TrimSpace(line) == "":
			inHeader = false
		case inHeader:
			key, value, ok := parseKeyValue(line)
			if !ok {
				// No header block; the body starts right after the title.
				inHeader = false
				body = append(body, line)
				continue
			}
			applyHeader(v, key, value)
		default:
			body = append(body, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, sberrors.IOError("failed to read song file", err)
	}

	if v.Title == "" {
		return nil, sberrors.New(sberrors.ErrCodeSongFormat, "song file has no title", nil)
	}
	v.Sections = song.ParseLyrics(strings.Join(body, "\n"))
	if len(v.Sections) == 0 {
		return nil, sberrors.New(sberrors.ErrCodeSongFormat, "song file has no lyrics", nil).
			WithDetail("title", v.Title)
	}
	return v, nil
}

func parseKeyValue(line string) (key, value string, ok bool) {
	key, value, ok = strings.Cut(line, ":")
	if !ok {
		return "", "", false
	}
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" || strings.ContainsAny(key, " \t") || song.IsSectionTitle(line) {
		return "", "", false
	}
	return key, strings.TrimSpace(value), true
}

func applyHeader(v *song.View, key, value string) {
	if set, ok := headerFields[key]; ok {
		set(v, value)
		return
	}
	if lang, ok := strings.CutPrefix(key, translationPrefix); ok && lang != "" {
		if v.Translations == nil {
			v.Translations = map[string]string{}
		}
		if prev := v.Translations[lang]; prev != "" {
			value = prev + "\n" + value
		}
		v.Translations[lang] = value
	}
}

// Render writes v in the song file format. Parse(Render(v)) yields the
// same title, headers, translations and sections.
func Render(v *song.View) string {
	var sb strings.Builder
	sb.WriteString(v.Title)
	sb.WriteByte('\n')

	header := func(key, value string) {
		if value != "" {
			fmt.Fprintf(&sb, "%s: %s\n", key, value)
		}
	}
	header("Author", v.Author)
	header("CCLI", v.CCLI)
	header("Year", v.Year)
	header("Publisher", v.Publisher)
	header("Copyright", v.Copyright)
	header("Key", v.Key)
	header("Capo", v.Capo)
	header("Info", v.Info)
	header("Sequence", v.Sequence)

	langs := make([]string, 0, len(v.Translations))
	for lang := range v.Translations {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	for _, lang := range langs {
		for _, line := range strings.Split(v.Translations[lang], "\n") {
			header("Translation-"+lang, line)
		}
	}

	sb.WriteByte('\n')
	sb.WriteString(v.Lyrics())
	sb.WriteByte('\n')
	return sb.String()
}

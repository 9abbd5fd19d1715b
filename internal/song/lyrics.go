package song

import (
	"encoding/json"
	"regexp"
	"strings"
)

// sectionTitle matches the lines songwriters use to label a block.
var sectionTitle = regexp.MustCompile(`(?i)^(verse|chorus|pre-chorus|prechorus|bridge|refrain|tag|intro|outro|ending|interlude|coda|vamp)(\s*\d+)?\s*:?$`)

// IsSectionTitle reports whether line labels a lyrics block: a known label
// such as "Verse 2", or any text in square brackets.
func IsSectionTitle(line string) bool {
	line = strings.TrimSpace(line)
	return sectionTitle.MatchString(line) || isBracketed(line)
}

func isBracketed(line string) bool {
	return len(line) >= 2 && line[0] == '[' && line[len(line)-1] == ']'
}

// titleText strips the label decoration from a title line.
func titleText(line string) string {
	line = strings.TrimSpace(line)
	if isBracketed(line) {
		return strings.TrimSpace(line[1 : len(line)-1])
	}
	return strings.TrimSuffix(line, ":")
}

// ParseLyrics splits a lyrics body into sections. Blocks are separated by
// one or more blank lines; a block whose first line is a label such as
// "Verse 2" or "Chorus" takes it as its title. Blocks left empty after
// removing the label are dropped.
func ParseLyrics(lyrics string) []Section {
	lyrics = strings.ReplaceAll(lyrics, "\r\n", "\n")

	var sections []Section
	var current []string
	flush := func() {
		if len(current) == 0 {
			return
		}
		sec := Section{}
		if IsSectionTitle(current[0]) {
			sec.Title = titleText(current[0])
			current = current[1:]
		}
		if len(current) > 0 {
			sec.Lines = current
			sections = append(sections, sec)
		}
		current = nil
	}

	for _, line := range strings.Split(lyrics, "\n") {
		line = strings.TrimRight(line, " \t")
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()

	return sections
}

// RenderLyrics joins sections back into a lyrics body, the inverse of
// ParseLyrics for well-formed input. Titles that are not known labels are
// written in square brackets.
func RenderLyrics(sections []Section) string {
	blocks := make([]string, 0, len(sections))
	for _, s := range sections {
		lines := s.Lines
		if s.Title != "" {
			title := s.Title
			if !sectionTitle.MatchString(title) {
				title = "[" + title + "]"
			}
			lines = append([]string{title}, lines...)
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}
	return strings.Join(blocks, "\n\n")
}

// storedSection is the persisted form of a Section. The theme lives on the
// record, not on each section.
type storedSection struct {
	Title string   `json:"title,omitempty"`
	Lines []string `json:"lines,omitempty"`
}

// EncodeSections serializes sections for the record's lyrics field. Every
// title, line and empty section survives DecodeSections unchanged.
func EncodeSections(sections []Section) string {
	stored := make([]storedSection, len(sections))
	for i, s := range sections {
		stored[i] = storedSection{Title: s.Title, Lines: s.Lines}
	}
	// Strings and string slices always marshal.
	data, _ := json.Marshal(stored)
	return string(data)
}

// DecodeSections is the inverse of EncodeSections. A body that is not an
// encoded section list is plain lyrics text and goes through ParseLyrics.
func DecodeSections(lyrics string) []Section {
	if !strings.HasPrefix(strings.TrimSpace(lyrics), "[") {
		return ParseLyrics(lyrics)
	}
	var stored []storedSection
	if err := json.Unmarshal([]byte(lyrics), &stored); err != nil {
		return ParseLyrics(lyrics)
	}
	if len(stored) == 0 {
		return nil
	}
	sections := make([]Section, len(stored))
	for i, s := range stored {
		sections[i] = Section{Title: s.Title, Lines: s.Lines}
	}
	return sections
}

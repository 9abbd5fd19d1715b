package store

import (
	"regexp"
	"strings"
)

// wordRegex matches runs of letters and digits in any script, allowing
// inner apostrophes ("don't", "o'er").
var wordRegex = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}\p{N}]+)*`)

// TokenizeLyrics splits text into lowercase words. Apostrophes are removed
// so "don't" and "dont" match. Tokens shorter than minLen are dropped.
func TokenizeLyrics(text string, minLen int) []string {
	words := wordRegex.FindAllString(text, -1)
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(stripApostrophes(w))
		if len([]rune(w)) >= minLen {
			tokens = append(tokens, w)
		}
	}
	return tokens
}

func stripApostrophes(s string) string {
	if !strings.ContainsAny(s, "'’") {
		return s
	}
	return strings.NewReplacer("'", "", "’", "").Replace(s)
}

// FilterStopWords removes stop words from a token list.
func FilterStopWords(tokens []string, stopWords map[string]struct{}) []string {
	result := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if _, isStop := stopWords[strings.ToLower(token)]; !isStop {
			result = append(result, token)
		}
	}
	return result
}

// BuildStopWordMap converts a slice of stop words to a lookup set.
func BuildStopWordMap(stopWords []string) map[string]struct{} {
	m := make(map[string]struct{}, len(stopWords))
	for _, word := range stopWords {
		m[strings.ToLower(word)] = struct{}{}
	}
	return m
}

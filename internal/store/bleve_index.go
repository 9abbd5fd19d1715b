package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"
	"github.com/blevesearch/bleve/v2/search"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/Aman-CERP/songbook/internal/song"
)

const (
	// LyricTokenizerName is the registered name of the lyric tokenizer.
	LyricTokenizerName = "lyric_tokenizer"

	// LyricStopFilterName is the registered name of the lyric stop filter.
	LyricStopFilterName = "lyric_stop"

	// LyricAnalyzerName is the analyzer used for every song field.
	LyricAnalyzerName = "lyric_analyzer"
)

func init() {
	_ = registry.RegisterTokenizer(LyricTokenizerName, lyricTokenizerConstructor)
	_ = registry.RegisterTokenFilter(LyricStopFilterName, lyricStopFilterConstructor)
}

// BleveSongIndex is a SongIndex backed by Bleve v2.
type BleveSongIndex struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	config IndexConfig
	closed bool
}

// bleveSong is the document shape stored in Bleve.
type bleveSong struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	Lyrics string `json:"lyrics"`
}

var _ SongIndex = (*BleveSongIndex)(nil)

// validateBleveIntegrity checks that an existing index directory has a
// readable index_meta.json. A missing directory is valid.
func validateBleveIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	metaPath := filepath.Join(path, "index_meta.json")
	data, err := os.ReadFile(metaPath)
	if os.IsNotExist(err) {
		return fmt.Errorf("index_meta.json missing (corrupted index)")
	}
	if err != nil {
		return fmt.Errorf("cannot read index_meta.json: %w", err)
	}
	if len(data) == 0 {
		return fmt.Errorf("index_meta.json is empty (corrupted)")
	}

	var meta map[string]any
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("index_meta.json is corrupt: %w", err)
	}
	return nil
}

// isBleveCorruption reports whether an open error means the on-disk index
// is damaged rather than merely absent.
func isBleveCorruption(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, bleve.ErrorIndexMetaCorrupt) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "unexpected end of JSON") ||
		strings.Contains(msg, "error parsing mapping JSON") ||
		strings.Contains(msg, "failed to load segment")
}

// NewBleveSongIndex opens or creates a Bleve index at path. An empty path
// creates an in-memory index. A corrupted index is discarded and recreated
// empty; the Manager's freshness flag repopulates it on the next load.
func NewBleveSongIndex(path string, config IndexConfig) (*BleveSongIndex, error) {
	indexMapping, err := createSongMapping()
	if err != nil {
		return nil, fmt.Errorf("failed to create index mapping: %w", err)
	}

	var idx bleve.Index
	if path == "" {
		idx, err = bleve.NewMemOnly(indexMapping)
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
		}

		if validErr := validateBleveIntegrity(path); validErr != nil {
			slog.Warn("bleve_index_corrupted",
				slog.String("path", path),
				slog.String("error", validErr.Error()))
			if removeErr := os.RemoveAll(path); removeErr != nil {
				return nil, fmt.Errorf("search index corrupted at %s and cannot remove: %w (original error: %v)", path, removeErr, validErr)
			}
		}

		idx, err = bleve.Open(path)
		if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
			idx, err = bleve.New(path, indexMapping)
		} else if isBleveCorruption(err) {
			slog.Warn("bleve_index_open_failed",
				slog.String("path", path),
				slog.String("error", err.Error()))
			if removeErr := os.RemoveAll(path); removeErr != nil {
				return nil, fmt.Errorf("search index corrupted, cannot clear: %w (original: %v)", removeErr, err)
			}
			idx, err = bleve.New(path, indexMapping)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create/open index: %w", err)
	}

	if config.MinTokenLength <= 0 {
		config.MinTokenLength = DefaultIndexConfig().MinTokenLength
	}
	return &BleveSongIndex{index: idx, path: path, config: config}, nil
}

// createSongMapping maps title, author and lyrics through the lyric analyzer.
func createSongMapping() (*mapping.IndexMappingImpl, error) {
	indexMapping := bleve.NewIndexMapping()

	err := indexMapping.AddCustomAnalyzer(LyricAnalyzerName, map[string]any{
		"type":      custom.Name,
		"tokenizer": LyricTokenizerName,
		"token_filters": []string{
			lowercase.Name,
			LyricStopFilterName,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add custom analyzer: %w", err)
	}

	indexMapping.DefaultAnalyzer = LyricAnalyzerName
	return indexMapping, nil
}

func docID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func toBleveSong(v *song.View) bleveSong {
	var lines []string
	for _, s := range v.Sections {
		lines = append(lines, s.Lines...)
	}
	return bleveSong{Title: v.Title, Author: v.Author, Lyrics: strings.Join(lines, "\n")}
}

// Add indexes one song, replacing any previous entry.
func (b *BleveSongIndex) Add(ctx context.Context, v *song.View) error {
	return b.AddAll(ctx, []*song.View{v})
}

// AddAll indexes songs in one batch.
func (b *BleveSongIndex) AddAll(ctx context.Context, views []*song.View) error {
	if len(views) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("index is closed")
	}

	batch := b.index.NewBatch()
	for _, v := range views {
		if err := batch.Index(docID(v.ID), toBleveSong(v)); err != nil {
			return fmt.Errorf("failed to index song %d: %w", v.ID, err)
		}
	}
	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to execute batch: %w", err)
	}
	return nil
}

// Remove drops a song from the index. Removing an absent song is a no-op.
func (b *BleveSongIndex) Remove(ctx context.Context, v *song.View) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("index is closed")
	}
	return b.index.Delete(docID(v.ID))
}

// Clear deletes every indexed song.
func (b *BleveSongIndex) Clear(ctx context.Context) error {
	ids, err := b.AllIDs()
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("index is closed")
	}

	batch := b.index.NewBatch()
	for _, id := range ids {
		batch.Delete(docID(id))
	}
	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to clear index: %w", err)
	}
	return nil
}

// Search matches query against title, author and lyrics. Title matches
// are boosted.
func (b *BleveSongIndex) Search(ctx context.Context, queryStr string, limit int) ([]*SearchResult, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, fmt.Errorf("index is closed")
	}
	if strings.TrimSpace(queryStr) == "" {
		return []*SearchResult{}, nil
	}

	fieldQuery := func(field string, boost float64) query.Query {
		q := bleve.NewMatchQuery(queryStr)
		q.SetField(field)
		q.SetBoost(boost)
		return q
	}
	q := bleve.NewDisjunctionQuery(
		fieldQuery("title", 3),
		fieldQuery("author", 1.5),
		fieldQuery("lyrics", 1),
	)

	req := bleve.NewSearchRequest(q)
	req.Size = limit
	req.IncludeLocations = true

	result, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	results := make([]*SearchResult, 0, len(result.Hits))
	for _, hit := range result.Hits {
		id, err := strconv.ParseInt(hit.ID, 10, 64)
		if err != nil {
			continue
		}
		results = append(results, &SearchResult{
			SongID:       id,
			Score:        hit.Score,
			MatchedTerms: matchedTerms(hit),
		})
	}
	return results, nil
}

// AllIDs returns every indexed song ID.
func (b *BleveSongIndex) AllIDs() ([]int64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, fmt.Errorf("index is closed")
	}

	docCount, err := b.index.DocCount()
	if err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}

	req := bleve.NewSearchRequest(bleve.NewMatchAllQuery())
	req.Size = int(docCount)
	req.Fields = []string{}

	result, err := b.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("failed to search for all IDs: %w", err)
	}

	ids := make([]int64, 0, len(result.Hits))
	for _, hit := range result.Hits {
		if id, err := strconv.ParseInt(hit.ID, 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Count returns the number of indexed songs.
func (b *BleveSongIndex) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return 0
	}
	n, _ := b.index.DocCount()
	return int(n)
}

// Close closes the index. Safe to call more than once.
func (b *BleveSongIndex) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	return b.index.Close()
}

func matchedTerms(hit *search.DocumentMatch) []string {
	seen := make(map[string]struct{})
	for _, locations := range hit.Locations {
		for term := range locations {
			seen[term] = struct{}{}
		}
	}
	terms := make([]string, 0, len(seen))
	for term := range seen {
		terms = append(terms, term)
	}
	return terms
}

func lyricTokenizerConstructor(config map[string]any, cache *registry.Cache) (analysis.Tokenizer, error) {
	return &bleveLyricTokenizer{minLen: DefaultIndexConfig().MinTokenLength}, nil
}

// bleveLyricTokenizer adapts TokenizeLyrics to Bleve, keeping byte offsets.
type bleveLyricTokenizer struct {
	minLen int
}

func (t *bleveLyricTokenizer) Tokenize(input []byte) analysis.TokenStream {
	locs := wordRegex.FindAllIndex(input, -1)
	result := make(analysis.TokenStream, 0, len(locs))
	pos := 1
	for _, loc := range locs {
		word := strings.ToLower(stripApostrophes(string(input[loc[0]:loc[1]])))
		if len([]rune(word)) < t.minLen {
			continue
		}
		result = append(result, &analysis.Token{
			Term:     []byte(word),
			Start:    loc[0],
			End:      loc[1],
			Position: pos,
			Type:     analysis.AlphaNumeric,
		})
		pos++
	}
	return result
}

func lyricStopFilterConstructor(config map[string]any, cache *registry.Cache) (analysis.TokenFilter, error) {
	return &bleveLyricStopFilter{stopWords: BuildStopWordMap(DefaultLyricStopWords)}, nil
}

type bleveLyricStopFilter struct {
	stopWords map[string]struct{}
}

func (f *bleveLyricStopFilter) Filter(input analysis.TokenStream) analysis.TokenStream {
	result := make(analysis.TokenStream, 0, len(input))
	for _, token := range input {
		if _, isStop := f.stopWords[string(token.Term)]; !isStop {
			result = append(result, token)
		}
	}
	return result
}

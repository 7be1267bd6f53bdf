package symbols

import (
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/hbollon/go-edlib"
	"github.com/surgebase/porter2"
)

// Scoring weights for workspace symbol queries. Exact beats prefix beats
// substring beats stem beats fuzzy; ties break on name then uri.
const (
	scoreExact     = 100.0
	scorePrefix    = 80.0
	scoreSubstring = 60.0
	scoreWord      = 50.0
	scoreStem      = 40.0
	scoreFuzzy     = 30.0

	fuzzyThreshold = 0.72
	minStemLength  = 3
)

// SuffixEntry is one searchable symbol with its pre-computed name splits and
// stems. Splitting and stemming happen at index time, not query time.
type SuffixEntry struct {
	Info  SymbolInfo
	URI   string
	lower string
	words []string
	stems []string
}

// SearchResult is a scored match from a workspace symbol query.
type SearchResult struct {
	Entry SuffixEntry
	Score float64
}

// SuffixIndex answers workspace-wide symbol queries: exact and prefix
// matches first, then camelCase/snake_case word matches, porter2 stem
// matches, and finally fuzzy matches. Entries are owned per uri so a
// re-index can swap one document's contribution atomically.
type SuffixIndex struct {
	mu    sync.RWMutex
	byURI map[string][]SuffixEntry
}

// NewSuffixIndex creates an empty index.
func NewSuffixIndex() *SuffixIndex {
	return &SuffixIndex{byURI: make(map[string][]SuffixEntry)}
}

// ReplaceDocument swaps all entries owned by uri for the given symbols.
func (si *SuffixIndex) ReplaceDocument(uri string, infos []SymbolInfo) {
	entries := make([]SuffixEntry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, newEntry(info, uri))
	}

	si.mu.Lock()
	defer si.mu.Unlock()
	if len(entries) == 0 {
		delete(si.byURI, uri)
		return
	}
	si.byURI[uri] = entries
}

// RemoveDocument drops all entries owned by uri.
func (si *SuffixIndex) RemoveDocument(uri string) {
	si.mu.Lock()
	defer si.mu.Unlock()
	delete(si.byURI, uri)
}

// Len returns the number of indexed symbols.
func (si *SuffixIndex) Len() int {
	si.mu.RLock()
	defer si.mu.RUnlock()
	n := 0
	for _, entries := range si.byURI {
		n += len(entries)
	}
	return n
}

// Search scores every entry against the query and returns the best matches,
// highest score first. An empty query returns every symbol up to limit.
func (si *SuffixIndex) Search(query string, limit int) []SearchResult {
	si.mu.RLock()
	defer si.mu.RUnlock()

	qLower := strings.ToLower(query)
	qStem := stemWord(qLower)

	var results []SearchResult
	for _, entries := range si.byURI {
		for _, e := range entries {
			score, ok := scoreEntry(e, qLower, qStem)
			if !ok {
				continue
			}
			results = append(results, SearchResult{Entry: e, Score: score})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].Entry.Info.Name != results[j].Entry.Info.Name {
			return results[i].Entry.Info.Name < results[j].Entry.Info.Name
		}
		return results[i].Entry.URI < results[j].Entry.URI
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

func newEntry(info SymbolInfo, uri string) SuffixEntry {
	lower := strings.ToLower(info.Name)
	words := splitName(info.Name)
	stems := make([]string, 0, len(words))
	for _, w := range words {
		stems = append(stems, stemWord(w))
	}
	return SuffixEntry{Info: info, URI: uri, lower: lower, words: words, stems: stems}
}

func scoreEntry(e SuffixEntry, qLower, qStem string) (float64, bool) {
	if qLower == "" {
		return scoreWord, true
	}
	switch {
	case e.lower == qLower:
		return scoreExact, true
	case strings.HasPrefix(e.lower, qLower):
		return scorePrefix, true
	case strings.Contains(e.lower, qLower):
		return scoreSubstring, true
	}
	for _, w := range e.words {
		if w == qLower || strings.HasPrefix(w, qLower) {
			return scoreWord, true
		}
	}
	if len(qStem) >= minStemLength {
		for _, s := range e.stems {
			if s == qStem {
				return scoreStem, true
			}
		}
	}
	// Fuzzy match on the whole name, only worthwhile for near-length pairs.
	if len(qLower) >= minStemLength {
		sim, err := edlib.StringsSimilarity(e.lower, qLower, edlib.Levenshtein)
		if err == nil && float64(sim) >= fuzzyThreshold {
			return scoreFuzzy * float64(sim), true
		}
	}
	return 0, false
}

// splitName breaks an identifier into lowercase words at camelCase humps,
// underscores, dashes and digit boundaries.
func splitName(name string) []string {
	var words []string
	var current []rune
	flush := func() {
		if len(current) > 0 {
			words = append(words, strings.ToLower(string(current)))
			current = current[:0]
		}
	}
	runes := []rune(name)
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || r == '.':
			flush()
		case unicode.IsUpper(r):
			// Start a new word unless we're inside an acronym run.
			if i > 0 && !unicode.IsUpper(runes[i-1]) {
				flush()
			} else if i+1 < len(runes) && unicode.IsUpper(r) && unicode.IsLower(runes[i+1]) && len(current) > 1 {
				flush()
			}
			current = append(current, r)
		case unicode.IsDigit(r):
			if i > 0 && !unicode.IsDigit(runes[i-1]) {
				flush()
			}
			current = append(current, r)
		default:
			current = append(current, r)
		}
	}
	flush()
	return words
}

// stemWord applies the porter2 stemmer to words long enough to stem.
func stemWord(w string) string {
	if len(w) < minStemLength {
		return w
	}
	return porter2.Stem(w)
}

// Package query implements the read side of the index: canonicalizing raw
// query tokens, merging per-shard postings through the catalog, filtering by
// language, scoring, and resolving the winning document ids back to URLs.
package query

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"k8s.io/klog/v2"

	"github.com/rpcpool/xray/accum"
	"github.com/rpcpool/xray/canon"
	"github.com/rpcpool/xray/catalog"
	"github.com/rpcpool/xray/langdetect"
	"github.com/rpcpool/xray/urlstore"
	"github.com/rpcpool/xray/wordstore"
)

// TopN is how many of the highest-scoring documents a query resolves to URLs.
const TopN = 10

// Engine is a read handle on one data directory's catalogs. The by_language
// postings for all supported languages are loaded eagerly at Open so that
// per-query language filtering is a pure in-memory set intersection.
type Engine struct {
	dataDir string
	urls    *catalog.URLCatalog
	indexed *catalog.IndexedCatalog
	langs   map[string]map[uint64]struct{}
}

// Match is one scored query hit.
type Match struct {
	ID    uint64
	Score uint64
	URL   string
}

// Result is the outcome of one query. Matched is false when no canonical
// term matched any document in the selected language.
type Result struct {
	TotalHits int
	Top       []Match
	Matched   bool
	Elapsed   time.Duration
}

// Open loads the catalogs from dataDir and preloads the language id-sets.
func Open(dataDir string) (*Engine, error) {
	urls, err := catalog.LoadURLCatalog(dataDir)
	if err != nil {
		return nil, err
	}
	indexed, err := catalog.LoadIndexedCatalog(dataDir)
	if err != nil {
		return nil, err
	}
	e := &Engine{dataDir: dataDir, urls: urls, indexed: indexed}
	if err := e.loadLanguages(); err != nil {
		return nil, err
	}
	return e, nil
}

// loadLanguages unions the by_language postings of every shard carrying them
// into per-code in-memory sets.
func (e *Engine) loadLanguages() error {
	e.langs = make(map[string]map[uint64]struct{})
	codes := []string{langdetect.English, langdetect.French, langdetect.Spanish} // sorted
	for _, entry := range e.indexed.ShardsForTag(accum.TagByLanguage) {
		s, err := wordstore.Open(filepath.Join(e.dataDir, entry.Path), entry.Tag)
		if err != nil {
			return fmt.Errorf("query: open language shard %s: %w", entry.Path, err)
		}
		postings, err := s.GetWords(codes)
		s.Close()
		if err != nil {
			return fmt.Errorf("query: read language shard %s: %w", entry.Path, err)
		}
		for _, p := range postings {
			set, ok := e.langs[p.Word]
			if !ok {
				set = make(map[uint64]struct{}, len(p.IDs))
				e.langs[p.Word] = set
			}
			for _, id := range p.IDs {
				set[id] = struct{}{}
			}
		}
	}
	for code, set := range e.langs {
		klog.V(2).Infof("loaded %d %s documents", len(set), code)
	}
	return nil
}

// Run executes one query over the raw input tokens, restricted to documents
// in lang (a three-letter code, see langdetect).
func (e *Engine) Run(tokens []string, lang string) (Result, error) {
	start := time.Now()

	var terms []string
	for _, tok := range tokens {
		if w, ok := canon.Canonicalize(tok); ok {
			terms = append(terms, w)
		}
	}
	terms = dedupSorted(canon.AddPairs(terms))
	if len(terms) == 0 {
		return Result{Elapsed: time.Since(start)}, nil
	}

	langSet := e.langs[lang]
	if len(langSet) == 0 {
		return Result{Elapsed: time.Since(start)}, nil
	}

	body, err := e.mergedPostings(accum.TagByWord, terms, langSet)
	if err != nil {
		return Result{}, err
	}
	title, err := e.mergedPostings(accum.TagByTitleWord, terms, langSet)
	if err != nil {
		return Result{}, err
	}

	// Each body match earns the matched word's byte length, each title match
	// twice that. Longer words are rarer, so they weigh heavier.
	scores := make(map[uint64]uint64)
	for word, set := range body {
		w := uint64(len(word))
		for id := range set {
			scores[id] += w
		}
	}
	for word, set := range title {
		w := 2 * uint64(len(word))
		for id := range set {
			scores[id] += w
		}
	}
	if len(scores) == 0 {
		return Result{Elapsed: time.Since(start)}, nil
	}

	ranked := make([]Match, 0, len(scores))
	for id, score := range scores {
		ranked = append(ranked, Match{ID: id, Score: score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].ID < ranked[j].ID
	})
	top := ranked
	if len(top) > TopN {
		top = top[:TopN]
	}

	if err := e.resolveURLs(top); err != nil {
		return Result{}, err
	}

	return Result{
		TotalHits: len(scores),
		Top:       top,
		Matched:   true,
		Elapsed:   time.Since(start),
	}, nil
}

// mergedPostings fetches sortedTerms from every shard of tag, unioning the
// per-shard id sets and keeping only ids present in langSet.
func (e *Engine) mergedPostings(tag string, sortedTerms []string, langSet map[uint64]struct{}) (map[string]map[uint64]struct{}, error) {
	out := make(map[string]map[uint64]struct{})
	for _, entry := range e.indexed.ShardsForTag(tag) {
		s, err := wordstore.Open(filepath.Join(e.dataDir, entry.Path), tag)
		if err != nil {
			return nil, fmt.Errorf("query: open shard %s: %w", entry.Path, err)
		}
		postings, err := s.GetWords(sortedTerms)
		s.Close()
		if err != nil {
			return nil, fmt.Errorf("query: read shard %s: %w", entry.Path, err)
		}
		for _, p := range postings {
			set, ok := out[p.Word]
			if !ok {
				set = make(map[uint64]struct{}, len(p.IDs))
				out[p.Word] = set
			}
			for _, id := range p.IDs {
				if _, inLang := langSet[id]; inLang {
					set[id] = struct{}{}
				}
			}
		}
	}
	return out, nil
}

// resolveURLs fills in the URL of every match, grouping the lookups by the
// URL shard covering each id. An id no shard covers is corrupt state.
func (e *Engine) resolveURLs(matches []Match) error {
	byShard := make(map[catalog.URLEntry][]uint64)
	for _, m := range matches {
		entry, ok := e.urls.ShardFor(m.ID)
		if !ok {
			panic(fmt.Sprintf("query: document id %d not covered by any url shard", m.ID))
		}
		byShard[entry] = append(byShard[entry], m.ID)
	}

	resolved := make(map[uint64]string, len(matches))
	for entry, ids := range byShard {
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		s, err := urlstore.Open(filepath.Join(e.dataDir, entry.Path), entry.FirstIndex, entry.NumEntries)
		if err != nil {
			return fmt.Errorf("query: open url shard %s: %w", entry.Path, err)
		}
		got, err := s.GetURLs(ids)
		s.Close()
		if err != nil {
			return fmt.Errorf("query: resolve urls in %s: %w", entry.Path, err)
		}
		for id, url := range got {
			resolved[id] = url
		}
	}

	for i := range matches {
		matches[i].URL = resolved[matches[i].ID]
	}
	return nil
}

func dedupSorted(words []string) []string {
	if len(words) == 0 {
		return words
	}
	sort.Strings(words)
	out := words[:1]
	for _, w := range words[1:] {
		if w != out[len(out)-1] {
			out = append(out, w)
		}
	}
	return out
}

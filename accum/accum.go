// Package accum implements the in-memory ingest accumulator: the per-chunk
// maps that collect newly assigned document ids, their URLs, languages, and
// canonical word postings before they are flushed to disk as new shards.
package accum

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rpcpool/xray/canon"
	"github.com/rpcpool/xray/catalog"
	"github.com/rpcpool/xray/urlstore"
	"github.com/rpcpool/xray/wordstore"
)

// MinBodyWords is the minimum number of distinct canonical body tokens a
// document must yield to be indexed at all.
const MinBodyWords = 10

// MaxTitleBytes is the maximum byte length of the title prefix split off a
// document's content; a longer first line is treated as having no title.
const MaxTitleBytes = 250

// Tags, matching the three posting families written per chunk.
const (
	TagByWord      = "by_word"
	TagByTitleWord = "by_title_word"
	TagByLanguage  = "by_language"
)

// Accumulator holds the state for one import chunk: newly assigned document
// ids and the postings derived from their content. It is emptied by Persist
// and PersistURLs.
//
// The id counter is the one serialization point the import pipeline must
// respect: InsertURL is safe for concurrent use, but callers
// processing a chunk must still call it in per-file, in-order fashion to
// preserve the "ids assigned in iteration order" guarantee.
type Accumulator struct {
	mu     sync.Mutex
	nextID uint64

	urls        map[uint64]string
	byLanguage  map[string]map[uint64]struct{}
	byWord      map[string]map[uint64]struct{}
	byTitleWord map[string]map[uint64]struct{}
}

// New returns an Accumulator whose id counter starts at firstID (the number
// of document ids already assigned in prior chunks/sessions).
func New(firstID uint64) *Accumulator {
	return &Accumulator{
		nextID:      firstID,
		urls:        make(map[uint64]string),
		byLanguage:  make(map[string]map[uint64]struct{}),
		byWord:      make(map[string]map[uint64]struct{}),
		byTitleWord: make(map[string]map[uint64]struct{}),
	}
}

// Reserve pre-sizes the chunk's url map for n surviving documents to avoid
// rehashing during the hot insert loop.
func (a *Accumulator) Reserve(n int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.urls) == 0 {
		a.urls = make(map[uint64]string, n)
	}
}

// NextID returns the id counter's current value without advancing it: the id
// the next InsertURL call will assign.
func (a *Accumulator) NextID() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.nextID
}

// InsertURL assigns the next monotonic document id to url and records it.
// This is the accumulator's single serialization point: ids must be
// globally unique, dense, and assigned in the caller's iteration order.
func (a *Accumulator) InsertURL(url string) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := a.nextID
	a.nextID++
	a.urls[id] = url
	return id
}

// InsertLang adds id to lang's document-id set.
func (a *Accumulator) InsertLang(id uint64, lang string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	set, ok := a.byLanguage[lang]
	if !ok {
		set = make(map[uint64]struct{})
		a.byLanguage[lang] = set
	}
	set[id] = struct{}{}
}

// InsertWord adds id to word's posting set, in the title index if inTitle,
// otherwise the body index.
func (a *Accumulator) InsertWord(id uint64, inTitle bool, word string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	target := a.byWord
	if inTitle {
		target = a.byTitleWord
	}
	set, ok := target[word]
	if !ok {
		set = make(map[uint64]struct{})
		target[word] = set
	}
	set[id] = struct{}{}
}

// Document is the canonicalized result of splitting and tokenizing one
// page's raw content, ready for id assignment and insertion.
type Document struct {
	URL        string
	Language   string
	TitleWords []string // canonical, paired, sorted, deduplicated
	BodyWords  []string // canonical, paired, sorted, deduplicated
}

// ProcessDocument splits content into an optional title line and body,
// canonicalizes and pairs both, and reports whether the document survives
// the minimum-body-words filter.
func ProcessDocument(url, language, content string) (Document, bool) {
	title, body := splitTitle(content)

	titleWords := canonicalizeAndPair(title)
	bodyWords := canonicalizeAndPair(body)

	distinctBody := dedupSorted(bodyWords)
	if len(distinctBody) < MinBodyWords {
		return Document{}, false
	}

	return Document{
		URL:        url,
		Language:   language,
		TitleWords: dedupSorted(titleWords),
		BodyWords:  distinctBody,
	}, true
}

// splitTitle returns the leading line of content as the title if it is at
// most MaxTitleBytes; a longer first line means the document has no title
// and the whole content is body.
func splitTitle(content string) (title, body string) {
	idx := -1
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			idx = i
			break
		}
	}
	if idx < 0 {
		return "", content
	}
	prefix := content[:idx]
	if len(prefix) > MaxTitleBytes {
		return "", content
	}
	return prefix, content[idx+1:]
}

// canonicalizeAndPair tokenizes text on whitespace, canonicalizes each
// token, and appends adjacent-word bigrams.
func canonicalizeAndPair(text string) []string {
	var words []string
	for _, tok := range splitWhitespace(text) {
		if w, ok := canon.Canonicalize(tok); ok {
			words = append(words, w)
		}
	}
	return canon.AddPairs(words)
}

func splitWhitespace(s string) []string {
	var out []string
	start := -1
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\n', '\r':
			if start >= 0 {
				out = append(out, s[start:i])
				start = -1
			}
		default:
			if start < 0 {
				start = i
			}
		}
	}
	if start >= 0 {
		out = append(out, s[start:])
	}
	return out
}

// dedupSorted returns a sorted, duplicate-free copy of words; the input slice
// is left unchanged.
func dedupSorted(words []string) []string {
	if len(words) == 0 {
		return words
	}
	sorted := append([]string(nil), words...)
	sort.Strings(sorted)
	out := sorted[:1]
	for _, w := range sorted[1:] {
		if w != out[len(out)-1] {
			out = append(out, w)
		}
	}
	return out
}

// PersistURLs writes the chunk's urls map to a new URL shard named
// urls_{first_id}.xraystore, appends it to cat, and clears the map.
func (a *Accumulator) PersistURLs(dataDir string, cat *catalog.URLCatalog) (catalog.URLEntry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.urls) == 0 {
		return catalog.URLEntry{}, nil
	}

	b := urlstore.NewBuilder()
	for id, url := range a.urls {
		if err := b.Add(id, url); err != nil {
			return catalog.URLEntry{}, fmt.Errorf("accum: stage url %d: %w", id, err)
		}
	}

	firstIndex := b.FirstIndex()
	name := fmt.Sprintf("urls_%d.xraystore", firstIndex)
	path := filepath.Join(dataDir, name)

	if err := writeShardFile(path, b.WriteTo); err != nil {
		return catalog.URLEntry{}, err
	}
	if err := verifyURLShard(path, firstIndex, uint64(b.Len())); err != nil {
		return catalog.URLEntry{}, err
	}

	entry := catalog.URLEntry{FirstIndex: firstIndex, NumEntries: uint64(b.Len()), Path: name}
	if err := cat.Append(entry); err != nil {
		return catalog.URLEntry{}, fmt.Errorf("accum: append url catalog entry: %w", err)
	}

	a.urls = make(map[uint64]string)
	return entry, nil
}

// Persist writes the chunk's by_word, by_title_word, and by_language maps
// to new indexed shards tagged indexed_{tag}_{unique}.xraystore, appends
// them to cat, and clears the maps.
func (a *Accumulator) Persist(dataDir string, unique uint64, cat *catalog.IndexedCatalog) ([]catalog.IndexedEntry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var entries []catalog.IndexedEntry
	for _, tm := range []struct {
		tag string
		m   *map[string]map[uint64]struct{}
	}{
		{TagByWord, &a.byWord},
		{TagByTitleWord, &a.byTitleWord},
		{TagByLanguage, &a.byLanguage},
	} {
		if len(*tm.m) == 0 {
			continue
		}
		entry, err := a.persistTag(dataDir, tm.tag, unique, *tm.m, cat)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
		*tm.m = make(map[string]map[uint64]struct{})
	}
	return entries, nil
}

func (a *Accumulator) persistTag(dataDir, tag string, unique uint64, m map[string]map[uint64]struct{}, cat *catalog.IndexedCatalog) (catalog.IndexedEntry, error) {
	b := wordstore.NewBuilder()
	for word, set := range m {
		ids := make([]uint64, 0, len(set))
		for id := range set {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		if err := b.Add(word, ids); err != nil {
			return catalog.IndexedEntry{}, fmt.Errorf("accum: stage word %q: %w", word, err)
		}
	}

	name := fmt.Sprintf("indexed_%s_%d.xraystore", tag, unique)
	path := filepath.Join(dataDir, name)
	if err := writeShardFile(path, b.WriteTo); err != nil {
		return catalog.IndexedEntry{}, err
	}
	if err := verifyIndexedShard(path, tag); err != nil {
		return catalog.IndexedEntry{}, err
	}

	entry := catalog.IndexedEntry{Tag: tag, NumEntries: uint64(b.Len()), Path: name}
	if err := cat.Append(entry); err != nil {
		return catalog.IndexedEntry{}, fmt.Errorf("accum: append indexed catalog entry for %s: %w", tag, err)
	}
	return entry, nil
}

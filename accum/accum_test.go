package accum

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rpcpool/xray/catalog"
	"github.com/rpcpool/xray/urlstore"
	"github.com/rpcpool/xray/wordstore"
)

func TestInsertURLMonotonicDense(t *testing.T) {
	a := New(7)
	for i := 0; i < 100; i++ {
		require.Equal(t, uint64(7+i), a.InsertURL(fmt.Sprintf("http://example.com/%d", i)))
	}
	require.Equal(t, uint64(107), a.NextID())
}

func TestProcessDocumentMinBodyWords(t *testing.T) {
	// The distinct-token filter counts pairs too: 5 distinct words yield 4
	// bigrams, 9 distinct tokens total, one short of the minimum.
	five := "alpha bravo charlie delta echo"
	_, ok := ProcessDocument("http://a/", "eng", "title line\n"+five)
	require.False(t, ok)

	// Appending a repeated word adds one new bigram (echo|alpha) and nothing
	// else, landing exactly on the 10-token boundary.
	doc, ok := ProcessDocument("http://a/", "eng", "title line\n"+five+" alpha")
	require.True(t, ok)
	require.Equal(t, "http://a/", doc.URL)
	require.Len(t, doc.BodyWords, 10)
}

func TestProcessDocumentTitleBoundary(t *testing.T) {
	body := "alpha bravo charlie delta echo foxtrot golf hotel india juliet kilo lima"

	title250 := strings.Repeat("word ", 50) // exactly 250 bytes
	doc, ok := ProcessDocument("http://a/", "eng", title250+"\n"+body)
	require.True(t, ok)
	require.NotEmpty(t, doc.TitleWords)

	title251 := title250 + "x"
	doc, ok = ProcessDocument("http://a/", "eng", title251+"\n"+body)
	// The over-long first line is folded into the body, leaving no title.
	require.True(t, ok)
	require.Empty(t, doc.TitleWords)
}

func TestProcessDocumentNoNewline(t *testing.T) {
	body := "alpha bravo charlie delta echo foxtrot golf hotel india juliet kilo lima"
	doc, ok := ProcessDocument("http://a/", "eng", body)
	require.True(t, ok)
	require.Empty(t, doc.TitleWords)
	require.NotEmpty(t, doc.BodyWords)
}

func TestPersistURLsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cat, err := catalog.LoadURLCatalog(dir)
	require.NoError(t, err)

	a := New(0)
	urls := make(map[uint64]string)
	for i := 0; i < 25; i++ {
		url := fmt.Sprintf("http://example.com/page/%d", i)
		urls[a.InsertURL(url)] = url
	}

	entry, err := a.PersistURLs(dir, cat)
	require.NoError(t, err)
	require.Equal(t, uint64(0), entry.FirstIndex)
	require.Equal(t, uint64(25), entry.NumEntries)
	require.Equal(t, "urls_0.xraystore", entry.Path)

	s, err := urlstore.Open(filepath.Join(dir, entry.Path), entry.FirstIndex, entry.NumEntries)
	require.NoError(t, err)
	defer s.Close()

	ids := make([]uint64, 0, len(urls))
	for id := range urls {
		ids = append(ids, id)
	}
	got, err := s.GetURLs(sortedIDs(ids))
	require.NoError(t, err)
	require.Equal(t, urls, got)

	// The urls map must be emptied: a second persist is a no-op.
	entry, err = a.PersistURLs(dir, cat)
	require.NoError(t, err)
	require.Equal(t, catalog.URLEntry{}, entry)
	require.Len(t, cat.Entries, 1)
}

func TestPersistWritesTaggedShards(t *testing.T) {
	dir := t.TempDir()
	cat, err := catalog.LoadIndexedCatalog(dir)
	require.NoError(t, err)

	a := New(0)
	id := a.InsertURL("http://a/")
	a.InsertLang(id, "eng")
	a.InsertWord(id, false, "alpha")
	a.InsertWord(id, false, "bravo")
	a.InsertWord(id, true, "alpha")

	entries, err := a.Persist(dir, 3, cat)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	byTag := make(map[string]catalog.IndexedEntry)
	for _, e := range entries {
		byTag[e.Tag] = e
	}
	require.Equal(t, "indexed_by_word_3.xraystore", byTag[TagByWord].Path)
	require.Equal(t, uint64(2), byTag[TagByWord].NumEntries)
	require.Equal(t, uint64(1), byTag[TagByTitleWord].NumEntries)
	require.Equal(t, uint64(1), byTag[TagByLanguage].NumEntries)

	s, err := wordstore.Open(filepath.Join(dir, byTag[TagByWord].Path), TagByWord)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.GetWords([]string{"alpha", "bravo"})
	require.NoError(t, err)
	require.Equal(t, []wordstore.Posting{
		{Word: "alpha", IDs: []uint64{0}},
		{Word: "bravo", IDs: []uint64{0}},
	}, got)

	// Maps are cleared: persisting again writes nothing.
	entries, err = a.Persist(dir, 4, cat)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func sortedIDs(ids []uint64) []uint64 {
	out := append([]uint64(nil), ids...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j] < out[j-1]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

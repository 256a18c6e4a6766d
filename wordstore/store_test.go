package wordstore

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeShard(t *testing.T, postings []Posting) *Store {
	t.Helper()
	b := NewBuilder()
	for _, p := range postings {
		require.NoError(t, b.Add(p.Word, p.IDs))
	}
	var buf bytes.Buffer
	_, err := b.WriteTo(&buf)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "indexed_by_word_0.xraystore")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	s, err := Open(path, "by_word")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRoundTripGetWords(t *testing.T) {
	postings := []Posting{
		{Word: "alpha", IDs: []uint64{1, 2, 3}},
		{Word: "beta", IDs: []uint64{4}},
		{Word: "gamma", IDs: []uint64{5, 6}},
	}
	s := writeShard(t, postings)

	got, err := s.GetWords([]string{"alpha", "beta", "gamma"})
	require.NoError(t, err)
	require.Equal(t, postings, got)
}

func TestGetWordsSkipsAbsent(t *testing.T) {
	postings := []Posting{
		{Word: "alpha", IDs: []uint64{1}},
		{Word: "gamma", IDs: []uint64{2}},
	}
	s := writeShard(t, postings)

	got, err := s.GetWords([]string{"alpha", "beta", "gamma", "zed"})
	require.NoError(t, err)
	require.Equal(t, postings, got)
}

func TestGetWordsAcrossJumpStrides(t *testing.T) {
	var postings []Posting
	for i := 0; i < 3500; i++ {
		postings = append(postings, Posting{Word: fmt.Sprintf("word%05d", i), IDs: []uint64{uint64(i)}})
	}
	s := writeShard(t, postings)

	for _, idx := range []int{0, 1, 999, 1000, 1001, 2500, 3499} {
		got, err := s.GetWords([]string{postings[idx].Word})
		require.NoError(t, err)
		require.Equal(t, []Posting{postings[idx]}, got)
	}
}

func TestGetSubsetOfWords(t *testing.T) {
	var postings []Posting
	for i := 0; i < 2500; i++ {
		postings = append(postings, Posting{Word: fmt.Sprintf("word%05d", i), IDs: []uint64{uint64(i)}})
	}
	s := writeShard(t, postings)

	got, err := s.GetSubsetOfWords(1000, 500)
	require.NoError(t, err)
	require.Equal(t, postings[1000:1500], got)
}

func TestVerifyJumpTable(t *testing.T) {
	var postings []Posting
	for i := 0; i < 2500; i++ {
		postings = append(postings, Posting{Word: fmt.Sprintf("word%05d", i), IDs: []uint64{uint64(i)}})
	}
	s := writeShard(t, postings)
	require.NoError(t, s.VerifyJumpTable())
}

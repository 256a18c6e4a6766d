package wordstore

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"sort"
)

// Posting is one word's sorted, duplicate-free document-id set, staged
// before a shard is written.
type Posting struct {
	Word string
	IDs  []uint64
}

// Builder accumulates postings for a single shard. Postings may be added in
// any order; WriteTo sorts them lexicographically by word before laying out
// the content region.
type Builder struct {
	postings []Posting
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Add stages one posting. word must be at most MaxWordBytes bytes and ids
// should already be sorted ascending and duplicate-free.
func (b *Builder) Add(word string, ids []uint64) error {
	if len(word) > MaxWordBytes {
		return fmt.Errorf("wordstore: word length %d exceeds max %d", len(word), MaxWordBytes)
	}
	b.postings = append(b.postings, Posting{Word: word, IDs: ids})
	return nil
}

// Len reports the number of staged postings.
func (b *Builder) Len() int {
	return len(b.postings)
}

// WriteTo sorts the staged postings by word and writes the complete shard
// to w, returning the number of bytes written.
func (b *Builder) WriteTo(w io.Writer) (int64, error) {
	sort.Slice(b.postings, func(i, j int) bool { return b.postings[i].Word < b.postings[j].Word })

	offsets := make([]uint64, len(b.postings))
	var off uint64
	for i, p := range b.postings {
		offsets[i] = off
		off += uint64(1 + len(p.Word) + 8 + 8*len(p.IDs))
	}

	jumpTable := buildJumpTable(b.postings, offsets)

	h := Header{
		NumEntries:   uint64(len(b.postings)),
		JumpTableLen: uint64(len(jumpTable)),
		JumpStride:   JumpStride,
		JumpTable:    jumpTable,
	}
	bw := bufio.NewWriter(w)
	headerLen, err := h.WriteTo(bw)
	if err != nil {
		return 0, err
	}

	for i, p := range b.postings {
		if err := writeByte(bw, byte(len(p.Word))); err != nil {
			return 0, fmt.Errorf("wordstore: write word len %d: %w", i, err)
		}
		if _, err := bw.WriteString(p.Word); err != nil {
			return 0, fmt.Errorf("wordstore: write word %d: %w", i, err)
		}
		if err := binary.Write(bw, binary.LittleEndian, uint64(len(p.IDs))); err != nil {
			return 0, fmt.Errorf("wordstore: write set_len %d: %w", i, err)
		}
		if err := binary.Write(bw, binary.LittleEndian, p.IDs); err != nil {
			return 0, fmt.Errorf("wordstore: write ids %d: %w", i, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return 0, fmt.Errorf("wordstore: flush: %w", err)
	}

	return headerLen + int64(off), nil
}

// buildJumpTable emits an entry at posting index 0 and every JumpStride-th
// posting thereafter, always pinning the last posting's true word and
// offset so a reader can bound a single-pass scan.
func buildJumpTable(postings []Posting, offsets []uint64) []jumpEntry {
	if len(postings) == 0 {
		return nil
	}
	var table []jumpEntry
	for i := 0; i < len(postings); i += JumpStride {
		table = append(table, jumpEntry{Word: postings[i].Word, Offset: offsets[i]})
	}
	last := len(postings) - 1
	if last%JumpStride != 0 {
		table = append(table, jumpEntry{Word: postings[last].Word, Offset: offsets[last]})
	}
	return table
}

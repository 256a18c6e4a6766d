package urlstore

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"sort"
)

// entry is one (id, url) pair staged by a Builder before it is sorted and
// laid out into the shard's content region.
type entry struct {
	id  uint64
	url string
}

// Builder accumulates (id, url) pairs for a single chunk's worth of newly
// assigned document ids and serializes them into one immutable shard file.
// Entries may be added in any order; WriteTo sorts them by id before laying
// out the content region, matching the on-disk invariant that ids within a
// shard are strictly increasing.
type Builder struct {
	entries []entry
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Add stages one document id -> URL mapping. url must be at most 65,535
// bytes.
func (b *Builder) Add(id uint64, url string) error {
	if len(url) > 1<<16-1 {
		return fmt.Errorf("urlstore: url length %d exceeds max %d", len(url), 1<<16-1)
	}
	b.entries = append(b.entries, entry{id: id, url: url})
	return nil
}

// Len reports the number of staged entries.
func (b *Builder) Len() int {
	return len(b.entries)
}

// FirstIndex returns the smallest staged id. It panics if no entries have
// been added.
func (b *Builder) FirstIndex() uint64 {
	if len(b.entries) == 0 {
		panic("urlstore: FirstIndex called on empty builder")
	}
	min := b.entries[0].id
	for _, e := range b.entries[1:] {
		if e.id < min {
			min = e.id
		}
	}
	return min
}

// WriteTo sorts the staged entries by id and writes the complete shard
// (header, jump table, content region) to w. It returns the number of bytes
// written.
func (b *Builder) WriteTo(w io.Writer) (int64, error) {
	sort.Slice(b.entries, func(i, j int) bool { return b.entries[i].id < b.entries[j].id })

	// First pass: measure the content region with a counting writer so we
	// know each entry's byte offset before emitting the jump table.
	var content countingBuffer
	offsets := make([]uint64, len(b.entries))
	for i, e := range b.entries {
		offsets[i] = uint64(content.n)
		var hdr [10]byte
		binary.LittleEndian.PutUint16(hdr[0:2], uint16(len(e.url)))
		binary.LittleEndian.PutUint64(hdr[2:10], e.id)
		content.Write(hdr[:])
		content.Write([]byte(e.url))
	}

	jumpTable := buildJumpTable(offsets)

	h := Header{
		JumpTableLen: uint64(len(jumpTable)),
		JumpStride:   JumpStride,
		JumpTable:    jumpTable,
	}
	bw := bufio.NewWriter(w)
	headerLen, err := h.WriteTo(bw)
	if err != nil {
		return 0, err
	}

	for i, e := range b.entries {
		var hdr [10]byte
		binary.LittleEndian.PutUint16(hdr[0:2], uint16(len(e.url)))
		binary.LittleEndian.PutUint64(hdr[2:10], e.id)
		if _, err := bw.Write(hdr[:]); err != nil {
			return 0, fmt.Errorf("urlstore: write entry header %d: %w", i, err)
		}
		if _, err := bw.WriteString(e.url); err != nil {
			return 0, fmt.Errorf("urlstore: write entry url %d: %w", i, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return 0, fmt.Errorf("urlstore: flush: %w", err)
	}

	return headerLen + int64(content.n), nil
}

// buildJumpTable emits a jump entry at content position 0 and at every
// JumpStride-th entry thereafter, and always appends a final entry pinned at
// the true offset of the last entry if the stride rule didn't already land
// on it.
func buildJumpTable(offsets []uint64) []uint64 {
	if len(offsets) == 0 {
		return nil
	}
	var table []uint64
	for i := 0; i < len(offsets); i += JumpStride {
		table = append(table, offsets[i])
	}
	last := len(offsets) - 1
	if last%JumpStride != 0 {
		table = append(table, offsets[last])
	}
	return table
}

// countingBuffer tracks only the number of bytes written; Builder uses it to
// compute entry offsets without retaining the content bytes twice.
type countingBuffer struct {
	n int
}

func (c *countingBuffer) Write(p []byte) (int, error) {
	c.n += len(p)
	return len(p), nil
}

// Package urlstore implements the on-disk URL shard format: an immutable,
// sorted-by-id file of document id -> URL mappings with a sparse jump table
// for bounded-cost lookups.
package urlstore

import (
	"encoding/binary"
	"fmt"
	"io"
)

// JumpStride is the fixed interval (in posting count) between jump-table
// entries. Always written to the shard header.
const JumpStride = 1000

// entryHeaderSize is the fixed per-entry byte overhead ahead of the url
// bytes: 2 bytes for the url length, 8 bytes for the id. The reader uses it
// to track its file offset while walking entries.
const entryHeaderSize = 10

// Header is the fixed-layout prefix of a urlstore shard file.
type Header struct {
	JumpTableLen uint64
	JumpStride   uint32
	JumpTable    []uint64 // offsets relative to the start of the content region
}

// headerByteLen returns the on-disk size, in bytes, of h.
func (h Header) headerByteLen() int64 {
	return 8 + 4 + 8*int64(len(h.JumpTable))
}

// LoadHeader reads a Header from the front of r.
func LoadHeader(r io.Reader) (Header, error) {
	var h Header
	if err := binary.Read(r, binary.LittleEndian, &h.JumpTableLen); err != nil {
		return Header{}, fmt.Errorf("urlstore: read jump_table_len: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &h.JumpStride); err != nil {
		return Header{}, fmt.Errorf("urlstore: read jump_stride: %w", err)
	}
	if h.JumpTableLen > 0 {
		h.JumpTable = make([]uint64, h.JumpTableLen)
		if err := binary.Read(r, binary.LittleEndian, &h.JumpTable); err != nil {
			return Header{}, fmt.Errorf("urlstore: read jump table: %w", err)
		}
	}
	return h, nil
}

// WriteTo writes h's on-disk encoding to w.
func (h Header) WriteTo(w io.Writer) (int64, error) {
	if err := binary.Write(w, binary.LittleEndian, h.JumpTableLen); err != nil {
		return 0, fmt.Errorf("urlstore: write jump_table_len: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, h.JumpStride); err != nil {
		return 0, fmt.Errorf("urlstore: write jump_stride: %w", err)
	}
	if len(h.JumpTable) > 0 {
		if err := binary.Write(w, binary.LittleEndian, h.JumpTable); err != nil {
			return 0, fmt.Errorf("urlstore: write jump table: %w", err)
		}
	}
	return h.headerByteLen(), nil
}

package accum

import (
	"fmt"
	"io"
	"os"

	"github.com/rpcpool/xray/continuity"
	"github.com/rpcpool/xray/urlstore"
	"github.com/rpcpool/xray/wordstore"
)

// writeShardFile creates path and streams a builder's WriteTo into it. Shards
// are immutable once written, so the file is synced before close.
func writeShardFile(path string, writeTo func(io.Writer) (int64, error)) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("accum: create %s: %w", path, err)
	}
	err = continuity.New().
		Thenf("write", func() error {
			_, err := writeTo(f)
			return err
		}).
		Thenf("sync", f.Sync).
		Thenf("close", f.Close).
		Err()
	if err != nil {
		return fmt.Errorf("accum: write shard %s: %w", path, err)
	}
	return nil
}

// verifyURLShard reopens a freshly written URL shard and confirms every
// jump-table entry lands on the entry boundary it claims, before the shard
// is registered in the catalog.
func verifyURLShard(path string, firstIndex, numEntries uint64) error {
	s, err := urlstore.Open(path, firstIndex, numEntries)
	if err != nil {
		return fmt.Errorf("accum: verify %s: %w", path, err)
	}
	defer s.Close()
	if err := s.VerifyJumpTable(); err != nil {
		return fmt.Errorf("accum: verify %s: %w", path, err)
	}
	return nil
}

// verifyIndexedShard is the indexed-shard counterpart of verifyURLShard.
func verifyIndexedShard(path, tag string) error {
	s, err := wordstore.Open(path, tag)
	if err != nil {
		return fmt.Errorf("accum: verify %s: %w", path, err)
	}
	defer s.Close()
	if err := s.VerifyJumpTable(); err != nil {
		return fmt.Errorf("accum: verify %s: %w", path, err)
	}
	return nil
}

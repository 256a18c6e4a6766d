// Package optimize implements index compaction: a bounded-memory k-way merge
// of all shards of each posting tag into consolidated shards, followed by a
// from-scratch rebuild of the indexed catalog off the surviving files.
package optimize

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"github.com/rpcpool/xray/accum"
	"github.com/rpcpool/xray/catalog"
	"github.com/rpcpool/xray/wordstore"
)

// DefaultChunkSize is how many word-index positions one merge chunk covers.
const DefaultChunkSize = 2_500_000

// tags lists the posting families optimize consolidates, in merge order.
var tags = []string{accum.TagByWord, accum.TagByTitleWord, accum.TagByLanguage}

// Optimize merges every indexed shard of each tag into consolidated shards,
// deletes the originals and the old catalog, and rebuilds the catalog. It
// requires exclusive access to dataDir.
func Optimize(ctx context.Context, dataDir string, chunkSize int) error {
	start := time.Now()
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	cat, err := catalog.LoadIndexedCatalog(dataDir)
	if err != nil {
		return err
	}

	for _, tag := range tags {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := mergeTag(ctx, dataDir, cat, tag, chunkSize); err != nil {
			return err
		}
	}

	// Tear down the old generation only after every tag merged: a partial
	// run leaves _tmp shards the next rebuild-index will promote.
	for _, e := range cat.Entries {
		if err := os.Remove(filepath.Join(dataDir, e.Path)); err != nil {
			return fmt.Errorf("optimize: remove old shard %s: %w", e.Path, err)
		}
	}
	if err := cat.Reset(); err != nil {
		return err
	}

	if err := RebuildIndex(dataDir); err != nil {
		return err
	}
	klog.Infof("optimize finished in %s", time.Since(start))
	return nil
}

// mergeTag streams every shard of tag through chunked subset reads, merging
// each chunk's postings into one new _tmp shard. The _tmp marker keeps the
// new shards out of the catalog until rebuild-index promotes them.
func mergeTag(ctx context.Context, dataDir string, cat *catalog.IndexedCatalog, tag string, chunkSize int) error {
	entries := cat.ShardsForTag(tag)
	if len(entries) == 0 {
		return nil
	}

	stores := make([]*wordstore.Store, len(entries))
	for i, e := range entries {
		s, err := wordstore.Open(filepath.Join(dataDir, e.Path), tag)
		if err != nil {
			return fmt.Errorf("optimize: open shard %s: %w", e.Path, err)
		}
		defer s.Close()
		stores[i] = s
	}

	var maxEntries uint64
	for _, s := range stores {
		if n := s.NumEntries(); n > maxEntries {
			maxEntries = n
		}
	}

	chunkNum := 0
	for chunkStart := 0; chunkStart < int(maxEntries); chunkStart += chunkSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		subsets := make([][]wordstore.Posting, len(stores))
		g, _ := errgroup.WithContext(ctx)
		for i, s := range stores {
			i, s := i, s
			g.Go(func() error {
				// A per-shard read failure here is fail-fast: the shard is
				// corrupt and continuing would merge a partial posting list.
				sub, err := s.GetSubsetOfWords(chunkStart, chunkSize)
				if err != nil {
					panic(fmt.Sprintf("optimize: read %s postings [%d,%d): %v", s.Path, chunkStart, chunkStart+chunkSize, err))
				}
				subsets[i] = sub
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		merged := mergeSubsets(subsets)
		if len(merged) == 0 {
			continue
		}

		name := fmt.Sprintf("indexed_%s_tmp_%d.xraystore", tag, chunkNum)
		if err := writeMergedShard(filepath.Join(dataDir, name), tag, merged); err != nil {
			return err
		}
		klog.V(1).Infof("merged %d %s postings into %s", len(merged), tag, name)
		chunkNum++
	}
	return nil
}

// mergeSubsets unions the word domains of the per-shard posting slices and
// concatenates each word's id lists, sorting and deduplicating the result so
// the merged contract holds even if the same id appeared under one word in
// two shards.
func mergeSubsets(subsets [][]wordstore.Posting) []wordstore.Posting {
	byWord := make(map[string][]uint64)
	for _, sub := range subsets {
		for _, p := range sub {
			byWord[p.Word] = append(byWord[p.Word], p.IDs...)
		}
	}

	merged := make([]wordstore.Posting, 0, len(byWord))
	for word, ids := range byWord {
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		dedup := ids[:0]
		for i, id := range ids {
			if i == 0 || id != dedup[len(dedup)-1] {
				dedup = append(dedup, id)
			}
		}
		merged = append(merged, wordstore.Posting{Word: word, IDs: dedup})
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Word < merged[j].Word })
	return merged
}

func writeMergedShard(path, tag string, postings []wordstore.Posting) error {
	b := wordstore.NewBuilder()
	for _, p := range postings {
		if err := b.Add(p.Word, p.IDs); err != nil {
			return fmt.Errorf("optimize: stage %q: %w", p.Word, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("optimize: create %s: %w", path, err)
	}
	if _, err := b.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("optimize: write %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("optimize: sync %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("optimize: close %s: %w", path, err)
	}

	s, err := wordstore.Open(path, tag)
	if err != nil {
		return fmt.Errorf("optimize: verify %s: %w", path, err)
	}
	defer s.Close()
	if err := s.VerifyJumpTable(); err != nil {
		return fmt.Errorf("optimize: verify %s: %w", path, err)
	}
	return nil
}

// RebuildIndex rewrites the indexed catalog from scratch off the shard files
// found under dataDir, promoting any _tmp shards left by a partial optimize
// run along the way.
func RebuildIndex(dataDir string) error {
	cat, err := catalog.LoadIndexedCatalog(dataDir)
	if err != nil {
		return err
	}
	if err := cat.Reset(); err != nil {
		return err
	}

	var shardPaths []string
	err = filepath.WalkDir(dataDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		if strings.HasPrefix(name, "indexed_") && strings.HasSuffix(name, ".xraystore") {
			shardPaths = append(shardPaths, p)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("optimize: walk %s: %w", dataDir, err)
	}
	sort.Strings(shardPaths)

	for _, p := range shardPaths {
		promoted, err := promoteShard(p)
		if err != nil {
			return err
		}
		numEntries, err := readNumEntries(promoted)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dataDir, promoted)
		if err != nil {
			return fmt.Errorf("optimize: relativize %s: %w", promoted, err)
		}
		entry := catalog.IndexedEntry{
			Tag:        tagFromFilename(filepath.Base(promoted)),
			NumEntries: numEntries,
			Path:       rel,
		}
		if err := cat.Append(entry); err != nil {
			return err
		}
	}
	klog.Infof("rebuilt indexed catalog with %d shards", len(cat.Entries))
	return nil
}

// promoteShard strips a _tmp marker from the shard's filename, renaming it on
// disk, and returns the (possibly new) path.
func promoteShard(path string) (string, error) {
	name := filepath.Base(path)
	if !strings.Contains(name, "_tmp") {
		return path, nil
	}
	newPath := filepath.Join(filepath.Dir(path), strings.Replace(name, "_tmp", "", 1))
	if err := os.Rename(path, newPath); err != nil {
		return "", fmt.Errorf("optimize: promote %s: %w", path, err)
	}
	return newPath, nil
}

// tagFromFilename derives the posting tag from a shard filename: everything
// after the indexed_ prefix up to the first digit, minus the trailing
// underscore. indexed_by_word_3.xraystore -> by_word.
func tagFromFilename(name string) string {
	tag := strings.TrimPrefix(name, "indexed_")
	for i := 0; i < len(tag); i++ {
		if tag[i] >= '0' && tag[i] <= '9' {
			tag = tag[:i]
			break
		}
	}
	return strings.TrimSuffix(tag, "_")
}

// readNumEntries reads the first u64 of a shard file, its posting count.
func readNumEntries(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("optimize: open %s: %w", path, err)
	}
	defer f.Close()
	h, err := wordstore.LoadHeader(f)
	if err != nil {
		return 0, fmt.Errorf("optimize: header %s: %w", path, err)
	}
	return h.NumEntries, nil
}

// Package ingest implements the import pipeline: resolving WET sources,
// parsing and language-detecting them in parallel, and feeding the surviving
// documents through the accumulator into new on-disk shards, one chunk of
// files at a time.
package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"github.com/rpcpool/xray/accum"
	"github.com/rpcpool/xray/catalog"
	"github.com/rpcpool/xray/langdetect"
	"github.com/rpcpool/xray/wetparser"
)

// DefaultChunkSize is how many input files are processed per chunk when the
// caller doesn't say otherwise.
const DefaultChunkSize = 36

// Stats summarizes one import run.
type Stats struct {
	Files     int
	Chunks    int // chunks that produced shards
	Documents int
	Dropped   int
	Elapsed   time.Duration
}

// Import ingests every .wet/.wet.gz file under sources into dataDir's index,
// processing chunkSize files per chunk. Each chunk yields one URL shard and
// one indexed shard per tag.
func Import(ctx context.Context, dataDir string, sources []string, chunkSize int) (Stats, error) {
	start := time.Now()
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	files, err := resolveSources(sources)
	if err != nil {
		return Stats{}, err
	}
	if len(files) == 0 {
		klog.Info("no .wet or .wet.gz files found, nothing to import")
		return Stats{Elapsed: time.Since(start)}, nil
	}

	urlCat, err := catalog.LoadURLCatalog(dataDir)
	if err != nil {
		return Stats{}, err
	}
	idxCat, err := catalog.LoadIndexedCatalog(dataDir)
	if err != nil {
		return Stats{}, err
	}

	// Ids continue where the existing URL shards stop; new indexed shards
	// are numbered past the existing by_word shards so filenames never
	// collide with a prior session's.
	var nextID uint64
	for _, e := range urlCat.Entries {
		if end := e.FirstIndex + e.NumEntries; end > nextID {
			nextID = end
		}
	}
	chunkOffset := len(idxCat.ShardsForTag(accum.TagByWord))

	acc := accum.New(nextID)
	det := langdetect.New()

	stats := Stats{Files: len(files)}
	for chunkNum := 0; len(files) > 0; chunkNum++ {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		n := chunkSize
		if n > len(files) {
			n = len(files)
		}
		chunk := files[:n]
		files = files[n:]

		docs, dropped, err := processChunk(ctx, det, chunk)
		if err != nil {
			return stats, err
		}
		stats.Dropped += dropped
		if len(docs) == 0 {
			continue
		}

		// Id assignment is the pipeline's one sequential point: ids of
		// surviving documents follow per-file order within the chunk, files
		// in caller order.
		acc.Reserve(len(docs))
		ids := make([]uint64, len(docs))
		for i, d := range docs {
			ids[i] = acc.InsertURL(d.URL)
		}
		if _, err := acc.PersistURLs(dataDir, urlCat); err != nil {
			return stats, err
		}

		for i, d := range docs {
			acc.InsertLang(ids[i], d.Language)
			for _, w := range d.TitleWords {
				acc.InsertWord(ids[i], true, w)
			}
			for _, w := range d.BodyWords {
				acc.InsertWord(ids[i], false, w)
			}
		}
		if _, err := acc.Persist(dataDir, uint64(chunkNum+chunkOffset), idxCat); err != nil {
			return stats, err
		}

		stats.Chunks++
		stats.Documents += len(docs)
		klog.Infof("chunk %d: indexed %d documents (%d dropped so far)", chunkNum, len(docs), stats.Dropped)
	}

	stats.Elapsed = time.Since(start)
	return stats, nil
}

// processChunk parses and filters the chunk's files in parallel. Each file
// task owns its slot of the result slice; no shared mutable state.
func processChunk(ctx context.Context, det *langdetect.Detector, files []string) ([]accum.Document, int, error) {
	perFile := make([][]accum.Document, len(files))
	droppedPerFile := make([]int, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			docs, dropped, err := processFile(det, path)
			if err != nil {
				// A malformed file aborts only itself, not the import.
				klog.Errorf("skipping %s: %v", path, err)
				return nil
			}
			perFile[i] = docs
			droppedPerFile[i] = dropped
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	var docs []accum.Document
	var dropped int
	for i := range perFile {
		docs = append(docs, perFile[i]...)
		dropped += droppedPerFile[i]
	}
	return docs, dropped, nil
}

// processFile reads one WET file, slices it into conversion records, and
// returns the documents that pass language detection and the body filter.
func processFile(det *langdetect.Detector, path string) ([]accum.Document, int, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, 0, err
	}

	type rawDoc struct {
		url     string
		content string
	}
	var raw []rawDoc
	err = wetparser.All(data, func(rec wetparser.Record) error {
		if rec.Type != wetparser.RecordConversion {
			return nil
		}
		raw = append(raw, rawDoc{url: rec.URL, content: string(rec.Content)})
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("ingest: parse %s: %w", path, err)
	}

	var docs []accum.Document
	var dropped int
	for _, r := range raw {
		lang, ok := det.Detect(r.content)
		if !ok {
			dropped++
			continue
		}
		doc, ok := accum.ProcessDocument(r.url, lang, r.content)
		if !ok {
			dropped++
			continue
		}
		docs = append(docs, doc)
	}
	return docs, dropped, nil
}

// readFile reads path into memory, transparently decompressing .gz inputs.
// Multi-member gzip streams are concatenated, which CommonCrawl archives use.
func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: read %s: %w", path, err)
	}
	if !strings.HasSuffix(path, ".gz") {
		return data, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("ingest: gunzip %s: %w", path, err)
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("ingest: gunzip %s: %w", path, err)
	}
	return out, nil
}

// resolveSources expands each source (a file or a directory) to the list of
// .wet/.wet.gz files to import, preserving caller order across sources and
// lexical order within a directory.
func resolveSources(sources []string) ([]string, error) {
	var files []string
	for _, src := range sources {
		info, err := os.Stat(src)
		if err != nil {
			return nil, fmt.Errorf("ingest: stat %s: %w", src, err)
		}
		if !info.IsDir() {
			if !isWetFile(src) {
				return nil, fmt.Errorf("ingest: %s is not a .wet or .wet.gz file", src)
			}
			files = append(files, src)
			continue
		}
		err = filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && isWetFile(p) {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("ingest: walk %s: %w", src, err)
		}
	}
	return files, nil
}

func isWetFile(path string) bool {
	return strings.HasSuffix(path, ".wet") || strings.HasSuffix(path, ".wet.gz")
}

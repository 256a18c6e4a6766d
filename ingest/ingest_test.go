package ingest

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"

	"github.com/rpcpool/xray/catalog"
	"github.com/rpcpool/xray/langdetect"
	"github.com/rpcpool/xray/query"
)

const englishBody = "My Example Page\n" +
	"The quick brown fox jumps over the lazy dog while happy children " +
	"play outside in the sunny garden near the quiet river bank every morning"

func conversionRecord(url, content string) string {
	return "WARC/1.0\r\n" +
		"WARC-Type: conversion\r\n" +
		"WARC-Target-URI: " + url + "\r\n" +
		"WARC-Date: 2018-10-15T20:15:30Z\r\n" +
		"WARC-Record-ID: <urn:uuid:5b32b8d5-ab57-4b29-b1a4-e1c1b6e0b123>\r\n" +
		"WARC-Refers-To: <urn:uuid:9fca7b77-1b43-42f3-a4f0-1a2b3c4d5e6f>\r\n" +
		"WARC-Block-Digest: sha1:ABCDEFGHIJKLMNOPQRSTUVWXYZ234567\r\n" +
		"Content-Type: text/plain\r\n" +
		fmt.Sprintf("Content-Length: %d\r\n", len(content)) +
		"\r\n" + content + "\r\n\r\n"
}

func warcinfoRecord() string {
	content := "software: test\r\n"
	return "WARC/1.0\r\n" +
		"WARC-Type: warcinfo\r\n" +
		"WARC-Date: 2018-10-15T20:15:30Z\r\n" +
		"WARC-Filename: CC-MAIN-test.warc.wet.gz\r\n" +
		"WARC-Record-ID: <urn:uuid:0a1b2c3d-4e5f-6071-8293-a4b5c6d7e8f9>\r\n" +
		"Content-Type: application/warc-fields\r\n" +
		fmt.Sprintf("Content-Length: %d\r\n", len(content)) +
		"\r\n" + content + "\r\n\r\n"
}

func TestImportEmptyDir(t *testing.T) {
	dataDir := t.TempDir()
	stats, err := Import(context.Background(), dataDir, []string{t.TempDir()}, 0)
	require.NoError(t, err)
	require.Zero(t, stats.Documents)

	entries, err := os.ReadDir(dataDir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestImportSingleDocument(t *testing.T) {
	srcDir := t.TempDir()
	stream := warcinfoRecord() + conversionRecord("http://a/", englishBody)
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "crawl.wet"), []byte(stream), 0o644))

	dataDir := t.TempDir()
	stats, err := Import(context.Background(), dataDir, []string{srcDir}, 0)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Documents)

	urlCat, err := catalog.LoadURLCatalog(dataDir)
	require.NoError(t, err)
	require.Len(t, urlCat.Entries, 1)
	require.Equal(t, uint64(0), urlCat.Entries[0].FirstIndex)
	require.Equal(t, uint64(1), urlCat.Entries[0].NumEntries)

	e, err := query.Open(dataDir)
	require.NoError(t, err)
	res, err := e.Run([]string{"quick", "brown"}, langdetect.English)
	require.NoError(t, err)
	require.True(t, res.Matched)
	require.Equal(t, 1, res.TotalHits)
	require.Equal(t, "http://a/", res.Top[0].URL)
}

func TestImportGzipMultiMember(t *testing.T) {
	var buf bytes.Buffer
	for i, url := range []string{"http://a/", "http://b/"} {
		zw := gzip.NewWriter(&buf)
		_, err := zw.Write([]byte(conversionRecord(url, fmt.Sprintf("Page %d\n%s", i, englishBody[16:]))))
		require.NoError(t, err)
		require.NoError(t, zw.Close())
	}
	srcDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "crawl.wet.gz"), buf.Bytes(), 0o644))

	dataDir := t.TempDir()
	stats, err := Import(context.Background(), dataDir, []string{srcDir}, 0)
	require.NoError(t, err)
	require.Equal(t, 2, stats.Documents)
}

func TestImportMalformedFileSkipped(t *testing.T) {
	srcDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "bad.wet"), []byte("not a warc stream"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "good.wet"), []byte(conversionRecord("http://a/", englishBody)), 0o644))

	dataDir := t.TempDir()
	stats, err := Import(context.Background(), dataDir, []string{srcDir}, 0)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Documents)
}

func TestImportSessionsStayDense(t *testing.T) {
	writeSource := func(url string) string {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "crawl.wet"), []byte(conversionRecord(url, englishBody)), 0o644))
		return dir
	}

	dataDir := t.TempDir()
	_, err := Import(context.Background(), dataDir, []string{writeSource("http://a/")}, 0)
	require.NoError(t, err)
	_, err = Import(context.Background(), dataDir, []string{writeSource("http://b/")}, 0)
	require.NoError(t, err)

	urlCat, err := catalog.LoadURLCatalog(dataDir)
	require.NoError(t, err)
	require.Len(t, urlCat.Entries, 2)
	require.Equal(t, uint64(0), urlCat.Entries[0].FirstIndex)
	require.Equal(t, uint64(1), urlCat.Entries[1].FirstIndex)

	// The second session's shards must not collide with the first's.
	idxCat, err := catalog.LoadIndexedCatalog(dataDir)
	require.NoError(t, err)
	byWord := idxCat.ShardsForTag("by_word")
	require.Len(t, byWord, 2)
	require.NotEqual(t, byWord[0].Path, byWord[1].Path)
}

func TestResolveSourcesRejectsOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	_, err := resolveSources([]string{path})
	require.Error(t, err)

	// Non-wet files inside a directory are silently ignored.
	files, err := resolveSources([]string{dir})
	require.NoError(t, err)
	require.Empty(t, files)
}

// Package wetparser parses a WARC/1.0 WET byte stream (CommonCrawl's
// plain-text-extracted web archive format) into typed records.
package wetparser

// RecordType discriminates the WARC-Type header value of a parsed record.
type RecordType int

const (
	// RecordWarcinfo is a WARC-Type: warcinfo record; it carries no document
	// content relevant to indexing and is discarded by callers.
	RecordWarcinfo RecordType = iota
	// RecordConversion is a WARC-Type: conversion record; it carries the
	// plain-text body of one crawled page and is the only type consumed
	// downstream.
	RecordConversion
	// RecordOther is any WARC-Type value other than the two above.
	RecordOther
)

// Record is a single parsed WARC/1.0 record. Fields that don't apply to a
// given record's type (e.g. URL on a warcinfo record) are empty strings,
// matching the original header set's optional fields.
type Record struct {
	Type        RecordType
	URL         string
	Date        string
	Filename    string
	RecordID    string
	RefersTo    string
	BlockDigest string
	ContentType string
	Content     []byte // sub-slice of the buffer passed to Next; not copied
}

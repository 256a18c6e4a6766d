package wetparser

import (
	"bytes"
	"fmt"
	"strconv"
)

const recordMagic = "WARC/1.0"

// All parses every record in data in order, calling fn for each one. It stops
// and returns fn's error if fn returns one, or a parse error if a record is
// malformed. The spec requires a malformed record to abort only the file
// being parsed, so callers should treat a non-nil return as "skip this file".
func All(data []byte, fn func(Record) error) error {
	for len(data) > 0 {
		rec, rest, err := Next(data)
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
		data = rest
	}
	return nil
}

// Next parses one WARC/1.0 record from the front of data and returns it
// along with the unconsumed remainder. It returns an error if data does not
// begin with a well-formed record; the caller decides whether that aborts
// just the current file.
func Next(data []byte) (Record, []byte, error) {
	rest, err := expect(data, recordMagic)
	if err != nil {
		return Record{}, nil, err
	}
	rest, err = skipLineEnding(rest)
	if err != nil {
		return Record{}, nil, err
	}

	typeVal, rest, err := header(rest, "WARC-Type: ", true)
	if err != nil {
		return Record{}, nil, fmt.Errorf("wetparser: WARC-Type: %w", err)
	}
	urlVal, rest, err := header(rest, "WARC-Target-URI: ", false)
	if err != nil {
		return Record{}, nil, fmt.Errorf("wetparser: WARC-Target-URI: %w", err)
	}
	dateVal, rest, err := header(rest, "WARC-Date: ", true)
	if err != nil {
		return Record{}, nil, fmt.Errorf("wetparser: WARC-Date: %w", err)
	}
	filenameVal, rest, err := header(rest, "WARC-Filename: ", false)
	if err != nil {
		return Record{}, nil, fmt.Errorf("wetparser: WARC-Filename: %w", err)
	}
	recordIDVal, rest, err := header(rest, "WARC-Record-ID: ", true)
	if err != nil {
		return Record{}, nil, fmt.Errorf("wetparser: WARC-Record-ID: %w", err)
	}
	refersToVal, rest, err := header(rest, "WARC-Refers-To: ", false)
	if err != nil {
		return Record{}, nil, fmt.Errorf("wetparser: WARC-Refers-To: %w", err)
	}
	blockDigestVal, rest, err := header(rest, "WARC-Block-Digest: ", false)
	if err != nil {
		return Record{}, nil, fmt.Errorf("wetparser: WARC-Block-Digest: %w", err)
	}
	contentTypeVal, rest, err := header(rest, "Content-Type: ", true)
	if err != nil {
		return Record{}, nil, fmt.Errorf("wetparser: Content-Type: %w", err)
	}
	contentLengthVal, rest, err := header(rest, "Content-Length: ", true)
	if err != nil {
		return Record{}, nil, fmt.Errorf("wetparser: Content-Length: %w", err)
	}
	contentLength, err := strconv.ParseUint(contentLengthVal, 10, 64)
	if err != nil {
		return Record{}, nil, fmt.Errorf("wetparser: Content-Length %q: %w", contentLengthVal, err)
	}

	rest, err = expect(rest, "\r\n")
	if err != nil {
		return Record{}, nil, fmt.Errorf("wetparser: blank line before content: %w", err)
	}
	if uint64(len(rest)) < contentLength {
		return Record{}, nil, fmt.Errorf("wetparser: content truncated: want %d bytes, have %d", contentLength, len(rest))
	}
	content := rest[:contentLength]
	rest = rest[contentLength:]
	rest = skipWhitespace(rest)

	return Record{
		Type:        recordType(typeVal),
		URL:         urlVal,
		Date:        dateVal,
		Filename:    filenameVal,
		RecordID:    recordIDVal,
		RefersTo:    refersToVal,
		BlockDigest: blockDigestVal,
		ContentType: contentTypeVal,
		Content:     content,
	}, rest, nil
}

func recordType(warcType string) RecordType {
	switch warcType {
	case "warcinfo":
		return RecordWarcinfo
	case "conversion":
		return RecordConversion
	default:
		return RecordOther
	}
}

// header reads one "prefix<value>\r\n|\n" line. If required is false and the
// line does not begin with prefix, it returns an empty value and leaves data
// untouched, matching the original grammar's optional headers.
func header(data []byte, prefix string, required bool) (string, []byte, error) {
	if !bytes.HasPrefix(data, []byte(prefix)) {
		if required {
			return "", nil, fmt.Errorf("expected prefix %q", prefix)
		}
		return "", data, nil
	}
	rest := data[len(prefix):]
	value, rest, err := takeLine(rest)
	if err != nil {
		return "", nil, err
	}
	return value, rest, nil
}

// takeLine returns the bytes up to (not including) the first "\r\n" or bare
// "\n", and the remainder after that terminator.
func takeLine(data []byte) (string, []byte, error) {
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line := data[:i]
		if len(line) > 0 && line[len(line)-1] == '\r' {
			line = line[:len(line)-1]
		}
		return string(line), data[i+1:], nil
	}
	return "", nil, fmt.Errorf("unterminated line")
}

func expect(data []byte, tag string) ([]byte, error) {
	if !bytes.HasPrefix(data, []byte(tag)) {
		return nil, fmt.Errorf("expected %q", tag)
	}
	return data[len(tag):], nil
}

func skipLineEnding(data []byte) ([]byte, error) {
	if bytes.HasPrefix(data, []byte("\r\n")) {
		return data[2:], nil
	}
	if bytes.HasPrefix(data, []byte("\n")) {
		return data[1:], nil
	}
	return nil, fmt.Errorf("expected line ending")
}

func skipWhitespace(data []byte) []byte {
	i := 0
	for i < len(data) {
		switch data[i] {
		case ' ', '\n', '\r', '\t':
			i++
		default:
			return data[i:]
		}
	}
	return data[i:]
}

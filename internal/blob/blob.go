// Package blob turns a note's raw stored payload into decoded bytes.
//
// Modern stores gzip the structured payload, but uncompressed payloads have
// shipped in the wild despite a modern version marker. Decompression failure
// is therefore never an error here: the raw bytes are passed through as
// structured binary with the anomaly recorded, and the structural decoder
// downstream decides whether they are usable.
package blob

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
)

// Kind tags which variant of Result is populated.
type Kind int

const (
	// KindStructured means Structured holds binary document bytes.
	KindStructured Kind = iota
	// KindLegacyText means Text holds the note body directly.
	KindLegacyText
)

// Result is the decoded payload. Exactly one of Structured/Text is set,
// per Kind. Anomaly, when non-nil, records a decompression failure that
// was tolerated by falling through to the raw bytes.
type Result struct {
	Kind       Kind
	Structured []byte
	Text       string
	Anomaly    error
}

// IsGzip reports whether data starts with the gzip magic bytes.
func IsGzip(data []byte) bool {
	return len(data) > 2 && data[0] == 0x1f && data[1] == 0x8b
}

// Decode decodes a raw payload. Legacy profiles store plain text with no
// container, so legacy short-circuits to KindLegacyText. Modern payloads
// without the gzip magic skip straight to the raw fallthrough.
func Decode(raw []byte, legacy bool) Result {
	if legacy {
		return Result{Kind: KindLegacyText, Text: string(raw)}
	}

	if !IsGzip(raw) {
		return Result{
			Kind:       KindStructured,
			Structured: raw,
			Anomaly:    fmt.Errorf("blob: no gzip magic in payload"),
		}
	}

	gz, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return Result{
			Kind:       KindStructured,
			Structured: raw,
			Anomaly:    fmt.Errorf("blob: open gzip container: %w", err),
		}
	}
	decompressed, err := io.ReadAll(gz)
	if err != nil {
		// Truncated stream or checksum mismatch mid-read.
		return Result{
			Kind:       KindStructured,
			Structured: raw,
			Anomaly:    fmt.Errorf("blob: decompress: %w", err),
		}
	}
	if err := gz.Close(); err != nil {
		return Result{
			Kind:       KindStructured,
			Structured: raw,
			Anomaly:    fmt.Errorf("blob: close gzip container: %w", err),
		}
	}
	return Result{Kind: KindStructured, Structured: decompressed}
}

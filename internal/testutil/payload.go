// Package testutil provides shared test helpers for building synthetic
// payloads and fixture stores.
package testutil

import (
	"bytes"
	"compress/gzip"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"
)

// RunSpec describes one attribute run of a synthetic payload.
type RunSpec struct {
	Length int
	Ref    string // attachment reference identifier, "" for plain
	UTI    string
}

// Payload builds an uncompressed note archive with the given text and runs.
// Field numbers mirror the production schema.
func Payload(text string, runs ...RunSpec) []byte {
	var note []byte
	note = appendBytesField(note, 2, []byte(text))
	for _, r := range runs {
		var run []byte
		run = protowire.AppendTag(run, 1, protowire.VarintType)
		run = protowire.AppendVarint(run, uint64(r.Length))
		if r.Ref != "" {
			var att []byte
			att = appendBytesField(att, 1, []byte(r.Ref))
			if r.UTI != "" {
				att = appendBytesField(att, 2, []byte(r.UTI))
			}
			run = appendBytesField(run, 12, att)
		}
		note = appendBytesField(note, 5, run)
	}
	doc := appendBytesField(nil, 3, note)
	return appendBytesField(nil, 2, doc)
}

// GzipPayload builds a compressed note archive, as modern stores write them.
func GzipPayload(t *testing.T, text string, runs ...RunSpec) []byte {
	t.Helper()
	return Gzip(t, Payload(text, runs...))
}

// Gzip compresses data with a default-level gzip container.
func Gzip(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func appendBytesField(b []byte, num protowire.Number, val []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, val)
}

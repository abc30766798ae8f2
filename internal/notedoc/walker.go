// Package notedoc decodes the structured binary note payload into its plain
// text and ordered attribute runs.
//
// The payload is a nested protobuf archive with fixed field numbers: a root
// wrapping a document, the document wrapping a note, the note carrying the
// full text plus a run list that partitions it. The field-number table below
// is the complete schema knowledge; decoding walks the wire format with it
// rather than generated message types, because the archive is consumed
// read-only and only a handful of fields matter.
package notedoc

import (
	"fmt"
	"unicode/utf8"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/models"
)

// Field numbers of the note archive. These do not drift across store
// versions; version drift lives in the relational catalog.
const (
	fieldDocument = 2 // root → document
	fieldNote     = 3 // document → note

	fieldNoteText = 2 // note → full text
	fieldAttrRun  = 5 // note → attribute run, repeated

	fieldRunLength     = 1  // run → span length in code points
	fieldRunAttachment = 12 // run → embedded attachment info

	fieldAttachmentID  = 1 // attachment info → reference identifier
	fieldAttachmentUTI = 2 // attachment info → type identifier
)

// Document is the walker's output: the baseline text and the run partition
// over it. Run offsets describe this text, before any placeholder
// substitution downstream.
type Document struct {
	Text string
	Runs []models.Run
}

// Decode walks data as a note archive. Any wire-level damage or a run list
// that does not partition the text yields apperr.ErrMalformedDocument; the
// caller treats that as a per-note failure, never a batch one.
func Decode(data []byte) (*Document, error) {
	docBytes, ok, err := messageField(data, fieldDocument)
	if err != nil {
		return nil, malformed("document envelope", err)
	}
	if !ok {
		return nil, malformed("document envelope", fmt.Errorf("no document field"))
	}

	noteBytes, ok, err := messageField(docBytes, fieldNote)
	if err != nil {
		return nil, malformed("document", err)
	}
	if !ok {
		return nil, malformed("document", fmt.Errorf("no note field"))
	}

	var text string
	var raw []rawRun
	err = walkMessage(noteBytes, func(num protowire.Number, val fieldValue) error {
		switch num {
		case fieldNoteText:
			b, err := val.bytes()
			if err != nil {
				return err
			}
			text = string(b)
		case fieldAttrRun:
			b, err := val.bytes()
			if err != nil {
				return err
			}
			r, err := decodeRun(b)
			if err != nil {
				return err
			}
			raw = append(raw, r)
		}
		return nil
	})
	if err != nil {
		return nil, malformed("note", err)
	}

	textLen := utf8.RuneCountInString(text)

	// No runs at all: the whole text is one implicit plain run.
	if len(raw) == 0 {
		return &Document{
			Text: text,
			Runs: []models.Run{{Start: 0, Length: textLen}},
		}, nil
	}

	runs := make([]models.Run, 0, len(raw))
	offset := 0
	for _, r := range raw {
		// Zero-length runs are kept: they mark pure insertion points,
		// e.g. an inline attachment with no caption.
		runs = append(runs, models.Run{Start: offset, Length: r.length, Ref: r.ref})
		offset += r.length
	}
	if offset != textLen {
		return nil, malformed("run partition",
			fmt.Errorf("run lengths sum to %d, text has %d code points", offset, textLen))
	}

	return &Document{Text: text, Runs: runs}, nil
}

func malformed(where string, err error) error {
	return fmt.Errorf("%w: %s: %v", apperr.ErrMalformedDocument, where, err)
}

type rawRun struct {
	length int
	ref    string
	uti    string
}

func decodeRun(buf []byte) (rawRun, error) {
	var r rawRun
	err := walkMessage(buf, func(num protowire.Number, val fieldValue) error {
		switch num {
		case fieldRunLength:
			v, err := val.varint()
			if err != nil {
				return err
			}
			r.length = int(v)
		case fieldRunAttachment:
			b, err := val.bytes()
			if err != nil {
				return err
			}
			return walkMessage(b, func(num protowire.Number, val fieldValue) error {
				switch num {
				case fieldAttachmentID:
					b, err := val.bytes()
					if err != nil {
						return err
					}
					r.ref = string(b)
				case fieldAttachmentUTI:
					b, err := val.bytes()
					if err != nil {
						return err
					}
					r.uti = string(b)
				}
				return nil
			})
		}
		return nil
	})
	return r, err
}

// fieldValue carries one decoded wire value; which accessor is valid
// depends on the field's wire type.
type fieldValue struct {
	typ protowire.Type
	b   []byte
	u   uint64
}

func (v fieldValue) bytes() ([]byte, error) {
	if v.typ != protowire.BytesType {
		return nil, fmt.Errorf("field has wire type %v, want bytes", v.typ)
	}
	return v.b, nil
}

func (v fieldValue) varint() (uint64, error) {
	if v.typ != protowire.VarintType {
		return 0, fmt.Errorf("field has wire type %v, want varint", v.typ)
	}
	return v.u, nil
}

// walkMessage iterates every field of buf in order, including repeated
// occurrences, and hands each to visit. Unknown fields are consumed and
// skipped by the visitor simply ignoring their numbers.
func walkMessage(buf []byte, visit func(num protowire.Number, val fieldValue) error) error {
	for len(buf) > 0 {
		num, typ, n := protowire.ConsumeTag(buf)
		if n < 0 {
			return fmt.Errorf("consume tag: %w", protowire.ParseError(n))
		}
		buf = buf[n:]

		var val fieldValue
		switch typ {
		case protowire.VarintType:
			u, n := protowire.ConsumeVarint(buf)
			if n < 0 {
				return fmt.Errorf("field %d: %w", num, protowire.ParseError(n))
			}
			val = fieldValue{typ: typ, u: u}
			buf = buf[n:]
		case protowire.Fixed32Type:
			u, n := protowire.ConsumeFixed32(buf)
			if n < 0 {
				return fmt.Errorf("field %d: %w", num, protowire.ParseError(n))
			}
			val = fieldValue{typ: typ, u: uint64(u)}
			buf = buf[n:]
		case protowire.Fixed64Type:
			u, n := protowire.ConsumeFixed64(buf)
			if n < 0 {
				return fmt.Errorf("field %d: %w", num, protowire.ParseError(n))
			}
			val = fieldValue{typ: typ, u: u}
			buf = buf[n:]
		case protowire.BytesType:
			b, n := protowire.ConsumeBytes(buf)
			if n < 0 {
				return fmt.Errorf("field %d: %w", num, protowire.ParseError(n))
			}
			val = fieldValue{typ: typ, b: b}
			buf = buf[n:]
		default:
			return fmt.Errorf("field %d: unsupported wire type %v", num, typ)
		}

		if err := visit(num, val); err != nil {
			return err
		}
	}
	return nil
}

// messageField returns the last occurrence of a length-delimited field,
// matching protobuf merge semantics for singular embedded messages.
func messageField(buf []byte, want protowire.Number) ([]byte, bool, error) {
	var out []byte
	found := false
	err := walkMessage(buf, func(num protowire.Number, val fieldValue) error {
		if num != want {
			return nil
		}
		b, err := val.bytes()
		if err != nil {
			return err
		}
		out = b
		found = true
		return nil
	})
	return out, found, err
}

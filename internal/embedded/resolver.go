// Package embedded resolves attachment references carried by runs against
// attachment metadata and rewrites run text into the final string.
package embedded

import (
	"unicode/utf8"

	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/notedoc"
)

// Placeholder is substituted for the span of every resolved attachment
// reference. U+FFFC OBJECT REPLACEMENT CHARACTER is what Cocoa text storage
// inserts for inline attachments; it is a single code point, so offsets stay
// fixed-width, and it can never match a hashtag, mention, or URL pattern.
// This is a local convention of the final text, not a wire format.
const Placeholder = "￼"

var placeholderLen = utf8.RuneCountInString(Placeholder)

// Lookup resolves an attachment reference identifier to its catalog row.
// The second return is false for identifiers with no matching row.
type Lookup func(identifier string) (*models.Attachment, bool)

// Resolution is the resolver's output. Run and binding offsets describe the
// final Text, not the pre-substitution document text.
type Resolution struct {
	Text     string
	Runs     []models.Run
	Bindings []models.AttachmentBinding
}

// Resolve binds each attachment-reference run via lookup. Found references
// have their span replaced by Placeholder and produce a binding. Dangling
// references keep their original span and produce nothing: attachment rows
// and note payloads drift independently in the source store, so a missing
// row is a tolerated inconsistency rather than a failure.
//
// Resolve is a pure function: the same document and lookup results always
// produce an identical Resolution.
func Resolve(doc *notedoc.Document, lookup Lookup) Resolution {
	src := []rune(doc.Text)
	out := make([]rune, 0, len(src))
	runs := make([]models.Run, 0, len(doc.Runs))
	var bindings []models.AttachmentBinding

	offset := 0
	for _, r := range doc.Runs {
		span := src[r.Start : r.Start+r.Length]

		if r.Ref != "" && lookup != nil {
			if att, ok := lookup(r.Ref); ok {
				out = append(out, []rune(Placeholder)...)
				runs = append(runs, models.Run{Start: offset, Length: placeholderLen, Ref: r.Ref})
				bindings = append(bindings, models.AttachmentBinding{
					Start:      offset,
					Length:     placeholderLen,
					Identifier: r.Ref,
					Attachment: att,
				})
				offset += placeholderLen
				continue
			}
		}

		// Plain run, or dangling reference with the reference dropped.
		out = append(out, span...)
		runs = append(runs, models.Run{Start: offset, Length: r.Length})
		offset += r.Length
	}

	return Resolution{Text: string(out), Runs: runs, Bindings: bindings}
}

// Package content decodes one note's raw payload end to end: container,
// structure, embedded references, annotations.
//
// Decoding is a pure, synchronous computation over in-memory buffers; the
// raw payload and the attachment lookup are handed in by the caller, and the
// shared Profile is immutable, so notes decode safely in parallel.
package content

import (
	"github.com/starford/othala/internal/annotate"
	"github.com/starford/othala/internal/blob"
	"github.com/starford/othala/internal/embedded"
	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/notedoc"
	"github.com/starford/othala/internal/schema"
)

// outcome is what one decode attempt yields: either legacy plain text or a
// structured document.
type outcome struct {
	text string
	doc  *notedoc.Document
}

// attempt is one entry of the ordered fallback chain. Attempts run in order
// and the first success wins; every failure is recorded as a diagnostic.
type attempt struct {
	name string
	run  func() (outcome, error)
}

// Decode turns a raw payload into a NoteContent. It never returns an error:
// failures scope to this one note, which surfaces with Available=false and
// empty text so it still counts in listings.
func Decode(raw []byte, profile *schema.Profile, lookup embedded.Lookup) *models.NoteContent {
	var diags []string

	for _, at := range attempts(raw, profile) {
		out, err := at.run()
		if err != nil {
			diags = append(diags, at.name+": "+err.Error())
			continue
		}
		if out.doc == nil {
			return finalizeLegacy(out.text, diags)
		}
		return finalize(out.doc, lookup, diags)
	}

	return &models.NoteContent{Available: false, Diagnostics: diags}
}

func attempts(raw []byte, profile *schema.Profile) []attempt {
	if profile.Legacy {
		return []attempt{
			{name: "legacy-text", run: func() (outcome, error) {
				res := blob.Decode(raw, true)
				return outcome{text: res.Text}, nil
			}},
		}
	}
	return []attempt{
		{name: "decompress", run: func() (outcome, error) {
			res := blob.Decode(raw, false)
			if res.Anomaly != nil {
				return outcome{}, res.Anomaly
			}
			doc, err := notedoc.Decode(res.Structured)
			if err != nil {
				return outcome{}, err
			}
			return outcome{doc: doc}, nil
		}},
		// Some stores carry uncompressed payloads despite a modern version
		// marker; try the raw bytes as structured binary before giving up.
		{name: "raw-structure", run: func() (outcome, error) {
			doc, err := notedoc.Decode(raw)
			if err != nil {
				return outcome{}, err
			}
			return outcome{doc: doc}, nil
		}},
	}
}

func finalize(doc *notedoc.Document, lookup embedded.Lookup, diags []string) *models.NoteContent {
	res := embedded.Resolve(doc, lookup)
	return &models.NoteContent{
		Text:        res.Text,
		Runs:        res.Runs,
		Attachments: res.Bindings,
		Annotations: annotate.Extract(res.Text, res.Bindings),
		Available:   true,
		Diagnostics: diags,
	}
}

func finalizeLegacy(text string, diags []string) *models.NoteContent {
	return &models.NoteContent{
		Text:        text,
		Annotations: annotate.Extract(text, nil),
		Available:   true,
		Diagnostics: diags,
	}
}

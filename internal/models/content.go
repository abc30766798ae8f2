package models

// Run is one contiguous span of a note's reconstructed text with uniform
// attribution. Start and Length are measured in code points of the text the
// run list describes. Ref, when non-empty, is the identifier of an embedded
// attachment reference carried by the span.
type Run struct {
	Start  int    `json:"start"`
	Length int    `json:"length"`
	Ref    string `json:"ref,omitempty"`
}

// AnnotationKind classifies an Annotation.
type AnnotationKind string

const (
	AnnotationHashtag AnnotationKind = "hashtag"
	AnnotationMention AnnotationKind = "mention"
	AnnotationLink    AnnotationKind = "link"
)

// Annotation is one hashtag, mention, or link occurrence in final text.
// Start/End are code-point offsets; End is exclusive.
type Annotation struct {
	Kind  AnnotationKind `json:"kind"`
	Text  string         `json:"text"`
	Start int            `json:"start"`
	End   int            `json:"end"`
}

// AttachmentBinding is a resolved embedded reference: the placeholder span
// in the final text paired with the attachment row it points at.
type AttachmentBinding struct {
	Start      int         `json:"start"`
	Length     int         `json:"length"`
	Identifier string      `json:"identifier"`
	Attachment *Attachment `json:"attachment,omitempty"`
}

// NoteContent is the final decoded artifact for one note. It is immutable
// once produced; a fresh instance is built on every decode.
type NoteContent struct {
	Text        string              `json:"text"`
	Runs        []Run               `json:"runs,omitempty"`
	Attachments []AttachmentBinding `json:"attachments,omitempty"`
	Annotations []Annotation        `json:"annotations,omitempty"`

	// Available is false when every decode attempt failed; the note still
	// appears in listings with empty text so folder/account counts hold.
	Available bool `json:"available"`

	// Diagnostics records non-fatal anomalies hit on the way here, such as
	// a failed decompression that fell through to a raw structural decode.
	Diagnostics []string `json:"diagnostics,omitempty"`
}

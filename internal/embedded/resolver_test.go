package embedded

import (
	"reflect"
	"testing"

	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/notedoc"
)

func lookupFor(atts map[string]*models.Attachment) Lookup {
	return func(id string) (*models.Attachment, bool) {
		a, ok := atts[id]
		return a, ok
	}
}

func TestResolve_ZeroLengthAttachmentRun(t *testing.T) {
	doc := &notedoc.Document{
		Text: "Hello",
		Runs: []models.Run{
			{Start: 0, Length: 5},
			{Start: 5, Length: 0, Ref: "ATT-1"},
		},
	}
	att := &models.Attachment{ID: 1, Identifier: "ATT-1", Filename: "photo.jpg"}
	res := Resolve(doc, lookupFor(map[string]*models.Attachment{"ATT-1": att}))

	if res.Text != "Hello"+Placeholder {
		t.Errorf("text = %q", res.Text)
	}
	if len(res.Bindings) != 1 {
		t.Fatalf("bindings = %d, want 1", len(res.Bindings))
	}
	b := res.Bindings[0]
	if b.Start != 5 || b.Length != 1 || b.Identifier != "ATT-1" || b.Attachment != att {
		t.Errorf("binding = %+v", b)
	}
	if res.Runs[1].Start != 5 || res.Runs[1].Length != 1 {
		t.Errorf("placeholder run = %+v", res.Runs[1])
	}
}

func TestResolve_DanglingReferenceKeepsText(t *testing.T) {
	doc := &notedoc.Document{
		Text: "see chart below",
		Runs: []models.Run{
			{Start: 0, Length: 4},
			{Start: 4, Length: 5, Ref: "ATT-404"},
			{Start: 9, Length: 6},
		},
	}
	res := Resolve(doc, lookupFor(nil))

	if res.Text != "see chart below" {
		t.Errorf("text = %q, want original", res.Text)
	}
	if len(res.Bindings) != 0 {
		t.Errorf("bindings = %+v, want none", res.Bindings)
	}
	if res.Runs[1].Ref != "" {
		t.Errorf("dangling reference not dropped: %+v", res.Runs[1])
	}
}

func TestResolve_OffsetsRecomputedAfterSubstitution(t *testing.T) {
	// Reference span of 10 code points collapses to a 1-point placeholder;
	// everything after it must shift left by 9.
	doc := &notedoc.Document{
		Text: "a:[chart 1]:b",
		Runs: []models.Run{
			{Start: 0, Length: 2},
			{Start: 2, Length: 9, Ref: "ATT-2"},
			{Start: 11, Length: 2},
		},
	}
	att := &models.Attachment{ID: 2, Identifier: "ATT-2"}
	res := Resolve(doc, lookupFor(map[string]*models.Attachment{"ATT-2": att}))

	if res.Text != "a:"+Placeholder+":b" {
		t.Errorf("text = %q", res.Text)
	}
	want := []models.Run{
		{Start: 0, Length: 2},
		{Start: 2, Length: 1, Ref: "ATT-2"},
		{Start: 3, Length: 2},
	}
	if !reflect.DeepEqual(res.Runs, want) {
		t.Errorf("runs = %+v, want %+v", res.Runs, want)
	}
}

func TestResolve_SameAttachmentTwice(t *testing.T) {
	doc := &notedoc.Document{
		Text: "xy",
		Runs: []models.Run{
			{Start: 0, Length: 1, Ref: "ATT-1"},
			{Start: 1, Length: 1, Ref: "ATT-1"},
		},
	}
	att := &models.Attachment{ID: 1, Identifier: "ATT-1"}
	res := Resolve(doc, lookupFor(map[string]*models.Attachment{"ATT-1": att}))

	if len(res.Bindings) != 2 {
		t.Fatalf("bindings = %d, want 2", len(res.Bindings))
	}
	if res.Bindings[0].Start != 0 || res.Bindings[1].Start != 1 {
		t.Errorf("bindings = %+v", res.Bindings)
	}
}

func TestResolve_Idempotent(t *testing.T) {
	doc := &notedoc.Document{
		Text: "Hello world",
		Runs: []models.Run{
			{Start: 0, Length: 6},
			{Start: 6, Length: 5, Ref: "ATT-9"},
		},
	}
	lookup := lookupFor(map[string]*models.Attachment{"ATT-9": {ID: 9, Identifier: "ATT-9"}})

	first := Resolve(doc, lookup)
	second := Resolve(doc, lookup)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("resolve is not idempotent:\nfirst  = %+v\nsecond = %+v", first, second)
	}
}

package notedoc

import (
	"errors"
	"math/rand"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/testutil"
)

func TestDecode_RoundTrip(t *testing.T) {
	data := testutil.Payload("Hello world",
		testutil.RunSpec{Length: 6},
		testutil.RunSpec{Length: 5},
	)
	doc, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if doc.Text != "Hello world" {
		t.Errorf("text = %q", doc.Text)
	}
	if len(doc.Runs) != 2 {
		t.Fatalf("runs = %d, want 2", len(doc.Runs))
	}
	if doc.Runs[0].Start != 0 || doc.Runs[0].Length != 6 {
		t.Errorf("run[0] = %+v", doc.Runs[0])
	}
	if doc.Runs[1].Start != 6 || doc.Runs[1].Length != 5 {
		t.Errorf("run[1] = %+v", doc.Runs[1])
	}
}

func TestDecode_ZeroRunsImplicitPlain(t *testing.T) {
	doc, err := Decode(testutil.Payload("just text"))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(doc.Runs) != 1 {
		t.Fatalf("runs = %d, want 1 implicit run", len(doc.Runs))
	}
	if doc.Runs[0].Start != 0 || doc.Runs[0].Length != len("just text") || doc.Runs[0].Ref != "" {
		t.Errorf("implicit run = %+v", doc.Runs[0])
	}
}

func TestDecode_ZeroLengthAttachmentRun(t *testing.T) {
	data := testutil.Payload("Hello",
		testutil.RunSpec{Length: 5},
		testutil.RunSpec{Length: 0, Ref: "ATT-1", UTI: "public.jpeg"},
	)
	doc, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(doc.Runs) != 2 {
		t.Fatalf("runs = %d, want 2", len(doc.Runs))
	}
	r := doc.Runs[1]
	if r.Start != 5 || r.Length != 0 || r.Ref != "ATT-1" {
		t.Errorf("zero-length run = %+v", r)
	}
}

func TestDecode_RepeatedIdentifierAllowed(t *testing.T) {
	data := testutil.Payload("ab",
		testutil.RunSpec{Length: 1, Ref: "ATT-1"},
		testutil.RunSpec{Length: 1, Ref: "ATT-1"},
	)
	doc, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if doc.Runs[0].Ref != "ATT-1" || doc.Runs[1].Ref != "ATT-1" {
		t.Errorf("runs = %+v", doc.Runs)
	}
}

func TestDecode_MultibyteLengthsAreCodePoints(t *testing.T) {
	text := "héllo 🙂"
	n := utf8.RuneCountInString(text)
	doc, err := Decode(testutil.Payload(text, testutil.RunSpec{Length: n}))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if doc.Runs[0].Length != n {
		t.Errorf("length = %d, want %d code points", doc.Runs[0].Length, n)
	}
}

func TestDecode_LengthMismatchIsMalformed(t *testing.T) {
	data := testutil.Payload("Hello", testutil.RunSpec{Length: 3})
	_, err := Decode(data)
	if !errors.Is(err, apperr.ErrMalformedDocument) {
		t.Fatalf("err = %v, want ErrMalformedDocument", err)
	}
}

func TestDecode_GarbageIsMalformed(t *testing.T) {
	for _, data := range [][]byte{
		nil,
		[]byte("this is not a note archive at all, just text"),
		{0xff, 0xff, 0xff, 0xff},
	} {
		if _, err := Decode(data); !errors.Is(err, apperr.ErrMalformedDocument) {
			t.Errorf("Decode(%q) err = %v, want ErrMalformedDocument", data, err)
		}
	}
}

// Property: for any generated run sequence the decoded partition is
// contiguous, ordered, and sums to the text length.
func TestDecode_PartitionProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 200; trial++ {
		var runs []testutil.RunSpec
		total := 0
		for i := 0; i < rng.Intn(8); i++ {
			n := rng.Intn(5)
			spec := testutil.RunSpec{Length: n}
			if rng.Intn(3) == 0 {
				spec.Ref = "ATT-P"
			}
			runs = append(runs, spec)
			total += n
		}
		text := strings.Repeat("x", total)

		doc, err := Decode(testutil.Payload(text, runs...))
		if err != nil {
			t.Fatalf("trial %d: %v", trial, err)
		}
		sum := 0
		for i, r := range doc.Runs {
			if r.Start != sum {
				t.Fatalf("trial %d: run %d start = %d, want %d", trial, i, r.Start, sum)
			}
			sum += r.Length
		}
		if sum != utf8.RuneCountInString(doc.Text) {
			t.Fatalf("trial %d: lengths sum to %d, text has %d", trial, sum, utf8.RuneCountInString(doc.Text))
		}
	}
}

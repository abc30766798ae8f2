package apperr

import "errors"

var (
	// ErrUnrecognizedSchema means the store metadata matches no known schema
	// variant, not even the legacy table layout. It is the only error that is
	// fatal for a whole store; everything else is scoped to a single note.
	ErrUnrecognizedSchema = errors.New("unrecognized store schema")

	// ErrMalformedDocument means a note payload decoded structurally but
	// violated the run/text invariants. The note's relational metadata stays
	// usable; only its content is unavailable.
	ErrMalformedDocument = errors.New("malformed note document")

	ErrNotFound = errors.New("not found")
)

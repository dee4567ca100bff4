package catalogue

import (
	"fmt"

	apperrors "github.com/Adithya-Monish-Kumar-K/Content-Search-Engine/pkg/errors"
)

// ErrorKind classifies why a catalogue failed to load.
type ErrorKind string

const (
	KindMissingID       ErrorKind = "missing_id"
	KindDuplicateID     ErrorKind = "duplicate_id"
	KindMissingCategory ErrorKind = "missing_category"
	KindInvalidDate     ErrorKind = "invalid_date"
	KindEmptyTag        ErrorKind = "empty_tag"
)

// LoadError reports the first invalid record of a catalogue. Index is the
// zero-based position of the record in the raw input.
type LoadError struct {
	Kind  ErrorKind
	ID    string
	Index int
	Err   error
}

func (e *LoadError) Error() string {
	msg := fmt.Sprintf("catalogue record %d", e.Index)
	if e.ID != "" {
		msg = fmt.Sprintf("%s (id %q)", msg, e.ID)
	}
	msg = fmt.Sprintf("%s: %s", msg, e.Kind)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap lets callers match any load failure with
// errors.Is(err, apperrors.ErrInvalidCatalogue).
func (e *LoadError) Unwrap() []error {
	if e.Err != nil {
		return []error{apperrors.ErrInvalidCatalogue, e.Err}
	}
	return []error{apperrors.ErrInvalidCatalogue}
}

package waitlist

import (
	"errors"
	"fmt"
)

// ErrAlreadyInscribed is returned without contacting the backend when the
// slot is already known to hold an inscription of the student.
var ErrAlreadyInscribed = errors.New("already inscribed in this meal slot")

// ShapeError reports an available-slots payload that is neither a bare
// list nor an object wrapping one under "refeicoes".
type ShapeError struct {
	Snippet string
	Err     error
}

func (e *ShapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unexpected available slots payload %q: %v", e.Snippet, e.Err)
	}
	return fmt.Sprintf("unexpected available slots payload %q", e.Snippet)
}

func (e *ShapeError) Unwrap() error { return e.Err }

// RefreshError is returned alongside a successful mutation when the
// follow-up refresh of available slots failed. The mutation itself stands.
type RefreshError struct {
	Err error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("mutation succeeded but refreshing available slots failed: %v", e.Err)
}

func (e *RefreshError) Unwrap() error { return e.Err }

package griddus

import (
	"errors"
	"fmt"
)

// Sentinel errors for rejected operations. The operation that returns one of
// these leaves prior state intact.
var (
	// ErrDuplicateID is returned when an insert would violate identifier
	// uniqueness within a collection.
	ErrDuplicateID = errors.New("duplicate item id")

	// ErrIndexOutOfRange is returned for an index outside the sequence.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrNegativeOffset is returned when a window offset below zero is
	// requested.
	ErrNegativeOffset = errors.New("negative window offset")

	// ErrNegativeSize is returned when a window size below zero is requested.
	ErrNegativeSize = errors.New("negative window size")
)

// InvariantError reports pipeline misuse, such as a change record for an
// identifier the view has no record of. These are programming errors, not
// recoverable runtime conditions, so they surface as panics distinguishable
// from the sentinel errors above.
type InvariantError struct {
	msg string
}

// Error implements the error interface.
func (e *InvariantError) Error() string {
	return "invariant violation: " + e.msg
}

// invariantf panics with an InvariantError.
func invariantf(format string, args ...any) {
	panic(&InvariantError{msg: fmt.Sprintf(format, args...)})
}

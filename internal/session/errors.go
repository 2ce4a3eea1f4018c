package session

import (
	"errors"
	"fmt"
)

// ErrAttemptCompleted reports that the attempt already finished; a duplicate
// submit is absorbed as a no-op rather than surfaced to the student.
var ErrAttemptCompleted = errors.New("attempt already completed")

// ErrSubmitInFlight reports that another submission for the same attempt is
// currently running (explicit click racing the clock expiry, typically).
var ErrSubmitInFlight = errors.New("submission already in flight")

// TransientError wraps a network or service failure on a persistence call.
// Local state is retained and the operation may be retried.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient persistence failure during %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as a TransientError for the given operation.
func Transient(op string, err error) error {
	return &TransientError{Op: op, Err: err}
}

// IsTransient reports whether err is (or wraps) a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// NotFoundError reports that an attempt or mock test does not exist. Terminal
// for the session.
type NotFoundError struct {
	Resource string
	ID       uint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nfe *NotFoundError
	return errors.As(err, &nfe)
}

// ValidationError reports a malformed response rejected locally, before any
// persistence call is attempted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

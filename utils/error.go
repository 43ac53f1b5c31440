package utils

import (
	"errors"
	"fmt"
	"strings"
)

var ErrorRecordNotFound = errors.New("record not found")

func ErrorPanic(err error) {
	if err != nil {
		panic(err)
	}
}

// ValidationError reports unmet step or submit preconditions.
// Fields carries the offending field names so the UI can direct attention.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	return "validation failed: " + strings.Join(e.Fields, ", ")
}

func NewValidationError(fields ...string) *ValidationError {
	return &ValidationError{Fields: fields}
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// PersistenceError wraps a failed quote-store call. The in-memory draft
// is left untouched by the caller; the user can retry without data loss.
type PersistenceError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *PersistenceError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("quote store %s failed (%d): %s", e.Op, e.StatusCode, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("quote store %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("quote store %s failed: %s", e.Op, e.Message)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Retryable is always true: the store treats every non-success uniformly
// and the next save attempt may succeed.
func (e *PersistenceError) Retryable() bool { return true }

func IsPersistenceError(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}

// LifecycleError reports an illegal status transition. Status is left unchanged.
type LifecycleError struct {
	From string
	To   string
}

func (e *LifecycleError) Error() string {
	return fmt.Sprintf("illegal status transition %s -> %s", e.From, e.To)
}

func IsLifecycleError(err error) bool {
	var le *LifecycleError
	return errors.As(err, &le)
}

// IdentityError guards the server-id invariant: an update with no id,
// or a second create result for a draft that already has one. Should
// never occur; when it does the offending result is discarded.
type IdentityError struct {
	Reason string
}

func (e *IdentityError) Error() string {
	return "draft identity violation: " + e.Reason
}

func IsIdentityError(err error) bool {
	var ie *IdentityError
	return errors.As(err, &ie)
}

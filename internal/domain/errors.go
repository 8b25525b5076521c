package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies engine errors for retry and surfacing decisions.
type ErrorKind string

const (
	// ErrKindValidation marks rejected input; the job never starts.
	ErrKindValidation ErrorKind = "validation"
	// ErrKindParameter marks a step-level parameter schema mismatch.
	ErrKindParameter ErrorKind = "parameter"
	// ErrKindInfrastructure marks storage/triplestore unavailability;
	// retried with backoff before becoming fatal.
	ErrKindInfrastructure ErrorKind = "infrastructure"
	// ErrKindTimeout marks a step exceeding its budget.
	ErrKindTimeout ErrorKind = "timeout"
	// ErrKindConflict marks an optimistic concurrency failure.
	ErrKindConflict ErrorKind = "conflict"
)

// Error is a classified engine error.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Errf builds a classified error from a format string.
func Errf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapErr classifies an underlying error.
func WrapErr(kind ErrorKind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the error kind, defaulting to infrastructure for
// unclassified failures so they stay retryable.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindInfrastructure
}

package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a domain error so handlers can map it to a response
// without string matching.
type ErrorKind string

const (
	ErrorKindValidation ErrorKind = "validation"
	ErrorKindNotFound   ErrorKind = "not_found"
	ErrorKindConflict   ErrorKind = "conflict"
	ErrorKindInternal   ErrorKind = "internal"
)

// DomainError is the error type crossing the service boundary.
type DomainError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a validation error (rejected before any transaction opens)
func NewValidationError(format string, args ...interface{}) *DomainError {
	return &DomainError{Kind: ErrorKindValidation, Message: fmt.Sprintf(format, args...)}
}

// NewNotFoundError creates a not-found error (no mutation occurred)
func NewNotFoundError(format string, args ...interface{}) *DomainError {
	return &DomainError{Kind: ErrorKindNotFound, Message: fmt.Sprintf(format, args...)}
}

// NewConflictError creates a conflict error (insufficient seats, illegal
// transition, cancellation past cutoff)
func NewConflictError(format string, args ...interface{}) *DomainError {
	return &DomainError{Kind: ErrorKindConflict, Message: fmt.Sprintf(format, args...)}
}

// NewInternalError wraps an unexpected failure; the enclosing transaction has
// already been rolled back by the time it propagates
func NewInternalError(message string, err error) *DomainError {
	return &DomainError{Kind: ErrorKindInternal, Message: message, Err: err}
}

func hasKind(err error, kind ErrorKind) bool {
	var de *DomainError
	return errors.As(err, &de) && de.Kind == kind
}

// IsValidation reports whether err is a validation error
func IsValidation(err error) bool { return hasKind(err, ErrorKindValidation) }

// IsNotFound reports whether err is a not-found error
func IsNotFound(err error) bool { return hasKind(err, ErrorKindNotFound) }

// IsConflict reports whether err is a conflict error
func IsConflict(err error) bool { return hasKind(err, ErrorKindConflict) }

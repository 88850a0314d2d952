// internal/app/system/apperr/apperr.go
package apperr

import (
	"errors"
	"fmt"
)

// ValidationError reports bad input. Field is empty when the problem is not
// tied to a single field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// NotFoundError reports a missing document on a write path.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// ConflictError reports a write that could not be applied: retries
// exhausted, an illegal state transition, or a deployment without
// transaction support.
type ConflictError struct {
	Message string
	Err     error
}

func (e *ConflictError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ConflictError) Unwrap() error { return e.Err }

// ForbiddenError reports a caller without the right to act.
type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string { return e.Message }

// ExternalServiceError reports a failure of the payment provider or the
// blob store.
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return e.Service + ": " + e.Err.Error()
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

// Constructors.

func Validation(field, msg string) error { return &ValidationError{Field: field, Message: msg} }

func NotFound(kind, id string) error { return &NotFoundError{Kind: kind, ID: id} }

func Conflict(msg string, err error) error { return &ConflictError{Message: msg, Err: err} }

func Forbidden(msg string) error { return &ForbiddenError{Message: msg} }

func External(service string, err error) error {
	return &ExternalServiceError{Service: service, Err: err}
}

// Predicates.

func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

func IsConflict(err error) bool {
	var e *ConflictError
	return errors.As(err, &e)
}

func IsForbidden(err error) bool {
	var e *ForbiddenError
	return errors.As(err, &e)
}

func IsExternal(err error) bool {
	var e *ExternalServiceError
	return errors.As(err, &e)
}

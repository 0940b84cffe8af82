// Package apperr is the single failure type crossing service boundaries.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind tags a failure so callers can branch on it without string matching
type Kind string

const (
	Unauthenticated               Kind = "UNAUTHENTICATED"
	InvalidSelfReference          Kind = "INVALID_SELF_REFERENCE"
	TargetNotFound                Kind = "TARGET_NOT_FOUND"
	ConflictAlreadyInDesiredState Kind = "CONFLICT_ALREADY_IN_DESIRED_STATE"
	PersistenceUnavailable        Kind = "PERSISTENCE_UNAVAILABLE"
	Forbidden                     Kind = "FORBIDDEN"
	Invalid                       Kind = "INVALID"
)

type Error struct {
	Kind    Kind
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

// Is matches on Kind so errors.Is(err, apperr.New(apperr.TargetNotFound, "")) works
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Unavailable wraps an infrastructure error as a retryable failure
func Unavailable(message string, err error) *Error {
	return Wrap(PersistenceUnavailable, message, err)
}

// KindOf returns the failure kind of err, PersistenceUnavailable for foreign errors
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return PersistenceUnavailable
}

// From normalizes any error into an *Error, leaving tagged errors untouched
func From(err error, message string) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Unavailable(message, err)
}

// Message is the user-facing text of err
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "Something went wrong"
}

// HTTPStatus maps a failure kind onto a response status
func HTTPStatus(kind Kind) int {
	switch kind {
	case Unauthenticated:
		return http.StatusUnauthorized
	case InvalidSelfReference, Invalid:
		return http.StatusBadRequest
	case TargetNotFound:
		return http.StatusNotFound
	case Forbidden:
		return http.StatusForbidden
	case ConflictAlreadyInDesiredState:
		return http.StatusOK
	default:
		return http.StatusServiceUnavailable
	}
}

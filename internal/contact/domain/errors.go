package domain

import (
	"errors"
	"fmt"
)

var (
	ErrSessionNotFound  = errors.New("contact session not found")
	ErrSessionClosed    = errors.New("contact session closed")
	ErrSubmitNotAllowed = errors.New("submission already in progress")
	ErrUnknownField     = errors.New("unknown form field")

	ErrNotConfigured = errors.New("persistence not configured")
	ErrRemoteFailure = errors.New("persistence remote failure")
)

// NotConfiguredMessage is shown when the persistence settings are missing
const NotConfiguredMessage = "persistence layer not configured; required connection settings are missing"

// PersistenceErrorKind classifies adapter failures
type PersistenceErrorKind int

const (
	KindNotConfigured PersistenceErrorKind = iota + 1
	KindRemoteFailure
)

func (k PersistenceErrorKind) String() string {
	switch k {
	case KindNotConfigured:
		return "not_configured"
	case KindRemoteFailure:
		return "remote_failure"
	}
	return "unknown"
}

// PersistenceError is the only error type returned by persistence adapters
type PersistenceError struct {
	Kind    PersistenceErrorKind
	Message string
	// Status is the HTTP status of a REST backend response, if any.
	Status int
	// Code is the backend error code (PostgREST code or SQLSTATE).
	Code string
	Err  error
}

// NewNotConfigured returns the error for an adapter without connection settings
func NewNotConfigured() *PersistenceError {
	return &PersistenceError{Kind: KindNotConfigured, Message: NotConfiguredMessage}
}

// NewRemoteFailure wraps a failed insert attempt
func NewRemoteFailure(message string, err error) *PersistenceError {
	return &PersistenceError{Kind: KindRemoteFailure, Message: message, Err: err}
}

func (e *PersistenceError) Error() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind.String()
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Is lets callers match on ErrNotConfigured and ErrRemoteFailure
func (e *PersistenceError) Is(target error) bool {
	switch target {
	case ErrNotConfigured:
		return e.Kind == KindNotConfigured
	case ErrRemoteFailure:
		return e.Kind == KindRemoteFailure
	}
	return false
}

// Package workflow defines the error taxonomy shared by the request core and
// its HTTP boundary. Every failure carries a stable machine-readable kind; the
// human-readable message never includes internal identifiers.
package workflow

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindInvalidTransition   Kind = "INVALID_TRANSITION"
	KindInvalidActor        Kind = "INVALID_ACTOR"
	KindInvalidState        Kind = "INVALID_STATE"
	KindMissingReason       Kind = "MISSING_REASON"
	KindValidation          Kind = "VALIDATION_FAILED"
	KindNotFound            Kind = "NOT_FOUND"
	KindUnauthenticated     Kind = "UNAUTHENTICATED"
	KindForbidden           Kind = "FORBIDDEN"
	KindUpstreamUnavailable Kind = "UPSTREAM_UNAVAILABLE"
	KindConfiguration       Kind = "CONFIGURATION_ERROR"
	KindInternal            Kind = "INTERNAL"
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

func E(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the kind from an error chain, defaulting to KindInternal so
// unexpected failures never leak details to the caller.
func KindOf(err error) Kind {
	var we *Error
	if errors.As(err, &we) {
		return we.Kind
	}
	return KindInternal
}

// MessageOf returns the user-facing message for an error chain.
func MessageOf(err error) string {
	var we *Error
	if errors.As(err, &we) {
		return we.Message
	}
	return "internal error"
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

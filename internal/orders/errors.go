package orders

import (
	"errors"
	"fmt"
)

// Kind classifies a domain failure. Callers map kinds to transport status codes.
type Kind string

const (
	KindNotFound          Kind = "NotFound"
	KindForbidden         Kind = "Forbidden"
	KindInvalidTransition Kind = "InvalidTransition"
	KindInvalidState      Kind = "InvalidState"
	KindAlreadyAssigned   Kind = "AlreadyAssigned"
	KindOtpExpired        Kind = "OtpExpired"
	KindOtpMismatch       Kind = "OtpMismatch"
	KindNotAssigned       Kind = "NotAssigned"
	KindValidation        Kind = "ValidationError"
	KindUnauthenticated   Kind = "Unauthenticated"
	KindConflict          Kind = "Conflict"
)

// Error is a domain failure with a human-readable message.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Message
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound) works
// regardless of the message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrForbidden         = &Error{Kind: KindForbidden}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition}
	ErrInvalidState      = &Error{Kind: KindInvalidState}
	ErrAlreadyAssigned   = &Error{Kind: KindAlreadyAssigned}
	ErrOtpExpired        = &Error{Kind: KindOtpExpired}
	ErrOtpMismatch       = &Error{Kind: KindOtpMismatch}
	ErrNotAssigned       = &Error{Kind: KindNotAssigned}
	ErrValidation        = &Error{Kind: KindValidation}
	ErrUnauthenticated   = &Error{Kind: KindUnauthenticated}
	ErrConflict          = &Error{Kind: KindConflict}
)

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the domain kind of err, or "" for infrastructure errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

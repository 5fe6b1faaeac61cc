// Package apperr is the error taxonomy shared by the engine and the HTTP
// features. Every user-actionable failure is an *Error with a Kind; the
// features package maps Kind to an HTTP status and a stable code.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an Error.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindPermission
	KindNotFound
	KindConflict
	KindFailedPrecondition
	KindExternal
)

// Code returns the wire code for k.
func (k Kind) Code() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindPermission:
		return "permission_denied"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindFailedPrecondition:
		return "failed_precondition"
	case KindExternal:
		return "external_service"
	default:
		return "internal"
	}
}

// Error is a classified failure. Msg is safe to show to a user.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind.Code(), e.Msg, e.Err)
	}
	return e.Kind.Code() + ": " + e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same Kind, so errors.Is(err, apperr.ErrConflict)
// style checks work against the sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Msg == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is. They carry no message.
var (
	ErrValidation         = &Error{Kind: KindValidation}
	ErrPermission         = &Error{Kind: KindPermission}
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrConflict           = &Error{Kind: KindConflict}
	ErrFailedPrecondition = &Error{Kind: KindFailedPrecondition}
	ErrExternal           = &Error{Kind: KindExternal}
)

func Validation(msg string) error         { return &Error{Kind: KindValidation, Msg: msg} }
func Permission(msg string) error         { return &Error{Kind: KindPermission, Msg: msg} }
func NotFound(msg string) error           { return &Error{Kind: KindNotFound, Msg: msg} }
func Conflict(msg string) error           { return &Error{Kind: KindConflict, Msg: msg} }
func FailedPrecondition(msg string) error { return &Error{Kind: KindFailedPrecondition, Msg: msg} }

// External wraps a failure from an outside service (LLM, push gateway).
func External(msg string, err error) error {
	return &Error{Kind: KindExternal, Msg: msg, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Message returns the user-facing message of err, or fallback when err is
// not classified.
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Msg != "" {
		return e.Msg
	}
	return fallback
}

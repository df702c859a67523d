// Package errs defines the internal error taxonomy shared by every layer of
// the metadata store. Kinds are transport-agnostic; the api package maps
// them onto HTTP status/JSON codes per spec.md section 6.1.
package errs

import (
	"errors"
	"fmt"
)

// Kind is one of the eight error categories: the seven of spec.md section 7
// plus PermissionDenied.
type Kind int

const (
	// Unexpected covers invariant violations discovered at runtime.
	Unexpected Kind = iota
	NotFound
	Duplicate
	WrongType
	BadUpdate
	InvalidRequest
	Conflict
	// PermissionDenied covers trust-boundary violations: a reserved
	// attribute write or a restricted object type from a non-trusted
	// caller (spec.md section 6.1/9).
	PermissionDenied
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "NotFound"
	case Duplicate:
		return "Duplicate"
	case WrongType:
		return "WrongType"
	case BadUpdate:
		return "BadUpdate"
	case InvalidRequest:
		return "InvalidRequest"
	case Conflict:
		return "Conflict"
	case PermissionDenied:
		return "PermissionDenied"
	default:
		return "Unexpected"
	}
}

// Error is the concrete error type carrying a Kind and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is supports errors.Is(err, errs.NotFound) style checks by comparing kinds
// when the target is itself an *Error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New builds an *Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error of the given kind, preserving cause for Unwrap/As.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf extracts the Kind of err if it is (or wraps) an *Error, defaulting
// to Unexpected otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unexpected
}

// Sentinels usable with errors.Is for simple kind checks without a message.
var (
	ErrNotFound       = &Error{Kind: NotFound, Message: "not found"}
	ErrDuplicate      = &Error{Kind: Duplicate, Message: "duplicate"}
	ErrWrongType      = &Error{Kind: WrongType, Message: "wrong type"}
	ErrBadUpdate      = &Error{Kind: BadUpdate, Message: "bad update"}
	ErrInvalidRequest = &Error{Kind: InvalidRequest, Message: "invalid request"}
	ErrConflict         = &Error{Kind: Conflict, Message: "conflict"}
	ErrPermissionDenied = &Error{Kind: PermissionDenied, Message: "permission denied"}
)

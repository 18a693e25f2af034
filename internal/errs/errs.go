// Package errs defines the tagged error codes shared by every internal
// package and re-exported by the public annex package (spec §6/§7). The
// teacher's engine-level code (as opposed to its facade-level
// libravdb/errors.go) just wraps plain errors with fmt.Errorf; this keeps
// that same wrapping idiom but adds the Code tag the spec's caller ABI
// requires so callers can branch on failure kind without string matching.
package errs

import "fmt"

// Code identifies a failure kind from spec §6's caller ABI error table.
type Code int

const (
	Ok Code = iota
	NotInitialized
	Dimension
	Capacity
	InvalidInput
	IdNotFound
	DuplicateId
	Io
	Corrupt
)

func (c Code) String() string {
	switch c {
	case Ok:
		return "Ok"
	case NotInitialized:
		return "NotInitialized"
	case Dimension:
		return "Dimension"
	case Capacity:
		return "Capacity"
	case InvalidInput:
		return "InvalidInput"
	case IdNotFound:
		return "IdNotFound"
	case DuplicateId:
		return "DuplicateId"
	case Io:
		return "Io"
	case Corrupt:
		return "Corrupt"
	default:
		return "Unknown"
	}
}

// Error is the tagged error type returned by every core operation that can
// fail. It wraps an optional underlying cause the way fmt.Errorf's %w does,
// and supports errors.Is/errors.As via Unwrap.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is lets errors.Is(err, errs.New(Code, "")) match purely on code, so
// callers can do errors.Is(err, errs.New(errs.Dimension, "")).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

package annex

import (
	"errors"

	"github.com/solidvec/annex/internal/errs"
)

// Code identifies a failure kind from the caller ABI's error table.
type Code = errs.Code

const (
	Ok             = errs.Ok
	NotInitialized = errs.NotInitialized
	Dimension      = errs.Dimension
	Capacity       = errs.Capacity
	InvalidInput   = errs.InvalidInput
	IdNotFound     = errs.IdNotFound
	DuplicateId    = errs.DuplicateId
	Io             = errs.Io
	Corrupt        = errs.Corrupt
)

// IsCode reports whether err carries the given Code, so callers can branch
// on failure kind without string matching.
func IsCode(err error, code Code) bool {
	return errors.Is(err, errs.New(code, ""))
}

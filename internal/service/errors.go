package service

import (
	"errors"
	"fmt"

	"github.com/Mateusbmelzi/hub-entidades/internal/model"
)

// Code classifies an expected, user-facing failure.
type Code string

const (
	CodeNotFound      Code = "not_found"
	CodeInvalidState  Code = "invalid_state"
	CodeCapacity      Code = "capacity"
	CodeConflict      Code = "conflict"
	CodeNotApproved   Code = "not_approved"
	CodeAlreadyLinked Code = "already_linked"
	CodeNotLinked     Code = "not_linked"
	CodeInvalidInput  Code = "invalid_input"
)

// ValidationError is returned by write operations for failures the caller
// can act on: missing rows, wrong lifecycle state, a room that is too small
// or already booked, link preconditions.  Message is shown to end users
// as is.  Anything that is not a *ValidationError is a persistence or
// transport failure.
type ValidationError struct {
	Code      Code                `json:"code"`
	Message   string              `json:"message"`
	Conflicts []model.Reservation `json:"conflicts,omitempty"`
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(code Code, format string, args ...any) *ValidationError {
	return &ValidationError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// AsValidation returns the *ValidationError in err's chain, if any.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

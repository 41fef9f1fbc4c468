// Package apierr attaches an HTTP status and a short machine code to an error.
package apierr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/yungbote/fleet-backend/internal/domain"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// FromDomain classifies err by the domain kind it wraps. An *Error already in the
// chain is returned as is; anything unrecognised is an internal error.
func FromDomain(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	switch {
	case errors.Is(err, domain.ErrValidation):
		return New(http.StatusBadRequest, "validation_failed", err)
	case errors.Is(err, domain.ErrNotAssigned):
		return New(http.StatusNotFound, "not_assigned", err)
	case errors.Is(err, domain.ErrNoLoads):
		return New(http.StatusNotFound, "no_loads", err)
	case errors.Is(err, domain.ErrNotFound):
		return New(http.StatusNotFound, "not_found", err)
	case errors.Is(err, domain.ErrConflict):
		return New(http.StatusForbidden, "forbidden", err)
	default:
		return New(http.StatusInternalServerError, "internal", err)
	}
}

package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks a request missing a required attribute.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks an id that does not resolve to a stored entity.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks an assignment of a load that already has a carrier.
	ErrConflict = errors.New("conflict")
	// ErrStore marks a failure in the underlying document store.
	ErrStore = errors.New("store failure")

	// ErrNotAssigned is returned when unassigning a load the boat does not carry.
	// It wraps ErrNotFound so callers that only know about NotFound keep answering 404.
	ErrNotAssigned = fmt.Errorf("%w: load is not assigned", ErrNotFound)
	// ErrNoLoads is returned when listing the loads of a boat that carries none.
	ErrNoLoads = fmt.Errorf("%w: boat carries no loads", ErrNotFound)
)

// ValidationError tags msg as a validation failure.
func ValidationError(msg string) error {
	return &validationError{msg: strings.TrimSpace(msg)}
}

type validationError struct{ msg string }

func (e *validationError) Error() string { return e.msg }
func (e *validationError) Unwrap() error { return ErrValidation }

// StoreError tags err as a store failure raised while running op.
func StoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStore, err)
}

package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNoOutletFound means the outlet set was empty; terminal for the
	// request, never retried.
	ErrNoOutletFound = errors.New("no outlet found")

	// ErrGeocode marks an address that could not be resolved; the HTTP
	// layer substitutes the anchor coordinate.
	ErrGeocode = errors.New("geocode failed")
)

// ValidationError rejects an invalid filter combination at the facade
// boundary before any data access happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// DataAccessError wraps a failed store read. Not retried by the core.
type DataAccessError struct {
	Op  string
	Err error
}

func (e *DataAccessError) Error() string {
	return fmt.Sprintf("data access: %s: %v", e.Op, e.Err)
}

func (e *DataAccessError) Unwrap() error { return e.Err }

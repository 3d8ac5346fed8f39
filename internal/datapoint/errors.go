package datapoint

import "errors"

// Domain errors for datapoint bindings.
var (
	// ErrNotFound is returned when no binding exists for a group address.
	ErrNotFound = errors.New("datapoint: not found")

	// ErrInvalidBinding is returned when a binding fails validation.
	ErrInvalidBinding = errors.New("datapoint: invalid binding")
)

package memory

import "errors"

var (
	// ErrPersistence is returned when the store rejects a write or a query.
	ErrPersistence = errors.New("persistence failed")

	// ErrInvalidInput is returned for a blank project or an empty vector.
	ErrInvalidInput = errors.New("invalid input")
)

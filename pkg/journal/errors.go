package journal

import "errors"

// Sentinel errors for journal operations.
var (
	// ErrNotFound is returned when a submission does not exist.
	ErrNotFound = errors.New("submission not found")

	// ErrConflict is returned when a submission with the given ID already exists.
	ErrConflict = errors.New("submission already exists")
)

package queue

import "errors"

var (
	// ErrValidation marks a caller mistake (missing/malformed fields).
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a queue id that resolves to no entry.
	ErrNotFound = errors.New("queue entry not found")
)

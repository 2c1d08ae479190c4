package storage

import "errors"

// Storage errors for the result store.
var (
	// ErrNotFound is returned when no bundle is published for the requested key.
	ErrNotFound = errors.New("not found")

	// ErrStaleVersion is returned when publishing a bundle computed from inputs
	// older than the one already published.
	ErrStaleVersion = errors.New("stale version: a newer bundle is already published")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)

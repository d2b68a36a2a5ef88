package storage

import "errors"

// Common storage errors.
var (
	// ErrNotFound is returned when a dataset file or code does not exist.
	ErrNotFound = errors.New("dataset entry not found")

	// ErrInvalidCode is returned for codes that cannot name a dataset file.
	ErrInvalidCode = errors.New("invalid code")
)

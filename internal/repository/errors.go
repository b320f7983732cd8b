package repository

import "errors"

var (
	// ErrNotFound is returned when a requested document does not exist.
	ErrNotFound = errors.New("repository: record not found")
	// ErrDuplicateEntry is returned when an insert violates a unique key.
	ErrDuplicateEntry = errors.New("repository: duplicate entry")
)

var (
	ErrSessionNotFound = ErrNotFound
	ErrStatNotFound    = ErrNotFound
)

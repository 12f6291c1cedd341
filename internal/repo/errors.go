package repo

import "errors"

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when an optimistic version check fails or a
	// uniqueness constraint is violated. Callers may reload and retry.
	ErrConflict = errors.New("conflict")
)

package repositories

import "errors"

var (
	// ErrNotFound indicates the requested user, file node, or token
	// does not exist (or is not visible to the caller's owner scope).
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates the write would violate a uniqueness
	// constraint, such as a duplicate email or storage location.
	ErrConflict = errors.New("record conflict")
)

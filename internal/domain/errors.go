package domain

import "errors"

// Sentinel errors shared across services and repositories. Handlers map these
// to HTTP status codes in one place.
var (
	// ErrNotFound means the referenced entity does not exist or is inactive.
	ErrNotFound = errors.New("not found")

	// ErrConflict means a uniqueness constraint (email, username) was violated.
	ErrConflict = errors.New("already exists")

	// ErrValidation means a field or query parameter is malformed or out of range.
	// Detected before any store mutation.
	ErrValidation = errors.New("validation failed")
)

package domain

import "errors"

// ErrNotFound is returned by repo and service functions when the requested
// record does not exist in the store.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned when input fails validation (missing required
// field, malformed cursor, page number below 1).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrDuplicate is returned by repo Create functions when a uniqueness rule
// rejects the insert. For registrations this means the dedup hash is
// already taken.
var ErrDuplicate = errors.New("duplicate")

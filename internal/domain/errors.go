package domain

import "errors"

var (
	// ErrNotFound covers both absent records and records the caller does not own.
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrRequiredParameter = errors.New("required parameter missing")
	// ErrForbidden is returned by upstream sources for 401/403 responses.
	ErrForbidden = errors.New("forbidden")
)

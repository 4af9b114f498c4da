package domain

import "errors"

// Sentinel errors shared across layers. Wrap with fmt.Errorf("...: %w", err)
// so callers can match with errors.Is.
var (
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates the request failed input validation.
	ErrValidation = errors.New("validation failed")

	// ErrSessionStore indicates the session store could not be reached.
	// Fatal at turn start, logged-only at finalize.
	ErrSessionStore = errors.New("session store unavailable")
)

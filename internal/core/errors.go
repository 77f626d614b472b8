package core

import "errors"

// Store error taxonomy. Callers classify with errors.Is.
var (
	// ErrStorageUnavailable means the database could not be opened or
	// migrated. The application cannot proceed.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrConstraintViolation is returned for writes rejected by a store
	// constraint (duplicate email, non-positive amount). It is recoverable.
	ErrConstraintViolation = errors.New("constraint violation")

	// ErrNotFound is returned by single-record lookups. Deletes never
	// return it.
	ErrNotFound = errors.New("not found")

	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

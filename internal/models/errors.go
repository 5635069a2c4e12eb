package models

import "errors"

// Domain error taxonomy. The storage layer maps driver failures onto these,
// services wrap them with context, and the HTTP layer maps them to status
// codes with errors.Is.
var (
	// ErrNotFound — the referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation — malformed input; never retried.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidState — the requested transition is not legal from the
	// deal's current status.
	ErrInvalidState = errors.New("invalid state")

	// ErrNotAuthorized — the actor lacks standing for the operation.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrPolicy — a business rule was violated: secret mismatch, deal
	// already taken, active-deal cap reached.
	ErrPolicy = errors.New("policy violation")

	// ErrConflict — an optimistic concurrency collision; the caller should
	// retry the whole operation.
	ErrConflict = errors.New("conflict")

	// ErrStorageUnavailable — the underlying store is unreachable.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

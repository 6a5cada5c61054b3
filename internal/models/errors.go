package models

import "errors"

// Engine error taxonomy. Callers branch with errors.Is; repositories and
// services wrap these with context via fmt.Errorf("...: %w", ...).
var (
	ErrValidation        = errors.New("validation failed")
	ErrNoAvailability    = errors.New("no availability")
	ErrCapacityExceeded  = errors.New("capacity exceeded")
	ErrConflict          = errors.New("booking conflict")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrNotFound          = errors.New("not found")
)

package domain

import "errors"

// Validation errors: bad input shape, rejected before any state changes.
var (
	ErrInvalidShape     = errors.New("invalid table shape")
	ErrInvalidTableSize = errors.New("table dimensions must be positive")
	ErrInvalidCapacity  = errors.New("table capacity must be positive")
	ErrInvalidZoom      = errors.New("zoom factor must be finite and positive")
	ErrInvalidBounds    = errors.New("bounds must be positive")
)

// Invariant violations: operation rejected, state unchanged, surfaced to
// the UI as a user-facing message.
var (
	ErrSeatOccupied       = errors.New("seat already occupied")
	ErrGuestAlreadySeated = errors.New("guest already holds a seat")
	ErrSeatOutOfRange     = errors.New("seat index out of range")
	ErrTableOverlap       = errors.New("table placement overlaps another table")
	ErrUnknownTable       = errors.New("unknown table")
)

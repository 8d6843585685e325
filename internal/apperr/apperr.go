// Package apperr defines the closed set of error kinds the core surfaces,
// per spec.md §7. Collaborators wrap these with fmt.Errorf("...: %w", ...)
// the way the teacher's db package wraps sqlite errors; callers use
// errors.Is/errors.As, never string matching.
package apperr

import "errors"

var (
	// ErrUnknownSensor: operation referenced a sensor that does not exist.
	ErrUnknownSensor = errors.New("unknown sensor")
	// ErrDuplicateID: sensor registration with an externalId already in use.
	ErrDuplicateID = errors.New("duplicate sensor external id")
	// ErrInvalidReading: a reading field parsed as non-numeric.
	ErrInvalidReading = errors.New("invalid reading")
	// ErrStoreError: a persistence failure, possibly transient.
	ErrStoreError = errors.New("store error")
	// ErrScorerError: defensive catch-all; should not occur from valid input.
	ErrScorerError = errors.New("scorer error")
	// ErrUnknownTicket: operation referenced a ticket that does not exist.
	ErrUnknownTicket = errors.New("unknown ticket")
	// ErrInvalidTransition: a ticket state transition that the lifecycle forbids.
	ErrInvalidTransition = errors.New("invalid ticket transition")
)

package common

import "errors"

// Errors shared by the draw engine, the storage layer and the HTTP handlers.
var (
	// ErrInvalidParticipant is returned when an ID does not belong to the event roster.
	ErrInvalidParticipant = errors.New("invalid participant")

	// ErrTooFewParticipants is returned when the roster is below MinParticipants.
	ErrTooFewParticipants = errors.New("too few participants")

	// ErrInfeasible is returned when no valid assignment exists for the exclusions.
	ErrInfeasible = errors.New("no valid assignment exists")

	// ErrNotReady is returned by reveals before the assignment exists.
	ErrNotReady = errors.New("draw is not ready")

	// ErrGenerationExhausted means the generator produced no valid assignment
	// for a feasible configuration. It is a bug, never a user error.
	ErrGenerationExhausted = errors.New("assignment generation exhausted")

	// ErrInvalidInput wraps request validation failures.
	ErrInvalidInput = errors.New("invalid input")

	ErrNotFound       = errors.New("not found")
	ErrStageConflict  = errors.New("stage conflict")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrDuplicateEntry = errors.New("duplicate entry")
)

// MinParticipants is the smallest roster a draw can run on.
const MinParticipants = 3

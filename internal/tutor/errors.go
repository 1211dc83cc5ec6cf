package tutor

import (
	"errors"
	"fmt"

	"verbtutor/internal/contract"
)

var (
	// ErrEmptyInput: blank learner text. Nothing changed.
	ErrEmptyInput = errors.New("tutor: empty input")
	// ErrSessionBusy: a generation round trip is already in flight.
	ErrSessionBusy = errors.New("tutor: session busy")
	// ErrTurnPending: the last committed turn still waits for a tutor reply;
	// call Retry instead of submitting a new answer.
	ErrTurnPending = errors.New("tutor: tutor turn pending")
	// ErrStaleGeneration: the session was reset while the round trip was in
	// flight and its result was discarded.
	ErrStaleGeneration = errors.New("tutor: stale generation discarded")
	ErrSessionNotFound = errors.New("tutor: session not found")
)

// ExhaustedError is returned by the Controller when no candidate was accepted
// within the budget.
type ExhaustedError struct {
	Attempts int
	// Violations from the last rejected candidate, empty when the last
	// attempt failed to generate.
	Violations contract.Violations
	LastErr    error
}

func (e *ExhaustedError) Error() string {
	switch {
	case e.LastErr != nil:
		return fmt.Sprintf("tutor: retry budget exhausted after %d attempts: %v", e.Attempts, e.LastErr)
	case len(e.Violations) > 0:
		return fmt.Sprintf("tutor: retry budget exhausted after %d attempts: %s", e.Attempts, e.Violations)
	default:
		return fmt.Sprintf("tutor: retry budget exhausted after %d attempts", e.Attempts)
	}
}

func (e *ExhaustedError) Unwrap() error { return e.LastErr }

// SessionStartFailure: no opening exercise could be produced. The transcript
// holds only the system turn.
type SessionStartFailure struct{ Err error }

func (e *SessionStartFailure) Error() string { return "tutor: session start failed: " + e.Err.Error() }
func (e *SessionStartFailure) Unwrap() error { return e.Err }

// SessionTurnFailure: the learner turn was committed but no tutor reply was
// accepted. The session is left pending.
type SessionTurnFailure struct{ Err error }

func (e *SessionTurnFailure) Error() string { return "tutor: turn failed: " + e.Err.Error() }
func (e *SessionTurnFailure) Unwrap() error { return e.Err }

// IsFailure reports whether err is a session-level generation failure.
func IsFailure(err error) bool {
	var sf *SessionStartFailure
	var tf *SessionTurnFailure
	return errors.As(err, &sf) || errors.As(err, &tf)
}

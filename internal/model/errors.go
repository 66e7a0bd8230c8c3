package model

import "errors"

// Sentinel errors shared across services and handlers. Handlers map these to
// HTTP statuses with errors.Is; repositories wrap storage errors around them.
var (
	// ErrSessionNotFound is returned when no session exists for the given id
	// or channel, or when it has been deleted.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrSessionClosed is returned when a closed session is polled by a role
	// that must stop observing it.
	ErrSessionClosed = errors.New("quiz session closed")
	// ErrInvalidTransition is returned for a presenter command that is illegal
	// in the session's current phase. The session is left unchanged.
	ErrInvalidTransition = errors.New("invalid phase transition")
	// ErrStaleSubmission is returned for an answer targeting a question that
	// is no longer (or not yet) the current one, or submitted outside the
	// active phase.
	ErrStaleSubmission = errors.New("stale answer submission")
	// ErrOptionOutOfRange is returned when a submitted or authored option
	// index does not exist on the question.
	ErrOptionOutOfRange = errors.New("option index out of range")
	// ErrSessionNotClosed is returned when the summary review is requested
	// for a session that is still running.
	ErrSessionNotClosed = errors.New("quiz session not closed yet")
)

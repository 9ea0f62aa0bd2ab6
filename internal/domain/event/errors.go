package event

import "errors"

// Common errors
var (
	// ErrInvalidTransition is the state-machine guard rejection. Callers treat
	// it as a benign no-op: the event no longer matches the state the caller
	// observed when it queried.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrNoVotesCast means the tally has nothing to rank; finalization is
	// deferred to a later cycle rather than forced.
	ErrNoVotesCast = errors.New("no votes cast")

	ErrNotFound         = errors.New("not found")
	ErrInvalidStatus    = errors.New("invalid event status")
	ErrInvalidTimeRange = errors.New("end time must be after start time")
	ErrInvalidVoteValue = errors.New("vote value out of range")
	ErrInvalidPattern   = errors.New("invalid recurrence pattern")
	ErrAlreadyInvited   = errors.New("user already invited")
	ErrNotParticipant   = errors.New("user is not a participant")
)

// Error type for validation messages
type Error struct {
	message string
}

func NewError(message string) *Error {
	return &Error{message: message}
}

func (e *Error) Error() string {
	return e.message
}

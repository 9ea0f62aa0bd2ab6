package event

import (
	"fmt"
	"time"
)

// transitions is the closed set of legal lifecycle edges. Anything not listed
// here is rejected with ErrInvalidTransition, which is what keeps concurrent
// workers from stepping on each other: the second writer's requested edge no
// longer matches the event's current status and becomes a no-op.
var transitions = map[Status][]Status{
	StatusDraft:     {StatusPlanning},
	StatusPlanning:  {StatusVoting, StatusCancelled},
	StatusVoting:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
	StatusCompleted: {},
	StatusCancelled: {},
}

// CanTransition reports whether the edge from -> to is legal
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition validates and applies a lifecycle transition in place. It sets
// the new status, stamps the matching lifecycle timestamp, and returns the
// audit record to be persisted alongside the event. The event is left
// untouched when the edge is illegal.
func Transition(e *Event, target Status, reason, changedBy string) (*StatusChange, error) {
	if !CanTransition(e.Status, target) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, e.Status, target)
	}

	now := time.Now().UTC()
	change := &StatusChange{
		EventID:   e.ID,
		OldStatus: e.Status,
		NewStatus: target,
		Reason:    reason,
		ChangedBy: changedBy,
		ChangedAt: now,
	}

	e.Status = target
	e.UpdatedAt = now

	switch target {
	case StatusConfirmed:
		e.ConfirmedAt = &now
	case StatusCancelled:
		e.CancelledAt = &now
		if reason != "" {
			e.CancellationReason = &reason
		}
	case StatusCompleted:
		e.CompletedAt = &now
	}

	return change, nil
}

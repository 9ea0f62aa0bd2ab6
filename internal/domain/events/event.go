package events

import (
	"time"

	"github.com/google/uuid"
)

// Dashboard event types
const (
	EventTypeLifecycleUpdate  = "event_lifecycle_update"
	EventTypeVoteUpdate       = "vote_update"
	EventTypeRsvpUpdate       = "rsvp_update"
	EventTypeSeriesGeneration = "series_generation"
)

// DashboardEventCacheInvalidate asks dashboard consumers to drop the cached
// view for the affected user without announcing anything else
const DashboardEventCacheInvalidate = "cache_invalidate"

// DashboardEvent represents a dashboard-related event
type DashboardEvent struct {
	EventType string      `json:"event_type"`
	UserID    uuid.UUID   `json:"user_id"`
	EntityID  uuid.UUID   `json:"entity_id"`
	Timestamp time.Time   `json:"timestamp"`
	Details   interface{} `json:"details,omitempty"`
}

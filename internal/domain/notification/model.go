package notification

import (
	"time"

	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Type represents the type of notification
type Type string

const (
	// Event lifecycle notification types
	EventCancelled = "event_cancelled"
	EventConfirmed = "event_confirmed"
	EventCompleted = "event_completed"

	// Invitation notification types
	EventInvite         = "event_invite"
	EventInviteAccepted = "event_invite_accepted"
	EventInviteDeclined = "event_invite_declined"

	// Reminder notification types
	EventReminder          = "event_reminder"
	VotingDeadlineReminder = "voting_deadline_reminder"
	RsvpDeadlineReminder   = "rsvp_deadline_reminder"

	General = "general"
	System  = "system"
)

// Status represents the status of a notification
type Status string

const (
	// Unread status for new notifications
	Unread Status = "UNREAD"
	// Read status for viewed notifications
	Read Status = "READ"
	// Archived status for archived notifications
	Archived Status = "ARCHIVED"
)

// StringMap is a type for storing string-to-string mappings in JSONB fields
type StringMap map[string]string

func (m *StringMap) Scan(value interface{}) error {
	if value == nil {
		*m = make(map[string]string)
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to unmarshal JSONB value: %v", value)
	}

	result := make(map[string]string)
	if err := json.Unmarshal(bytes, &result); err != nil {
		return err
	}

	*m = result
	return nil
}

func (m StringMap) Value() (driver.Value, error) {
	if len(m) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Notification represents an in-app notification entity
type Notification struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey;"`
	UserID      uuid.UUID  `json:"user_id" gorm:"type:uuid;not null;index"`
	Type        Type       `json:"type" gorm:"not null"`
	Title       string     `json:"title" gorm:"not null"`
	Content     string     `json:"content" gorm:"not null"`
	Status      Status     `json:"status" gorm:"not null;default:'UNREAD'"`
	Data        StringMap  `json:"data" gorm:"type:jsonb"`
	Reference   string     `json:"reference" gorm:"index"`
	ReferenceID uuid.UUID  `json:"reference_id" gorm:"type:uuid;index"`
	CreatedAt   time.Time  `json:"created_at" gorm:"not null"`
	UpdatedAt   time.Time  `json:"updated_at" gorm:"not null"`
	ReadAt      *time.Time `json:"read_at"`
}

// TableName specifies the table name
func (Notification) TableName() string { return "notifications" }

// BeforeCreate hook to set default values
func (n *Notification) BeforeCreate() error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	if n.UpdatedAt.IsZero() {
		n.UpdatedAt = time.Now()
	}
	if n.Status == "" {
		n.Status = Unread
	}
	return nil
}

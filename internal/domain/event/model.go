package event

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Status represents the lifecycle state of an event
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPlanning  Status = "planning"
	StatusVoting    Status = "voting"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// IsTerminal reports whether no further transitions are possible
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"
)

type RecurrencePattern string

const (
	PatternDaily   RecurrencePattern = "daily"
	PatternWeekly  RecurrencePattern = "weekly"
	PatternMonthly RecurrencePattern = "monthly"
	PatternYearly  RecurrencePattern = "yearly"
)

// StringArray represents a PostgreSQL string array type
type StringArray = pq.StringArray

// Event represents a planned group event
type Event struct {
	ID                  uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	OrganizerID         uuid.UUID  `json:"organizer_id" gorm:"type:uuid;not null;index:idx_event_organizer"`
	Title               string     `json:"title" gorm:"type:varchar(255);not null"`
	Description         string     `json:"description" gorm:"type:text"`
	Status              Status     `json:"status" gorm:"type:varchar(20);not null;default:'planning';index:idx_event_status"`
	StartTime           time.Time  `json:"start_time" gorm:"not null;index:idx_event_start"`
	EndTime             time.Time  `json:"end_time" gorm:"not null;index:idx_event_end"`
	VotingDeadline      time.Time  `json:"voting_deadline" gorm:"not null"`
	RsvpDeadline        time.Time  `json:"rsvp_deadline" gorm:"not null"`
	AcceptanceThreshold float64    `json:"acceptance_threshold" gorm:"not null;default:0.5"`
	FinalPlaceID        *uuid.UUID `json:"final_place_id,omitempty" gorm:"type:uuid"`
	CancellationReason  *string    `json:"cancellation_reason,omitempty" gorm:"type:text"`
	RecurringTemplateID *uuid.UUID `json:"recurring_template_id,omitempty" gorm:"type:uuid;index:idx_event_template"`
	CreatedAt           time.Time  `json:"created_at" gorm:"not null;default:current_timestamp"`
	UpdatedAt           time.Time  `json:"updated_at" gorm:"not null;default:current_timestamp"`
	ConfirmedAt         *time.Time `json:"confirmed_at,omitempty"`
	CancelledAt         *time.Time `json:"cancelled_at,omitempty"`
	CompletedAt         *time.Time `json:"completed_at,omitempty"`

	// Relationships (for preload fun)
	Participants []Participant  `json:"participants,omitempty" gorm:"foreignKey:EventID"`
	PlaceOptions []PlaceOption  `json:"place_options,omitempty" gorm:"foreignKey:EventID"`
	History      []StatusChange `json:"history,omitempty" gorm:"foreignKey:EventID"`
}

// Participant represents a user invited to an event
type Participant struct {
	ID                uuid.UUID        `json:"id" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	EventID           uuid.UUID        `json:"event_id" gorm:"type:uuid;not null;uniqueIndex:idx_participant_event_user"`
	UserID            uuid.UUID        `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_participant_event_user"`
	Email             string           `json:"email" gorm:"type:varchar(255);not null"`
	InvitationStatus  InvitationStatus `json:"invitation_status" gorm:"type:varchar(20);not null;default:'pending'"`
	InvitedBy         uuid.UUID        `json:"invited_by" gorm:"type:uuid;not null"`
	InvitedAt         time.Time        `json:"invited_at" gorm:"not null;default:current_timestamp"`
	RespondedAt       *time.Time       `json:"responded_at,omitempty"`
	Reminder24hSentAt *time.Time       `json:"reminder_24h_sent_at,omitempty"`
	Reminder1hSentAt  *time.Time       `json:"reminder_1h_sent_at,omitempty"`
	CreatedAt         time.Time        `json:"created_at" gorm:"not null;default:current_timestamp"`
	UpdatedAt         time.Time        `json:"updated_at" gorm:"not null;default:current_timestamp"`
}

// PlaceOption represents a candidate venue for an event
type PlaceOption struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	EventID   uuid.UUID `json:"event_id" gorm:"type:uuid;not null;index:idx_place_option_event"`
	Name      string    `json:"name" gorm:"type:varchar(255);not null"`
	PlaceRef  string    `json:"place_ref" gorm:"type:varchar(255)"` // external map-provider reference
	AIScore   *float64  `json:"ai_score,omitempty"`
	AddedBy   uuid.UUID `json:"added_by" gorm:"type:uuid;not null"`
	AddedAt   time.Time `json:"added_at" gorm:"not null;default:current_timestamp"`
	CreatedAt time.Time `json:"created_at" gorm:"not null;default:current_timestamp"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null;default:current_timestamp"`
}

// Vote represents one member's rating of one place option. A voter has at most
// one row per option; a new vote replaces the old one.
type Vote struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	EventID   uuid.UUID `json:"event_id" gorm:"type:uuid;not null;uniqueIndex:idx_vote_event_option_voter"`
	OptionID  uuid.UUID `json:"option_id" gorm:"type:uuid;not null;uniqueIndex:idx_vote_event_option_voter"`
	VoterID   uuid.UUID `json:"voter_id" gorm:"type:uuid;not null;uniqueIndex:idx_vote_event_option_voter"`
	Value     int       `json:"value" gorm:"not null"`
	CreatedAt time.Time `json:"created_at" gorm:"not null;default:current_timestamp"`
}

// RecurringTemplate describes a recurring event series
type RecurringTemplate struct {
	ID             uuid.UUID         `json:"id" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	OrganizerID    uuid.UUID         `json:"organizer_id" gorm:"type:uuid;not null;index:idx_template_organizer"`
	OrganizerEmail string            `json:"organizer_email" gorm:"type:varchar(255);not null"`
	Title          string            `json:"title" gorm:"type:varchar(255);not null"`
	Description    string            `json:"description" gorm:"type:text"`
	Pattern        RecurrencePattern `json:"pattern" gorm:"type:varchar(20);not null"`
	// WeekDays holds two-letter weekday codes (MO..SU) for the weekly pattern
	WeekDays StringArray `json:"week_days,omitempty" gorm:"type:varchar[]"`
	// MonthDay is the day of month for the monthly pattern; nil means last day
	MonthDay *int `json:"month_day,omitempty"`
	// YearMonth and YearDay select the yearly occurrence; YearDay holds a
	// day-of-month value (1..31)
	YearMonth       *int       `json:"year_month,omitempty"`
	YearDay         *int       `json:"year_day,omitempty"`
	ScheduledTime   string     `json:"scheduled_time" gorm:"type:varchar(5);not null"` // "15:04"
	DurationMinutes int        `json:"duration_minutes" gorm:"not null;default:120"`
	StartDate       time.Time  `json:"start_date" gorm:"not null"`
	EndDate         *time.Time `json:"end_date,omitempty"`
	OccurrenceCount *int       `json:"occurrence_count,omitempty"`
	DaysInAdvance   int        `json:"days_in_advance" gorm:"not null;default:14"`
	Active          bool       `json:"active" gorm:"not null;default:true;index:idx_template_active"`
	LastGeneratedAt *time.Time `json:"last_generated_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at" gorm:"not null;default:current_timestamp"`
	UpdatedAt       time.Time  `json:"updated_at" gorm:"not null;default:current_timestamp"`
}

// StatusChange is the audit record written on every lifecycle transition
type StatusChange struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	EventID   uuid.UUID `json:"event_id" gorm:"type:uuid;not null;index:idx_status_change_event"`
	OldStatus Status    `json:"old_status" gorm:"type:varchar(20);not null"`
	NewStatus Status    `json:"new_status" gorm:"type:varchar(20);not null"`
	Reason    string    `json:"reason" gorm:"type:text"`
	ChangedBy string    `json:"changed_by" gorm:"type:varchar(100);not null"`
	ChangedAt time.Time `json:"changed_at" gorm:"not null;default:current_timestamp"`
}

// TableName specifies the table names for each model
func (Event) TableName() string             { return "events" }
func (Participant) TableName() string       { return "event_participants" }
func (PlaceOption) TableName() string       { return "place_options" }
func (Vote) TableName() string              { return "votes" }
func (RecurringTemplate) TableName() string { return "recurring_templates" }
func (StatusChange) TableName() string      { return "event_status_changes" }

// BeforeCreate hooks for UUID generation
func (e *Event) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

func (p *Participant) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.InvitedAt.IsZero() {
		p.InvitedAt = time.Now()
	}
	return nil
}

func (o *PlaceOption) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.AddedAt.IsZero() {
		o.AddedAt = time.Now()
	}
	return nil
}

func (v *Vote) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

func (t *RecurringTemplate) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

func (c *StatusChange) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.ChangedAt.IsZero() {
		c.ChangedAt = time.Now()
	}
	return nil
}

// Vote values: -1 is a veto, 0..5 is a rating
const (
	MinVoteValue = -1
	MaxVoteValue = 5
)

// Validation methods
func (e *Event) Validate() error {
	if e.Title == "" {
		return NewError("title is required")
	}
	if e.StartTime.After(e.EndTime) {
		return ErrInvalidTimeRange
	}
	if !isValidStatus(e.Status) {
		return ErrInvalidStatus
	}
	if e.AcceptanceThreshold < 0 || e.AcceptanceThreshold > 1 {
		return NewError("acceptance threshold must be between 0 and 1")
	}
	return nil
}

func (v *Vote) Validate() error {
	if v.Value < MinVoteValue || v.Value > MaxVoteValue {
		return ErrInvalidVoteValue
	}
	return nil
}

func (t *RecurringTemplate) Validate() error {
	if t.Title == "" {
		return NewError("title is required")
	}
	if !isValidPattern(t.Pattern) {
		return ErrInvalidPattern
	}
	if _, err := time.Parse("15:04", t.ScheduledTime); err != nil {
		return NewError("scheduled time must be in HH:MM format")
	}
	if t.DaysInAdvance < 1 {
		return NewError("days in advance must be at least 1")
	}
	if t.MonthDay != nil && (*t.MonthDay < 1 || *t.MonthDay > 31) {
		return NewError("month day must be between 1 and 31")
	}
	if t.YearMonth != nil && (*t.YearMonth < 1 || *t.YearMonth > 12) {
		return NewError("year month must be between 1 and 12")
	}
	if t.YearDay != nil && (*t.YearDay < 1 || *t.YearDay > 31) {
		return NewError("year day must be between 1 and 31")
	}
	return nil
}

func isValidStatus(s Status) bool {
	switch s {
	case StatusDraft, StatusPlanning, StatusVoting, StatusConfirmed,
		StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

func isValidPattern(p RecurrencePattern) bool {
	switch p {
	case PatternDaily, PatternWeekly, PatternMonthly, PatternYearly:
		return true
	}
	return false
}

// weekdayCodes maps two-letter codes to time.Weekday
var weekdayCodes = map[string]time.Weekday{
	"SU": time.Sunday,
	"MO": time.Monday,
	"TU": time.Tuesday,
	"WE": time.Wednesday,
	"TH": time.Thursday,
	"FR": time.Friday,
	"SA": time.Saturday,
}

// WeekdayCode returns the two-letter code for a weekday (MO..SU)
func WeekdayCode(d time.Weekday) string {
	return strings.ToUpper(d.String()[:2])
}

// ParseWeekdaySet parses the template's weekday codes into a set. Unknown
// codes are skipped; an empty result means the set was empty or unparseable
// and the caller falls back to the start date's weekday.
func ParseWeekdaySet(codes []string) map[time.Weekday]bool {
	set := make(map[time.Weekday]bool, len(codes))
	for _, code := range codes {
		if day, ok := weekdayCodes[strings.ToUpper(strings.TrimSpace(code))]; ok {
			set[day] = true
		}
	}
	return set
}

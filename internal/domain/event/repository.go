package event

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository interface defines the data access methods for events
type Repository interface {
	// Core event operations
	CreateEvent(ctx context.Context, event *Event) error
	GetEventByID(ctx context.Context, id uuid.UUID) (*Event, error)
	UpdateEvent(ctx context.Context, event *Event) error
	SaveTransition(ctx context.Context, event *Event, change *StatusChange) error
	SaveStatusChange(ctx context.Context, change *StatusChange) error
	GetStatusHistory(ctx context.Context, eventID uuid.UUID) ([]StatusChange, error)

	// Worker candidate queries
	GetEventsWithExpiredRsvpAndInsufficientParticipants(ctx context.Context) ([]Event, error)
	GetEventsInVotingPastDeadline(ctx context.Context) ([]Event, error)
	GetEventsToComplete(ctx context.Context) ([]Event, error)
	GetUpcomingEvents(ctx context.Context, windowStart, windowEnd time.Time, statuses []Status) ([]Event, error)
	GetEventsWithVotingDeadlineBetween(ctx context.Context, start, end time.Time) ([]Event, error)
	GetEventsWithRsvpDeadlineBetween(ctx context.Context, start, end time.Time) ([]Event, error)

	// Participant operations
	AddParticipant(ctx context.Context, participant *Participant) error
	UpdateParticipant(ctx context.Context, participant *Participant) error
	GetParticipant(ctx context.Context, eventID, userID uuid.UUID) (*Participant, error)
	ListParticipants(ctx context.Context, eventID uuid.UUID) ([]Participant, error)
	ListParticipantsByStatus(ctx context.Context, eventID uuid.UUID, status InvitationStatus) ([]Participant, error)
	CountParticipantsByStatus(ctx context.Context, eventID uuid.UUID, status InvitationStatus) (int64, error)

	// Place option and vote operations
	AddPlaceOption(ctx context.Context, option *PlaceOption) error
	GetPlaceOption(ctx context.Context, id uuid.UUID) (*PlaceOption, error)
	ListPlaceOptions(ctx context.Context, eventID uuid.UUID) ([]PlaceOption, error)
	UpsertVote(ctx context.Context, vote *Vote) error
	ListVotes(ctx context.Context, eventID uuid.UUID) ([]Vote, error)

	// Recurring template operations
	CreateTemplate(ctx context.Context, template *RecurringTemplate) error
	GetTemplateByID(ctx context.Context, id uuid.UUID) (*RecurringTemplate, error)
	UpdateTemplate(ctx context.Context, template *RecurringTemplate) error
	GetActiveRecurringTemplates(ctx context.Context) ([]RecurringTemplate, error)
	GetGeneratedEventDatesFor(ctx context.Context, templateID uuid.UUID) ([]time.Time, error)
}

// repository implements the Repository interface
type repository struct {
	db *gorm.DB
}

// NewRepository creates a new event repository instance
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateEvent(ctx context.Context, event *Event) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) GetEventByID(ctx context.Context, id uuid.UUID) (*Event, error) {
	var event Event
	err := r.db.WithContext(ctx).First(&event, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *repository) UpdateEvent(ctx context.Context, event *Event) error {
	return r.db.WithContext(ctx).Save(event).Error
}

// SaveTransition persists a transitioned event together with its audit record
func (r *repository) SaveTransition(ctx context.Context, event *Event, change *StatusChange) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(event).Error; err != nil {
			return err
		}
		return tx.Create(change).Error
	})
}

func (r *repository) SaveStatusChange(ctx context.Context, change *StatusChange) error {
	return r.db.WithContext(ctx).Create(change).Error
}

func (r *repository) GetStatusHistory(ctx context.Context, eventID uuid.UUID) ([]StatusChange, error) {
	var history []StatusChange
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("changed_at ASC").
		Find(&history).Error
	return history, err
}

func (r *repository) GetEventsWithExpiredRsvpAndInsufficientParticipants(ctx context.Context) ([]Event, error) {
	var events []Event
	acceptedSubquery := r.db.Model(&Participant{}).
		Select("count(*)").
		Where("event_participants.event_id = events.id AND invitation_status = ?", InvitationAccepted)

	// Confirmed is included: an event another worker confirmed first is
	// still cancellable while it remains under-attended.
	err := r.db.WithContext(ctx).
		Where("status IN ?", []Status{StatusPlanning, StatusVoting, StatusConfirmed}).
		Where("rsvp_deadline < ?", time.Now().UTC()).
		Where("(?) <= 1", acceptedSubquery).
		Find(&events).Error
	return events, err
}

func (r *repository) GetEventsInVotingPastDeadline(ctx context.Context) ([]Event, error) {
	var events []Event
	err := r.db.WithContext(ctx).
		Where("status = ? AND voting_deadline <= ?", StatusVoting, time.Now().UTC()).
		Find(&events).Error
	return events, err
}

func (r *repository) GetEventsToComplete(ctx context.Context) ([]Event, error) {
	var events []Event
	err := r.db.WithContext(ctx).
		Where("status = ? AND end_time < ?", StatusConfirmed, time.Now().UTC()).
		Find(&events).Error
	return events, err
}

func (r *repository) GetUpcomingEvents(ctx context.Context, windowStart, windowEnd time.Time, statuses []Status) ([]Event, error) {
	var events []Event
	err := r.db.WithContext(ctx).
		Where("status IN ?", statuses).
		Where("start_time >= ? AND start_time < ?", windowStart, windowEnd).
		Find(&events).Error
	return events, err
}

func (r *repository) GetEventsWithVotingDeadlineBetween(ctx context.Context, start, end time.Time) ([]Event, error) {
	var events []Event
	err := r.db.WithContext(ctx).
		Where("status = ?", StatusVoting).
		Where("voting_deadline >= ? AND voting_deadline < ?", start, end).
		Find(&events).Error
	return events, err
}

func (r *repository) GetEventsWithRsvpDeadlineBetween(ctx context.Context, start, end time.Time) ([]Event, error) {
	var events []Event
	err := r.db.WithContext(ctx).
		Where("status IN ?", []Status{StatusPlanning, StatusVoting}).
		Where("rsvp_deadline >= ? AND rsvp_deadline < ?", start, end).
		Find(&events).Error
	return events, err
}

func (r *repository) AddParticipant(ctx context.Context, participant *Participant) error {
	return r.db.WithContext(ctx).Create(participant).Error
}

func (r *repository) UpdateParticipant(ctx context.Context, participant *Participant) error {
	return r.db.WithContext(ctx).Save(participant).Error
}

func (r *repository) GetParticipant(ctx context.Context, eventID, userID uuid.UUID) (*Participant, error) {
	var participant Participant
	err := r.db.WithContext(ctx).
		Where("event_id = ? AND user_id = ?", eventID, userID).
		First(&participant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &participant, nil
}

func (r *repository) ListParticipants(ctx context.Context, eventID uuid.UUID) ([]Participant, error) {
	var participants []Participant
	err := r.db.WithContext(ctx).Where("event_id = ?", eventID).Find(&participants).Error
	return participants, err
}

func (r *repository) ListParticipantsByStatus(ctx context.Context, eventID uuid.UUID, status InvitationStatus) ([]Participant, error) {
	var participants []Participant
	err := r.db.WithContext(ctx).
		Where("event_id = ? AND invitation_status = ?", eventID, status).
		Find(&participants).Error
	return participants, err
}

func (r *repository) CountParticipantsByStatus(ctx context.Context, eventID uuid.UUID, status InvitationStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&Participant{}).
		Where("event_id = ? AND invitation_status = ?", eventID, status).
		Count(&count).Error
	return count, err
}

func (r *repository) AddPlaceOption(ctx context.Context, option *PlaceOption) error {
	return r.db.WithContext(ctx).Create(option).Error
}

func (r *repository) GetPlaceOption(ctx context.Context, id uuid.UUID) (*PlaceOption, error) {
	var option PlaceOption
	err := r.db.WithContext(ctx).First(&option, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &option, nil
}

func (r *repository) ListPlaceOptions(ctx context.Context, eventID uuid.UUID) ([]PlaceOption, error) {
	var options []PlaceOption
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("added_at ASC").
		Find(&options).Error
	return options, err
}

func (r *repository) UpsertVote(ctx context.Context, vote *Vote) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}, {Name: "option_id"}, {Name: "voter_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "created_at"}),
		}).
		Create(vote).Error
}

func (r *repository) ListVotes(ctx context.Context, eventID uuid.UUID) ([]Vote, error) {
	var votes []Vote
	err := r.db.WithContext(ctx).Where("event_id = ?", eventID).Find(&votes).Error
	return votes, err
}

func (r *repository) CreateTemplate(ctx context.Context, template *RecurringTemplate) error {
	return r.db.WithContext(ctx).Create(template).Error
}

func (r *repository) GetTemplateByID(ctx context.Context, id uuid.UUID) (*RecurringTemplate, error) {
	var template RecurringTemplate
	err := r.db.WithContext(ctx).First(&template, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &template, nil
}

func (r *repository) UpdateTemplate(ctx context.Context, template *RecurringTemplate) error {
	return r.db.WithContext(ctx).Save(template).Error
}

func (r *repository) GetActiveRecurringTemplates(ctx context.Context) ([]RecurringTemplate, error) {
	var templates []RecurringTemplate
	err := r.db.WithContext(ctx).Where("active = ?", true).Find(&templates).Error
	return templates, err
}

func (r *repository) GetGeneratedEventDatesFor(ctx context.Context, templateID uuid.UUID) ([]time.Time, error) {
	var dates []time.Time
	err := r.db.WithContext(ctx).
		Model(&Event{}).
		Where("recurring_template_id = ?", templateID).
		Pluck("start_time", &dates).Error
	return dates, err
}

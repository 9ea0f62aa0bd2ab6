package event

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gatherly/backend/internal/domain/events"
	"github.com/gatherly/backend/internal/infrastructure/cache"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReminderKind distinguishes the two idempotent event-time reminders
type ReminderKind string

const (
	Reminder24h ReminderKind = "24h"
	Reminder1h  ReminderKind = "1h"
)

// Notifier is the notification surface the event domain consumes. The
// concrete implementation lives in the notification domain.
type Notifier interface {
	NotifyUser(ctx context.Context, userID uuid.UUID, title, message, notificationType string) error
	SendEventReminderEmail(ctx context.Context, toEmail string, e *Event, kind ReminderKind) error
	SendVotingDeadlineReminderEmail(ctx context.Context, toEmail string, e *Event) error
	SendRsvpDeadlineReminderEmail(ctx context.Context, toEmail string, e *Event) error
}

// CreateEventRequest carries the fields for direct event creation
type CreateEventRequest struct {
	Title               string
	Description         string
	StartTime           time.Time
	EndTime             time.Time
	VotingDeadline      time.Time
	RsvpDeadline        time.Time
	AcceptanceThreshold float64
	OrganizerEmail      string
}

// Service defines the business logic interface for event lifecycle
// orchestration
type Service interface {
	// Event operations
	CreateEvent(ctx context.Context, req CreateEventRequest, organizerID uuid.UUID) (*Event, error)
	GetEventByID(ctx context.Context, id uuid.UUID) (*Event, error)
	GetStatusHistory(ctx context.Context, eventID uuid.UUID) ([]StatusChange, error)

	// Lifecycle operations
	PublishDraft(ctx context.Context, eventID uuid.UUID, changedBy string) error
	OpenVoting(ctx context.Context, eventID uuid.UUID, changedBy string) error
	Cancel(ctx context.Context, eventID uuid.UUID, reason, changedBy string) error
	Finalize(ctx context.Context, eventID uuid.UUID, changedBy string) error
	Complete(ctx context.Context, eventID uuid.UUID, changedBy string) error

	// Participant operations
	Invite(ctx context.Context, eventID, userID, invitedBy uuid.UUID, email string) error
	RespondToInvite(ctx context.Context, eventID, userID uuid.UUID, accept bool) error

	// Venue operations
	AddPlaceOption(ctx context.Context, eventID uuid.UUID, name, placeRef string, aiScore *float64, addedBy uuid.UUID) (*PlaceOption, error)
	CastVote(ctx context.Context, eventID, optionID, voterID uuid.UUID, value int) error

	// Recurring series operations
	CreateRecurringTemplate(ctx context.Context, template *RecurringTemplate) error
	DeactivateRecurringTemplate(ctx context.Context, templateID uuid.UUID) error
}

type service struct {
	repo     Repository
	tally    *Tally
	notifier Notifier
	redis    *cache.RedisClient
	logger   *zap.Logger
}

// NewService creates a new event service instance
func NewService(repo Repository, tally *Tally, notifier Notifier, redis *cache.RedisClient, logger *zap.Logger) Service {
	return &service{repo: repo, tally: tally, notifier: notifier, redis: redis, logger: logger}
}

func (s *service) CreateEvent(ctx context.Context, req CreateEventRequest, organizerID uuid.UUID) (*Event, error) {
	now := time.Now().UTC()
	e := &Event{
		OrganizerID:         organizerID,
		Title:               req.Title,
		Description:         req.Description,
		Status:              StatusPlanning,
		StartTime:           req.StartTime.UTC(),
		EndTime:             req.EndTime.UTC(),
		VotingDeadline:      req.VotingDeadline.UTC(),
		RsvpDeadline:        req.RsvpDeadline.UTC(),
		AcceptanceThreshold: req.AcceptanceThreshold,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if e.AcceptanceThreshold == 0 {
		e.AcceptanceThreshold = 0.5
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.CreateEvent(ctx, e); err != nil {
		return nil, err
	}

	// The organizer participates in their own event.
	respondedAt := now
	organizer := &Participant{
		EventID:          e.ID,
		UserID:           organizerID,
		Email:            req.OrganizerEmail,
		InvitationStatus: InvitationAccepted,
		InvitedBy:        organizerID,
		InvitedAt:        now,
		RespondedAt:      &respondedAt,
	}
	if err := s.repo.AddParticipant(ctx, organizer); err != nil {
		return nil, err
	}

	// Direct creation skips the draft stage; record the implied edge so the
	// history always opens with a creation entry.
	if err := s.repo.SaveStatusChange(ctx, &StatusChange{
		EventID:   e.ID,
		OldStatus: StatusDraft,
		NewStatus: StatusPlanning,
		Reason:    "event created",
		ChangedBy: organizerID.String(),
		ChangedAt: now,
	}); err != nil {
		return nil, err
	}

	s.publishDashboardEvent(ctx, events.EventTypeLifecycleUpdate, organizerID, e.ID, "event_created")
	return e, nil
}

func (s *service) GetEventByID(ctx context.Context, id uuid.UUID) (*Event, error) {
	return s.repo.GetEventByID(ctx, id)
}

func (s *service) GetStatusHistory(ctx context.Context, eventID uuid.UUID) ([]StatusChange, error) {
	return s.repo.GetStatusHistory(ctx, eventID)
}

// PublishDraft moves a generated draft into planning
func (s *service) PublishDraft(ctx context.Context, eventID uuid.UUID, changedBy string) error {
	return s.transition(ctx, eventID, StatusPlanning, "", changedBy)
}

// OpenVoting moves a planning event into its voting window
func (s *service) OpenVoting(ctx context.Context, eventID uuid.UUID, changedBy string) error {
	return s.transition(ctx, eventID, StatusVoting, "", changedBy)
}

// Cancel transitions an event to cancelled and tells everyone. A guard
// rejection (the event is already terminal, or another worker got there
// first) is logged and swallowed as a no-op.
func (s *service) Cancel(ctx context.Context, eventID uuid.UUID, reason, changedBy string) error {
	e, err := s.repo.GetEventByID(ctx, eventID)
	if err != nil {
		return err
	}

	change, err := Transition(e, StatusCancelled, reason, changedBy)
	if errors.Is(err, ErrInvalidTransition) {
		s.logger.Info("Cancel skipped, event no longer cancellable",
			zap.String("event_id", eventID.String()),
			zap.String("status", string(e.Status)),
		)
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.repo.SaveTransition(ctx, e, change); err != nil {
		return err
	}

	s.notifyParticipants(ctx, e, "Event cancelled",
		fmt.Sprintf("%s has been cancelled: %s", e.Title, reason), "event_cancelled")
	s.publishDashboardEvent(ctx, events.EventTypeLifecycleUpdate, e.OrganizerID, e.ID, "event_cancelled")
	return nil
}

// Finalize resolves the winning venue for an event whose voting window has
// closed and confirms it. With zero votes the event is left in voting for a
// later cycle.
func (s *service) Finalize(ctx context.Context, eventID uuid.UUID, changedBy string) error {
	e, err := s.repo.GetEventByID(ctx, eventID)
	if err != nil {
		return err
	}
	if e.Status != StatusVoting {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, e.Status, StatusConfirmed)
	}
	if e.VotingDeadline.After(time.Now().UTC()) {
		return NewError("voting deadline has not passed")
	}

	winnerID, err := s.tally.ComputeWinner(ctx, eventID)
	if errors.Is(err, ErrNoVotesCast) {
		s.logger.Info("Finalize deferred, no votes cast",
			zap.String("event_id", eventID.String()),
		)
		return ErrNoVotesCast
	}
	if err != nil {
		return err
	}

	winner, err := s.repo.GetPlaceOption(ctx, winnerID)
	if err != nil {
		return fmt.Errorf("winning option %s: %w", winnerID, err)
	}

	change, err := Transition(e, StatusConfirmed, fmt.Sprintf("venue decided: %s", winner.Name), changedBy)
	if err != nil {
		return err
	}
	e.FinalPlaceID = &winner.ID

	if err := s.repo.SaveTransition(ctx, e, change); err != nil {
		return err
	}

	s.notifyParticipants(ctx, e, "Event confirmed",
		fmt.Sprintf("%s is confirmed at %s", e.Title, winner.Name), "event_confirmed")
	s.publishDashboardEvent(ctx, events.EventTypeLifecycleUpdate, e.OrganizerID, e.ID, "event_confirmed")
	return nil
}

// Complete transitions a confirmed event whose scheduled end has passed
func (s *service) Complete(ctx context.Context, eventID uuid.UUID, changedBy string) error {
	e, err := s.repo.GetEventByID(ctx, eventID)
	if err != nil {
		return err
	}
	if e.Status != StatusConfirmed {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, e.Status, StatusCompleted)
	}
	if e.EndTime.After(time.Now().UTC()) {
		return NewError("event has not ended yet")
	}

	change, err := Transition(e, StatusCompleted, "", changedBy)
	if err != nil {
		return err
	}
	if err := s.repo.SaveTransition(ctx, e, change); err != nil {
		return err
	}

	s.publishDashboardEvent(ctx, events.EventTypeLifecycleUpdate, e.OrganizerID, e.ID, "event_completed")
	return nil
}

func (s *service) Invite(ctx context.Context, eventID, userID, invitedBy uuid.UUID, email string) error {
	e, err := s.repo.GetEventByID(ctx, eventID)
	if err != nil {
		return err
	}
	if e.Status.IsTerminal() {
		return fmt.Errorf("%w: event is %s", ErrInvalidStatus, e.Status)
	}
	if _, err := s.repo.GetParticipant(ctx, eventID, userID); err == nil {
		return ErrAlreadyInvited
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	participant := &Participant{
		EventID:          eventID,
		UserID:           userID,
		Email:            email,
		InvitationStatus: InvitationPending,
		InvitedBy:        invitedBy,
		InvitedAt:        time.Now().UTC(),
	}
	if err := s.repo.AddParticipant(ctx, participant); err != nil {
		return err
	}

	if err := s.notifier.NotifyUser(ctx, userID, "You're invited",
		fmt.Sprintf("You've been invited to %s", e.Title), "event_invite"); err != nil {
		s.logger.Error("Failed to notify invitee", zap.Error(err))
	}
	return nil
}

func (s *service) RespondToInvite(ctx context.Context, eventID, userID uuid.UUID, accept bool) error {
	e, err := s.repo.GetEventByID(ctx, eventID)
	if err != nil {
		return err
	}
	participant, err := s.repo.GetParticipant(ctx, eventID, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotParticipant
		}
		return err
	}

	now := time.Now().UTC()
	if accept {
		participant.InvitationStatus = InvitationAccepted
	} else {
		participant.InvitationStatus = InvitationDeclined
	}
	participant.RespondedAt = &now
	participant.UpdatedAt = now
	if err := s.repo.UpdateParticipant(ctx, participant); err != nil {
		return err
	}

	notificationType := "event_invite_accepted"
	verb := "accepted"
	if !accept {
		notificationType = "event_invite_declined"
		verb = "declined"
	}
	if err := s.notifier.NotifyUser(ctx, e.OrganizerID, "Invitation response",
		fmt.Sprintf("A guest %s the invitation to %s", verb, e.Title), notificationType); err != nil {
		s.logger.Error("Failed to notify organizer", zap.Error(err))
	}

	s.publishDashboardEvent(ctx, events.EventTypeRsvpUpdate, e.OrganizerID, e.ID, verb)
	return nil
}

func (s *service) AddPlaceOption(ctx context.Context, eventID uuid.UUID, name, placeRef string, aiScore *float64, addedBy uuid.UUID) (*PlaceOption, error) {
	e, err := s.repo.GetEventByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if e.Status != StatusPlanning && e.Status != StatusVoting {
		return nil, fmt.Errorf("%w: options closed once event is %s", ErrInvalidStatus, e.Status)
	}

	option := &PlaceOption{
		EventID:  eventID,
		Name:     name,
		PlaceRef: placeRef,
		AIScore:  aiScore,
		AddedBy:  addedBy,
		AddedAt:  time.Now().UTC(),
	}
	if err := s.repo.AddPlaceOption(ctx, option); err != nil {
		return nil, err
	}
	return option, nil
}

func (s *service) CastVote(ctx context.Context, eventID, optionID, voterID uuid.UUID, value int) error {
	e, err := s.repo.GetEventByID(ctx, eventID)
	if err != nil {
		return err
	}
	if e.Status != StatusVoting {
		return fmt.Errorf("%w: voting is not open", ErrInvalidStatus)
	}
	if e.VotingDeadline.Before(time.Now().UTC()) {
		return NewError("voting deadline has passed")
	}
	if _, err := s.repo.GetParticipant(ctx, eventID, voterID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotParticipant
		}
		return err
	}
	if _, err := s.repo.GetPlaceOption(ctx, optionID); err != nil {
		return err
	}

	vote := &Vote{
		EventID:   eventID,
		OptionID:  optionID,
		VoterID:   voterID,
		Value:     value,
		CreatedAt: time.Now().UTC(),
	}
	if err := vote.Validate(); err != nil {
		return err
	}
	if err := s.repo.UpsertVote(ctx, vote); err != nil {
		return err
	}

	s.publishDashboardEvent(ctx, events.EventTypeVoteUpdate, e.OrganizerID, e.ID, "vote_cast")
	return nil
}

// CreateRecurringTemplate validates and stores a recurring series template.
// The recurrence worker picks it up on its next cycle.
func (s *service) CreateRecurringTemplate(ctx context.Context, template *RecurringTemplate) error {
	if err := template.Validate(); err != nil {
		return err
	}
	if template.ID == uuid.Nil {
		template.ID = uuid.New()
	}
	template.Active = true
	now := time.Now().UTC()
	template.CreatedAt = now
	template.UpdatedAt = now
	return s.repo.CreateTemplate(ctx, template)
}

// DeactivateRecurringTemplate stops future generation. Already materialized
// instances are untouched.
func (s *service) DeactivateRecurringTemplate(ctx context.Context, templateID uuid.UUID) error {
	template, err := s.repo.GetTemplateByID(ctx, templateID)
	if err != nil {
		return err
	}
	template.Active = false
	template.UpdatedAt = time.Now().UTC()
	return s.repo.UpdateTemplate(ctx, template)
}

// transition is the shared load-transition-save path for simple edges
func (s *service) transition(ctx context.Context, eventID uuid.UUID, target Status, reason, changedBy string) error {
	e, err := s.repo.GetEventByID(ctx, eventID)
	if err != nil {
		return err
	}
	change, err := Transition(e, target, reason, changedBy)
	if err != nil {
		return err
	}
	if err := s.repo.SaveTransition(ctx, e, change); err != nil {
		return err
	}
	s.publishDashboardEvent(ctx, events.EventTypeLifecycleUpdate, e.OrganizerID, e.ID, string(target))
	return nil
}

// notifyParticipants fans an in-app notification out to everyone who has not
// declined. A single failed notification is logged and does not block the
// rest.
func (s *service) notifyParticipants(ctx context.Context, e *Event, title, message, notificationType string) {
	participants, err := s.repo.ListParticipants(ctx, e.ID)
	if err != nil {
		s.logger.Error("Failed to list participants for notification",
			zap.String("event_id", e.ID.String()),
			zap.Error(err),
		)
		return
	}
	for _, p := range participants {
		if p.InvitationStatus == InvitationDeclined {
			continue
		}
		if err := s.notifier.NotifyUser(ctx, p.UserID, title, message, notificationType); err != nil {
			s.logger.Error("Failed to notify participant",
				zap.String("event_id", e.ID.String()),
				zap.String("user_id", p.UserID.String()),
				zap.Error(err),
			)
		}
	}
}

func (s *service) publishDashboardEvent(ctx context.Context, eventType string, userID, entityID uuid.UUID, action string) {
	if s.redis == nil {
		return
	}
	dashboardEvent := &events.DashboardEvent{
		EventType: eventType,
		UserID:    userID,
		EntityID:  entityID,
		Timestamp: time.Now().UTC(),
		Details: map[string]interface{}{
			"action": action,
		},
	}
	// Cached dashboard views are dropped by the subscriber side, so every
	// consumer of the channel sees the same ordering.
	if err := s.redis.PublishDashboardEvent(ctx, dashboardEvent); err != nil {
		s.logger.Error("Failed to publish dashboard event", zap.Error(err))
	}
}

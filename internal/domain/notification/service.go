package notification

import (
	"context"
	"fmt"

	"github.com/gatherly/backend/internal/domain/event"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Service is the notification dispatch surface consumed by the event domain
// and the scheduler workers. In-app notifications are persisted; emails go
// through the configured Mailer.
type Service interface {
	event.Notifier

	GetByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Notification, error)
	MarkAsRead(ctx context.Context, id uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) error
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)
}

// ServiceConfig holds the configuration for the notification service
type ServiceConfig struct {
	Repository Repository
	Mailer     Mailer
	Logger     *logrus.Logger
}

type serviceImpl struct {
	repo   Repository
	mailer Mailer
	logger *logrus.Logger
}

// NewService creates a new notification service
func NewService(config ServiceConfig) Service {
	return &serviceImpl{
		repo:   config.Repository,
		mailer: config.Mailer,
		logger: config.Logger,
	}
}

// NotifyUser persists an in-app notification for a user
func (s *serviceImpl) NotifyUser(ctx context.Context, userID uuid.UUID, title, message, notificationType string) error {
	notification := &Notification{
		ID:      uuid.New(),
		UserID:  userID,
		Type:    Type(notificationType),
		Title:   title,
		Content: message,
		Status:  Unread,
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		s.logger.WithError(err).Error("Failed to create notification")
		return err
	}
	return nil
}

// SendEventReminderEmail sends a 24h or 1h reminder for an upcoming event
func (s *serviceImpl) SendEventReminderEmail(ctx context.Context, toEmail string, e *event.Event, kind event.ReminderKind) error {
	var subject string
	switch kind {
	case event.Reminder24h:
		subject = fmt.Sprintf("Reminder: %s is tomorrow", e.Title)
	case event.Reminder1h:
		subject = fmt.Sprintf("Reminder: %s starts in an hour", e.Title)
	default:
		subject = fmt.Sprintf("Reminder: %s is coming up", e.Title)
	}
	body := fmt.Sprintf("%s starts at %s.", e.Title, e.StartTime.Format("Mon, 2 Jan 2006 15:04 MST"))

	if err := s.mailer.Send(ctx, toEmail, subject, body); err != nil {
		s.logger.WithError(err).WithField("to", toEmail).Error("Failed to send event reminder email")
		return fmt.Errorf("%w: %v", ErrDispatchFailed, err)
	}
	return nil
}

// SendVotingDeadlineReminderEmail nudges a participant to vote before the
// venue voting closes
func (s *serviceImpl) SendVotingDeadlineReminderEmail(ctx context.Context, toEmail string, e *event.Event) error {
	subject := fmt.Sprintf("Voting for %s closes soon", e.Title)
	body := fmt.Sprintf("Venue voting for %s closes at %s. Cast your vote before then.",
		e.Title, e.VotingDeadline.Format("Mon, 2 Jan 2006 15:04 MST"))

	if err := s.mailer.Send(ctx, toEmail, subject, body); err != nil {
		s.logger.WithError(err).WithField("to", toEmail).Error("Failed to send voting deadline reminder email")
		return fmt.Errorf("%w: %v", ErrDispatchFailed, err)
	}
	return nil
}

// SendRsvpDeadlineReminderEmail nudges a pending invitee to respond before
// the RSVP cutoff
func (s *serviceImpl) SendRsvpDeadlineReminderEmail(ctx context.Context, toEmail string, e *event.Event) error {
	subject := fmt.Sprintf("RSVP for %s closes soon", e.Title)
	body := fmt.Sprintf("The RSVP deadline for %s is %s. Let the organizer know if you're coming.",
		e.Title, e.RsvpDeadline.Format("Mon, 2 Jan 2006 15:04 MST"))

	if err := s.mailer.Send(ctx, toEmail, subject, body); err != nil {
		s.logger.WithError(err).WithField("to", toEmail).Error("Failed to send RSVP deadline reminder email")
		return fmt.Errorf("%w: %v", ErrDispatchFailed, err)
	}
	return nil
}

func (s *serviceImpl) GetByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Notification, error) {
	return s.repo.GetByUserID(ctx, userID, limit, offset)
}

func (s *serviceImpl) MarkAsRead(ctx context.Context, id uuid.UUID) error {
	return s.repo.MarkAsRead(ctx, id)
}

func (s *serviceImpl) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllAsRead(ctx, userID)
}

func (s *serviceImpl) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

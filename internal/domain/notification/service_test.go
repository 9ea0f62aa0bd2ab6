package notification

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/gatherly/backend/internal/domain/event"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepository struct {
	created []*Notification
	fail    bool
}

func (r *fakeRepository) Create(ctx context.Context, n *Notification) error {
	if r.fail {
		return errors.New("insert failed")
	}
	r.created = append(r.created, n)
	return nil
}

func (r *fakeRepository) GetByID(ctx context.Context, id uuid.UUID) (*Notification, error) {
	for _, n := range r.created {
		if n.ID == id {
			return n, nil
		}
	}
	return nil, ErrNotFound
}

func (r *fakeRepository) GetByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Notification, error) {
	var out []*Notification
	for _, n := range r.created {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *fakeRepository) MarkAsRead(ctx context.Context, id uuid.UUID) error   { return nil }
func (r *fakeRepository) MarkAllAsRead(ctx context.Context, u uuid.UUID) error { return nil }

func (r *fakeRepository) CountUnread(ctx context.Context, u uuid.UUID) (int64, error) {
	count := int64(0)
	for _, n := range r.created {
		if n.UserID == u && n.Status == Unread {
			count++
		}
	}
	return count, nil
}
func (r *fakeRepository) Delete(ctx context.Context, id uuid.UUID) error { return nil }

type fakeMailer struct {
	subjects []string
	to       []string
	fail     bool
}

func (m *fakeMailer) Send(ctx context.Context, to, subject, body string) error {
	if m.fail {
		return errors.New("smtp unreachable")
	}
	m.to = append(m.to, to)
	m.subjects = append(m.subjects, subject)
	return nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestService() (Service, *fakeRepository, *fakeMailer) {
	repo := &fakeRepository{}
	mailer := &fakeMailer{}
	svc := NewService(ServiceConfig{
		Repository: repo,
		Mailer:     mailer,
		Logger:     quietLogger(),
	})
	return svc, repo, mailer
}

func testEvent() *event.Event {
	return &event.Event{
		ID:             uuid.New(),
		Title:          "Karaoke night",
		StartTime:      time.Date(2026, time.April, 10, 19, 0, 0, 0, time.UTC),
		VotingDeadline: time.Date(2026, time.April, 9, 19, 0, 0, 0, time.UTC),
		RsvpDeadline:   time.Date(2026, time.April, 8, 19, 0, 0, 0, time.UTC),
	}
}

func TestNotifyUserPersistsUnreadNotification(t *testing.T) {
	svc, repo, _ := newTestService()
	userID := uuid.New()

	err := svc.NotifyUser(context.Background(), userID, "You're invited", "Come to karaoke", "event_invite")
	require.NoError(t, err)

	require.Len(t, repo.created, 1)
	n := repo.created[0]
	assert.Equal(t, userID, n.UserID)
	assert.Equal(t, Type("event_invite"), n.Type)
	assert.Equal(t, "You're invited", n.Title)
	assert.Equal(t, Unread, n.Status)

	count, err := svc.CountUnread(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestSendEventReminderEmailSubjects(t *testing.T) {
	tests := []struct {
		name    string
		kind    event.ReminderKind
		subject string
	}{
		{"24 hours out", event.Reminder24h, "Reminder: Karaoke night is tomorrow"},
		{"1 hour out", event.Reminder1h, "Reminder: Karaoke night starts in an hour"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, mailer := newTestService()
			err := svc.SendEventReminderEmail(context.Background(), "guest@example.com", testEvent(), tt.kind)
			require.NoError(t, err)
			require.Len(t, mailer.subjects, 1)
			assert.Equal(t, tt.subject, mailer.subjects[0])
			assert.Equal(t, []string{"guest@example.com"}, mailer.to)
		})
	}
}

func TestSendEmailWrapsMailerFailure(t *testing.T) {
	svc, _, mailer := newTestService()
	mailer.fail = true

	err := svc.SendEventReminderEmail(context.Background(), "guest@example.com", testEvent(), event.Reminder24h)
	assert.ErrorIs(t, err, ErrDispatchFailed)

	err = svc.SendVotingDeadlineReminderEmail(context.Background(), "guest@example.com", testEvent())
	assert.ErrorIs(t, err, ErrDispatchFailed)

	err = svc.SendRsvpDeadlineReminderEmail(context.Background(), "guest@example.com", testEvent())
	assert.ErrorIs(t, err, ErrDispatchFailed)
}

func TestDeadlineReminderSubjects(t *testing.T) {
	svc, _, mailer := newTestService()
	e := testEvent()

	require.NoError(t, svc.SendVotingDeadlineReminderEmail(context.Background(), "a@example.com", e))
	require.NoError(t, svc.SendRsvpDeadlineReminderEmail(context.Background(), "b@example.com", e))

	require.Len(t, mailer.subjects, 2)
	assert.Equal(t, "Voting for Karaoke night closes soon", mailer.subjects[0])
	assert.Equal(t, "RSVP for Karaoke night closes soon", mailer.subjects[1])
}

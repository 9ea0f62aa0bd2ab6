package scheduler

import (
	"context"
	"time"

	"github.com/gatherly/backend/internal/domain/event"
	"github.com/gatherly/backend/pkg/logger"
	"go.uber.org/zap"
)

const defaultReminderInterval = time.Hour

// ReminderWorker dispatches four independent reminder categories each cycle:
// event reminders 24 hours and 1 hour before start (idempotent via the
// participant's sent-at fields), and voting/RSVP deadline reminders 24 hours
// before the respective cutoff (not guarded; re-running inside the same
// window can re-notify).
type ReminderWorker struct {
	*worker
	repo     event.Repository
	notifier event.Notifier
	now      func() time.Time
}

// NewReminderWorker creates a new reminder worker
func NewReminderWorker(repo event.Repository, notifier event.Notifier, interval time.Duration, log *logger.Logger) *ReminderWorker {
	if interval <= 0 {
		interval = defaultReminderInterval
	}
	w := &ReminderWorker{repo: repo, notifier: notifier, now: time.Now}
	w.worker = newWorker("reminders", interval, log, w.run)
	return w
}

func (w *ReminderWorker) run(ctx context.Context) {
	now := w.now().UTC()

	sent := 0
	sent += w.sendEventReminders(ctx, now.Add(24*time.Hour), now.Add(25*time.Hour),
		[]event.Status{event.StatusConfirmed, event.StatusVoting}, event.Reminder24h)
	sent += w.sendEventReminders(ctx, now.Add(time.Hour), now.Add(90*time.Minute),
		[]event.Status{event.StatusConfirmed}, event.Reminder1h)
	sent += w.sendVotingDeadlineReminders(ctx, now.Add(24*time.Hour), now.Add(25*time.Hour))
	sent += w.sendRsvpDeadlineReminders(ctx, now.Add(24*time.Hour), now.Add(25*time.Hour))

	if sent > 0 {
		w.logger.Info("Reminder cycle completed", zap.Int("sent", sent))
	}
}

// sendEventReminders covers the two idempotent event-time categories. The
// participant's sent-at field is only written after a successful dispatch,
// so a failed send is retried naturally on the next cycle.
func (w *ReminderWorker) sendEventReminders(ctx context.Context, windowStart, windowEnd time.Time, statuses []event.Status, kind event.ReminderKind) int {
	upcoming, err := w.repo.GetUpcomingEvents(ctx, windowStart, windowEnd, statuses)
	if err != nil {
		cycleFailures.WithLabelValues(w.name).Inc()
		w.logger.Error("Failed to query upcoming events",
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
		return 0
	}

	sent := 0
	for i := range upcoming {
		if w.stopping() {
			return sent
		}
		e := &upcoming[i]
		participants, err := w.repo.ListParticipantsByStatus(ctx, e.ID, event.InvitationAccepted)
		if err != nil {
			w.logger.Error("Failed to list participants for reminder",
				zap.String("event_id", e.ID.String()),
				zap.Error(err),
			)
			continue
		}

		for j := range participants {
			p := &participants[j]
			if alreadySent(p, kind) {
				continue
			}
			if err := w.dispatchEventReminder(ctx, e, p, kind); err != nil {
				itemsProcessed.WithLabelValues(w.name, "failed").Inc()
				w.logger.Error("Failed to send event reminder",
					zap.String("event_id", e.ID.String()),
					zap.String("user_id", p.UserID.String()),
					zap.String("kind", string(kind)),
					zap.Error(err),
				)
				continue
			}
			sent++
			itemsProcessed.WithLabelValues(w.name, "ok").Inc()
			remindersSent.WithLabelValues("event_" + string(kind)).Inc()
		}
	}
	return sent
}

func (w *ReminderWorker) dispatchEventReminder(ctx context.Context, e *event.Event, p *event.Participant, kind event.ReminderKind) error {
	return guardItem(func() error {
		if err := w.notifier.SendEventReminderEmail(ctx, p.Email, e, kind); err != nil {
			return err
		}

		// Mark as sent only after a successful dispatch.
		now := w.now().UTC()
		switch kind {
		case event.Reminder24h:
			p.Reminder24hSentAt = &now
		case event.Reminder1h:
			p.Reminder1hSentAt = &now
		}
		p.UpdatedAt = now
		return w.repo.UpdateParticipant(ctx, p)
	})
}

func (w *ReminderWorker) sendVotingDeadlineReminders(ctx context.Context, windowStart, windowEnd time.Time) int {
	closing, err := w.repo.GetEventsWithVotingDeadlineBetween(ctx, windowStart, windowEnd)
	if err != nil {
		cycleFailures.WithLabelValues(w.name).Inc()
		w.logger.Error("Failed to query events with closing votes", zap.Error(err))
		return 0
	}

	sent := 0
	for i := range closing {
		if w.stopping() {
			return sent
		}
		e := &closing[i]
		if e.Status != event.StatusVoting {
			continue
		}
		participants, err := w.repo.ListParticipantsByStatus(ctx, e.ID, event.InvitationAccepted)
		if err != nil {
			w.logger.Error("Failed to list participants for voting reminder",
				zap.String("event_id", e.ID.String()),
				zap.Error(err),
			)
			continue
		}
		for j := range participants {
			p := &participants[j]
			err := guardItem(func() error {
				return w.notifier.SendVotingDeadlineReminderEmail(ctx, p.Email, e)
			})
			if err != nil {
				itemsProcessed.WithLabelValues(w.name, "failed").Inc()
				w.logger.Error("Failed to send voting deadline reminder",
					zap.String("event_id", e.ID.String()),
					zap.String("user_id", p.UserID.String()),
					zap.Error(err),
				)
				continue
			}
			sent++
			itemsProcessed.WithLabelValues(w.name, "ok").Inc()
			remindersSent.WithLabelValues("voting_deadline").Inc()
		}
	}
	return sent
}

func (w *ReminderWorker) sendRsvpDeadlineReminders(ctx context.Context, windowStart, windowEnd time.Time) int {
	closing, err := w.repo.GetEventsWithRsvpDeadlineBetween(ctx, windowStart, windowEnd)
	if err != nil {
		cycleFailures.WithLabelValues(w.name).Inc()
		w.logger.Error("Failed to query events with closing RSVPs", zap.Error(err))
		return 0
	}

	sent := 0
	for i := range closing {
		if w.stopping() {
			return sent
		}
		e := &closing[i]
		participants, err := w.repo.ListParticipantsByStatus(ctx, e.ID, event.InvitationPending)
		if err != nil {
			w.logger.Error("Failed to list participants for RSVP reminder",
				zap.String("event_id", e.ID.String()),
				zap.Error(err),
			)
			continue
		}
		for j := range participants {
			p := &participants[j]
			err := guardItem(func() error {
				return w.notifier.SendRsvpDeadlineReminderEmail(ctx, p.Email, e)
			})
			if err != nil {
				itemsProcessed.WithLabelValues(w.name, "failed").Inc()
				w.logger.Error("Failed to send RSVP deadline reminder",
					zap.String("event_id", e.ID.String()),
					zap.String("user_id", p.UserID.String()),
					zap.Error(err),
				)
				continue
			}
			sent++
			itemsProcessed.WithLabelValues(w.name, "ok").Inc()
			remindersSent.WithLabelValues("rsvp_deadline").Inc()
		}
	}
	return sent
}

func alreadySent(p *event.Participant, kind event.ReminderKind) bool {
	switch kind {
	case event.Reminder24h:
		return p.Reminder24hSentAt != nil
	case event.Reminder1h:
		return p.Reminder1hSentAt != nil
	}
	return false
}

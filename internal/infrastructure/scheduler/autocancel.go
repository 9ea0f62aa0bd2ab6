package scheduler

import (
	"context"
	"time"

	"github.com/gatherly/backend/internal/domain/event"
	"github.com/gatherly/backend/pkg/logger"
	"go.uber.org/zap"
)

const defaultAutoCancelInterval = 30 * time.Minute

// AutoCancelReason is the fixed cancellation text written to events that
// never gathered enough confirmed participants
const AutoCancelReason = "Cancelled automatically: not enough confirmed participants by the RSVP deadline"

// AutoCancelWorker cancels events whose RSVP deadline passed with only the
// organizer on board
type AutoCancelWorker struct {
	*worker
	service event.Service
	repo    event.Repository
}

// NewAutoCancelWorker creates a new auto-cancel worker
func NewAutoCancelWorker(service event.Service, repo event.Repository, interval time.Duration, log *logger.Logger) *AutoCancelWorker {
	if interval <= 0 {
		interval = defaultAutoCancelInterval
	}
	w := &AutoCancelWorker{service: service, repo: repo}
	w.worker = newWorker("auto_cancel", interval, log, w.run)
	return w
}

func (w *AutoCancelWorker) run(ctx context.Context) {
	candidates, err := w.repo.GetEventsWithExpiredRsvpAndInsufficientParticipants(ctx)
	if err != nil {
		cycleFailures.WithLabelValues(w.name).Inc()
		w.logger.Error("Failed to query auto-cancel candidates", zap.Error(err))
		return
	}

	cancelled, skipped, failed := 0, 0, 0
	for _, e := range candidates {
		if w.stopping() {
			return
		}
		eventID := e.ID

		// Re-check the headcount right before acting: an acceptance may
		// have landed between the candidate query and now.
		accepted, err := w.repo.CountParticipantsByStatus(ctx, eventID, event.InvitationAccepted)
		if err != nil {
			failed++
			itemsProcessed.WithLabelValues(w.name, "failed").Inc()
			w.logger.Error("Failed to count accepted participants",
				zap.String("event_id", eventID.String()),
				zap.Error(err),
			)
			continue
		}
		if accepted > 1 {
			skipped++
			itemsProcessed.WithLabelValues(w.name, "skipped").Inc()
			continue
		}

		err = guardItem(func() error {
			return w.service.Cancel(ctx, eventID, AutoCancelReason, "system:auto_cancel")
		})
		if err != nil {
			failed++
			itemsProcessed.WithLabelValues(w.name, "failed").Inc()
			w.logger.Error("Failed to auto-cancel event",
				zap.String("event_id", eventID.String()),
				zap.Error(err),
			)
			continue
		}
		cancelled++
		itemsProcessed.WithLabelValues(w.name, "ok").Inc()
	}

	if len(candidates) > 0 {
		w.logger.Info("Auto-cancel cycle completed",
			zap.Int("candidates", len(candidates)),
			zap.Int("cancelled", cancelled),
			zap.Int("skipped", skipped),
			zap.Int("failed", failed),
		)
	}
}

package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/gatherly/backend/internal/domain/event"
	"github.com/gatherly/backend/pkg/logger"
	"go.uber.org/zap"
)

const defaultFinalizeInterval = time.Hour

// AutoFinalizeWorker resolves the winning venue for events whose voting
// window has closed and confirms them. Events with no votes yet are left in
// voting for a later cycle.
type AutoFinalizeWorker struct {
	*worker
	service event.Service
	repo    event.Repository
}

// NewAutoFinalizeWorker creates a new auto-finalize worker
func NewAutoFinalizeWorker(service event.Service, repo event.Repository, interval time.Duration, log *logger.Logger) *AutoFinalizeWorker {
	if interval <= 0 {
		interval = defaultFinalizeInterval
	}
	w := &AutoFinalizeWorker{service: service, repo: repo}
	w.worker = newWorker("auto_finalize", interval, log, w.run)
	return w
}

func (w *AutoFinalizeWorker) run(ctx context.Context) {
	candidates, err := w.repo.GetEventsInVotingPastDeadline(ctx)
	if err != nil {
		cycleFailures.WithLabelValues(w.name).Inc()
		w.logger.Error("Failed to query finalize candidates", zap.Error(err))
		return
	}

	finalized, deferred, failed := 0, 0, 0
	for _, e := range candidates {
		if w.stopping() {
			return
		}
		eventID := e.ID
		err := guardItem(func() error {
			return w.service.Finalize(ctx, eventID, "system:auto_finalize")
		})
		switch {
		case err == nil:
			finalized++
			itemsProcessed.WithLabelValues(w.name, "ok").Inc()
		case errors.Is(err, event.ErrNoVotesCast):
			// Nobody voted; leave the event in voting and try again next
			// cycle.
			deferred++
			itemsProcessed.WithLabelValues(w.name, "deferred").Inc()
		case errors.Is(err, event.ErrNotFound):
			// The winning option vanished between query and action.
			failed++
			itemsProcessed.WithLabelValues(w.name, "skipped").Inc()
			w.logger.Warn("Skipping event, winning option could not be resolved",
				zap.String("event_id", eventID.String()),
				zap.Error(err),
			)
		default:
			failed++
			itemsProcessed.WithLabelValues(w.name, "failed").Inc()
			w.logger.Error("Failed to finalize event",
				zap.String("event_id", eventID.String()),
				zap.Error(err),
			)
		}
	}

	if len(candidates) > 0 {
		w.logger.Info("Auto-finalize cycle completed",
			zap.Int("candidates", len(candidates)),
			zap.Int("finalized", finalized),
			zap.Int("deferred", deferred),
			zap.Int("failed", failed),
		)
	}
}

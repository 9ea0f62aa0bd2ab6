package scheduler

import (
	"context"
	"time"

	"github.com/gatherly/backend/internal/domain/event"
	"github.com/gatherly/backend/pkg/logger"
	"go.uber.org/zap"
)

const defaultCompletionInterval = 6 * time.Hour

// CompletionWorker marks confirmed events as completed once their scheduled
// end time has passed
type CompletionWorker struct {
	*worker
	service event.Service
	repo    event.Repository
}

// NewCompletionWorker creates a new completion worker
func NewCompletionWorker(service event.Service, repo event.Repository, interval time.Duration, log *logger.Logger) *CompletionWorker {
	if interval <= 0 {
		interval = defaultCompletionInterval
	}
	w := &CompletionWorker{service: service, repo: repo}
	w.worker = newWorker("completion", interval, log, w.run)
	return w
}

func (w *CompletionWorker) run(ctx context.Context) {
	candidates, err := w.repo.GetEventsToComplete(ctx)
	if err != nil {
		cycleFailures.WithLabelValues(w.name).Inc()
		w.logger.Error("Failed to query completion candidates", zap.Error(err))
		return
	}

	completed, failed := 0, 0
	for _, e := range candidates {
		if w.stopping() {
			return
		}
		eventID := e.ID
		err := guardItem(func() error {
			return w.service.Complete(ctx, eventID, "system:completion")
		})
		if err != nil {
			failed++
			itemsProcessed.WithLabelValues(w.name, "failed").Inc()
			w.logger.Error("Failed to complete event",
				zap.String("event_id", eventID.String()),
				zap.Error(err),
			)
			continue
		}
		completed++
		itemsProcessed.WithLabelValues(w.name, "ok").Inc()
	}

	if len(candidates) > 0 {
		w.logger.Info("Completion cycle completed",
			zap.Int("candidates", len(candidates)),
			zap.Int("completed", completed),
			zap.Int("failed", failed),
		)
	}
}

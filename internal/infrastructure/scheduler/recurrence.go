package scheduler

import (
	"context"
	"time"

	"github.com/gatherly/backend/internal/domain/event"
	"github.com/gatherly/backend/pkg/logger"
	"go.uber.org/zap"
)

const defaultRecurrenceInterval = 24 * time.Hour

// RecurrenceWorker drives the recurrence engine over all active templates
// once a day
type RecurrenceWorker struct {
	*worker
	engine *event.RecurrenceEngine
}

// NewRecurrenceWorker creates a new recurrence worker
func NewRecurrenceWorker(engine *event.RecurrenceEngine, interval time.Duration, log *logger.Logger) *RecurrenceWorker {
	if interval <= 0 {
		interval = defaultRecurrenceInterval
	}
	w := &RecurrenceWorker{engine: engine}
	w.worker = newWorker("recurrence", interval, log, w.run)
	return w
}

func (w *RecurrenceWorker) run(ctx context.Context) {
	created, err := w.engine.GenerateDueOccurrences(ctx)
	if err != nil {
		cycleFailures.WithLabelValues(w.name).Inc()
		w.logger.Error("Recurrence generation failed", zap.Error(err))
		return
	}
	if created > 0 {
		itemsProcessed.WithLabelValues(w.name, "ok").Add(float64(created))
		w.logger.Info("Recurrence cycle completed", zap.Int("created", created))
	}
}

package scheduler

import (
	"time"

	"github.com/gatherly/backend/internal/domain/event"
	"github.com/gatherly/backend/pkg/config"
	"github.com/gatherly/backend/pkg/logger"
)

// Scheduler owns the five background workers. Each worker runs its own
// polling loop; the scheduler only starts and stops them together.
type Scheduler struct {
	workers []startStopper
	logger  *logger.Logger
}

type startStopper interface {
	Start()
	Stop()
}

// Intervals groups the per-worker polling intervals; zero values fall back
// to each worker's default
type Intervals struct {
	AutoCancel time.Duration
	Finalize   time.Duration
	Completion time.Duration
	Reminder   time.Duration
	Recurrence time.Duration
}

// IntervalsFromConfig maps the scheduler config section onto worker
// intervals
func IntervalsFromConfig(cfg config.SchedulerConfig) Intervals {
	return Intervals{
		AutoCancel: cfg.AutoCancelInterval,
		Finalize:   cfg.FinalizeInterval,
		Completion: cfg.CompletionInterval,
		Reminder:   cfg.ReminderInterval,
		Recurrence: cfg.RecurrenceInterval,
	}
}

// NewScheduler wires up all five workers
func NewScheduler(
	service event.Service,
	repo event.Repository,
	notifier event.Notifier,
	engine *event.RecurrenceEngine,
	intervals Intervals,
	log *logger.Logger,
) *Scheduler {
	return &Scheduler{
		logger: log,
		workers: []startStopper{
			NewAutoCancelWorker(service, repo, intervals.AutoCancel, log),
			NewAutoFinalizeWorker(service, repo, intervals.Finalize, log),
			NewCompletionWorker(service, repo, intervals.Completion, log),
			NewReminderWorker(repo, notifier, intervals.Reminder, log),
			NewRecurrenceWorker(engine, intervals.Recurrence, log),
		},
	}
}

// Start launches every worker loop
func (s *Scheduler) Start() {
	for _, w := range s.workers {
		w.Start()
	}
	s.logger.Info("Scheduler started all workers")
}

// Stop shuts every worker down and waits for in-flight cycles to finish
func (s *Scheduler) Stop() {
	for _, w := range s.workers {
		w.Stop()
	}
	s.logger.Info("Scheduler stopped all workers")
}

package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatherly_worker_cycles_total",
		Help: "Number of completed worker cycles",
	}, []string{"worker"})

	cycleFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatherly_worker_cycle_failures_total",
		Help: "Number of worker cycles that ended in a panic or query failure",
	}, []string{"worker"})

	itemsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatherly_worker_items_processed_total",
		Help: "Number of candidate items handled by workers",
	}, []string{"worker", "outcome"})

	cycleDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gatherly_worker_cycle_duration_seconds",
		Help:    "Duration of worker cycles",
		Buckets: prometheus.DefBuckets,
	}, []string{"worker"})

	remindersSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatherly_reminders_sent_total",
		Help: "Number of reminder emails dispatched, by category",
	}, []string{"category"})
)

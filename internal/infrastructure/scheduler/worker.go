package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/gatherly/backend/pkg/logger"
	"go.uber.org/zap"
)

// worker is the shared polling loop behind every scheduler worker. Each
// instance owns its own ticker and stop handle; there is no shared state
// between workers. The cycle function runs inside a recover boundary so an
// unexpected error never kills the loop, it just waits for the next tick.
//
// Shutdown is cooperative: Stop closes the stop channel and waits for the
// in-flight cycle to return. Cycle bodies poll stopping between candidate
// items, and the context handed to store and notifier calls is never
// cancelled, so the item already being processed runs to completion.
type worker struct {
	name     string
	interval time.Duration
	logger   *logger.Logger
	cycle    func(ctx context.Context)

	stop chan struct{}
	done chan struct{}
}

func newWorker(name string, interval time.Duration, log *logger.Logger, cycle func(ctx context.Context)) *worker {
	return &worker{
		name:     name,
		interval: interval,
		logger:   log,
		cycle:    cycle,
	}
}

// Start launches the polling loop. The first cycle runs immediately at
// startup, matching poll-on-boot behavior.
func (w *worker) Start() {
	w.stop = make(chan struct{})
	w.done = make(chan struct{})

	w.logger.Info("Worker started",
		zap.String("worker", w.name),
		zap.Duration("interval", w.interval),
	)

	go w.loop()
}

// Stop signals the loop to exit and waits for the in-flight cycle to finish
func (w *worker) Stop() {
	if w.stop == nil {
		return
	}
	close(w.stop)
	<-w.done
	w.logger.Info("Worker stopped", zap.String("worker", w.name))
}

// stopping reports whether Stop has been requested. Cycle bodies check it
// between items so shutdown waits for the current item instead of aborting
// it mid-dispatch.
func (w *worker) stopping() bool {
	select {
	case <-w.stop:
		return true
	default:
		return false
	}
}

func (w *worker) loop() {
	defer close(w.done)

	w.runCycle()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			w.runCycle()
		}
	}
}

// runCycle is the per-cycle failure boundary
func (w *worker) runCycle() {
	startTime := time.Now()
	defer func() {
		if r := recover(); r != nil {
			cycleFailures.WithLabelValues(w.name).Inc()
			w.logger.Error("Worker cycle panicked",
				zap.String("worker", w.name),
				zap.Any("panic", r),
			)
		}
		cycleDuration.WithLabelValues(w.name).Observe(time.Since(startTime).Seconds())
		cyclesTotal.WithLabelValues(w.name).Inc()
	}()

	w.cycle(context.Background())
}

// guardItem is the per-item failure boundary: it captures a panic from one
// candidate so the rest of the batch still runs
func guardItem(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

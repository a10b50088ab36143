package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/service"
	"github.com/spec-kit/sla-engine/internal/sweep"
)

// Worker owns the background side of the engine: notification fan-out and the
// periodic sweeps.
type Worker struct {
	notifications *service.NotificationService
	scheduler     *sweep.Scheduler
	logger        *zap.Logger
}

// New creates the worker.
func New(notifications *service.NotificationService, scheduler *sweep.Scheduler, logger *zap.Logger) *Worker {
	return &Worker{notifications: notifications, scheduler: scheduler, logger: logger}
}

// Start registers notification handlers and schedules the sweeps. Intervals
// of zero or below disable the corresponding sweep.
func (w *Worker) Start(ctx context.Context, escalation, rebalance sweep.Sweep, escalationEvery, rebalanceEvery time.Duration) error {
	if w.notifications != nil {
		w.notifications.RegisterHandlers()
	}
	if escalationEvery > 0 {
		if err := w.scheduler.Register(ctx, escalation, escalationEvery); err != nil {
			return err
		}
	}
	if rebalanceEvery > 0 {
		if err := w.scheduler.Register(ctx, rebalance, rebalanceEvery); err != nil {
			return err
		}
	}
	w.scheduler.Start()
	w.logger.Info("background worker started")
	return nil
}

// Stop halts the sweep schedule, waiting for in-flight cycles.
func (w *Worker) Stop() {
	w.scheduler.Stop()
	w.logger.Info("background worker stopped")
}

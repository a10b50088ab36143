package sweep

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweep is a periodic background job the scheduler drives.
type Sweep interface {
	Name() string
	Run(ctx context.Context) error
}

// Scheduler drives sweeps on fixed intervals using cron entries. Overlap
// protection lives in each sweep; the scheduler only fires them.
type Scheduler struct {
	cron    *cron.Cron
	logger  *zap.Logger
	entries map[string]cron.EntryID
}

// NewScheduler creates an empty scheduler.
func NewScheduler(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		logger:  logger,
		entries: make(map[string]cron.EntryID),
	}
}

// Register schedules a sweep every interval. Registering the same sweep name
// twice replaces the previous entry.
func (s *Scheduler) Register(ctx context.Context, sw Sweep, every time.Duration) error {
	if every <= 0 {
		return fmt.Errorf("sweep %s: interval must be positive", sw.Name())
	}
	if old, ok := s.entries[sw.Name()]; ok {
		s.cron.Remove(old)
	}
	id, err := s.cron.AddFunc(fmt.Sprintf("@every %s", every), func() {
		if err := sw.Run(ctx); err != nil {
			s.logger.Error("sweep cycle failed",
				zap.String("sweep", sw.Name()),
				zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule sweep %s: %w", sw.Name(), err)
	}
	s.entries[sw.Name()] = id
	s.logger.Info("sweep scheduled",
		zap.String("sweep", sw.Name()),
		zap.Duration("interval", every))
	return nil
}

// Start begins firing registered sweeps in the cron goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for in-flight cycles to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

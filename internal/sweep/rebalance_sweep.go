package sweep

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/observability"
	"github.com/spec-kit/sla-engine/internal/repository"
	"github.com/spec-kit/sla-engine/internal/service"
	apperrors "github.com/spec-kit/sla-engine/pkg/util"
)

// TicketAssigner is the slice of the assignment service the sweep needs.
type TicketAssigner interface {
	AutoAssign(ctx context.Context, ticketID, assignedBy string, kind service.AssignmentKind) (*domain.Assignment, error)
}

// RebalanceSweep picks up open tickets that lost their owner, typically after
// an assignment failed at creation time, and routes each one through the
// least-loaded selector. Oldest tickets are repaired first.
type RebalanceSweep struct {
	tickets     repository.TicketRepository
	assignments TicketAssigner
	logger      *zap.Logger

	mu sync.Mutex
}

// NewRebalanceSweep creates the sweep.
func NewRebalanceSweep(tickets repository.TicketRepository, assignments TicketAssigner, logger *zap.Logger) *RebalanceSweep {
	return &RebalanceSweep{
		tickets:     tickets,
		assignments: assignments,
		logger:      logger,
	}
}

// Name identifies the sweep in logs, metrics and the scheduler.
func (s *RebalanceSweep) Name() string { return "rebalance" }

// Run assigns every ownerless open ticket, oldest first. Assignment goes
// through the transactional assign path, so a ticket claimed by a concurrent
// manual assignment is detected and skipped rather than reassigned.
func (s *RebalanceSweep) Run(ctx context.Context) error {
	if !s.mu.TryLock() {
		observability.SweepSkips.WithLabelValues(s.Name()).Inc()
		s.logger.Warn("rebalance sweep still running; skipping cycle")
		return nil
	}
	defer s.mu.Unlock()

	start := time.Now()
	defer func() {
		observability.SweepDuration.WithLabelValues(s.Name()).Observe(time.Since(start).Seconds())
	}()

	tickets, err := s.tickets.ListUnassignedOpen(ctx)
	if err != nil {
		observability.SweepRuns.WithLabelValues(s.Name(), "error").Inc()
		return fmt.Errorf("list unassigned open tickets: %w", err)
	}

	assigned := 0
	for i := range tickets {
		ticket := &tickets[i]
		_, err := s.assignments.AutoAssign(ctx, ticket.ID, domain.EscalatedBySystem, service.AssignRebalance)
		if err == nil {
			assigned++
			continue
		}
		var domainErr *apperrors.DomainError
		if errors.As(err, &domainErr) {
			switch domainErr.Code {
			case "NO_AGENTS_AVAILABLE":
				// No agent will appear mid-cycle; the rest of the backlog
				// waits for the next run.
				s.logger.Warn("rebalance sweep: no assignable agents",
					zap.Int("remaining", len(tickets)-i))
				observability.SweepRuns.WithLabelValues(s.Name(), "ok").Inc()
				return nil
			case "CONFLICT":
				// Someone assigned it between the listing and the lock.
				continue
			}
		}
		observability.SweepTicketErrors.WithLabelValues(s.Name()).Inc()
		s.logger.Error("rebalance sweep: ticket failed",
			zap.String("ticket_id", ticket.ID),
			zap.Error(err))
	}

	observability.SweepRuns.WithLabelValues(s.Name(), "ok").Inc()
	s.logger.Info("rebalance sweep complete",
		zap.Int("candidates", len(tickets)),
		zap.Int("assigned", assigned),
		zap.Duration("took", time.Since(start)))
	return nil
}

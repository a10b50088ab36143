package sweep

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/events"
	"github.com/spec-kit/sla-engine/internal/observability"
	"github.com/spec-kit/sla-engine/internal/persistence"
	"github.com/spec-kit/sla-engine/internal/repository"
	"github.com/spec-kit/sla-engine/internal/service"
)

// EscalationSweep reconciles open tickets against wall-clock time: timers move
// through their state machine and a breached response deadline escalates the
// ticket exactly once. A cycle has no caller to report to; per-ticket failures
// are isolated, logged and retried on the next cycle.
type EscalationSweep struct {
	runTx       func(ctx context.Context, fn func(pgx.Tx) error) error
	tickets     repository.TicketRepository
	timers      repository.SLATimerRepository
	escalations repository.EscalationRepository
	agents      repository.AgentRepository
	sla         *service.SLAService
	notifier    service.Notifier
	logger      *zap.Logger

	warningWindow time.Duration
	concurrency   int
	now           func() time.Time

	// mu serializes cycles: a run that starts while the previous one is still
	// in flight is skipped, not queued.
	mu sync.Mutex
}

// EscalationSweepDependencies bundles collaborators.
type EscalationSweepDependencies struct {
	Pool           *pgxpool.Pool
	TicketRepo     repository.TicketRepository
	TimerRepo      repository.SLATimerRepository
	EscalationRepo repository.EscalationRepository
	AgentRepo      repository.AgentRepository
	SLA            *service.SLAService
	Notifier       service.Notifier
	Logger         *zap.Logger
	WarningWindow  time.Duration
	Concurrency    int
	Now            func() time.Time
}

// NewEscalationSweep creates the sweep.
func NewEscalationSweep(deps EscalationSweepDependencies) *EscalationSweep {
	window := deps.WarningWindow
	if window <= 0 {
		window = domain.DefaultWarningWindow
	}
	concurrency := deps.Concurrency
	if concurrency <= 0 {
		concurrency = 8
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	var runTx func(ctx context.Context, fn func(pgx.Tx) error) error
	if deps.Pool != nil {
		pool := deps.Pool
		runTx = func(ctx context.Context, fn func(pgx.Tx) error) error {
			return persistence.WithTx(ctx, pool, fn)
		}
	}
	return &EscalationSweep{
		runTx:         runTx,
		tickets:       deps.TicketRepo,
		timers:        deps.TimerRepo,
		escalations:   deps.EscalationRepo,
		agents:        deps.AgentRepo,
		sla:           deps.SLA,
		notifier:      deps.Notifier,
		logger:        deps.Logger,
		warningWindow: window,
		concurrency:   concurrency,
		now:           now,
	}
}

// Name identifies the sweep in logs, metrics and the scheduler.
func (s *EscalationSweep) Name() string { return "escalation" }

// Run executes one cycle over every open ticket.
func (s *EscalationSweep) Run(ctx context.Context) error {
	if !s.mu.TryLock() {
		observability.SweepSkips.WithLabelValues(s.Name()).Inc()
		s.logger.Warn("escalation sweep still running; skipping cycle")
		return nil
	}
	defer s.mu.Unlock()

	start := time.Now()
	defer func() {
		observability.SweepDuration.WithLabelValues(s.Name()).Observe(time.Since(start).Seconds())
	}()

	tickets, err := s.tickets.ListOpen(ctx)
	if err != nil {
		observability.SweepRuns.WithLabelValues(s.Name(), "error").Inc()
		return fmt.Errorf("list open tickets: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range tickets {
		ticket := tickets[i]
		g.Go(func() error {
			if err := s.processTicket(gctx, &ticket); err != nil {
				observability.SweepTicketErrors.WithLabelValues(s.Name()).Inc()
				s.logger.Error("escalation sweep: ticket failed",
					zap.String("ticket_id", ticket.ID),
					zap.Error(err))
			}
			// Per-ticket failures never abort the cycle.
			return nil
		})
	}
	_ = g.Wait()

	observability.SweepRuns.WithLabelValues(s.Name(), "ok").Inc()
	s.logger.Info("escalation sweep complete",
		zap.Int("tickets", len(tickets)),
		zap.Duration("took", time.Since(start)))
	return nil
}

func (s *EscalationSweep) processTicket(ctx context.Context, ticket *domain.Ticket) error {
	now := s.now()
	timers, err := s.timers.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return fmt.Errorf("list timers: %w", err)
	}
	if len(timers) == 0 {
		// A ticket without timers means its creation was interrupted; rebuild
		// them from the resolved configuration so the next checks hold.
		cfg, err := s.sla.Resolve(ctx, ticket.ProductID, ticket.ModuleID, ticket.IssueType)
		if err != nil {
			return fmt.Errorf("resolve config: %w", err)
		}
		timers, err = s.sla.StartTimers(ctx, ticket, cfg)
		if err != nil {
			return fmt.Errorf("rebuild timers: %w", err)
		}
	}

	// Only the response timer's deadline drives ticket-level escalation;
	// resolution and escalation timers are tracked but do not retrigger it.
	var response *domain.SLATimer
	for i := range timers {
		if timers[i].Type == domain.TimerTypeResponse {
			response = &timers[i]
			break
		}
	}
	if response != nil && s.shouldEscalate(ticket, response, now) {
		if err := s.escalate(ctx, ticket, response, now); err != nil {
			return fmt.Errorf("escalate: %w", err)
		}
	}

	// Timer states are updated independently of the escalation decision.
	for i := range timers {
		timer := &timers[i]
		next := timer.EvaluateAt(now, s.warningWindow)
		if next == timer.Status {
			continue
		}
		if err := s.timers.UpdateStatus(ctx, timer.ID, next); err != nil {
			return fmt.Errorf("update timer %s: %w", timer.ID, err)
		}
		observability.TimerTransitions.WithLabelValues(string(timer.Type), string(next)).Inc()
		if next == domain.TimerStatusBreached && s.notifier != nil {
			s.notifier.NotifyTimerBreached(ctx, ticket.ID, events.TimerBreachedPayload{
				TimerID:   timer.ID,
				TimerType: timer.Type,
				Deadline:  timer.Deadline,
			})
		}
	}
	return nil
}

func (s *EscalationSweep) shouldEscalate(ticket *domain.Ticket, response *domain.SLATimer, now time.Time) bool {
	if ticket.Status == domain.TicketStatusEscalated {
		return false
	}
	// A paused or completed response timer holds no live deadline.
	if response.Status == domain.TimerStatusPaused || response.Status == domain.TimerStatusCompleted {
		return false
	}
	return now.After(response.Deadline)
}

// escalate promotes the ticket and writes the audit row in one transaction.
// The row lock plus the in-transaction status re-check is the exactly-once
// guard: a ticket already ESCALATED is left alone until a human action returns
// it to a non-escalated status.
func (s *EscalationSweep) escalate(ctx context.Context, ticket *domain.Ticket, response *domain.SLATimer, now time.Time) error {
	target, err := s.agents.FindEscalationTarget(ctx)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	toLevel := domain.EscalationLevelManager
	if target != nil && target.Role == domain.AgentRoleCEO {
		toLevel = domain.EscalationLevelCEO
	}

	overdue := now.Sub(response.Deadline).Round(time.Minute)
	escalation := &domain.Escalation{
		TicketID:    ticket.ID,
		TimerID:     response.ID,
		FromLevel:   domain.EscalationLevelAgent,
		ToLevel:     toLevel,
		Reason:      fmt.Sprintf("response deadline exceeded by %s", overdue),
		EscalatedBy: domain.EscalatedBySystem,
		EscalatedAt: now,
	}

	if s.runTx == nil {
		return errors.New("escalation sweep has no transaction runner")
	}
	err = s.runTx(ctx, func(tx pgx.Tx) error {
		current, err := s.tickets.LockForUpdate(ctx, tx, ticket.ID)
		if err != nil {
			return err
		}
		if current.Status == domain.TicketStatusEscalated || !current.IsOpen() {
			return errAlreadyEscalated
		}
		if err := s.tickets.UpdateStatusTx(ctx, tx, ticket.ID, domain.TicketStatusEscalated, nil); err != nil {
			return err
		}
		return s.escalations.CreateTx(ctx, tx, escalation)
	})
	if err != nil {
		if errors.Is(err, errAlreadyEscalated) {
			return nil
		}
		return err
	}

	observability.Escalations.WithLabelValues(string(toLevel)).Inc()
	s.logger.Warn("ticket escalated",
		zap.String("ticket_id", ticket.ID),
		zap.String("timer_id", response.ID),
		zap.String("to_level", string(toLevel)))

	if s.notifier != nil {
		payload := events.TicketEscalatedPayload{
			TimerID:   response.ID,
			FromLevel: escalation.FromLevel,
			ToLevel:   escalation.ToLevel,
			Reason:    escalation.Reason,
		}
		if target != nil {
			payload.TargetID = target.ID
			payload.TargetEmail = target.Email
		}
		// Best-effort; delivery failures never stall the sweep.
		s.notifier.NotifyEscalation(ctx, ticket.ID, target, payload)
	}
	return nil
}

var errAlreadyEscalated = errors.New("ticket already escalated")

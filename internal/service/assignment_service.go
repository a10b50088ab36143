package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/events"
	"github.com/spec-kit/sla-engine/internal/observability"
	"github.com/spec-kit/sla-engine/internal/persistence"
	"github.com/spec-kit/sla-engine/internal/repository"
	apperrors "github.com/spec-kit/sla-engine/pkg/util"
)

// AssignmentKind labels how an ownership change came about.
type AssignmentKind string

const (
	AssignAuto      AssignmentKind = "auto"
	AssignManual    AssignmentKind = "manual"
	AssignTransfer  AssignmentKind = "transfer"
	AssignRebalance AssignmentKind = "rebalance"
)

// AssignmentService selects owners for tickets and records ownership changes
// atomically: deactivate the old row, insert the new one and update the
// ticket's denormalized owner pointer in a single transaction.
type AssignmentService struct {
	pool        *pgxpool.Pool
	tickets     repository.TicketRepository
	agents      repository.AgentRepository
	assignments repository.AssignmentRepository
	notifier    Notifier
	logger      *zap.Logger
	now         func() time.Time
}

// AssignmentDependencies bundles collaborators.
type AssignmentDependencies struct {
	Pool           *pgxpool.Pool
	TicketRepo     repository.TicketRepository
	AgentRepo      repository.AgentRepository
	AssignmentRepo repository.AssignmentRepository
	Notifier       Notifier
	Logger         *zap.Logger
	Now            func() time.Time
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &AssignmentService{
		pool:        deps.Pool,
		tickets:     deps.TicketRepo,
		agents:      deps.AgentRepo,
		assignments: deps.AssignmentRepo,
		notifier:    deps.Notifier,
		logger:      deps.Logger,
		now:         now,
	}
}

// SelectLeastLoaded picks the agent with the fewest active-primary assignments,
// breaking ties by lowest agent id so selection is deterministic. Agents absent
// from counts carry zero load.
func SelectLeastLoaded(candidates []domain.Agent, counts map[string]int) (*domain.Agent, error) {
	var best *domain.Agent
	bestCount := 0
	for i := range candidates {
		agent := &candidates[i]
		count := counts[agent.ID]
		if best == nil || count < bestCount || (count == bestCount && agent.ID < best.ID) {
			best = agent
			bestCount = count
		}
	}
	if best == nil {
		return nil, apperrors.NewNoAgentsAvailable(nil)
	}
	return best, nil
}

// AutoAssign picks the least-loaded qualifying agent for the ticket and records
// the change. Returns NO_AGENTS_AVAILABLE when the pool is empty; the ticket
// stays unassigned until the rebalance sweep or a manual action succeeds.
func (s *AssignmentService) AutoAssign(ctx context.Context, ticketID, assignedBy string, kind AssignmentKind) (*domain.Assignment, error) {
	candidates, err := s.agents.ListAssignable(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if len(candidates) == 0 {
		return nil, apperrors.NewNoAgentsAvailable(map[string]any{"ticket_id": ticketID})
	}
	counts, err := s.assignments.WorkloadByAgent(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	agent, err := SelectLeastLoaded(candidates, counts)
	if err != nil {
		return nil, err
	}
	return s.assign(ctx, ticketID, agent, assignedBy, kind, kind == AssignRebalance)
}

// AssignToAgent hands the ticket to a chosen agent (manual action or transfer).
func (s *AssignmentService) AssignToAgent(ctx context.Context, ticketID, agentID, assignedBy string, kind AssignmentKind) (*domain.Assignment, error) {
	agent, err := s.agents.GetByID(ctx, agentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("agent", map[string]any{"agent_id": agentID})
		}
		return nil, apperrors.MapError(err)
	}
	if !agent.IsAssignable() {
		return nil, apperrors.NewConflict("agent not assignable", map[string]any{
			"agent_id": agentID,
			"role":     agent.Role,
			"active":   agent.Active,
		})
	}
	return s.assign(ctx, ticketID, agent, assignedBy, kind, false)
}

// Complete ends the ticket's active ownership without a replacement; used when
// a ticket closes.
func (s *AssignmentService) Complete(ctx context.Context, ticketID string) error {
	err := persistence.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := s.tickets.LockForUpdate(ctx, tx, ticketID); err != nil {
			return err
		}
		if _, err := s.assignments.DeactivateActiveTx(ctx, tx, ticketID, s.now()); err != nil {
			return err
		}
		return s.tickets.UpdateOwnerTx(ctx, tx, ticketID, nil)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return apperrors.MapError(err)
	}
	observability.Assignments.WithLabelValues("complete").Inc()
	return nil
}

// assign is the shared transactional primitive. The ticket row lock serializes
// concurrent attempts (manual vs rebalance sweep) on the same ticket; when
// onlyIfUnassigned is set the operation is a no-op if an owner appeared while
// waiting for the lock.
func (s *AssignmentService) assign(ctx context.Context, ticketID string, agent *domain.Agent, assignedBy string, kind AssignmentKind, onlyIfUnassigned bool) (*domain.Assignment, error) {
	now := s.now()
	assignment := &domain.Assignment{
		TicketID:   ticketID,
		AgentID:    agent.ID,
		AssignedBy: assignedBy,
		AssignedAt: now,
		IsActive:   true,
		IsPrimary:  true,
	}
	var previous *string

	err := persistence.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		ticket, err := s.tickets.LockForUpdate(ctx, tx, ticketID)
		if err != nil {
			return err
		}
		if onlyIfUnassigned && ticket.AssigneeID != nil {
			return errAlreadyAssigned
		}
		count, err := s.assignments.CountActivePrimaryTx(ctx, tx, ticketID)
		if err != nil {
			return err
		}
		if count > 1 {
			return apperrors.NewInvariantViolation("multiple active-primary assignments", map[string]any{
				"ticket_id": ticketID,
				"count":     count,
			})
		}
		previous = ticket.AssigneeID
		if _, err := s.assignments.DeactivateActiveTx(ctx, tx, ticketID, now); err != nil {
			return err
		}
		if err := s.assignments.CreateTx(ctx, tx, assignment); err != nil {
			return err
		}
		return s.tickets.UpdateOwnerTx(ctx, tx, ticketID, &agent.ID)
	})
	if err != nil {
		if errors.Is(err, errAlreadyAssigned) {
			return nil, apperrors.NewConflict("ticket already assigned", map[string]any{"ticket_id": ticketID})
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		var domainErr *apperrors.DomainError
		if errors.As(err, &domainErr) && domainErr.Code == "INVARIANT_VIOLATION" {
			s.logger.Error("assignment invariant violated",
				zap.String("ticket_id", ticketID),
				zap.Error(err))
			return nil, err
		}
		return nil, apperrors.MapError(err)
	}

	observability.Assignments.WithLabelValues(string(kind)).Inc()
	s.logger.Info("ticket assigned",
		zap.String("ticket_id", ticketID),
		zap.String("agent_id", agent.ID),
		zap.String("kind", string(kind)))

	if s.notifier != nil {
		s.notifier.NotifyAssignment(ctx, ticketID, agent, events.TicketAssignedPayload{
			AgentID:    agent.ID,
			AgentEmail: agent.Email,
			Previous:   previous,
			Kind:       string(kind),
		})
	}
	return assignment, nil
}

// Workloads returns the selector's view: every assignable agent with its
// active-primary count.
func (s *AssignmentService) Workloads(ctx context.Context) ([]domain.AgentWorkload, error) {
	candidates, err := s.agents.ListAssignable(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	counts, err := s.assignments.WorkloadByAgent(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	result := make([]domain.AgentWorkload, 0, len(candidates))
	for _, agent := range candidates {
		result = append(result, domain.AgentWorkload{Agent: agent, ActiveCount: counts[agent.ID]})
	}
	return result, nil
}

var errAlreadyAssigned = errors.New("ticket already assigned")

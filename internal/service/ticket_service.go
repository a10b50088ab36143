package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/events"
	"github.com/spec-kit/sla-engine/internal/repository"
	apperrors "github.com/spec-kit/sla-engine/pkg/util"
)

// TicketService coordinates the intake workflow: create the ticket, resolve its
// SLA, start timers and attempt the initial assignment, all within the request.
type TicketService struct {
	tickets     repository.TicketRepository
	escalations repository.EscalationRepository
	ownerships  repository.AssignmentRepository
	sla         *SLAService
	assignments *AssignmentService
	dispatcher  events.Dispatcher
	notifier    Notifier
	logger      *zap.Logger
	now         func() time.Time
}

// TicketDependencies bundles collaborators.
type TicketDependencies struct {
	TicketRepo     repository.TicketRepository
	EscalationRepo repository.EscalationRepository
	AssignmentRepo repository.AssignmentRepository
	SLA            *SLAService
	Assignments    *AssignmentService
	Dispatcher     events.Dispatcher
	Notifier       Notifier
	Logger         *zap.Logger
	Now            func() time.Time
}

// TicketCreateInput describes ticket creation payload from the intake
// collaborator.
type TicketCreateInput struct {
	ProductID string
	ModuleID  string
	IssueType string
	Subject   string
}

// TicketDetail aggregates everything the engine knows about one ticket.
type TicketDetail struct {
	Ticket      domain.Ticket
	Config      *domain.SLAConfiguration
	Timers      []domain.SLATimer
	Assignment  *domain.Assignment
	Escalations []domain.Escalation
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &TicketService{
		tickets:     deps.TicketRepo,
		escalations: deps.EscalationRepo,
		ownerships:  deps.AssignmentRepo,
		sla:         deps.SLA,
		assignments: deps.Assignments,
		dispatcher:  deps.Dispatcher,
		notifier:    deps.Notifier,
		logger:      deps.Logger,
		now:         now,
	}
}

// CreateTicket registers a ticket, snapshots its SLA into timers and attempts
// the initial assignment. A failed assignment (including NO_AGENTS_AVAILABLE)
// does not fail creation: the ticket stays unassigned and visible until the
// rebalance sweep or a manual action succeeds.
func (s *TicketService) CreateTicket(ctx context.Context, input TicketCreateInput) (*TicketDetail, error) {
	subject := strings.TrimSpace(input.Subject)
	if subject == "" {
		return nil, apperrors.NewValidationError("subject required", nil)
	}

	ticket := &domain.Ticket{
		ExternalKey: generateTicketKey(),
		ProductID:   input.ProductID,
		ModuleID:    input.ModuleID,
		IssueType:   strings.TrimSpace(input.IssueType),
		Subject:     subject,
		Status:      domain.TicketStatusNew,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	cfg, err := s.sla.Resolve(ctx, ticket.ProductID, ticket.ModuleID, ticket.IssueType)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	timers, err := s.sla.StartTimers(ctx, ticket, cfg)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Payload: events.TicketCreatedPayload{
			ProductID:       ticket.ProductID,
			ModuleID:        ticket.ModuleID,
			IssueType:       ticket.IssueType,
			Priority:        cfg.Priority,
			ResponseMinutes: cfg.ResponseMinutes,
		},
	})

	detail := &TicketDetail{Ticket: *ticket, Config: cfg, Timers: timers}
	assignment, err := s.assignments.AutoAssign(ctx, ticket.ID, domain.EscalatedBySystem, AssignAuto)
	if err != nil {
		s.logger.Warn("initial assignment failed; ticket left unassigned",
			zap.String("ticket_id", ticket.ID),
			zap.Error(err))
		return detail, nil
	}
	detail.Assignment = assignment
	detail.Ticket.AssigneeID = &assignment.AgentID
	return detail, nil
}

// GetTicket returns the ticket with its timers, current assignment and
// escalation history.
func (s *TicketService) GetTicket(ctx context.Context, ticketID string) (*TicketDetail, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	timers, err := s.sla.TimersForTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	escalations, err := s.escalations.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	detail := &TicketDetail{Ticket: *ticket, Timers: timers, Escalations: escalations}
	assignment, err := s.ownerships.GetActivePrimary(ctx, ticketID)
	if err == nil {
		detail.Assignment = assignment
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}
	return detail, nil
}

// ListTickets returns tickets matching the filter.
func (s *TicketService) ListTickets(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	tickets, err := s.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// UpdateStatus applies a staff-driven status transition. Closing the ticket
// completes its pending timers and ends the active assignment.
func (s *TicketService) UpdateStatus(ctx context.Context, ticketID string, newStatus domain.TicketStatus, actor string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	if !domain.IsValidTransition(ticket.Status, newStatus) {
		return nil, apperrors.NewConflict("invalid status transition", map[string]any{
			"from": ticket.Status,
			"to":   newStatus,
		})
	}

	oldStatus := ticket.Status
	ticket.Status = newStatus
	if newStatus == domain.TicketStatusClosed {
		now := s.now()
		ticket.ClosedAt = &now
	} else {
		ticket.ClosedAt = nil
	}
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	if newStatus == domain.TicketStatusClosed {
		if err := s.sla.CompleteTimers(ctx, ticketID); err != nil {
			return nil, apperrors.MapError(err)
		}
		if err := s.assignments.Complete(ctx, ticketID); err != nil {
			s.logger.Warn("failed to end assignment on close",
				zap.String("ticket_id", ticketID),
				zap.Error(err))
		}
		ticket.AssigneeID = nil
	}

	if s.notifier != nil {
		s.notifier.NotifyStatusChange(ctx, ticketID, events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: newStatus,
		})
	}
	s.logger.Info("ticket status changed",
		zap.String("ticket_id", ticketID),
		zap.String("old", string(oldStatus)),
		zap.String("new", string(newStatus)),
		zap.String("actor", actor))
	return ticket, nil
}

// ResolveEscalation marks an escalation record handled.
func (s *TicketService) ResolveEscalation(ctx context.Context, escalationID string) error {
	if err := s.escalations.Resolve(ctx, escalationID, s.now()); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("escalation", map[string]any{"escalation_id": escalationID})
		}
		return apperrors.MapError(err)
	}
	return nil
}

// EscalationsForTicket lists the ticket's escalation audit trail.
func (s *TicketService) EscalationsForTicket(ctx context.Context, ticketID string) ([]domain.Escalation, error) {
	if _, err := s.tickets.GetByID(ctx, ticketID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return s.escalations.ListByTicket(ctx, ticketID)
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	s.dispatcher.PublishAsync(ctx, event)
}

func generateTicketKey() string {
	return "TCK-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

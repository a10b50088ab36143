package dto

import (
	"time"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	ProductID string `json:"product_id"`
	ModuleID  string `json:"module_id"`
	IssueType string `json:"issue_type"`
	Subject   string `json:"subject"`
}

// UpdateTicketStatusRequest payload.
type UpdateTicketStatusRequest struct {
	Status domain.TicketStatus `json:"status"`
}

// TicketSummary response.
type TicketSummary struct {
	ID          string              `json:"id"`
	ExternalKey string              `json:"external_key"`
	ProductID   string              `json:"product_id"`
	ModuleID    string              `json:"module_id"`
	IssueType   string              `json:"issue_type"`
	Subject     string              `json:"subject"`
	Status      domain.TicketStatus `json:"status"`
	AssigneeID  *string             `json:"assignee_id"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	ClosedAt    *time.Time          `json:"closed_at,omitempty"`
}

// TicketDetailResponse aggregates the ticket with its SLA state.
type TicketDetailResponse struct {
	TicketSummary
	Config      *SLAConfigResponse   `json:"sla_config,omitempty"`
	Timers      []TimerResponse      `json:"timers"`
	Assignment  *AssignmentResponse  `json:"assignment,omitempty"`
	Escalations []EscalationResponse `json:"escalations"`
}

// TimerResponse response.
type TimerResponse struct {
	ID             string             `json:"id"`
	Type           domain.TimerType   `json:"type"`
	Status         domain.TimerStatus `json:"status"`
	StartTime      time.Time          `json:"start_time"`
	Deadline       time.Time          `json:"deadline"`
	PauseTime      *time.Time         `json:"pause_time,omitempty"`
	ResumeTime     *time.Time         `json:"resume_time,omitempty"`
	ElapsedMinutes int                `json:"elapsed_minutes"`
}

// EscalationResponse response.
type EscalationResponse struct {
	ID          string                 `json:"id"`
	TimerID     string                 `json:"timer_id"`
	FromLevel   domain.EscalationLevel `json:"from_level"`
	ToLevel     domain.EscalationLevel `json:"to_level"`
	Reason      string                 `json:"reason"`
	EscalatedBy string                 `json:"escalated_by"`
	EscalatedAt time.Time              `json:"escalated_at"`
	Resolved    bool                   `json:"resolved"`
	ResolvedAt  *time.Time             `json:"resolved_at,omitempty"`
}

// NewTicketSummary maps a domain ticket.
func NewTicketSummary(t *domain.Ticket) TicketSummary {
	return TicketSummary{
		ID:          t.ID,
		ExternalKey: t.ExternalKey,
		ProductID:   t.ProductID,
		ModuleID:    t.ModuleID,
		IssueType:   t.IssueType,
		Subject:     t.Subject,
		Status:      t.Status,
		AssigneeID:  t.AssigneeID,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		ClosedAt:    t.ClosedAt,
	}
}

// NewTimerResponse maps a domain timer.
func NewTimerResponse(t *domain.SLATimer) TimerResponse {
	return TimerResponse{
		ID:             t.ID,
		Type:           t.Type,
		Status:         t.Status,
		StartTime:      t.StartTime,
		Deadline:       t.Deadline,
		PauseTime:      t.PauseTime,
		ResumeTime:     t.ResumeTime,
		ElapsedMinutes: t.ElapsedMinutes,
	}
}

// NewEscalationResponse maps a domain escalation.
func NewEscalationResponse(e *domain.Escalation) EscalationResponse {
	return EscalationResponse{
		ID:          e.ID,
		TimerID:     e.TimerID,
		FromLevel:   e.FromLevel,
		ToLevel:     e.ToLevel,
		Reason:      e.Reason,
		EscalatedBy: e.EscalatedBy,
		EscalatedAt: e.EscalatedAt,
		Resolved:    e.Resolved,
		ResolvedAt:  e.ResolvedAt,
	}
}

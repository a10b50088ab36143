package dto

import (
	"time"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// AssignTicketRequest payload for manual assignment.
type AssignTicketRequest struct {
	AgentID string `json:"agent_id"`
}

// AssignmentResponse response.
type AssignmentResponse struct {
	ID           string     `json:"id"`
	TicketID     string     `json:"ticket_id"`
	AgentID      string     `json:"agent_id"`
	AssignedBy   string     `json:"assigned_by"`
	AssignedAt   time.Time  `json:"assigned_at"`
	UnassignedAt *time.Time `json:"unassigned_at,omitempty"`
	IsActive     bool       `json:"is_active"`
	IsPrimary    bool       `json:"is_primary"`
}

// AgentWorkloadResponse is one row of the selector's view.
type AgentWorkloadResponse struct {
	AgentID     string           `json:"agent_id"`
	Name        string           `json:"name"`
	Email       string           `json:"email"`
	Role        domain.AgentRole `json:"role"`
	ActiveCount int              `json:"active_count"`
}

// NewAssignmentResponse maps a domain assignment.
func NewAssignmentResponse(a *domain.Assignment) AssignmentResponse {
	return AssignmentResponse{
		ID:           a.ID,
		TicketID:     a.TicketID,
		AgentID:      a.AgentID,
		AssignedBy:   a.AssignedBy,
		AssignedAt:   a.AssignedAt,
		UnassignedAt: a.UnassignedAt,
		IsActive:     a.IsActive,
		IsPrimary:    a.IsPrimary,
	}
}

// NewAgentWorkloadResponse maps a workload row.
func NewAgentWorkloadResponse(w *domain.AgentWorkload) AgentWorkloadResponse {
	return AgentWorkloadResponse{
		AgentID:     w.Agent.ID,
		Name:        w.Agent.Name,
		Email:       w.Agent.Email,
		Role:        w.Agent.Role,
		ActiveCount: w.ActiveCount,
	}
}

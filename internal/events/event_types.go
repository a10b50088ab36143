package events

import (
	"time"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketEscalated     EventType = "ticket_escalated"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTimerBreached       EventType = "timer_breached"
)

// Event represents a domain event emitted by services and sweeps.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     string      `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	ProductID       string             `json:"product_id"`
	ModuleID        string             `json:"module_id"`
	IssueType       string             `json:"issue_type"`
	Priority        domain.SLAPriority `json:"priority"`
	ResponseMinutes int                `json:"response_minutes"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AgentID    string  `json:"agent_id"`
	AgentEmail string  `json:"agent_email,omitempty"`
	Previous   *string `json:"previous_agent_id,omitempty"`
	Kind       string  `json:"kind"`
}

// TicketEscalatedPayload payload.
type TicketEscalatedPayload struct {
	TimerID     string                 `json:"timer_id"`
	FromLevel   domain.EscalationLevel `json:"from_level"`
	ToLevel     domain.EscalationLevel `json:"to_level"`
	TargetID    string                 `json:"target_agent_id,omitempty"`
	TargetEmail string                 `json:"target_email,omitempty"`
	Reason      string                 `json:"reason"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TimerBreachedPayload payload.
type TimerBreachedPayload struct {
	TimerID   string           `json:"timer_id"`
	TimerType domain.TimerType `json:"timer_type"`
	Deadline  time.Time        `json:"deadline"`
}

package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusNew        TicketStatus = "NEW"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusEscalated  TicketStatus = "ESCALATED"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

// OpenStatuses are the states the sweeps reconcile; terminal tickets are skipped.
var OpenStatuses = []TicketStatus{TicketStatusNew, TicketStatusInProgress}

// Ticket is the engine's view of a support request: identity, classification and
// ownership. Field validation belongs to the external intake collaborator.
type Ticket struct {
	ID          string
	ExternalKey string
	ProductID   string
	ModuleID    string
	IssueType   string
	Subject     string
	Status      TicketStatus
	// AssigneeID is a denormalized pointer; the authoritative ownership record is
	// the active-primary Assignment row. Both are written in the same transaction.
	AssigneeID *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	ClosedAt   *time.Time
}

// IsOpen reports whether the ticket still participates in SLA reconciliation.
func (t *Ticket) IsOpen() bool {
	return t.Status == TicketStatusNew || t.Status == TicketStatusInProgress
}

var allowedTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusNew:        {TicketStatusInProgress, TicketStatusClosed},
	TicketStatusInProgress: {TicketStatusClosed},
	TicketStatusEscalated:  {TicketStatusInProgress, TicketStatusClosed},
	TicketStatusClosed:     {},
}

// IsValidTransition reports whether staff may move a ticket from current to next.
// ESCALATED is only entered by the escalation sweep; returning an escalated ticket
// to IN_PROGRESS re-arms the exactly-once escalation guard.
func IsValidTransition(current, next TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

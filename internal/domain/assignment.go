package domain

import "time"

// Assignment is one ownership record for a ticket. Rows are deactivated, never
// deleted, so the full ownership history is preserved.
//
// Invariant: at most one row per ticket has IsActive && IsPrimary at any time.
type Assignment struct {
	ID           string
	TicketID     string
	AgentID      string
	AssignedBy   string
	AssignedAt   time.Time
	UnassignedAt *time.Time
	IsActive     bool
	IsPrimary    bool
}

// AgentWorkload pairs an agent with its active-primary assignment count; the
// selector's input.
type AgentWorkload struct {
	Agent       Agent
	ActiveCount int
}

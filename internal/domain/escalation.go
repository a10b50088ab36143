package domain

import "time"

// EscalationLevel is the authority ladder a breach climbs.
type EscalationLevel string

const (
	EscalationLevelAgent   EscalationLevel = "AGENT"
	EscalationLevelManager EscalationLevel = "MANAGER"
	EscalationLevelCEO     EscalationLevel = "CEO"
)

// EscalatedBySystem marks escalations produced by the sweep rather than a human.
const EscalatedBySystem = "system"

// Escalation is the append-only audit record written exactly once per breach
// event, linking the ticket to the timer that triggered it.
type Escalation struct {
	ID          string
	TicketID    string
	TimerID     string
	FromLevel   EscalationLevel
	ToLevel     EscalationLevel
	Reason      string
	EscalatedBy string
	EscalatedAt time.Time
	Resolved    bool
	ResolvedAt  *time.Time
}

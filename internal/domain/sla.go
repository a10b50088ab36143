package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// SLAPriority is the urgency ordinal: P0 is the most urgent, P3 the least.
type SLAPriority int

const (
	PriorityP0 SLAPriority = iota
	PriorityP1
	PriorityP2
	PriorityP3
)

// String renders the wire form, e.g. "P2".
func (p SLAPriority) String() string {
	return fmt.Sprintf("P%d", int(p))
}

// MarshalJSON encodes the priority as its wire form.
func (p SLAPriority) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON accepts either "P2" or the bare ordinal 2.
func (p *SLAPriority) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if len(s) == 2 && s[0] == 'P' && s[1] >= '0' && s[1] <= '3' {
			*p = SLAPriority(s[1] - '0')
			return nil
		}
		return fmt.Errorf("invalid priority %q", s)
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil || n < 0 || n > 3 {
		return fmt.Errorf("invalid priority %s", data)
	}
	*p = SLAPriority(n)
	return nil
}

// Default policy applied when no configuration matches a ticket's classification.
const (
	DefaultResponseMinutes   = 480
	DefaultResolutionMinutes = 1440
	DefaultPriority          = PriorityP2
)

// SLAConfiguration maps a (product, module, issue name) classification to time
// budgets. Timers snapshot its values at ticket creation; editing a configuration
// never changes deadlines retroactively.
type SLAConfiguration struct {
	ID                string
	ProductID         string
	ModuleID          string
	IssueName         string
	Priority          SLAPriority
	ResponseMinutes   int
	ResolutionMinutes int
	// EscalationMinutes is optional; when nil no escalation timer is created.
	EscalationMinutes *int
	Active            bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ResponseDeadline returns the absolute response deadline for a ticket created at
// the given instant.
func (c *SLAConfiguration) ResponseDeadline(createdAt time.Time) time.Time {
	return createdAt.Add(time.Duration(c.ResponseMinutes) * time.Minute)
}

// ResolutionDeadline returns the absolute resolution deadline.
func (c *SLAConfiguration) ResolutionDeadline(createdAt time.Time) time.Time {
	return createdAt.Add(time.Duration(c.ResolutionMinutes) * time.Minute)
}

// DefaultConfiguration synthesizes the fallback policy for a classification that
// matched nothing. Callers persist it so later lookups resolve consistently.
func DefaultConfiguration(productID, moduleID, issueName string) *SLAConfiguration {
	return &SLAConfiguration{
		ProductID:         productID,
		ModuleID:          moduleID,
		IssueName:         issueName,
		Priority:          DefaultPriority,
		ResponseMinutes:   DefaultResponseMinutes,
		ResolutionMinutes: DefaultResolutionMinutes,
		Active:            true,
	}
}

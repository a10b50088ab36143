package domain

import (
	"errors"
	"time"
)

// TimerType enumerates the deadlines tracked per ticket.
type TimerType string

const (
	TimerTypeResponse   TimerType = "RESPONSE"
	TimerTypeResolution TimerType = "RESOLUTION"
	TimerTypeEscalation TimerType = "ESCALATION"
)

// TimerStatus enumerates timer states.
type TimerStatus string

const (
	TimerStatusActive    TimerStatus = "ACTIVE"
	TimerStatusWarning   TimerStatus = "WARNING"
	TimerStatusBreached  TimerStatus = "BREACHED"
	TimerStatusCompleted TimerStatus = "COMPLETED"
	TimerStatusPaused    TimerStatus = "PAUSED"
)

// DefaultWarningWindow is how far ahead of the deadline a timer turns WARNING.
const DefaultWarningWindow = 30 * time.Minute

var (
	ErrTimerNotPausable    = errors.New("timer cannot be paused in its current state")
	ErrTimerNotPaused      = errors.New("timer is not paused")
	ErrTimerNotCompletable = errors.New("timer cannot be completed in its current state")
)

// SLATimer tracks one deadline for one ticket. Timers are created exactly once at
// ticket creation and snapshot the configuration's minute values via Deadline.
type SLATimer struct {
	ID             string
	TicketID       string
	ConfigID       string
	Type           TimerType
	Status         TimerStatus
	StartTime      time.Time
	PauseTime      *time.Time
	ResumeTime     *time.Time
	ElapsedMinutes int
	Deadline       time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewTimer builds a timer whose deadline is start + the configured budget.
func NewTimer(ticketID string, cfg *SLAConfiguration, timerType TimerType, start time.Time, minutes int) *SLATimer {
	return &SLATimer{
		TicketID:  ticketID,
		ConfigID:  cfg.ID,
		Type:      timerType,
		Status:    TimerStatusActive,
		StartTime: start,
		Deadline:  start.Add(time.Duration(minutes) * time.Minute),
	}
}

// IsAbsorbing reports whether the sweep must leave the timer untouched.
// BREACHED and COMPLETED never transition again; PAUSED is frozen until resumed.
func (t *SLATimer) IsAbsorbing() bool {
	return t.Status == TimerStatusBreached || t.Status == TimerStatusCompleted
}

// EvaluateAt returns the time-driven status at the given instant. Absorbing and
// paused timers keep their current status; otherwise the transition is monotonic:
// ACTIVE → WARNING inside the warning window, → BREACHED at or past the deadline.
func (t *SLATimer) EvaluateAt(now time.Time, warningWindow time.Duration) TimerStatus {
	if t.IsAbsorbing() || t.Status == TimerStatusPaused {
		return t.Status
	}
	if !now.Before(t.Deadline) {
		return TimerStatusBreached
	}
	if t.Deadline.Sub(now) <= warningWindow {
		return TimerStatusWarning
	}
	return TimerStatusActive
}

// Pause freezes the timer, accumulating the minutes elapsed since it last ran.
func (t *SLATimer) Pause(now time.Time) error {
	switch t.Status {
	case TimerStatusActive, TimerStatusWarning, TimerStatusBreached:
	default:
		return ErrTimerNotPausable
	}
	since := t.StartTime
	if t.ResumeTime != nil {
		since = *t.ResumeTime
	}
	t.ElapsedMinutes += int(now.Sub(since) / time.Minute)
	t.Status = TimerStatusPaused
	t.PauseTime = &now
	return nil
}

// Resume reactivates a paused timer, shifting the deadline by the paused
// duration so no budget is consumed while frozen.
func (t *SLATimer) Resume(now time.Time) error {
	if t.Status != TimerStatusPaused || t.PauseTime == nil {
		return ErrTimerNotPaused
	}
	t.Deadline = t.Deadline.Add(now.Sub(*t.PauseTime))
	t.Status = TimerStatusActive
	t.ResumeTime = &now
	t.PauseTime = nil
	return nil
}

// Complete marks the timer satisfied before its deadline. Only pending timers
// complete; a breached timer stays breached for the audit trail.
func (t *SLATimer) Complete() error {
	if t.Status != TimerStatusActive && t.Status != TimerStatusWarning {
		return ErrTimerNotCompletable
	}
	t.Status = TimerStatusCompleted
	return nil
}

package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var timerStart = time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)

func newResponseTimer(t *testing.T, minutes int) *SLATimer {
	t.Helper()
	cfg := &SLAConfiguration{ID: "cfg-1", ResponseMinutes: minutes}
	return NewTimer("ticket-1", cfg, TimerTypeResponse, timerStart, minutes)
}

func TestEvaluateAtTransitions(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want TimerStatus
	}{
		{"well before deadline", timerStart.Add(30 * time.Minute), TimerStatusActive},
		{"just outside warning window", timerStart.Add(89 * time.Minute), TimerStatusActive},
		{"inside warning window", timerStart.Add(95 * time.Minute), TimerStatusWarning},
		{"window boundary", timerStart.Add(90 * time.Minute), TimerStatusWarning},
		{"exactly at deadline", timerStart.Add(120 * time.Minute), TimerStatusBreached},
		{"past deadline", timerStart.Add(121 * time.Minute), TimerStatusBreached},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			timer := newResponseTimer(t, 120)
			assert.Equal(t, tt.want, timer.EvaluateAt(tt.at, DefaultWarningWindow))
		})
	}
}

func TestEvaluateAtAbsorbingStates(t *testing.T) {
	longAfter := timerStart.Add(48 * time.Hour)

	breached := newResponseTimer(t, 120)
	breached.Status = TimerStatusBreached
	assert.Equal(t, TimerStatusBreached, breached.EvaluateAt(timerStart, DefaultWarningWindow),
		"breached must not regress even when evaluated before the deadline")

	completed := newResponseTimer(t, 120)
	completed.Status = TimerStatusCompleted
	assert.Equal(t, TimerStatusCompleted, completed.EvaluateAt(longAfter, DefaultWarningWindow))

	paused := newResponseTimer(t, 120)
	require.NoError(t, paused.Pause(timerStart.Add(10*time.Minute)))
	assert.Equal(t, TimerStatusPaused, paused.EvaluateAt(longAfter, DefaultWarningWindow),
		"paused timers are frozen until resumed")
}

func TestPauseAccumulatesElapsed(t *testing.T) {
	timer := newResponseTimer(t, 120)
	require.NoError(t, timer.Pause(timerStart.Add(45*time.Minute)))

	assert.Equal(t, TimerStatusPaused, timer.Status)
	assert.Equal(t, 45, timer.ElapsedMinutes)
	require.NotNil(t, timer.PauseTime)
}

func TestPauseRejectsTerminalStates(t *testing.T) {
	timer := newResponseTimer(t, 120)
	require.NoError(t, timer.Complete())
	assert.ErrorIs(t, timer.Pause(timerStart.Add(time.Minute)), ErrTimerNotPausable)

	paused := newResponseTimer(t, 120)
	require.NoError(t, paused.Pause(timerStart.Add(time.Minute)))
	assert.ErrorIs(t, paused.Pause(timerStart.Add(2*time.Minute)), ErrTimerNotPausable)
}

func TestResumeShiftsDeadline(t *testing.T) {
	timer := newResponseTimer(t, 120)
	originalDeadline := timer.Deadline

	require.NoError(t, timer.Pause(timerStart.Add(30*time.Minute)))
	require.NoError(t, timer.Resume(timerStart.Add(90*time.Minute)))

	assert.Equal(t, TimerStatusActive, timer.Status)
	assert.Equal(t, originalDeadline.Add(60*time.Minute), timer.Deadline,
		"the paused hour must not consume budget")
	assert.Nil(t, timer.PauseTime)
	require.NotNil(t, timer.ResumeTime)
}

func TestResumeRequiresPaused(t *testing.T) {
	timer := newResponseTimer(t, 120)
	assert.ErrorIs(t, timer.Resume(timerStart.Add(time.Minute)), ErrTimerNotPaused)
}

func TestPauseResumePauseAccumulates(t *testing.T) {
	timer := newResponseTimer(t, 120)

	require.NoError(t, timer.Pause(timerStart.Add(20*time.Minute)))
	require.NoError(t, timer.Resume(timerStart.Add(60*time.Minute)))
	require.NoError(t, timer.Pause(timerStart.Add(90*time.Minute)))

	// 20 minutes before the first pause, 30 between resume and second pause.
	assert.Equal(t, 50, timer.ElapsedMinutes)
}

func TestCompleteOnlyFromPendingStates(t *testing.T) {
	active := newResponseTimer(t, 120)
	require.NoError(t, active.Complete())
	assert.Equal(t, TimerStatusCompleted, active.Status)

	warning := newResponseTimer(t, 120)
	warning.Status = TimerStatusWarning
	require.NoError(t, warning.Complete())

	breached := newResponseTimer(t, 120)
	breached.Status = TimerStatusBreached
	assert.ErrorIs(t, breached.Complete(), ErrTimerNotCompletable,
		"a breached timer stays breached for the audit trail")

	paused := newResponseTimer(t, 120)
	require.NoError(t, paused.Pause(timerStart))
	assert.ErrorIs(t, paused.Complete(), ErrTimerNotCompletable)
}

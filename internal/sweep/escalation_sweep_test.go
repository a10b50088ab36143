package sweep

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/repository"
	"github.com/spec-kit/sla-engine/internal/service"
)

var sweepNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

type fakeTicketRepo struct {
	mu         sync.Mutex
	open       []domain.Ticket
	unassigned []domain.Ticket
	listCalls  int
}

func (f *fakeTicketRepo) Create(context.Context, *domain.Ticket) error { return nil }
func (f *fakeTicketRepo) GetByID(context.Context, string) (*domain.Ticket, error) {
	return nil, pgx.ErrNoRows
}
func (f *fakeTicketRepo) Update(context.Context, *domain.Ticket) error { return nil }
func (f *fakeTicketRepo) ListWithFilter(context.Context, repository.TicketFilter) ([]domain.Ticket, error) {
	return nil, nil
}
func (f *fakeTicketRepo) ListOpen(context.Context) ([]domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	return append([]domain.Ticket{}, f.open...), nil
}
func (f *fakeTicketRepo) ListUnassignedOpen(context.Context) ([]domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Ticket{}, f.unassigned...), nil
}
func (f *fakeTicketRepo) LockForUpdate(_ context.Context, _ pgx.Tx, id string) (*domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.open {
		if f.open[i].ID == id {
			clone := f.open[i]
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}
func (f *fakeTicketRepo) UpdateStatusTx(_ context.Context, _ pgx.Tx, id string, status domain.TicketStatus, closedAt *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.open {
		if f.open[i].ID == id {
			f.open[i].Status = status
			f.open[i].ClosedAt = closedAt
			return nil
		}
	}
	return pgx.ErrNoRows
}
func (f *fakeTicketRepo) UpdateOwnerTx(context.Context, pgx.Tx, string, *string) error {
	return nil
}

type fakeEscalationRepo struct {
	mu      sync.Mutex
	created []domain.Escalation
}

func (f *fakeEscalationRepo) CreateTx(_ context.Context, _ pgx.Tx, escalation *domain.Escalation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	escalation.ID = fmt.Sprintf("esc-%d", len(f.created)+1)
	f.created = append(f.created, *escalation)
	return nil
}
func (f *fakeEscalationRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.Escalation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Escalation
	for _, esc := range f.created {
		if esc.TicketID == ticketID {
			out = append(out, esc)
		}
	}
	return out, nil
}
func (f *fakeEscalationRepo) Resolve(context.Context, string, time.Time) error { return nil }

type fakeAgentRepo struct {
	target *domain.Agent
}

func (f *fakeAgentRepo) GetByID(context.Context, string) (*domain.Agent, error) {
	return nil, pgx.ErrNoRows
}
func (f *fakeAgentRepo) List(context.Context, repository.AgentFilter) ([]domain.Agent, error) {
	return nil, nil
}
func (f *fakeAgentRepo) ListAssignable(context.Context) ([]domain.Agent, error) {
	return nil, nil
}
func (f *fakeAgentRepo) FindEscalationTarget(context.Context) (*domain.Agent, error) {
	if f.target == nil {
		return nil, pgx.ErrNoRows
	}
	return f.target, nil
}

type fakeSweepTimerRepo struct {
	mu     sync.Mutex
	timers []domain.SLATimer
}

func (f *fakeSweepTimerRepo) Create(_ context.Context, timer *domain.SLATimer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	timer.ID = fmt.Sprintf("timer-%d", len(f.timers)+1)
	f.timers = append(f.timers, *timer)
	return nil
}
func (f *fakeSweepTimerRepo) GetByID(_ context.Context, id string) (*domain.SLATimer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.timers {
		if f.timers[i].ID == id {
			clone := f.timers[i]
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}
func (f *fakeSweepTimerRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.SLATimer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.SLATimer
	for _, timer := range f.timers {
		if timer.TicketID == ticketID {
			out = append(out, timer)
		}
	}
	return out, nil
}
func (f *fakeSweepTimerRepo) GetByTicketAndType(_ context.Context, ticketID string, timerType domain.TimerType) (*domain.SLATimer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.timers {
		if f.timers[i].TicketID == ticketID && f.timers[i].Type == timerType {
			clone := f.timers[i]
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}
func (f *fakeSweepTimerRepo) Update(_ context.Context, timer *domain.SLATimer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.timers {
		if f.timers[i].ID == timer.ID {
			f.timers[i] = *timer
			return nil
		}
	}
	return pgx.ErrNoRows
}
func (f *fakeSweepTimerRepo) UpdateStatus(_ context.Context, id string, status domain.TimerStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.timers {
		if f.timers[i].ID == id {
			f.timers[i].Status = status
			return nil
		}
	}
	return pgx.ErrNoRows
}

type fakeSweepConfigRepo struct {
	cfg        *domain.SLAConfiguration
	failCreate bool
}

func (f *fakeSweepConfigRepo) GetActiveExact(context.Context, string, string, string) (*domain.SLAConfiguration, error) {
	if f.cfg == nil {
		return nil, pgx.ErrNoRows
	}
	return f.cfg, nil
}
func (f *fakeSweepConfigRepo) GetModuleFallback(context.Context, string) (*domain.SLAConfiguration, error) {
	return nil, pgx.ErrNoRows
}
func (f *fakeSweepConfigRepo) Create(_ context.Context, cfg *domain.SLAConfiguration) error {
	if f.failCreate {
		return fmt.Errorf("configurations unavailable")
	}
	cfg.ID = "cfg-synth"
	f.cfg = cfg
	return nil
}
func (f *fakeSweepConfigRepo) GetByID(context.Context, string) (*domain.SLAConfiguration, error) {
	return nil, pgx.ErrNoRows
}
func (f *fakeSweepConfigRepo) List(context.Context, int, int) ([]domain.SLAConfiguration, error) {
	return nil, nil
}
func (f *fakeSweepConfigRepo) Deactivate(context.Context, string) error { return nil }

func newTestSweep(tickets *fakeTicketRepo, timers *fakeSweepTimerRepo, configs *fakeSweepConfigRepo) *EscalationSweep {
	sla := service.NewSLAService(service.SLADependencies{
		ConfigRepo: configs,
		TimerRepo:  timers,
		Logger:     zap.NewNop(),
		Now:        func() time.Time { return sweepNow },
	})
	return NewEscalationSweep(EscalationSweepDependencies{
		TicketRepo: tickets,
		TimerRepo:  timers,
		SLA:        sla,
		Logger:     zap.NewNop(),
		Now:        func() time.Time { return sweepNow },
	})
}

func TestShouldEscalate(t *testing.T) {
	sweep := newTestSweep(&fakeTicketRepo{}, &fakeSweepTimerRepo{}, &fakeSweepConfigRepo{})

	overdue := &domain.SLATimer{Status: domain.TimerStatusActive, Deadline: sweepNow.Add(-time.Minute)}
	pending := &domain.SLATimer{Status: domain.TimerStatusActive, Deadline: sweepNow.Add(time.Hour)}
	paused := &domain.SLATimer{Status: domain.TimerStatusPaused, Deadline: sweepNow.Add(-time.Hour)}
	completed := &domain.SLATimer{Status: domain.TimerStatusCompleted, Deadline: sweepNow.Add(-time.Hour)}

	open := &domain.Ticket{Status: domain.TicketStatusInProgress}
	escalated := &domain.Ticket{Status: domain.TicketStatusEscalated}

	assert.True(t, sweep.shouldEscalate(open, overdue, sweepNow))
	assert.False(t, sweep.shouldEscalate(open, pending, sweepNow))
	assert.False(t, sweep.shouldEscalate(escalated, overdue, sweepNow),
		"an escalated ticket is escalated exactly once until a human returns it")
	assert.False(t, sweep.shouldEscalate(open, paused, sweepNow),
		"a paused timer holds no live deadline")
	assert.False(t, sweep.shouldEscalate(open, completed, sweepNow))
}

func TestProcessTicketMovesTimersThroughStates(t *testing.T) {
	ticket := domain.Ticket{ID: "ticket-1", Status: domain.TicketStatusEscalated, CreatedAt: sweepNow.Add(-2 * time.Hour)}
	timers := &fakeSweepTimerRepo{timers: []domain.SLATimer{
		{ID: "t-resp", TicketID: "ticket-1", Type: domain.TimerTypeResponse,
			Status: domain.TimerStatusActive, Deadline: sweepNow.Add(-time.Minute)},
		{ID: "t-reso", TicketID: "ticket-1", Type: domain.TimerTypeResolution,
			Status: domain.TimerStatusActive, Deadline: sweepNow.Add(20 * time.Minute)},
	}}
	sweep := newTestSweep(&fakeTicketRepo{}, timers, &fakeSweepConfigRepo{})

	require.NoError(t, sweep.processTicket(context.Background(), &ticket))

	response, err := timers.GetByID(context.Background(), "t-resp")
	require.NoError(t, err)
	assert.Equal(t, domain.TimerStatusBreached, response.Status)

	resolution, err := timers.GetByID(context.Background(), "t-reso")
	require.NoError(t, err)
	assert.Equal(t, domain.TimerStatusWarning, resolution.Status,
		"20 minutes to deadline falls inside the warning window")
}

func TestProcessTicketRebuildsMissingTimers(t *testing.T) {
	ticket := domain.Ticket{
		ID: "ticket-1", Status: domain.TicketStatusNew,
		ProductID: "p1", ModuleID: "m1", IssueType: "bug",
		CreatedAt: sweepNow.Add(-10 * time.Minute),
	}
	timers := &fakeSweepTimerRepo{}
	configs := &fakeSweepConfigRepo{cfg: &domain.SLAConfiguration{
		ID: "cfg-1", ResponseMinutes: 480, ResolutionMinutes: 1440, Active: true,
	}}
	sweep := newTestSweep(&fakeTicketRepo{}, timers, configs)

	require.NoError(t, sweep.processTicket(context.Background(), &ticket))

	rebuilt, err := timers.ListByTicket(context.Background(), "ticket-1")
	require.NoError(t, err)
	assert.Len(t, rebuilt, 2, "interrupted creations are repaired by the sweep")
}

func TestRunSkipsWhileCycleInFlight(t *testing.T) {
	tickets := &fakeTicketRepo{}
	sweep := newTestSweep(tickets, &fakeSweepTimerRepo{}, &fakeSweepConfigRepo{})

	sweep.mu.Lock()
	defer sweep.mu.Unlock()

	require.NoError(t, sweep.Run(context.Background()))
	assert.Zero(t, tickets.listCalls, "an overlapping cycle is skipped, not queued")
}

func TestRunIsolatesTicketFailures(t *testing.T) {
	// ticket-broken has no timers and the rebuild path fails; the cycle must
	// still process ticket-ok and report success.
	tickets := &fakeTicketRepo{open: []domain.Ticket{
		{ID: "ticket-broken", Status: domain.TicketStatusNew, CreatedAt: sweepNow.Add(-time.Minute)},
		{ID: "ticket-ok", Status: domain.TicketStatusNew, CreatedAt: sweepNow.Add(-time.Minute)},
	}}
	timers := &fakeSweepTimerRepo{timers: []domain.SLATimer{
		{ID: "t-1", TicketID: "ticket-ok", Type: domain.TimerTypeResponse,
			Status: domain.TimerStatusActive, Deadline: sweepNow.Add(10 * time.Minute)},
		{ID: "t-2", TicketID: "ticket-ok", Type: domain.TimerTypeResolution,
			Status: domain.TimerStatusActive, Deadline: sweepNow.Add(2 * time.Hour)},
	}}
	sweep := newTestSweep(tickets, timers, &fakeSweepConfigRepo{failCreate: true})

	require.NoError(t, sweep.Run(context.Background()))

	response, err := timers.GetByID(context.Background(), "t-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TimerStatusWarning, response.Status,
		"the healthy ticket is still reconciled")
}

// newEscalateTestSweep wires the escalation path with fakes: the transaction
// runner just invokes the callback, so the lock-and-recheck sequence runs
// against the fake repositories.
func newEscalateTestSweep(tickets *fakeTicketRepo, timers *fakeSweepTimerRepo, escalations *fakeEscalationRepo, agents *fakeAgentRepo) *EscalationSweep {
	sweep := newTestSweep(tickets, timers, &fakeSweepConfigRepo{})
	sweep.escalations = escalations
	sweep.agents = agents
	sweep.runTx = func(ctx context.Context, fn func(pgx.Tx) error) error { return fn(nil) }
	return sweep
}

func TestRunEscalatesPastDeadlineExactlyOnce(t *testing.T) {
	tickets := &fakeTicketRepo{open: []domain.Ticket{
		{ID: "ticket-1", Status: domain.TicketStatusInProgress, CreatedAt: sweepNow.Add(-3 * time.Hour)},
	}}
	timers := &fakeSweepTimerRepo{timers: []domain.SLATimer{
		{ID: "t-resp", TicketID: "ticket-1", Type: domain.TimerTypeResponse,
			Status: domain.TimerStatusActive, Deadline: sweepNow.Add(-time.Hour)},
	}}
	escalations := &fakeEscalationRepo{}
	manager := &domain.Agent{ID: "agent-mgr", Role: domain.AgentRoleManager, Email: "mgr@example.com"}
	sweep := newEscalateTestSweep(tickets, timers, escalations, &fakeAgentRepo{target: manager})

	require.NoError(t, sweep.Run(context.Background()))
	require.NoError(t, sweep.Run(context.Background()))

	require.Len(t, escalations.created, 1, "a second cycle over the same breach adds no audit row")
	escalation := escalations.created[0]
	assert.Equal(t, "ticket-1", escalation.TicketID)
	assert.Equal(t, "t-resp", escalation.TimerID)
	assert.Equal(t, domain.EscalationLevelManager, escalation.ToLevel)
	assert.Equal(t, domain.EscalatedBySystem, escalation.EscalatedBy)
	assert.Equal(t, domain.TicketStatusEscalated, tickets.open[0].Status)

	response, err := timers.GetByID(context.Background(), "t-resp")
	require.NoError(t, err)
	assert.Equal(t, domain.TimerStatusBreached, response.Status)
}

func TestEscalateRechecksStatusInsideTransaction(t *testing.T) {
	// The listing is stale: the row was escalated between the listing and the
	// lock. The in-transaction re-check must drop the duplicate silently.
	tickets := &fakeTicketRepo{open: []domain.Ticket{
		{ID: "ticket-1", Status: domain.TicketStatusEscalated, CreatedAt: sweepNow.Add(-3 * time.Hour)},
	}}
	timers := &fakeSweepTimerRepo{timers: []domain.SLATimer{
		{ID: "t-resp", TicketID: "ticket-1", Type: domain.TimerTypeResponse,
			Status: domain.TimerStatusActive, Deadline: sweepNow.Add(-time.Hour)},
	}}
	escalations := &fakeEscalationRepo{}
	sweep := newEscalateTestSweep(tickets, timers, escalations, &fakeAgentRepo{})

	stale := domain.Ticket{ID: "ticket-1", Status: domain.TicketStatusInProgress, CreatedAt: sweepNow.Add(-3 * time.Hour)}
	require.NoError(t, sweep.processTicket(context.Background(), &stale))

	assert.Empty(t, escalations.created)
	assert.Equal(t, domain.TicketStatusEscalated, tickets.open[0].Status)
}

func TestEscalateFallsBackToManagerLevelWithoutTarget(t *testing.T) {
	tickets := &fakeTicketRepo{open: []domain.Ticket{
		{ID: "ticket-1", Status: domain.TicketStatusNew, CreatedAt: sweepNow.Add(-3 * time.Hour)},
	}}
	timers := &fakeSweepTimerRepo{timers: []domain.SLATimer{
		{ID: "t-resp", TicketID: "ticket-1", Type: domain.TimerTypeResponse,
			Status: domain.TimerStatusActive, Deadline: sweepNow.Add(-90 * time.Minute)},
	}}
	escalations := &fakeEscalationRepo{}
	sweep := newEscalateTestSweep(tickets, timers, escalations, &fakeAgentRepo{})

	require.NoError(t, sweep.Run(context.Background()))

	require.Len(t, escalations.created, 1)
	assert.Equal(t, domain.EscalationLevelManager, escalations.created[0].ToLevel,
		"an empty directory still escalates, at manager level")
	assert.Contains(t, escalations.created[0].Reason, "response deadline exceeded by 1h30m")
}

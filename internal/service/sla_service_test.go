package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/domain"
	apperrors "github.com/spec-kit/sla-engine/pkg/util"
)

type fakeConfigRepo struct {
	configs []*domain.SLAConfiguration
	creates int
}

func (f *fakeConfigRepo) GetActiveExact(_ context.Context, productID, moduleID, issueName string) (*domain.SLAConfiguration, error) {
	for _, cfg := range f.configs {
		if cfg.Active && cfg.ProductID == productID && cfg.ModuleID == moduleID && cfg.IssueName == issueName {
			return cfg, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeConfigRepo) GetModuleFallback(_ context.Context, moduleID string) (*domain.SLAConfiguration, error) {
	var best *domain.SLAConfiguration
	for _, cfg := range f.configs {
		if !cfg.Active || cfg.ModuleID != moduleID {
			continue
		}
		if best == nil || cfg.Priority < best.Priority {
			best = cfg
		}
	}
	if best == nil {
		return nil, pgx.ErrNoRows
	}
	return best, nil
}

func (f *fakeConfigRepo) Create(ctx context.Context, cfg *domain.SLAConfiguration) error {
	f.creates++
	// Uniqueness holds over active rows only; a deactivated generation of the
	// same classification never blocks a new insert.
	if existing, err := f.GetActiveExact(ctx, cfg.ProductID, cfg.ModuleID, cfg.IssueName); err == nil {
		*cfg = *existing
		return nil
	}
	cfg.ID = fmt.Sprintf("cfg-%d", len(f.configs)+1)
	f.configs = append(f.configs, cfg)
	return nil
}

func (f *fakeConfigRepo) GetByID(_ context.Context, id string) (*domain.SLAConfiguration, error) {
	for _, cfg := range f.configs {
		if cfg.ID == id {
			return cfg, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeConfigRepo) List(_ context.Context, limit, offset int) ([]domain.SLAConfiguration, error) {
	out := make([]domain.SLAConfiguration, 0, len(f.configs))
	for _, cfg := range f.configs {
		out = append(out, *cfg)
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeConfigRepo) Deactivate(_ context.Context, id string) error {
	for _, cfg := range f.configs {
		if cfg.ID == id {
			cfg.Active = false
			return nil
		}
	}
	return pgx.ErrNoRows
}

type fakeTimerRepo struct {
	timers map[string]*domain.SLATimer
}

func newFakeTimerRepo() *fakeTimerRepo {
	return &fakeTimerRepo{timers: make(map[string]*domain.SLATimer)}
}

func (f *fakeTimerRepo) Create(_ context.Context, timer *domain.SLATimer) error {
	timer.ID = fmt.Sprintf("timer-%d", len(f.timers)+1)
	clone := *timer
	f.timers[timer.ID] = &clone
	return nil
}

func (f *fakeTimerRepo) GetByID(_ context.Context, id string) (*domain.SLATimer, error) {
	timer, ok := f.timers[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *timer
	return &clone, nil
}

func (f *fakeTimerRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.SLATimer, error) {
	var out []domain.SLATimer
	for _, timer := range f.timers {
		if timer.TicketID == ticketID {
			out = append(out, *timer)
		}
	}
	return out, nil
}

func (f *fakeTimerRepo) GetByTicketAndType(_ context.Context, ticketID string, timerType domain.TimerType) (*domain.SLATimer, error) {
	for _, timer := range f.timers {
		if timer.TicketID == ticketID && timer.Type == timerType {
			clone := *timer
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeTimerRepo) Update(_ context.Context, timer *domain.SLATimer) error {
	if _, ok := f.timers[timer.ID]; !ok {
		return pgx.ErrNoRows
	}
	clone := *timer
	f.timers[timer.ID] = &clone
	return nil
}

func (f *fakeTimerRepo) UpdateStatus(_ context.Context, id string, status domain.TimerStatus) error {
	timer, ok := f.timers[id]
	if !ok {
		return pgx.ErrNoRows
	}
	timer.Status = status
	return nil
}

func newTestSLAService(configs *fakeConfigRepo, timers *fakeTimerRepo, now time.Time) *SLAService {
	return NewSLAService(SLADependencies{
		ConfigRepo: configs,
		TimerRepo:  timers,
		Logger:     zap.NewNop(),
		Now:        func() time.Time { return now },
	})
}

var testNow = time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)

func TestResolveExactMatchWins(t *testing.T) {
	exact := &domain.SLAConfiguration{
		ID: "cfg-exact", ProductID: "p1", ModuleID: "m1", IssueName: "login-failure",
		Priority: domain.PriorityP1, ResponseMinutes: 60, ResolutionMinutes: 240, Active: true,
	}
	fallback := &domain.SLAConfiguration{
		ID: "cfg-fallback", ProductID: "p1", ModuleID: "m1", IssueName: "other",
		Priority: domain.PriorityP0, ResponseMinutes: 30, ResolutionMinutes: 120, Active: true,
	}
	repo := &fakeConfigRepo{configs: []*domain.SLAConfiguration{fallback, exact}}
	svc := newTestSLAService(repo, newFakeTimerRepo(), testNow)

	cfg, err := svc.Resolve(context.Background(), "p1", "m1", "login-failure")
	require.NoError(t, err)
	assert.Equal(t, "cfg-exact", cfg.ID)
	assert.Zero(t, repo.creates)
}

func TestResolveModuleFallbackMostUrgent(t *testing.T) {
	p2 := &domain.SLAConfiguration{
		ID: "cfg-p2", ProductID: "p1", ModuleID: "m1", IssueName: "a",
		Priority: domain.PriorityP2, ResponseMinutes: 480, ResolutionMinutes: 1440, Active: true,
	}
	p0 := &domain.SLAConfiguration{
		ID: "cfg-p0", ProductID: "p1", ModuleID: "m1", IssueName: "b",
		Priority: domain.PriorityP0, ResponseMinutes: 15, ResolutionMinutes: 60, Active: true,
	}
	repo := &fakeConfigRepo{configs: []*domain.SLAConfiguration{p2, p0}}
	svc := newTestSLAService(repo, newFakeTimerRepo(), testNow)

	cfg, err := svc.Resolve(context.Background(), "p1", "m1", "unclassified")
	require.NoError(t, err)
	assert.Equal(t, "cfg-p0", cfg.ID, "the lowest priority ordinal wins the fallback")
}

func TestResolveSynthesizesAndPersistsDefault(t *testing.T) {
	repo := &fakeConfigRepo{}
	svc := newTestSLAService(repo, newFakeTimerRepo(), testNow)

	cfg, err := svc.Resolve(context.Background(), "p1", "m-unknown", "mystery")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultResponseMinutes, cfg.ResponseMinutes)
	assert.Equal(t, domain.DefaultResolutionMinutes, cfg.ResolutionMinutes)
	assert.Equal(t, domain.PriorityP2, cfg.Priority)
	assert.Equal(t, 1, repo.creates, "the synthesized default must be persisted")

	// A second resolution finds the persisted row instead of synthesizing again.
	again, err := svc.Resolve(context.Background(), "p1", "m-unknown", "mystery")
	require.NoError(t, err)
	assert.Equal(t, cfg.ID, again.ID)
	assert.Equal(t, 1, repo.creates)
}

func TestResolveAfterDeactivationStillSucceeds(t *testing.T) {
	repo := &fakeConfigRepo{}
	svc := newTestSLAService(repo, newFakeTimerRepo(), testNow)

	created, err := svc.CreateConfig(context.Background(), &domain.SLAConfiguration{
		ProductID: "p1", ModuleID: "m1", IssueName: "login-failure",
		Priority: domain.PriorityP1, ResponseMinutes: 60, ResolutionMinutes: 240,
	})
	require.NoError(t, err)
	require.NoError(t, svc.DeactivateConfig(context.Background(), created.ID))

	// The retired row stays behind for audit but must not wedge the
	// classification: resolution falls through to a synthesized default.
	cfg, err := svc.Resolve(context.Background(), "p1", "m1", "login-failure")
	require.NoError(t, err)
	assert.NotEqual(t, created.ID, cfg.ID)
	assert.Equal(t, domain.PriorityP2, cfg.Priority)
}

func TestCreateConfigAfterDeactivationSucceeds(t *testing.T) {
	repo := &fakeConfigRepo{}
	svc := newTestSLAService(repo, newFakeTimerRepo(), testNow)

	first, err := svc.CreateConfig(context.Background(), &domain.SLAConfiguration{
		ProductID: "p1", ModuleID: "m1", IssueName: "login-failure",
		Priority: domain.PriorityP1, ResponseMinutes: 60, ResolutionMinutes: 240,
	})
	require.NoError(t, err)
	require.NoError(t, svc.DeactivateConfig(context.Background(), first.ID))

	second, err := svc.CreateConfig(context.Background(), &domain.SLAConfiguration{
		ProductID: "p1", ModuleID: "m1", IssueName: "login-failure",
		Priority: domain.PriorityP0, ResponseMinutes: 30, ResolutionMinutes: 120,
	})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.True(t, second.Active)
}

func TestStartTimersCreatesResponseAndResolution(t *testing.T) {
	timers := newFakeTimerRepo()
	svc := newTestSLAService(&fakeConfigRepo{}, timers, testNow)

	cfg := &domain.SLAConfiguration{ID: "cfg-1", ResponseMinutes: 60, ResolutionMinutes: 480}
	ticket := &domain.Ticket{ID: "ticket-1", CreatedAt: testNow}

	created, err := svc.StartTimers(context.Background(), ticket, cfg)
	require.NoError(t, err)
	require.Len(t, created, 2)

	byType := map[domain.TimerType]domain.SLATimer{}
	for _, timer := range created {
		byType[timer.Type] = timer
	}
	assert.Equal(t, testNow.Add(60*time.Minute), byType[domain.TimerTypeResponse].Deadline)
	assert.Equal(t, testNow.Add(480*time.Minute), byType[domain.TimerTypeResolution].Deadline)
}

func TestStartTimersAddsEscalationWhenConfigured(t *testing.T) {
	timers := newFakeTimerRepo()
	svc := newTestSLAService(&fakeConfigRepo{}, timers, testNow)

	escalation := 30
	cfg := &domain.SLAConfiguration{
		ID: "cfg-1", ResponseMinutes: 60, ResolutionMinutes: 480, EscalationMinutes: &escalation,
	}
	created, err := svc.StartTimers(context.Background(), &domain.Ticket{ID: "ticket-1", CreatedAt: testNow}, cfg)
	require.NoError(t, err)
	require.Len(t, created, 3)
}

func TestPauseResumeRoundTrip(t *testing.T) {
	timers := newFakeTimerRepo()
	pauseAt := testNow.Add(20 * time.Minute)
	svc := newTestSLAService(&fakeConfigRepo{}, timers, pauseAt)

	cfg := &domain.SLAConfiguration{ID: "cfg-1", ResponseMinutes: 60, ResolutionMinutes: 480}
	created, err := svc.StartTimers(context.Background(), &domain.Ticket{ID: "ticket-1", CreatedAt: testNow}, cfg)
	require.NoError(t, err)

	paused, err := svc.PauseTimer(context.Background(), created[0].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TimerStatusPaused, paused.Status)
	assert.Equal(t, 20, paused.ElapsedMinutes)

	// Pausing twice is a conflict, not a silent no-op.
	_, err = svc.PauseTimer(context.Background(), created[0].ID)
	require.Error(t, err)
	assert.Equal(t, "CONFLICT", apperrors.ToDomainError(err).Code)
}

func TestPauseTimerNotFound(t *testing.T) {
	svc := newTestSLAService(&fakeConfigRepo{}, newFakeTimerRepo(), testNow)

	_, err := svc.PauseTimer(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperrors.ToDomainError(err).Code)
}

func TestCompleteTimersSkipsBreached(t *testing.T) {
	timers := newFakeTimerRepo()
	svc := newTestSLAService(&fakeConfigRepo{}, timers, testNow)

	cfg := &domain.SLAConfiguration{ID: "cfg-1", ResponseMinutes: 60, ResolutionMinutes: 480}
	created, err := svc.StartTimers(context.Background(), &domain.Ticket{ID: "ticket-1", CreatedAt: testNow}, cfg)
	require.NoError(t, err)
	require.NoError(t, timers.UpdateStatus(context.Background(), created[0].ID, domain.TimerStatusBreached))

	require.NoError(t, svc.CompleteTimers(context.Background(), "ticket-1"))

	breached, err := timers.GetByID(context.Background(), created[0].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TimerStatusBreached, breached.Status)

	completed, err := timers.GetByID(context.Background(), created[1].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TimerStatusCompleted, completed.Status)
}

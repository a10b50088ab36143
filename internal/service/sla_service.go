package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/repository"
	apperrors "github.com/spec-kit/sla-engine/pkg/util"
)

// SLAService resolves SLA policies and owns the per-ticket timer lifecycle.
type SLAService struct {
	configs repository.SLAConfigRepository
	timers  repository.SLATimerRepository
	logger  *zap.Logger
	now     func() time.Time

	defaultResponseMinutes   int
	defaultResolutionMinutes int
}

// SLADependencies bundles collaborators.
type SLADependencies struct {
	ConfigRepo repository.SLAConfigRepository
	TimerRepo  repository.SLATimerRepository
	Logger     *zap.Logger
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time

	DefaultResponseMinutes   int
	DefaultResolutionMinutes int
}

// NewSLAService creates the service.
func NewSLAService(deps SLADependencies) *SLAService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	respMin := deps.DefaultResponseMinutes
	if respMin <= 0 {
		respMin = domain.DefaultResponseMinutes
	}
	resoMin := deps.DefaultResolutionMinutes
	if resoMin <= 0 {
		resoMin = domain.DefaultResolutionMinutes
	}
	return &SLAService{
		configs:                  deps.ConfigRepo,
		timers:                   deps.TimerRepo,
		logger:                   deps.Logger,
		now:                      now,
		defaultResponseMinutes:   respMin,
		defaultResolutionMinutes: resoMin,
	}
}

// Resolve maps a ticket classification to a usable configuration. It never
// fails with "no SLA": exact match, then the most urgent configuration scoped
// to the module, then a synthesized default that is persisted so later lookups
// are consistent.
func (s *SLAService) Resolve(ctx context.Context, productID, moduleID, issueName string) (*domain.SLAConfiguration, error) {
	if productID != "" && moduleID != "" && issueName != "" {
		cfg, err := s.configs.GetActiveExact(ctx, productID, moduleID, issueName)
		if err == nil {
			return cfg, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
	}
	if moduleID != "" {
		cfg, err := s.configs.GetModuleFallback(ctx, moduleID)
		if err == nil {
			return cfg, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
	}

	cfg := domain.DefaultConfiguration(productID, moduleID, issueName)
	cfg.ResponseMinutes = s.defaultResponseMinutes
	cfg.ResolutionMinutes = s.defaultResolutionMinutes
	if err := s.configs.Create(ctx, cfg); err != nil {
		return nil, err
	}
	s.logger.Info("synthesized default sla configuration",
		zap.String("product_id", productID),
		zap.String("module_id", moduleID),
		zap.String("issue_name", issueName))
	return cfg, nil
}

// StartTimers creates the ticket's timers, exactly once, at creation time.
// Every ticket gets response and resolution timers; an escalation timer is
// added only when the configuration carries escalation minutes.
func (s *SLAService) StartTimers(ctx context.Context, ticket *domain.Ticket, cfg *domain.SLAConfiguration) ([]domain.SLATimer, error) {
	specs := []struct {
		timerType domain.TimerType
		minutes   int
	}{
		{domain.TimerTypeResponse, cfg.ResponseMinutes},
		{domain.TimerTypeResolution, cfg.ResolutionMinutes},
	}
	if cfg.EscalationMinutes != nil {
		specs = append(specs, struct {
			timerType domain.TimerType
			minutes   int
		}{domain.TimerTypeEscalation, *cfg.EscalationMinutes})
	}

	created := make([]domain.SLATimer, 0, len(specs))
	for _, spec := range specs {
		timer := domain.NewTimer(ticket.ID, cfg, spec.timerType, ticket.CreatedAt, spec.minutes)
		if err := s.timers.Create(ctx, timer); err != nil {
			return created, err
		}
		created = append(created, *timer)
	}
	return created, nil
}

// PauseTimer freezes one timer.
func (s *SLAService) PauseTimer(ctx context.Context, timerID string) (*domain.SLATimer, error) {
	timer, err := s.timers.GetByID(ctx, timerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("timer", map[string]any{"timer_id": timerID})
		}
		return nil, apperrors.MapError(err)
	}
	if err := timer.Pause(s.now()); err != nil {
		return nil, apperrors.NewConflict(err.Error(), map[string]any{"timer_id": timerID, "status": timer.Status})
	}
	if err := s.timers.Update(ctx, timer); err != nil {
		return nil, apperrors.MapError(err)
	}
	return timer, nil
}

// ResumeTimer reactivates a paused timer; the deadline shifts by the paused
// duration so no budget was consumed while frozen.
func (s *SLAService) ResumeTimer(ctx context.Context, timerID string) (*domain.SLATimer, error) {
	timer, err := s.timers.GetByID(ctx, timerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("timer", map[string]any{"timer_id": timerID})
		}
		return nil, apperrors.MapError(err)
	}
	if err := timer.Resume(s.now()); err != nil {
		return nil, apperrors.NewConflict(err.Error(), map[string]any{"timer_id": timerID, "status": timer.Status})
	}
	if err := s.timers.Update(ctx, timer); err != nil {
		return nil, apperrors.MapError(err)
	}
	return timer, nil
}

// CompleteTimers marks every still-pending timer of the ticket completed; called
// when the ticket reaches a terminal status. Breached timers keep their status.
func (s *SLAService) CompleteTimers(ctx context.Context, ticketID string) error {
	timers, err := s.timers.ListByTicket(ctx, ticketID)
	if err != nil {
		return err
	}
	for i := range timers {
		timer := &timers[i]
		if timer.Complete() != nil {
			continue
		}
		if err := s.timers.UpdateStatus(ctx, timer.ID, timer.Status); err != nil {
			return err
		}
	}
	return nil
}

// TimersForTicket lists the ticket's timers.
func (s *SLAService) TimersForTicket(ctx context.Context, ticketID string) ([]domain.SLATimer, error) {
	return s.timers.ListByTicket(ctx, ticketID)
}

// ListConfigs pages through configurations for the admin surface.
func (s *SLAService) ListConfigs(ctx context.Context, limit, offset int) ([]domain.SLAConfiguration, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.configs.List(ctx, limit, offset)
}

// CreateConfig persists an admin-authored configuration. A duplicate active
// classification is rejected rather than silently superseded.
func (s *SLAService) CreateConfig(ctx context.Context, cfg *domain.SLAConfiguration) (*domain.SLAConfiguration, error) {
	if cfg.ProductID == "" || cfg.ModuleID == "" || cfg.IssueName == "" {
		return nil, apperrors.NewValidationError("product_id, module_id, issue_name required", nil)
	}
	if cfg.ResponseMinutes <= 0 || cfg.ResolutionMinutes <= 0 {
		return nil, apperrors.NewValidationError("response_minutes and resolution_minutes must be positive", nil)
	}
	if cfg.EscalationMinutes != nil && *cfg.EscalationMinutes <= 0 {
		return nil, apperrors.NewValidationError("escalation_minutes must be positive when set", nil)
	}
	if cfg.Priority < domain.PriorityP0 || cfg.Priority > domain.PriorityP3 {
		return nil, apperrors.NewValidationError("priority out of range", nil)
	}
	existing, err := s.configs.GetActiveExact(ctx, cfg.ProductID, cfg.ModuleID, cfg.IssueName)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}
	if existing != nil {
		return nil, apperrors.NewConflict("active configuration already exists for classification",
			map[string]any{"config_id": existing.ID})
	}
	cfg.Active = true
	if err := s.configs.Create(ctx, cfg); err != nil {
		return nil, apperrors.MapError(err)
	}
	return cfg, nil
}

// DeactivateConfig retires a configuration. Existing timers keep their
// snapshotted deadlines; only future resolutions are affected.
func (s *SLAService) DeactivateConfig(ctx context.Context, id string) error {
	if _, err := s.configs.GetByID(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("sla configuration", map[string]any{"config_id": id})
		}
		return apperrors.MapError(err)
	}
	if err := s.configs.Deactivate(ctx, id); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

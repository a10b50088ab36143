package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/session"
	apperrors "github.com/spec-kit/sla-engine/pkg/util"
)

// IntakeService accumulates a ticket draft across a multi-message intake
// conversation and submits it as a real ticket. State lives in the session
// store under a sliding TTL keyed by the reporter's external identity, so an
// abandoned conversation costs nothing to forget.
type IntakeService struct {
	sessions session.Store
	tickets  *TicketService
	logger   *zap.Logger
	now      func() time.Time
}

// NewIntakeService wires the intake flow.
func NewIntakeService(sessions session.Store, tickets *TicketService, logger *zap.Logger) *IntakeService {
	return &IntakeService{
		sessions: sessions,
		tickets:  tickets,
		logger:   logger,
		now:      time.Now,
	}
}

// UpdateDraft merges the provided fields into the session's draft, creating
// the session on first contact. Non-empty patch fields win; empty ones leave
// the draft untouched. Every update refreshes the TTL.
func (s *IntakeService) UpdateDraft(ctx context.Context, key string, patch session.Draft) (*session.Session, error) {
	if key == "" {
		return nil, apperrors.NewValidationError("session key is required", nil)
	}
	sess, err := s.sessions.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			return nil, apperrors.MapError(err)
		}
		sess = &session.Session{Key: key, Stage: session.StageProduct}
		s.logger.Info("intake session started", zap.String("session_key", key))
	}

	if patch.ProductID != "" {
		sess.Draft.ProductID = patch.ProductID
	}
	if patch.ModuleID != "" {
		sess.Draft.ModuleID = patch.ModuleID
	}
	if patch.IssueType != "" {
		sess.Draft.IssueType = patch.IssueType
	}
	if patch.Subject != "" {
		sess.Draft.Subject = patch.Subject
	}
	sess.Stage = stageFor(sess.Draft)
	sess.UpdatedAt = s.now()

	if err := s.sessions.Put(ctx, sess); err != nil {
		return nil, apperrors.MapError(err)
	}
	return sess, nil
}

// Submit turns a complete draft into a ticket and discards the session. An
// incomplete draft is rejected with the missing fields named so the caller
// can resume the conversation.
func (s *IntakeService) Submit(ctx context.Context, key string) (*TicketDetail, error) {
	sess, err := s.sessions.Get(ctx, key)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, apperrors.NewNotFound("intake session", map[string]any{"session_key": key})
		}
		return nil, apperrors.MapError(err)
	}
	if missing := missingFields(sess.Draft); len(missing) > 0 {
		return nil, apperrors.NewValidationError("intake draft incomplete", map[string]any{"missing": missing})
	}

	detail, err := s.tickets.CreateTicket(ctx, TicketCreateInput{
		ProductID: sess.Draft.ProductID,
		ModuleID:  sess.Draft.ModuleID,
		IssueType: sess.Draft.IssueType,
		Subject:   sess.Draft.Subject,
	})
	if err != nil {
		return nil, err
	}

	if err := s.sessions.Delete(ctx, key); err != nil {
		// The ticket exists; a leftover session just expires on its own.
		s.logger.Warn("intake session cleanup failed",
			zap.String("session_key", key),
			zap.Error(err))
	}
	return detail, nil
}

// Abandon discards the session without creating a ticket.
func (s *IntakeService) Abandon(ctx context.Context, key string) error {
	if err := s.sessions.Delete(ctx, key); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// Get returns the current session state.
func (s *IntakeService) Get(ctx context.Context, key string) (*session.Session, error) {
	sess, err := s.sessions.Get(ctx, key)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, apperrors.NewNotFound("intake session", map[string]any{"session_key": key})
		}
		return nil, apperrors.MapError(err)
	}
	return sess, nil
}

func stageFor(d session.Draft) session.Stage {
	switch {
	case d.ProductID == "":
		return session.StageProduct
	case d.ModuleID == "":
		return session.StageModule
	case d.IssueType == "":
		return session.StageIssue
	case d.Subject == "":
		return session.StageSubject
	default:
		return session.StageConfirm
	}
}

func missingFields(d session.Draft) []string {
	var missing []string
	if d.ProductID == "" {
		missing = append(missing, "product_id")
	}
	if d.ModuleID == "" {
		missing = append(missing, "module_id")
	}
	if d.IssueType == "" {
		missing = append(missing, "issue_type")
	}
	if d.Subject == "" {
		missing = append(missing, "subject")
	}
	return missing
}

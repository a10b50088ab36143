package dto

import (
	"time"

	"github.com/spec-kit/sla-engine/internal/session"
)

// UpdateIntakeDraftRequest merges fields into the conversation draft.
type UpdateIntakeDraftRequest struct {
	ProductID string `json:"product_id,omitempty"`
	ModuleID  string `json:"module_id,omitempty"`
	IssueType string `json:"issue_type,omitempty"`
	Subject   string `json:"subject,omitempty"`
}

// IntakeSessionResponse response.
type IntakeSessionResponse struct {
	Key       string        `json:"key"`
	Stage     session.Stage `json:"stage"`
	Draft     session.Draft `json:"draft"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// NewIntakeSessionResponse maps a session.
func NewIntakeSessionResponse(s *session.Session) IntakeSessionResponse {
	return IntakeSessionResponse{
		Key:       s.Key,
		Stage:     s.Stage,
		Draft:     s.Draft,
		UpdatedAt: s.UpdatedAt,
	}
}

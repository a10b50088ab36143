package dto

import (
	"time"

	"github.com/spec-kit/sla-engine/internal/domain"
)

// CreateSLAConfigRequest payload.
type CreateSLAConfigRequest struct {
	ProductID         string             `json:"product_id"`
	ModuleID          string             `json:"module_id"`
	IssueName         string             `json:"issue_name"`
	Priority          domain.SLAPriority `json:"priority"`
	ResponseMinutes   int                `json:"response_minutes"`
	ResolutionMinutes int                `json:"resolution_minutes"`
	EscalationMinutes *int               `json:"escalation_minutes,omitempty"`
}

// SLAConfigResponse response.
type SLAConfigResponse struct {
	ID                string             `json:"id"`
	ProductID         string             `json:"product_id"`
	ModuleID          string             `json:"module_id"`
	IssueName         string             `json:"issue_name"`
	Priority          domain.SLAPriority `json:"priority"`
	ResponseMinutes   int                `json:"response_minutes"`
	ResolutionMinutes int                `json:"resolution_minutes"`
	EscalationMinutes *int               `json:"escalation_minutes,omitempty"`
	Active            bool               `json:"active"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// NewSLAConfigResponse maps a domain configuration.
func NewSLAConfigResponse(cfg *domain.SLAConfiguration) SLAConfigResponse {
	return SLAConfigResponse{
		ID:                cfg.ID,
		ProductID:         cfg.ProductID,
		ModuleID:          cfg.ModuleID,
		IssueName:         cfg.IssueName,
		Priority:          cfg.Priority,
		ResponseMinutes:   cfg.ResponseMinutes,
		ResolutionMinutes: cfg.ResolutionMinutes,
		EscalationMinutes: cfg.EscalationMinutes,
		Active:            cfg.Active,
		CreatedAt:         cfg.CreatedAt,
		UpdatedAt:         cfg.UpdatedAt,
	}
}

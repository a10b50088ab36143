package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sla-engine/internal/api/dto"
	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/service"
	apperrors "github.com/spec-kit/sla-engine/pkg/util"
)

// SLAConfigsHandler exposes the configuration admin surface.
type SLAConfigsHandler struct {
	sla *service.SLAService
}

// NewSLAConfigsHandler constructs the handler.
func NewSLAConfigsHandler(sla *service.SLAService) *SLAConfigsHandler {
	return &SLAConfigsHandler{sla: sla}
}

// List GET /sla-configs.
func (h *SLAConfigsHandler) List(c *fiber.Ctx) error {
	configs, err := h.sla.ListConfigs(c.Context(), parseIntQuery(c, "limit", 50), parseIntQuery(c, "offset", 0))
	if err != nil {
		return err
	}
	out := make([]dto.SLAConfigResponse, 0, len(configs))
	for i := range configs {
		out = append(out, dto.NewSLAConfigResponse(&configs[i]))
	}
	return c.JSON(fiber.Map{"configurations": out})
}

// Create POST /sla-configs.
func (h *SLAConfigsHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateSLAConfigRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	cfg, err := h.sla.CreateConfig(c.Context(), &domain.SLAConfiguration{
		ProductID:         req.ProductID,
		ModuleID:          req.ModuleID,
		IssueName:         req.IssueName,
		Priority:          req.Priority,
		ResponseMinutes:   req.ResponseMinutes,
		ResolutionMinutes: req.ResolutionMinutes,
		EscalationMinutes: req.EscalationMinutes,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewSLAConfigResponse(cfg))
}

// Deactivate DELETE /sla-configs/:id.
func (h *SLAConfigsHandler) Deactivate(c *fiber.Ctx) error {
	if err := h.sla.DeactivateConfig(c.Context(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Resolve GET /sla-configs/resolve previews which configuration a
// classification would select, synthesizing the default when nothing matches.
func (h *SLAConfigsHandler) Resolve(c *fiber.Ctx) error {
	productID := c.Query("product_id")
	moduleID := c.Query("module_id")
	issueName := c.Query("issue_name")
	if productID == "" || moduleID == "" || issueName == "" {
		return apperrors.NewValidationError("product_id, module_id, issue_name required", nil)
	}
	cfg, err := h.sla.Resolve(c.Context(), productID, moduleID, issueName)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewSLAConfigResponse(cfg))
}

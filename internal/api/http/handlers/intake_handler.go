package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sla-engine/internal/api/dto"
	"github.com/spec-kit/sla-engine/internal/service"
	"github.com/spec-kit/sla-engine/internal/session"
	apperrors "github.com/spec-kit/sla-engine/pkg/util"
)

// IntakeHandler exposes the conversation-state surface the chat gateway
// drives while collecting a ticket draft.
type IntakeHandler struct {
	intake *service.IntakeService
}

// NewIntakeHandler constructs the handler.
func NewIntakeHandler(intake *service.IntakeService) *IntakeHandler {
	return &IntakeHandler{intake: intake}
}

// GetSession GET /intake/sessions/:key.
func (h *IntakeHandler) GetSession(c *fiber.Ctx) error {
	sess, err := h.intake.Get(c.Context(), c.Params("key"))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewIntakeSessionResponse(sess))
}

// UpdateDraft PUT /intake/sessions/:key.
func (h *IntakeHandler) UpdateDraft(c *fiber.Ctx) error {
	var req dto.UpdateIntakeDraftRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	sess, err := h.intake.UpdateDraft(c.Context(), c.Params("key"), session.Draft{
		ProductID: req.ProductID,
		ModuleID:  req.ModuleID,
		IssueType: req.IssueType,
		Subject:   req.Subject,
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.NewIntakeSessionResponse(sess))
}

// Submit POST /intake/sessions/:key/submit turns a complete draft into a
// ticket and discards the session.
func (h *IntakeHandler) Submit(c *fiber.Ctx) error {
	detail, err := h.intake.Submit(c.Context(), c.Params("key"))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(toDetailResponse(detail))
}

// Abandon DELETE /intake/sessions/:key.
func (h *IntakeHandler) Abandon(c *fiber.Ctx) error {
	if err := h.intake.Abandon(c.Context(), c.Params("key")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sla-engine/internal/api/dto"
	"github.com/spec-kit/sla-engine/internal/auth"
	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/service"
	apperrors "github.com/spec-kit/sla-engine/pkg/util"
)

// AssignmentsHandler exposes assignment and workload endpoints.
type AssignmentsHandler struct {
	assignments *service.AssignmentService
}

// NewAssignmentsHandler constructs the handler.
func NewAssignmentsHandler(assignments *service.AssignmentService) *AssignmentsHandler {
	return &AssignmentsHandler{assignments: assignments}
}

// AutoAssign POST /tickets/:id/assignments/auto routes the ticket to the
// least-loaded agent.
func (h *AssignmentsHandler) AutoAssign(c *fiber.Ctx) error {
	assignment, err := h.assignments.AutoAssign(c.Context(), c.Params("id"), actorID(c), service.AssignAuto)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewAssignmentResponse(assignment))
}

// Assign POST /tickets/:id/assignments pins the ticket to a named agent.
func (h *AssignmentsHandler) Assign(c *fiber.Ctx) error {
	var req dto.AssignTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.AgentID == "" {
		return apperrors.NewValidationError("agent_id required", nil)
	}
	assignment, err := h.assignments.AssignToAgent(c.Context(), c.Params("id"), req.AgentID, actorID(c), service.AssignManual)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewAssignmentResponse(assignment))
}

// Workloads GET /agents/workloads returns per-agent active-primary counts,
// the same view the selector uses.
func (h *AssignmentsHandler) Workloads(c *fiber.Ctx) error {
	workloads, err := h.assignments.Workloads(c.Context())
	if err != nil {
		return err
	}
	out := make([]dto.AgentWorkloadResponse, 0, len(workloads))
	for i := range workloads {
		out = append(out, dto.NewAgentWorkloadResponse(&workloads[i]))
	}
	return c.JSON(fiber.Map{"workloads": out})
}

func actorID(c *fiber.Ctx) string {
	if principal, ok := auth.PrincipalFromContext(c); ok {
		return principal.Agent.ID
	}
	return domain.EscalatedBySystem
}

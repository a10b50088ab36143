package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sla-engine/internal/api/dto"
	"github.com/spec-kit/sla-engine/internal/auth"
	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/repository"
	"github.com/spec-kit/sla-engine/internal/service"
	apperrors "github.com/spec-kit/sla-engine/pkg/util"
)

// TicketsHandler exposes the ticket workflow surface.
type TicketsHandler struct {
	tickets *service.TicketService
	sla     *service.SLAService
}

// NewTicketsHandler constructs the handler.
func NewTicketsHandler(tickets *service.TicketService, sla *service.SLAService) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, sla: sla}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.ProductID == "" || req.ModuleID == "" || req.IssueType == "" || req.Subject == "" {
		return apperrors.NewValidationError("product_id, module_id, issue_type, subject required", nil)
	}

	detail, err := h.tickets.CreateTicket(c.Context(), service.TicketCreateInput{
		ProductID: req.ProductID,
		ModuleID:  req.ModuleID,
		IssueType: req.IssueType,
		Subject:   req.Subject,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(toDetailResponse(detail))
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	detail, err := h.tickets.GetTicket(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(toDetailResponse(detail))
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	filter := repository.TicketFilter{
		Limit:  parseIntQuery(c, "limit", 50),
		Offset: parseIntQuery(c, "offset", 0),
	}
	if raw := c.Query("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.ToUpper(strings.TrimSpace(s))))
		}
	}
	if v := c.Query("assignee_id"); v != "" {
		filter.AssigneeID = &v
	}
	if v := c.Query("product_id"); v != "" {
		filter.ProductID = &v
	}
	if v := c.Query("module_id"); v != "" {
		filter.ModuleID = &v
	}

	tickets, err := h.tickets.ListTickets(c.Context(), filter)
	if err != nil {
		return err
	}
	out := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		out = append(out, dto.NewTicketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"tickets": out})
}

// UpdateStatus PATCH /tickets/:id/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	var req dto.UpdateTicketStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Status == "" {
		return apperrors.NewValidationError("status required", nil)
	}

	actor := domain.EscalatedBySystem
	if principal, ok := auth.PrincipalFromContext(c); ok {
		actor = principal.Agent.ID
	}
	ticket, err := h.tickets.UpdateStatus(c.Context(), c.Params("id"), req.Status, actor)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTicketSummary(ticket))
}

// PauseTimer POST /tickets/:id/timers/:timerID/pause.
func (h *TicketsHandler) PauseTimer(c *fiber.Ctx) error {
	timer, err := h.sla.PauseTimer(c.Context(), c.Params("timerID"))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTimerResponse(timer))
}

// ResumeTimer POST /tickets/:id/timers/:timerID/resume.
func (h *TicketsHandler) ResumeTimer(c *fiber.Ctx) error {
	timer, err := h.sla.ResumeTimer(c.Context(), c.Params("timerID"))
	if err != nil {
		return err
	}
	return c.JSON(dto.NewTimerResponse(timer))
}

// ListEscalations GET /tickets/:id/escalations.
func (h *TicketsHandler) ListEscalations(c *fiber.Ctx) error {
	escalations, err := h.tickets.EscalationsForTicket(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	out := make([]dto.EscalationResponse, 0, len(escalations))
	for i := range escalations {
		out = append(out, dto.NewEscalationResponse(&escalations[i]))
	}
	return c.JSON(fiber.Map{"escalations": out})
}

// ResolveEscalation POST /escalations/:id/resolve.
func (h *TicketsHandler) ResolveEscalation(c *fiber.Ctx) error {
	if err := h.tickets.ResolveEscalation(c.Context(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func toDetailResponse(detail *service.TicketDetail) dto.TicketDetailResponse {
	resp := dto.TicketDetailResponse{
		TicketSummary: dto.NewTicketSummary(&detail.Ticket),
		Timers:        make([]dto.TimerResponse, 0, len(detail.Timers)),
		Escalations:   make([]dto.EscalationResponse, 0, len(detail.Escalations)),
	}
	if detail.Config != nil {
		cfg := dto.NewSLAConfigResponse(detail.Config)
		resp.Config = &cfg
	}
	for i := range detail.Timers {
		resp.Timers = append(resp.Timers, dto.NewTimerResponse(&detail.Timers[i]))
	}
	if detail.Assignment != nil {
		a := dto.NewAssignmentResponse(detail.Assignment)
		resp.Assignment = &a
	}
	for i := range detail.Escalations {
		resp.Escalations = append(resp.Escalations, dto.NewEscalationResponse(&detail.Escalations[i]))
	}
	return resp
}

func parseIntQuery(c *fiber.Ctx, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}

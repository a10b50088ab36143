package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sla-engine/internal/sweep"
)

// SweepsHandler triggers one sweep cycle on demand, outside the schedule.
// Overlap with a scheduled cycle is handled by the sweeps themselves.
type SweepsHandler struct {
	escalation *sweep.EscalationSweep
	rebalance  *sweep.RebalanceSweep
}

// NewSweepsHandler constructs the handler.
func NewSweepsHandler(escalation *sweep.EscalationSweep, rebalance *sweep.RebalanceSweep) *SweepsHandler {
	return &SweepsHandler{escalation: escalation, rebalance: rebalance}
}

// RunEscalation POST /sweeps/escalation/run.
func (h *SweepsHandler) RunEscalation(c *fiber.Ctx) error {
	if err := h.escalation.Run(c.Context()); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "completed", "sweep": h.escalation.Name()})
}

// RunRebalance POST /sweeps/rebalance/run.
func (h *SweepsHandler) RunRebalance(c *fiber.Ctx) error {
	if err := h.rebalance.Run(c.Context()); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "completed", "sweep": h.rebalance.Name()})
}

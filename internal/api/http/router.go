package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/spec-kit/sla-engine/internal/api/http/handlers"
	"github.com/spec-kit/sla-engine/internal/auth"
	"github.com/spec-kit/sla-engine/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	Assignments    *handlers.AssignmentsHandler
	SLAConfigs     *handlers.SLAConfigsHandler
	Sweeps         *handlers.SweepsHandler
	Intake         *handlers.IntakeHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", metricsHandler())

	// The intake surface is called by the chat gateway, which authenticates
	// with a service token carrying an agent identity.
	intake := app.Group("/intake", cfg.AuthMiddleware.Handle, auth.RequireRole())
	intake.Get("/sessions/:key", cfg.Intake.GetSession)
	intake.Put("/sessions/:key", cfg.Intake.UpdateDraft)
	intake.Post("/sessions/:key/submit", cfg.Intake.Submit)
	intake.Delete("/sessions/:key", cfg.Intake.Abandon)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle, auth.RequireRole())
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id/status", cfg.Tickets.UpdateStatus)
	tickets.Get("/:id/escalations", cfg.Tickets.ListEscalations)
	tickets.Post("/:id/timers/:timerID/pause", cfg.Tickets.PauseTimer)
	tickets.Post("/:id/timers/:timerID/resume", cfg.Tickets.ResumeTimer)
	tickets.Post("/:id/assignments/auto", cfg.Assignments.AutoAssign)
	tickets.Post("/:id/assignments", cfg.Assignments.Assign)

	escalations := app.Group("/escalations", cfg.AuthMiddleware.Handle,
		auth.RequireRole(domain.AgentRoleManager, domain.AgentRoleCEO, domain.AgentRoleAdmin))
	escalations.Post("/:id/resolve", cfg.Tickets.ResolveEscalation)

	agents := app.Group("/agents", cfg.AuthMiddleware.Handle, auth.RequireRole())
	agents.Get("/workloads", cfg.Assignments.Workloads)

	slaConfigs := app.Group("/sla-configs", cfg.AuthMiddleware.Handle)
	slaConfigs.Get("", auth.RequireRole(), cfg.SLAConfigs.List)
	slaConfigs.Get("/resolve", auth.RequireRole(), cfg.SLAConfigs.Resolve)
	slaConfigs.Post("", auth.RequireAdmin(), cfg.SLAConfigs.Create)
	slaConfigs.Delete("/:id", auth.RequireAdmin(), cfg.SLAConfigs.Deactivate)

	sweeps := app.Group("/sweeps", cfg.AuthMiddleware.Handle, auth.RequireAdmin())
	sweeps.Post("/escalation/run", cfg.Sweeps.RunEscalation)
	sweeps.Post("/rebalance/run", cfg.Sweeps.RunRebalance)
}

func metricsHandler() fiber.Handler {
	handler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	return func(c *fiber.Ctx) error {
		handler(c.Context())
		return nil
	}
}

package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/DossaniParadise/rm-tracker/internal/api/http/handlers"
	"github.com/DossaniParadise/rm-tracker/internal/auth"
	"github.com/DossaniParadise/rm-tracker/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	Workload       *handlers.WorkloadHandler
	AuthMiddleware *auth.AuthMiddleware
	// Metrics is exposed at /metrics when set.
	Metrics *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	api := app.Group("/api", cfg.AuthMiddleware.Handle, auth.RequireRole())

	tickets := api.Group("/tickets")
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Post("/:id/updates", cfg.Tickets.UpdateTicket)
	tickets.Post("/:id/assignment", cfg.Tickets.AssignTicket)

	api.Get("/stores/:code/assignees", cfg.Tickets.Assignees)

	api.Get("/workload", cfg.Workload.Workload)
	api.Get("/notifications", cfg.Workload.Notifications)
	api.Get("/notifications/stream", cfg.Workload.NotificationStream)
}

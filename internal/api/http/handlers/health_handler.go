package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/DossaniParadise/rm-tracker/internal/persistence"
)

const readinessTimeout = 2 * time.Second

// dependency is one backing service checked by the readiness probe.
type dependency struct {
	name    string
	enabled bool
	ping    func(context.Context) error
}

// HealthHandler responds to liveness and readiness probes.
type HealthHandler struct {
	serviceName  string
	version      string
	dependencies []dependency
}

// NewHealthHandler returns a new handler instance. Unconfigured backends are
// reported as disabled and never fail readiness.
func NewHealthHandler(serviceName, version string, postgres *persistence.Postgres, redis *persistence.Redis) *HealthHandler {
	return &HealthHandler{
		serviceName: serviceName,
		version:     version,
		dependencies: []dependency{
			{name: "postgres", enabled: postgres.Enabled(), ping: postgres.Ping},
			{name: "redis", enabled: redis.Enabled(), ping: redis.Ping},
		},
	}
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

// Ready pings every configured dependency.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), readinessTimeout)
	defer cancel()

	statuses := fiber.Map{}
	ready := true
	for _, dep := range h.dependencies {
		switch {
		case !dep.enabled:
			statuses[dep.name] = "disabled"
		case dep.ping(ctx) != nil:
			statuses[dep.name] = "unreachable"
			ready = false
		default:
			statuses[dep.name] = "ok"
		}
	}

	if !ready {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    "DEPENDENCY_UNAVAILABLE",
				"message": "one or more dependencies unavailable",
				"details": statuses,
			},
		})
	}
	return c.JSON(fiber.Map{"status": "ready", "dependencies": statuses})
}

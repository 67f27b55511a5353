package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/task-tracker/internal/observability"
)

// Pinger reports backing-store connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler exposes liveness, readiness and counter probes.
type HealthHandler struct {
	postgres Pinger
	redis    Pinger
	metrics  *observability.Metrics
}

// NewHealthHandler constructs handler.
func NewHealthHandler(postgres, redis Pinger, metrics *observability.Metrics) *HealthHandler {
	return &HealthHandler{postgres: postgres, redis: redis, metrics: metrics}
}

// Live GET /health/live.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"success": true, "message": "API is running"})
}

// Ready GET /health/ready.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	checks := fiber.Map{}
	healthy := true

	if h.postgres != nil {
		if err := h.postgres.Ping(c.Context()); err != nil {
			checks["postgres"] = err.Error()
			healthy = false
		} else {
			checks["postgres"] = "ok"
		}
	}
	if h.redis != nil {
		if err := h.redis.Ping(c.Context()); err != nil {
			checks["redis"] = err.Error()
			healthy = false
		} else {
			checks["redis"] = "ok"
		}
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	return c.Status(status).JSON(fiber.Map{"success": healthy, "checks": checks})
}

// Metrics GET /health/metrics.
func (h *HealthHandler) Metrics(c *fiber.Ctx) error {
	requests, errors := h.metrics.Snapshot()
	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"requests": requests,
			"errors":   errors,
		},
	})
}

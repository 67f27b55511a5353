package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/task-tracker/internal/api/http/handlers"
	"github.com/spec-kit/task-tracker/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tasks          *handlers.TasksHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	authGroup := app.Group("/auth")
	authGroup.Post("/signup", cfg.Auth.Signup)
	authGroup.Post("/login", cfg.Auth.Login)

	me := authGroup.Group("/me", cfg.AuthMiddleware.Handle)
	me.Get("", cfg.Auth.Me)
	me.Put("", cfg.Auth.UpdateProfile)

	tasks := app.Group("/tasks", cfg.AuthMiddleware.Handle)
	tasks.Get("", cfg.Tasks.ListTasks)
	tasks.Post("", cfg.Tasks.CreateTask)
	tasks.Get("/stats", cfg.Tasks.Stats)
	tasks.Get("/:id", cfg.Tasks.GetTask)
	tasks.Put("/:id", cfg.Tasks.UpdateTask)
	tasks.Delete("/:id", cfg.Tasks.DeleteTask)
}

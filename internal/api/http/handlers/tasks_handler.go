package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/task-tracker/internal/api/dto"
	"github.com/spec-kit/task-tracker/internal/auth"
	"github.com/spec-kit/task-tracker/internal/domain"
	"github.com/spec-kit/task-tracker/internal/service"
	apperrors "github.com/spec-kit/task-tracker/pkg/util"
)

// TasksHandler manages task endpoints.
type TasksHandler struct {
	service *service.TaskService
}

// NewTasksHandler constructs handler.
func NewTasksHandler(taskService *service.TaskService) *TasksHandler {
	return &TasksHandler{service: taskService}
}

// ListTasks GET /tasks.
func (h *TasksHandler) ListTasks(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewAuthenticationError("No token, authorization denied")
	}

	filter := service.TaskListFilter{}
	if search := c.Query("search"); search != "" {
		filter.Search = &search
	}
	if statusStr := c.Query("status"); statusStr != "" && statusStr != domain.StatusAll {
		status := domain.TaskStatus(statusStr)
		filter.Status = &status
	}

	tasks, err := h.service.List(c.Context(), principal.User.ID, filter)
	if err != nil {
		return err
	}
	items := make([]dto.TaskResponse, 0, len(tasks))
	for i := range tasks {
		items = append(items, dto.NewTaskResponse(&tasks[i]))
	}
	return c.JSON(fiber.Map{
		"success": true,
		"count":   len(items),
		"data":    items,
	})
}

// CreateTask POST /tasks.
func (h *TasksHandler) CreateTask(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewAuthenticationError("No token, authorization denied")
	}

	var req dto.CreateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload")
	}

	task, err := h.service.Create(c.Context(), principal.User.ID, service.TaskCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      domain.TaskStatus(req.Status),
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    dto.NewTaskResponse(task),
	})
}

// GetTask GET /tasks/:id.
func (h *TasksHandler) GetTask(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewAuthenticationError("No token, authorization denied")
	}

	task, err := h.service.Get(c.Context(), principal.User.ID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    dto.NewTaskResponse(task),
	})
}

// UpdateTask PUT /tasks/:id.
func (h *TasksHandler) UpdateTask(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewAuthenticationError("No token, authorization denied")
	}

	var req dto.UpdateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload")
	}

	input := service.TaskUpdateInput{
		Title:       req.Title,
		Description: req.Description,
	}
	if req.Status != nil {
		status := domain.TaskStatus(*req.Status)
		input.Status = &status
	}

	task, err := h.service.Update(c.Context(), principal.User.ID, c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    dto.NewTaskResponse(task),
	})
}

// DeleteTask DELETE /tasks/:id.
func (h *TasksHandler) DeleteTask(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewAuthenticationError("No token, authorization denied")
	}

	if err := h.service.Delete(c.Context(), principal.User.ID, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Task removed",
	})
}

// Stats GET /tasks/stats.
func (h *TasksHandler) Stats(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewAuthenticationError("No token, authorization denied")
	}

	stats, err := h.service.Stats(c.Context(), principal.User.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    stats,
	})
}

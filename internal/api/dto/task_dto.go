package dto

import (
	"time"

	"github.com/spec-kit/task-tracker/internal/domain"
)

// CreateTaskRequest payload for new tasks. Any owner field in the raw body
// is ignored; ownership is bound to the caller.
type CreateTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

// UpdateTaskRequest carries optional task fields; nil leaves the stored
// value untouched.
type UpdateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

// TaskResponse is the wire representation of a task.
type TaskResponse struct {
	ID          string    `json:"id"`
	Owner       string    `json:"user"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// NewTaskResponse projects a domain task.
func NewTaskResponse(task *domain.Task) TaskResponse {
	return TaskResponse{
		ID:          task.ID,
		Owner:       task.OwnerID,
		Title:       task.Title,
		Description: task.Description,
		Status:      string(task.Status),
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
}

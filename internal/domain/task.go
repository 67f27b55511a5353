package domain

import "time"

// TaskStatus enumerates lifecycle states for tasks.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in-progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

// StatusAll is the query sentinel meaning "no status filter".
const StatusAll = "all"

// Task belongs to exactly one owner for its entire lifetime.
type Task struct {
	ID          string
	OwnerID     string
	Title       string
	Description string
	Status      TaskStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

package events

import (
	"time"

	"github.com/spec-kit/task-tracker/internal/domain"
)

// EventType identifies a task lifecycle event.
type EventType string

const (
	EventTaskCreated EventType = "task.created"
	EventTaskUpdated EventType = "task.updated"
	EventTaskDeleted EventType = "task.deleted"
)

// Event is the envelope published on the dispatcher.
type Event struct {
	ID        string
	Type      EventType
	TaskID    string
	OwnerID   string
	Timestamp time.Time
	Payload   any
}

// TaskCreatedPayload describes a newly created task.
type TaskCreatedPayload struct {
	Title  string
	Status domain.TaskStatus
}

// TaskUpdatedPayload describes an in-place mutation.
type TaskUpdatedPayload struct {
	OldStatus domain.TaskStatus
	NewStatus domain.TaskStatus
	Title     string
}

// TaskDeletedPayload describes a hard delete.
type TaskDeletedPayload struct {
	Title string
}

package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/task-tracker/internal/domain"
	"github.com/spec-kit/task-tracker/internal/events"
	"github.com/spec-kit/task-tracker/internal/repository"
	apperrors "github.com/spec-kit/task-tracker/pkg/util"
)

const statsKeyPrefix = "task-tracker:stats:"

// TaskCreateInput describes task creation payload. Owner is never part of
// the input; it is bound to the caller.
type TaskCreateInput struct {
	Title       string
	Description string
	Status      domain.TaskStatus
}

// TaskUpdateInput carries optional fields; nil leaves the stored value untouched.
type TaskUpdateInput struct {
	Title       *string
	Description *string
	Status      *domain.TaskStatus
}

// TaskListFilter describes listing filters. Status nil means no filter.
type TaskListFilter struct {
	Search *string
	Status *domain.TaskStatus
}

// TaskStats aggregates per-status counts for the dashboard.
type TaskStats struct {
	Total      int64 `json:"total"`
	Pending    int64 `json:"pending"`
	InProgress int64 `json:"inProgress"`
	Completed  int64 `json:"completed"`
}

// TaskService coordinates owner-scoped task workflows.
type TaskService struct {
	tasks      repository.TaskRepository
	dispatcher events.Dispatcher
	cache      *redis.Client
	cacheTTL   time.Duration
}

// TaskDependencies bundles collaborators for the task service.
type TaskDependencies struct {
	TaskRepo   repository.TaskRepository
	Dispatcher events.Dispatcher
	Cache      *redis.Client
	CacheTTL   time.Duration
}

// NewTaskService constructs the service.
func NewTaskService(deps TaskDependencies) *TaskService {
	return &TaskService{
		tasks:      deps.TaskRepo,
		dispatcher: deps.Dispatcher,
		cache:      deps.Cache,
		cacheTTL:   deps.CacheTTL,
	}
}

// List returns the caller's tasks, newest first. Search matches the title
// case-insensitively as a literal substring.
func (s *TaskService) List(ctx context.Context, ownerID string, filter TaskListFilter) ([]domain.Task, error) {
	repoFilter := repository.TaskFilter{
		OwnerID:    ownerID,
		SearchTerm: filter.Search,
		Status:     filter.Status,
	}
	tasks, err := s.tasks.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	return tasks, nil
}

// Create persists a task owned by the caller.
func (s *TaskService) Create(ctx context.Context, ownerID string, input TaskCreateInput) (*domain.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("Please add a title")
	}

	task := &domain.Task{
		OwnerID:     ownerID,
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Status:      input.Status,
	}
	if task.Status == "" {
		task.Status = domain.TaskStatusPending
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:    events.EventTaskCreated,
		TaskID:  task.ID,
		OwnerID: ownerID,
		Payload: events.TaskCreatedPayload{
			Title:  task.Title,
			Status: task.Status,
		},
	})
	return task, nil
}

// Get fetches a task owned by the caller. A task owned by someone else is
// reported as missing, so foreign ids leak nothing.
func (s *TaskService) Get(ctx context.Context, ownerID, taskID string) (*domain.Task, error) {
	task, err := s.tasks.GetByIDForOwner(ctx, taskID, ownerID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("Task not found or you don't have permission to view it")
		}
		return nil, apperrors.MapError(err)
	}
	return task, nil
}

// Update applies supplied fields to a task the caller owns.
func (s *TaskService) Update(ctx context.Context, ownerID, taskID string, input TaskUpdateInput) (*domain.Task, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("Task not found")
		}
		return nil, apperrors.MapError(err)
	}
	if task.OwnerID != ownerID {
		return nil, apperrors.NewAuthorizationError("Not authorized to update this task")
	}

	oldStatus := task.Status
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, apperrors.NewValidationError("Please add a title")
		}
		task.Title = title
	}
	if input.Description != nil {
		task.Description = strings.TrimSpace(*input.Description)
	}
	if input.Status != nil {
		task.Status = *input.Status
	}

	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:    events.EventTaskUpdated,
		TaskID:  task.ID,
		OwnerID: ownerID,
		Payload: events.TaskUpdatedPayload{
			OldStatus: oldStatus,
			NewStatus: task.Status,
			Title:     task.Title,
		},
	})
	return task, nil
}

// Delete permanently removes a task the caller owns.
func (s *TaskService) Delete(ctx context.Context, ownerID, taskID string) error {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.NewNotFound("Task not found")
		}
		return apperrors.MapError(err)
	}
	if task.OwnerID != ownerID {
		return apperrors.NewAuthorizationError("Not authorized to delete this task")
	}

	if err := s.tasks.Delete(ctx, task.ID); err != nil {
		return apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:    events.EventTaskDeleted,
		TaskID:  task.ID,
		OwnerID: ownerID,
		Payload: events.TaskDeletedPayload{Title: task.Title},
	})
	return nil
}

// Stats returns per-status counts for the caller, cached briefly in Redis.
func (s *TaskService) Stats(ctx context.Context, ownerID string) (*TaskStats, error) {
	if cached := s.cachedStats(ctx, ownerID); cached != nil {
		return cached, nil
	}

	counts, err := s.tasks.CountByStatus(ctx, ownerID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	stats := &TaskStats{}
	for _, entry := range counts {
		stats.Total += entry.Count
		switch entry.Status {
		case domain.TaskStatusPending:
			stats.Pending = entry.Count
		case domain.TaskStatusInProgress:
			stats.InProgress = entry.Count
		case domain.TaskStatusCompleted:
			stats.Completed = entry.Count
		}
	}

	s.storeStats(ctx, ownerID, stats)
	return stats, nil
}

// InvalidateStats drops the cached counters for an owner.
func (s *TaskService) InvalidateStats(ctx context.Context, ownerID string) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Del(ctx, statsKeyPrefix+ownerID).Err()
}

func (s *TaskService) cachedStats(ctx context.Context, ownerID string) *TaskStats {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, statsKeyPrefix+ownerID).Bytes()
	if err != nil {
		return nil
	}
	var stats TaskStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return nil
	}
	return &stats
}

func (s *TaskService) storeStats(ctx context.Context, ownerID string, stats *TaskStats) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		return
	}
	_ = s.cache.Set(ctx, statsKeyPrefix+ownerID, raw, s.cacheTTL).Err()
}

func (s *TaskService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

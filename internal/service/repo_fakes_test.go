package service_test

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/task-tracker/internal/domain"
	"github.com/spec-kit/task-tracker/internal/repository"
)

// memUserRepo is an in-memory repository.UserRepository honoring the email
// unique index the real store carries.
type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]*domain.User)}
}

func (r *memUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}
		}
	}
	user.ID = uuid.NewString()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *memUserRepo) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	user.UpdatedAt = time.Now()
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *user
	return &clone, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memUserRepo) delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
}

// memTaskRepo is an in-memory repository.TaskRepository implementing the
// owner-scoped filter contract: literal case-insensitive title substring,
// exact status, newest first.
type memTaskRepo struct {
	mu    sync.Mutex
	tasks map[string]*domain.Task
	seq   int
}

func newMemTaskRepo() *memTaskRepo {
	return &memTaskRepo{tasks: make(map[string]*domain.Task)}
}

func (r *memTaskRepo) Create(_ context.Context, task *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !validStatus(task.Status) {
		return &pgconn.PgError{Code: "23514", ConstraintName: "tasks_status_check"}
	}
	task.ID = uuid.NewString()
	r.seq++
	// strictly increasing timestamps keep ordering deterministic
	task.CreatedAt = time.Now().Add(time.Duration(r.seq) * time.Millisecond)
	task.UpdatedAt = task.CreatedAt
	clone := *task
	r.tasks[task.ID] = &clone
	return nil
}

func (r *memTaskRepo) Update(_ context.Context, task *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[task.ID]; !ok {
		return pgx.ErrNoRows
	}
	if !validStatus(task.Status) {
		return &pgconn.PgError{Code: "23514", ConstraintName: "tasks_status_check"}
	}
	task.UpdatedAt = time.Now()
	clone := *task
	r.tasks[task.ID] = &clone
	return nil
}

func (r *memTaskRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.tasks, id)
	return nil
}

func (r *memTaskRepo) GetByID(_ context.Context, id string) (*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *task
	return &clone, nil
}

func (r *memTaskRepo) GetByIDForOwner(_ context.Context, id, ownerID string) (*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok || task.OwnerID != ownerID {
		return nil, pgx.ErrNoRows
	}
	clone := *task
	return &clone, nil
}

func (r *memTaskRepo) ListWithFilter(_ context.Context, filter repository.TaskFilter) ([]domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Task
	for _, task := range r.tasks {
		if task.OwnerID != filter.OwnerID {
			continue
		}
		if filter.Status != nil && task.Status != *filter.Status {
			continue
		}
		if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
			needle := strings.ToLower(strings.TrimSpace(*filter.SearchTerm))
			if !strings.Contains(strings.ToLower(task.Title), needle) {
				continue
			}
		}
		result = append(result, *task)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (r *memTaskRepo) CountByStatus(_ context.Context, ownerID string) ([]repository.StatusCount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[domain.TaskStatus]int64)
	for _, task := range r.tasks {
		if task.OwnerID == ownerID {
			counts[task.Status]++
		}
	}
	var result []repository.StatusCount
	for status, count := range counts {
		result = append(result, repository.StatusCount{Status: status, Count: count})
	}
	return result, nil
}

func validStatus(status domain.TaskStatus) bool {
	switch status {
	case domain.TaskStatusPending, domain.TaskStatusInProgress, domain.TaskStatusCompleted:
		return true
	}
	return false
}

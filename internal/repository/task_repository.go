package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/task-tracker/internal/domain"
)

// TaskFilter captures owner-scoped listing parameters.
type TaskFilter struct {
	OwnerID    string
	SearchTerm *string
	Status     *domain.TaskStatus
}

// StatusCount pairs a status with the number of matching tasks.
type StatusCount struct {
	Status domain.TaskStatus
	Count  int64
}

// TaskRepository encapsulates task persistence.
type TaskRepository interface {
	Create(ctx context.Context, task *domain.Task) error
	Update(ctx context.Context, task *domain.Task) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	GetByIDForOwner(ctx context.Context, id, ownerID string) (*domain.Task, error)
	ListWithFilter(ctx context.Context, filter TaskFilter) ([]domain.Task, error)
	CountByStatus(ctx context.Context, ownerID string) ([]StatusCount, error)
}

type taskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository instantiates repository.
func NewTaskRepository(pool *pgxpool.Pool) TaskRepository {
	return &taskRepository{pool: pool}
}

func (r *taskRepository) Create(ctx context.Context, task *domain.Task) error {
	const query = `
        INSERT INTO tasks (owner_id, title, description, status)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		task.OwnerID,
		task.Title,
		task.Description,
		task.Status,
	).Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt)
}

func (r *taskRepository) Update(ctx context.Context, task *domain.Task) error {
	const query = `
        UPDATE tasks SET title=$1, description=$2, status=$3, updated_at=NOW()
        WHERE id=$4
        RETURNING updated_at`
	return r.pool.QueryRow(ctx, query,
		task.Title,
		task.Description,
		task.Status,
		task.ID,
	).Scan(&task.UpdatedAt)
}

func (r *taskRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *taskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	const query = `
        SELECT id, owner_id, title, description, status, created_at, updated_at
        FROM tasks WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

// GetByIDForOwner scopes the lookup to the owner, so a foreign task is
// indistinguishable from a missing one.
func (r *taskRepository) GetByIDForOwner(ctx context.Context, id, ownerID string) (*domain.Task, error) {
	const query = `
        SELECT id, owner_id, title, description, status, created_at, updated_at
        FROM tasks WHERE id=$1 AND owner_id=$2`
	var task domain.Task
	if err := r.pool.QueryRow(ctx, query, id, ownerID).Scan(
		&task.ID,
		&task.OwnerID,
		&task.Title,
		&task.Description,
		&task.Status,
		&task.CreatedAt,
		&task.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *taskRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Task, error) {
	var task domain.Task
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&task.ID,
		&task.OwnerID,
		&task.Title,
		&task.Description,
		&task.Status,
		&task.CreatedAt,
		&task.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *taskRepository) ListWithFilter(ctx context.Context, filter TaskFilter) ([]domain.Task, error) {
	base := `SELECT id, owner_id, title, description, status, created_at, updated_at
             FROM tasks`
	clauses := []string{"owner_id=$1"}
	args := []any{filter.OwnerID}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		args = append(args, "%"+EscapeLike(strings.TrimSpace(*filter.SearchTerm))+"%")
		clauses = append(clauses, fmt.Sprintf(`title ILIKE $%d ESCAPE '\'`, len(args)))
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY created_at DESC`,
		base, strings.Join(clauses, " AND "))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTasks(rows)
}

func (r *taskRepository) CountByStatus(ctx context.Context, ownerID string) ([]StatusCount, error) {
	const query = `
        SELECT status, COUNT(*) FROM tasks
        WHERE owner_id=$1 GROUP BY status`
	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []StatusCount
	for rows.Next() {
		var entry StatusCount
		if err := rows.Scan(&entry.Status, &entry.Count); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

func scanTasks(rows pgx.Rows) ([]domain.Task, error) {
	var result []domain.Task
	for rows.Next() {
		var task domain.Task
		if err := rows.Scan(
			&task.ID,
			&task.OwnerID,
			&task.Title,
			&task.Description,
			&task.Status,
			&task.CreatedAt,
			&task.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, task)
	}
	return result, rows.Err()
}

// EscapeLike neutralizes LIKE metacharacters so user search terms match
// literally instead of acting as patterns.
func EscapeLike(term string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(term)
}

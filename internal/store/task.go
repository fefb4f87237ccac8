package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/tasklist/apiserver/types"
)

// TaskRepository handles persistence for tasks. Every lookup is scoped by
// owner so a task belonging to another user reads as ErrNotFound.
type TaskRepository struct {
	db *sql.DB
}

func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) ListByOwner(ctx context.Context, ownerID int) ([]types.Task, error) {
	const query = `
		SELECT id, content, completed, created_at, owner_id
		FROM tasks
		WHERE owner_id = $1
		ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]types.Task, 0)
	for rows.Next() {
		var task types.Task
		if err := rows.Scan(
			&task.ID,
			&task.Content,
			&task.Completed,
			&task.CreatedAt,
			&task.OwnerID,
		); err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return tasks, nil
}

func (r *TaskRepository) Get(ctx context.Context, ownerID, id int) (types.Task, error) {
	const query = `
		SELECT id, content, completed, created_at, owner_id
		FROM tasks
		WHERE id = $1 AND owner_id = $2`
	var task types.Task
	err := r.db.QueryRowContext(ctx, query, id, ownerID).Scan(
		&task.ID,
		&task.Content,
		&task.Completed,
		&task.CreatedAt,
		&task.OwnerID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Task{}, ErrNotFound
		}
		return types.Task{}, translate(err)
	}
	return task, nil
}

func (r *TaskRepository) Create(ctx context.Context, task types.Task) (types.Task, error) {
	task.CreatedAt = time.Now().UTC()

	const query = `
		INSERT INTO tasks (content, completed, created_at, owner_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		task.Content,
		task.Completed,
		task.CreatedAt,
		task.OwnerID,
	).Scan(&task.ID); err != nil {
		return types.Task{}, translate(err)
	}
	return task, nil
}

// Update applies the non-nil fields of patch in a single statement.
func (r *TaskRepository) Update(ctx context.Context, ownerID, id int, patch types.TaskPatch) (types.Task, error) {
	const query = `
		UPDATE tasks
		SET content = COALESCE($1, content),
			completed = COALESCE($2, completed)
		WHERE id = $3 AND owner_id = $4
		RETURNING id, content, completed, created_at, owner_id`

	var content sql.NullString
	if patch.Content != nil {
		content = sql.NullString{String: *patch.Content, Valid: true}
	}
	var completed sql.NullBool
	if patch.Completed != nil {
		completed = sql.NullBool{Bool: *patch.Completed, Valid: true}
	}

	var task types.Task
	err := r.db.QueryRowContext(ctx, query, content, completed, id, ownerID).Scan(
		&task.ID,
		&task.Content,
		&task.Completed,
		&task.CreatedAt,
		&task.OwnerID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Task{}, ErrNotFound
		}
		return types.Task{}, translate(err)
	}
	return task, nil
}

func (r *TaskRepository) Delete(ctx context.Context, ownerID, id int) error {
	const query = `DELETE FROM tasks WHERE id = $1 AND owner_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, ownerID)
	if err != nil {
		return translate(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

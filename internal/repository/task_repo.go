package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/SINTT/TODO/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const taskColumns = `id, title, description, priority, status, created_by, creator_role, assigned_to, created_at, due_date`

type TaskRepository struct {
	db *pgxpool.Pool
}

func NewTaskRepository(db *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create inserts t; the id comes from the BIGSERIAL sequence so concurrent
// inserts never share one.
func (r *TaskRepository) Create(ctx context.Context, t *domain.Task) error {
	return r.db.QueryRow(ctx,
		`INSERT INTO tasks (title, description, priority, status, created_by, creator_role, assigned_to, created_at, due_date)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		t.Title,
		t.Description,
		string(t.Priority),
		string(t.Status),
		t.CreatedBy,
		string(t.CreatorRole),
		t.AssignedTo,
		t.CreatedAt,
		t.DueDate,
	).Scan(&t.ID)
}

func (r *TaskRepository) GetByID(ctx context.Context, id int64) (*domain.Task, error) {
	t, err := scanTask(r.db.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("task %d: %w", id, domain.ErrNotFound)
	}
	return t, err
}

func (r *TaskRepository) List(ctx context.Context) ([]*domain.Task, error) {
	rows, err := r.db.Query(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := make([]*domain.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

// Mutate locks the row, lets fn change status/assignee and commits. fn
// returning an error rolls everything back.
func (r *TaskRepository) Mutate(ctx context.Context, id int64, fn func(t *domain.Task) error) (*domain.Task, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	t, err := lockTask(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(t); err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE tasks SET status = $1, assigned_to = $2 WHERE id = $3`,
		string(t.Status), t.AssignedTo, id,
	); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return t, nil
}

// Delete locks the row, runs check and removes it.
func (r *TaskRepository) Delete(ctx context.Context, id int64, check func(t *domain.Task) error) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	t, err := lockTask(ctx, tx, id)
	if err != nil {
		return err
	}
	if err := check(t); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func lockTask(ctx context.Context, tx pgx.Tx, id int64) (*domain.Task, error) {
	t, err := scanTask(tx.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("task %d: %w", id, domain.ErrNotFound)
	}
	return t, err
}

func scanTask(row pgx.Row) (*domain.Task, error) {
	var (
		t                        domain.Task
		priority, status, crRole string
	)
	if err := row.Scan(
		&t.ID,
		&t.Title,
		&t.Description,
		&priority,
		&status,
		&t.CreatedBy,
		&crRole,
		&t.AssignedTo,
		&t.CreatedAt,
		&t.DueDate,
	); err != nil {
		return nil, err
	}
	t.Priority = domain.Priority(priority)
	t.Status = domain.Status(status)
	t.CreatorRole = domain.Role(crRole)
	return &t, nil
}

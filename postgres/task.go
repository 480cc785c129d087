package postgres

import (
	"context"
	"fmt"

	"github.com/meikuraledutech/taskdep"
)

// CreateTask inserts a single task.
// Returns taskdep.ErrDuplicateTask on a primary-key conflict.
func (s *Store) CreateTask(ctx context.Context, t *taskdep.Task) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO tasks (id, status, priority, completeness) VALUES ($1, $2, $3, $4)`,
		t.ID, t.Status, t.Priority, t.Completeness,
	)
	if err != nil {
		if pgErrCode(err) == codeUniqueViolation {
			return fmt.Errorf("%w: %s", taskdep.ErrDuplicateTask, t.ID)
		}
		return fmt.Errorf("taskdep: insert task: %w", err)
	}
	return nil
}

// GetTask fetches a single task by ID.
// Returns nil, nil if not found.
func (s *Store) GetTask(ctx context.Context, id string) (*taskdep.Task, error) {
	var t taskdep.Task
	err := s.db.QueryRow(ctx,
		`SELECT id, status, priority, completeness FROM tasks WHERE id = $1`, id,
	).Scan(&t.ID, &t.Status, &t.Priority, &t.Completeness)

	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("taskdep: get task: %w", err)
	}

	return &t, nil
}

// UpdateTask updates the mutable attributes of an existing task.
// Returns taskdep.ErrTaskNotFound if the task doesn't exist.
func (s *Store) UpdateTask(ctx context.Context, t *taskdep.Task) error {
	ct, err := s.db.Exec(ctx,
		`UPDATE tasks SET status = $1, priority = $2, completeness = $3 WHERE id = $4`,
		t.Status, t.Priority, t.Completeness, t.ID,
	)
	if err != nil {
		return fmt.Errorf("taskdep: update task: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", taskdep.ErrTaskNotFound, t.ID)
	}
	return nil
}

// DeleteTask deletes a task by ID. Edges referencing it are cascade-deleted
// by the DB; override records are untouched.
// Returns taskdep.ErrTaskNotFound if the task doesn't exist.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	ct, err := s.db.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("taskdep: delete task: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", taskdep.ErrTaskNotFound, id)
	}
	return nil
}

// ListTasks returns all tasks, ordered by created_at.
// Returns an empty slice (not nil) if none found.
func (s *Store) ListTasks(ctx context.Context) ([]taskdep.Task, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, status, priority, completeness FROM tasks ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("taskdep: list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []taskdep.Task{}
	for rows.Next() {
		var t taskdep.Task
		if err := rows.Scan(&t.ID, &t.Status, &t.Priority, &t.Completeness); err != nil {
			return nil, fmt.Errorf("taskdep: scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("taskdep: rows tasks: %w", err)
	}

	return tasks, nil
}

package postgres

import (
	"context"
	"fmt"

	"github.com/meikuraledutech/taskdep"
)

const dependencyColumns = `id, source_task_id, target_task_id, dependency_type, lag_hours, hard_block, status`

// CreateDependency inserts a single edge. Cycle validation is the Engine's
// job; the schema still backstops the uniqueness and self-loop invariants.
// Returns taskdep.ErrDuplicateEdge on a (source, target, type) conflict and
// taskdep.ErrTaskNotFound when an endpoint task is missing.
func (s *Store) CreateDependency(ctx context.Context, d *taskdep.Dependency) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO task_dependencies (id, source_task_id, target_task_id, dependency_type, lag_hours, hard_block, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		d.ID, d.SourceTaskID, d.TargetTaskID, d.Type, d.LagHours, d.HardBlock, d.Status,
	)
	if err != nil {
		switch pgErrCode(err) {
		case codeUniqueViolation:
			return fmt.Errorf("%w: %s -> %s (%s)", taskdep.ErrDuplicateEdge, d.SourceTaskID, d.TargetTaskID, d.Type)
		case codeForeignKeyViolation:
			return fmt.Errorf("%w: %s or %s", taskdep.ErrTaskNotFound, d.SourceTaskID, d.TargetTaskID)
		}
		return fmt.Errorf("taskdep: insert dependency: %w", err)
	}
	return nil
}

// GetDependency fetches a single edge by ID.
// Returns nil, nil if not found.
func (s *Store) GetDependency(ctx context.Context, id string) (*taskdep.Dependency, error) {
	var d taskdep.Dependency
	err := s.db.QueryRow(ctx,
		`SELECT `+dependencyColumns+` FROM task_dependencies WHERE id = $1`, id,
	).Scan(&d.ID, &d.SourceTaskID, &d.TargetTaskID, &d.Type, &d.LagHours, &d.HardBlock, &d.Status)

	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("taskdep: get dependency: %w", err)
	}

	return &d, nil
}

// DeleteDependency deletes an edge by ID.
// Returns taskdep.ErrEdgeNotFound if the edge doesn't exist.
func (s *Store) DeleteDependency(ctx context.Context, id string) error {
	ct, err := s.db.Exec(ctx, `DELETE FROM task_dependencies WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("taskdep: delete dependency: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", taskdep.ErrEdgeNotFound, id)
	}
	return nil
}

// ListDependencies returns all edges, ordered by created_at.
// Returns an empty slice (not nil) if none found.
func (s *Store) ListDependencies(ctx context.Context) ([]taskdep.Dependency, error) {
	return s.queryDependencies(ctx,
		`SELECT `+dependencyColumns+` FROM task_dependencies ORDER BY created_at, id`)
}

// DependenciesOf returns the edges targeting taskID, ordered by created_at.
func (s *Store) DependenciesOf(ctx context.Context, taskID string) ([]taskdep.Dependency, error) {
	return s.queryDependencies(ctx,
		`SELECT `+dependencyColumns+` FROM task_dependencies WHERE target_task_id = $1 ORDER BY created_at, id`,
		taskID)
}

// DependentsOf returns the edges sourced at taskID, ordered by created_at.
func (s *Store) DependentsOf(ctx context.Context, taskID string) ([]taskdep.Dependency, error) {
	return s.queryDependencies(ctx,
		`SELECT `+dependencyColumns+` FROM task_dependencies WHERE source_task_id = $1 ORDER BY created_at, id`,
		taskID)
}

func (s *Store) queryDependencies(ctx context.Context, sql string, args ...any) ([]taskdep.Dependency, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("taskdep: query dependencies: %w", err)
	}
	defer rows.Close()

	deps := []taskdep.Dependency{}
	for rows.Next() {
		var d taskdep.Dependency
		if err := rows.Scan(&d.ID, &d.SourceTaskID, &d.TargetTaskID, &d.Type, &d.LagHours, &d.HardBlock, &d.Status); err != nil {
			return nil, fmt.Errorf("taskdep: scan dependency: %w", err)
		}
		deps = append(deps, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("taskdep: rows dependencies: %w", err)
	}

	return deps, nil
}

// SetDependencyStatus applies a compare-and-set status transition. The WHERE
// clause carries the expected current status, so a concurrent transition
// loses cleanly instead of double-applying.
// Returns taskdep.ErrEdgeNotFound if the edge is absent and
// taskdep.ErrInvalidState if it holds any other status.
func (s *Store) SetDependencyStatus(ctx context.Context, id string, from, to taskdep.DependencyStatus) error {
	ct, err := s.db.Exec(ctx,
		`UPDATE task_dependencies SET status = $1 WHERE id = $2 AND status = $3`,
		to, id, from,
	)
	if err != nil {
		return fmt.Errorf("taskdep: set dependency status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		d, err := s.GetDependency(ctx, id)
		if err != nil {
			return err
		}
		if d == nil {
			return fmt.Errorf("%w: %s", taskdep.ErrEdgeNotFound, id)
		}
		return fmt.Errorf("%w: dependency %s is %s, want %s", taskdep.ErrInvalidState, id, d.Status, from)
	}
	return nil
}

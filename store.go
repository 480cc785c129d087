package taskdep

import "context"

// Store defines the contract for persisting tasks and dependency edges.
//
// Stores are dumb: they enforce referential integrity (cascade edge removal
// with their task, unique (source, target, type) triples) but know nothing
// about cycles or overrides. All graph-level validation lives in the Engine,
// which serializes mutations so that a store never sees a conflicting
// interleaving. Implementations must apply each call atomically with respect
// to concurrent readers.
type Store interface {
	// Schema
	CreateSchema(ctx context.Context) error
	DropSchema(ctx context.Context) error

	// Tasks
	CreateTask(ctx context.Context, t *Task) error
	GetTask(ctx context.Context, id string) (*Task, error) // nil, nil if not found
	UpdateTask(ctx context.Context, t *Task) error
	// DeleteTask removes the task and cascades removal of every edge where
	// it is source or target. Returns ErrTaskNotFound if absent.
	DeleteTask(ctx context.Context, id string) error
	ListTasks(ctx context.Context) ([]Task, error)

	// Dependencies
	CreateDependency(ctx context.Context, d *Dependency) error
	GetDependency(ctx context.Context, id string) (*Dependency, error) // nil, nil if not found
	DeleteDependency(ctx context.Context, id string) error
	ListDependencies(ctx context.Context) ([]Dependency, error)
	// DependenciesOf returns edges targeting taskID (what it depends on).
	DependenciesOf(ctx context.Context, taskID string) ([]Dependency, error)
	// DependentsOf returns edges sourced at taskID (what depends on it).
	DependentsOf(ctx context.Context, taskID string) ([]Dependency, error)
	// SetDependencyStatus is a compare-and-set: the transition applies only
	// if the edge currently holds status from. Returns ErrEdgeNotFound if the
	// edge is absent, ErrInvalidState if it is in any other status.
	SetDependencyStatus(ctx context.Context, id string, from, to DependencyStatus) error
}

// Package memory provides in-memory implementations of taskdep.Store and
// taskdep.AuditSink. They back the example program and tests, and suit
// embedding the engine without a database.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/meikuraledutech/taskdep"
)

// Store is an in-memory taskdep.Store. Safe for concurrent use; every method
// applies atomically under an internal lock, so readers never observe a
// half-applied mutation.
type Store struct {
	mu        sync.RWMutex
	tasks     map[string]taskdep.Task
	edges     map[string]taskdep.Dependency
	taskOrder []string
	edgeOrder []string
}

// NewStore returns an empty Store.
func NewStore() *Store {
	s := &Store{}
	s.reset()
	return s
}

func (s *Store) reset() {
	s.tasks = make(map[string]taskdep.Task)
	s.edges = make(map[string]taskdep.Dependency)
	s.taskOrder = nil
	s.edgeOrder = nil
}

// CreateSchema resets the store to empty.
func (s *Store) CreateSchema(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
	return nil
}

// DropSchema resets the store to empty.
func (s *Store) DropSchema(ctx context.Context) error {
	return s.CreateSchema(ctx)
}

func (s *Store) CreateTask(ctx context.Context, t *taskdep.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[t.ID]; ok {
		return fmt.Errorf("%w: %s", taskdep.ErrDuplicateTask, t.ID)
	}
	s.tasks[t.ID] = *t
	s.taskOrder = append(s.taskOrder, t.ID)
	return nil
}

func (s *Store) GetTask(ctx context.Context, id string) (*taskdep.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (s *Store) UpdateTask(ctx context.Context, t *taskdep.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[t.ID]; !ok {
		return fmt.Errorf("%w: %s", taskdep.ErrTaskNotFound, t.ID)
	}
	s.tasks[t.ID] = *t
	return nil
}

// DeleteTask removes the task and cascades removal of every edge where it is
// source or target, mirroring a relational ON DELETE CASCADE.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return fmt.Errorf("%w: %s", taskdep.ErrTaskNotFound, id)
	}
	delete(s.tasks, id)
	s.taskOrder = remove(s.taskOrder, id)

	var keep []string
	for _, eid := range s.edgeOrder {
		e := s.edges[eid]
		if e.SourceTaskID == id || e.TargetTaskID == id {
			delete(s.edges, eid)
			continue
		}
		keep = append(keep, eid)
	}
	s.edgeOrder = keep
	return nil
}

func (s *Store) ListTasks(ctx context.Context) ([]taskdep.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]taskdep.Task, 0, len(s.taskOrder))
	for _, id := range s.taskOrder {
		out = append(out, s.tasks[id])
	}
	return out, nil
}

func (s *Store) CreateDependency(ctx context.Context, d *taskdep.Dependency) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.edges[d.ID]; ok {
		return fmt.Errorf("%w: %s", taskdep.ErrDuplicateEdge, d.ID)
	}
	for _, eid := range s.edgeOrder {
		e := s.edges[eid]
		if e.SourceTaskID == d.SourceTaskID && e.TargetTaskID == d.TargetTaskID && e.Type == d.Type {
			return fmt.Errorf("%w: %s -> %s (%s)", taskdep.ErrDuplicateEdge, d.SourceTaskID, d.TargetTaskID, d.Type)
		}
	}
	s.edges[d.ID] = *d
	s.edgeOrder = append(s.edgeOrder, d.ID)
	return nil
}

func (s *Store) GetDependency(ctx context.Context, id string) (*taskdep.Dependency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.edges[id]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (s *Store) DeleteDependency(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.edges[id]; !ok {
		return fmt.Errorf("%w: %s", taskdep.ErrEdgeNotFound, id)
	}
	delete(s.edges, id)
	s.edgeOrder = remove(s.edgeOrder, id)
	return nil
}

func (s *Store) ListDependencies(ctx context.Context) ([]taskdep.Dependency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]taskdep.Dependency, 0, len(s.edgeOrder))
	for _, id := range s.edgeOrder {
		out = append(out, s.edges[id])
	}
	return out, nil
}

func (s *Store) DependenciesOf(ctx context.Context, taskID string) ([]taskdep.Dependency, error) {
	return s.filter(func(d taskdep.Dependency) bool { return d.TargetTaskID == taskID })
}

func (s *Store) DependentsOf(ctx context.Context, taskID string) ([]taskdep.Dependency, error) {
	return s.filter(func(d taskdep.Dependency) bool { return d.SourceTaskID == taskID })
}

func (s *Store) filter(match func(taskdep.Dependency) bool) ([]taskdep.Dependency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []taskdep.Dependency{}
	for _, id := range s.edgeOrder {
		if d := s.edges[id]; match(d) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *Store) SetDependencyStatus(ctx context.Context, id string, from, to taskdep.DependencyStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.edges[id]
	if !ok {
		return fmt.Errorf("%w: %s", taskdep.ErrEdgeNotFound, id)
	}
	if d.Status != from {
		return fmt.Errorf("%w: dependency %s is %s, want %s", taskdep.ErrInvalidState, id, d.Status, from)
	}
	d.Status = to
	s.edges[id] = d
	return nil
}

func remove(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

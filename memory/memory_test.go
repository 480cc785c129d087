package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/meikuraledutech/taskdep"
)

func task(id string) *taskdep.Task {
	return &taskdep.Task{ID: id, Status: taskdep.StatusPending, Priority: taskdep.PriorityMedium}
}

func edge(id, source, target string) *taskdep.Dependency {
	return &taskdep.Dependency{
		ID:           id,
		SourceTaskID: source,
		TargetTaskID: target,
		Type:         taskdep.FinishToStart,
		Status:       taskdep.DepActive,
	}
}

func TestStore_TaskCRUD(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	if err := s.CreateTask(ctx, task("a")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.CreateTask(ctx, task("a")); !errors.Is(err, taskdep.ErrDuplicateTask) {
		t.Errorf("expected ErrDuplicateTask, got %v", err)
	}

	got, err := s.GetTask(ctx, "a")
	if err != nil || got == nil {
		t.Fatalf("get: %v, %v", got, err)
	}
	if missing, err := s.GetTask(ctx, "nope"); err != nil || missing != nil {
		t.Errorf("expected nil, nil for missing task, got %v, %v", missing, err)
	}

	got.Completeness = 40
	if err := s.UpdateTask(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	back, _ := s.GetTask(ctx, "a")
	if back.Completeness != 40 {
		t.Errorf("update not applied: %+v", back)
	}

	if err := s.UpdateTask(ctx, task("nope")); !errors.Is(err, taskdep.ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}
	if err := s.DeleteTask(ctx, "nope"); !errors.Is(err, taskdep.ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestStore_DeleteTaskCascades(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	for _, id := range []string{"a", "b", "c"} {
		if err := s.CreateTask(ctx, task(id)); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}
	for _, e := range []*taskdep.Dependency{
		edge("e1", "a", "b"), edge("e2", "b", "c"), edge("e3", "a", "c"),
	} {
		if err := s.CreateDependency(ctx, e); err != nil {
			t.Fatalf("create edge %s: %v", e.ID, err)
		}
	}

	if err := s.DeleteTask(ctx, "b"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	left, err := s.ListDependencies(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(left) != 1 || left[0].ID != "e3" {
		t.Errorf("expected only e3 to survive, got %v", left)
	}
}

func TestStore_DuplicateTriple(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	for _, id := range []string{"a", "b"} {
		if err := s.CreateTask(ctx, task(id)); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}
	if err := s.CreateDependency(ctx, edge("e1", "a", "b")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.CreateDependency(ctx, edge("e2", "a", "b")); !errors.Is(err, taskdep.ErrDuplicateEdge) {
		t.Errorf("expected ErrDuplicateEdge, got %v", err)
	}

	other := edge("e3", "a", "b")
	other.Type = taskdep.StartToStart
	if err := s.CreateDependency(ctx, other); err != nil {
		t.Errorf("different type should be a distinct triple: %v", err)
	}
}

func TestStore_DirectionalQueries(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	for _, id := range []string{"a", "b", "c"} {
		if err := s.CreateTask(ctx, task(id)); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}
	if err := s.CreateDependency(ctx, edge("e1", "a", "b")); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateDependency(ctx, edge("e2", "b", "c")); err != nil {
		t.Fatal(err)
	}

	in, err := s.DependenciesOf(ctx, "b")
	if err != nil || len(in) != 1 || in[0].ID != "e1" {
		t.Errorf("DependenciesOf(b): %v, %v", in, err)
	}
	out, err := s.DependentsOf(ctx, "b")
	if err != nil || len(out) != 1 || out[0].ID != "e2" {
		t.Errorf("DependentsOf(b): %v, %v", out, err)
	}
	none, err := s.DependenciesOf(ctx, "ghost")
	if err != nil || len(none) != 0 {
		t.Errorf("missing task should yield empty, got %v, %v", none, err)
	}
}

func TestStore_SetDependencyStatusCAS(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	for _, id := range []string{"a", "b"} {
		if err := s.CreateTask(ctx, task(id)); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.CreateDependency(ctx, edge("e1", "a", "b")); err != nil {
		t.Fatal(err)
	}

	if err := s.SetDependencyStatus(ctx, "e1", taskdep.DepActive, taskdep.DepOverridden); err != nil {
		t.Fatalf("cas: %v", err)
	}
	// Second transition from ACTIVE must lose.
	err := s.SetDependencyStatus(ctx, "e1", taskdep.DepActive, taskdep.DepResolved)
	if !errors.Is(err, taskdep.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}
	if err := s.SetDependencyStatus(ctx, "ghost", taskdep.DepActive, taskdep.DepResolved); !errors.Is(err, taskdep.ErrEdgeNotFound) {
		t.Errorf("expected ErrEdgeNotFound, got %v", err)
	}
}

func TestAuditSink_AppendOnly(t *testing.T) {
	ctx := context.Background()
	a := NewAuditSink()

	rec := &taskdep.OverrideRecord{ID: "r1", DependencyID: "e1", Reason: "hotfix", OverriddenBy: "alice"}
	id, err := a.Append(ctx, rec)
	if err != nil || id != "r1" {
		t.Fatalf("append: %v, %v", id, err)
	}
	// Mutating the caller's copy must not affect the stored record.
	rec.Reason = "changed"

	all, err := a.List(ctx)
	if err != nil || len(all) != 1 {
		t.Fatalf("list: %v, %v", all, err)
	}
	if all[0].Reason != "hotfix" {
		t.Errorf("stored record mutated: %+v", all[0])
	}

	byDep, err := a.ListForDependency(ctx, "e1")
	if err != nil || len(byDep) != 1 {
		t.Errorf("ListForDependency: %v, %v", byDep, err)
	}
	empty, err := a.ListForDependency(ctx, "other")
	if err != nil || len(empty) != 0 {
		t.Errorf("expected empty for unknown edge, got %v, %v", empty, err)
	}
}

package taskdep

import (
	"errors"
	"reflect"
	"testing"
)

func prioTask(id string, p Priority) Task {
	return Task{ID: id, Status: StatusPending, Priority: p}
}

func TestTopoSort_RespectsEdges(t *testing.T) {
	snap := newSnapshot(tasksByID("t1", "t2", "t3", "t4"), []Dependency{
		activeEdge("t1", "t2"),
		activeEdge("t2", "t3"),
		activeEdge("t1", "t4"),
	})

	order, err := topoSort(snap, []string{"t4", "t3", "t2", "t1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(order) != 4 {
		t.Fatalf("expected 4 tasks, got %v", order)
	}

	pos := map[string]int{}
	for i, id := range order {
		pos[id] = i
	}
	for _, e := range [][2]string{{"t1", "t2"}, {"t2", "t3"}, {"t1", "t4"}} {
		if pos[e[0]] >= pos[e[1]] {
			t.Errorf("edge %s -> %s violated in %v", e[0], e[1], order)
		}
	}
}

func TestTopoSort_PriorityTieBreak(t *testing.T) {
	// t1..t5 with priorities critical, low, high, medium, critical.
	// Edges: t1->t3, t2->t3, t3->t4, t3->t5.
	tasks := []Task{
		prioTask("t1", PriorityCritical),
		prioTask("t2", PriorityLow),
		prioTask("t3", PriorityHigh),
		prioTask("t4", PriorityMedium),
		prioTask("t5", PriorityCritical),
	}
	snap := newSnapshot(tasks, []Dependency{
		activeEdge("t1", "t3"),
		activeEdge("t2", "t3"),
		activeEdge("t3", "t4"),
		activeEdge("t3", "t5"),
	})

	order, err := topoSort(snap, []string{"t1", "t2", "t3", "t4", "t5"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pos := map[string]int{}
	for i, id := range order {
		pos[id] = i
	}
	// t1 and t2 both start at in-degree zero; t1 is critical so it goes first.
	if pos["t1"] >= pos["t2"] {
		t.Errorf("expected t1 before t2, got %v", order)
	}
	if pos["t3"] <= pos["t1"] || pos["t3"] <= pos["t2"] {
		t.Errorf("expected t3 after t1 and t2, got %v", order)
	}
	if pos["t4"] <= pos["t3"] || pos["t5"] <= pos["t3"] {
		t.Errorf("expected t4 and t5 after t3, got %v", order)
	}
	// t5 is critical, t4 medium: once both are ready, t5 wins.
	if pos["t5"] >= pos["t4"] {
		t.Errorf("expected t5 before t4, got %v", order)
	}
}

func TestTopoSort_IDTieBreak(t *testing.T) {
	// Same priority everywhere: order falls back to id ascending.
	snap := newSnapshot(tasksByID("c", "a", "b"), nil)
	order, err := topoSort(snap, []string{"c", "a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("expected %v, got %v", want, order)
	}
}

func TestTopoSort_Deterministic(t *testing.T) {
	tasks := []Task{
		prioTask("n1", PriorityHigh),
		prioTask("n2", PriorityHigh),
		prioTask("n3", PriorityLow),
		prioTask("n4", PriorityCritical),
		prioTask("n5", PriorityMedium),
	}
	snap := newSnapshot(tasks, []Dependency{
		activeEdge("n4", "n1"),
		activeEdge("n4", "n2"),
		activeEdge("n1", "n3"),
	})
	subset := []string{"n5", "n4", "n3", "n2", "n1"}

	first, err := topoSort(snap, subset)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 20; i++ {
		again, err := topoSort(snap, subset)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("nondeterministic order: %v vs %v", first, again)
		}
	}
}

func TestTopoSort_SubsetIgnoresOutsideEdges(t *testing.T) {
	// t2 depends on t1, but t1 is outside the subset: t2 is a root there.
	snap := newSnapshot(tasksByID("t1", "t2", "t3"), []Dependency{
		activeEdge("t1", "t2"),
		activeEdge("t2", "t3"),
	})
	order, err := topoSort(snap, []string{"t2", "t3"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"t2", "t3"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("expected %v, got %v", want, order)
	}
}

func TestTopoSort_EmptySubset(t *testing.T) {
	snap := newSnapshot(tasksByID("t1"), nil)
	if _, err := topoSort(snap, nil); !errors.Is(err, ErrEmptySubset) {
		t.Errorf("expected ErrEmptySubset, got %v", err)
	}
}

func TestTopoSort_UnknownTask(t *testing.T) {
	snap := newSnapshot(tasksByID("t1"), nil)
	if _, err := topoSort(snap, []string{"t1", "ghost"}); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestTopoSort_DuplicateIDsCollapsed(t *testing.T) {
	snap := newSnapshot(tasksByID("t1", "t2"), []Dependency{activeEdge("t1", "t2")})
	order, err := topoSort(snap, []string{"t1", "t2", "t1", "t2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"t1", "t2"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("expected %v, got %v", want, order)
	}
}

func TestTopoSort_InconsistentGraph(t *testing.T) {
	// A committed cycle can only come from data corruption; the scheduler
	// must report it instead of truncating the order.
	snap := newSnapshot(tasksByID("t1", "t2", "t3"), []Dependency{
		activeEdge("t1", "t2"),
		activeEdge("t2", "t1"),
		activeEdge("t2", "t3"),
	})

	_, err := topoSort(snap, []string{"t1", "t2", "t3"})
	var incon *InconsistentGraphError
	if !errors.As(err, &incon) {
		t.Fatalf("expected InconsistentGraphError, got %v", err)
	}
	if !reflect.DeepEqual(incon.Remaining, []string{"t1", "t2", "t3"}) {
		t.Errorf("expected remaining [t1 t2 t3], got %v", incon.Remaining)
	}
}

package taskdep

import "sort"

// snapshot is an immutable adjacency view of the committed graph. The Engine
// builds one under its writer lock and hands it to the pure cycle/ordering
// functions, which never touch the store directly.
//
// Only ACTIVE edges appear in the adjacency maps: OVERRIDDEN and RESOLVED
// edges no longer constrain the graph.
type snapshot struct {
	tasks map[string]Task
	out   map[string][]Dependency // source -> active outgoing edges
	in    map[string][]Dependency // target -> active incoming edges
}

func newSnapshot(tasks []Task, edges []Dependency) *snapshot {
	s := &snapshot{
		tasks: make(map[string]Task, len(tasks)),
		out:   make(map[string][]Dependency),
		in:    make(map[string][]Dependency),
	}
	for _, t := range tasks {
		s.tasks[t.ID] = t
	}
	for _, e := range edges {
		if e.Status != DepActive {
			continue
		}
		s.out[e.SourceTaskID] = append(s.out[e.SourceTaskID], e)
		s.in[e.TargetTaskID] = append(s.in[e.TargetTaskID], e)
	}
	return s
}

// depthBound is the traversal hop limit: 100 or the task count, whichever is
// larger. Tripping it means either a cycle slipped into committed state or
// the graph is pathologically deep; both are treated as fail-safe rejections.
func (s *snapshot) depthBound() int {
	if n := len(s.tasks); n > 100 {
		return n
	}
	return 100
}

// forwardReachable returns every task reachable from start (inclusive) by
// following active edges source -> target, sorted ascending for determinism.
func (s *snapshot) forwardReachable(start string) []string {
	seen := map[string]bool{start: true}
	queue := []string{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, e := range s.out[cur] {
			if !seen[e.TargetTaskID] {
				seen[e.TargetTaskID] = true
				queue = append(queue, e.TargetTaskID)
			}
		}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

package taskdep

import "container/heap"

// readyHeap orders zero-in-degree candidates by priority rank (critical
// first) with ties broken by task id ascending, which makes the schedule
// deterministic for a fixed graph.
type readyHeap struct {
	ids  []string
	rank map[string]int
}

func (h *readyHeap) Len() int { return len(h.ids) }

func (h *readyHeap) Less(i, j int) bool {
	a, b := h.ids[i], h.ids[j]
	if h.rank[a] != h.rank[b] {
		return h.rank[a] < h.rank[b]
	}
	return a < b
}

func (h *readyHeap) Swap(i, j int) { h.ids[i], h.ids[j] = h.ids[j], h.ids[i] }

func (h *readyHeap) Push(x any) { h.ids = append(h.ids, x.(string)) }

func (h *readyHeap) Pop() any {
	last := len(h.ids) - 1
	id := h.ids[last]
	h.ids = h.ids[:last]
	return id
}

// topoSort runs Kahn's algorithm over the subset of tasks, honoring every
// active edge whose endpoints both fall inside the subset. Duplicate ids in
// the subset are collapsed.
//
// Guarantees: every subset task appears exactly once in the result, and for
// every active edge (a -> b) inside the subset, a precedes b. If tasks remain
// unorderable after the ready queue drains, the committed graph holds a cycle
// and InconsistentGraphError lists the leftovers — that path is unreachable
// as long as inserts are validated, but it must never be silently truncated.
func topoSort(s *snapshot, subset []string) ([]string, error) {
	if len(subset) == 0 {
		return nil, ErrEmptySubset
	}

	member := make(map[string]bool, len(subset))
	for _, id := range subset {
		if _, ok := s.tasks[id]; !ok {
			return nil, ErrTaskNotFound
		}
		member[id] = true
	}

	indeg := make(map[string]int, len(member))
	rank := make(map[string]int, len(member))
	for id := range member {
		rank[id] = s.tasks[id].Priority.Rank()
		for _, e := range s.in[id] {
			if member[e.SourceTaskID] {
				indeg[id]++
			}
		}
	}

	ready := &readyHeap{rank: rank}
	for id := range member {
		if indeg[id] == 0 {
			ready.ids = append(ready.ids, id)
		}
	}
	heap.Init(ready)

	order := make([]string, 0, len(member))
	for ready.Len() > 0 {
		id := heap.Pop(ready).(string)
		order = append(order, id)
		for _, e := range s.out[id] {
			to := e.TargetTaskID
			if !member[to] {
				continue
			}
			indeg[to]--
			if indeg[to] == 0 {
				heap.Push(ready, to)
			}
		}
	}

	if len(order) < len(member) {
		remaining := make([]string, 0, len(member)-len(order))
		for id := range member {
			if indeg[id] > 0 {
				remaining = append(remaining, id)
			}
		}
		// Sorted via the same tie-break so diagnostics are stable too.
		rem := &readyHeap{ids: remaining, rank: rank}
		heap.Init(rem)
		sorted := make([]string, 0, len(remaining))
		for rem.Len() > 0 {
			sorted = append(sorted, heap.Pop(rem).(string))
		}
		return nil, &InconsistentGraphError{Remaining: sorted}
	}

	return order, nil
}

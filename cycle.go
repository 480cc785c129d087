package taskdep

// findCyclePath decides whether committing the candidate edge source -> target
// would close a directed cycle. A cycle exists iff source is already reachable
// from target through active edges; the check is a breadth-first search from
// target, bounded by the snapshot's depth limit.
//
// Returns (nil, nil) when the edge is safe. On a cycle it returns the loop as
// an ordered task-id path starting and ending at target, with the candidate
// edge as the closing hop (e.g. [T1 T2 T3 T1] for candidate T3 -> T1). When
// the depth bound is exceeded the edge is assumed cyclic and
// ErrMaxDepthExceeded is returned so operators can tell a real cycle from a
// pathological graph.
func findCyclePath(s *snapshot, source, target string) ([]string, error) {
	if target == source {
		return []string{target, target}, nil
	}

	bound := s.depthBound()
	parent := map[string]string{target: ""}
	frontier := []string{target}

	for depth := 0; len(frontier) > 0; depth++ {
		if depth >= bound {
			return nil, ErrMaxDepthExceeded
		}
		var next []string
		for _, cur := range frontier {
			for _, e := range s.out[cur] {
				to := e.TargetTaskID
				if _, seen := parent[to]; seen {
					continue
				}
				parent[to] = cur
				if to == source {
					return buildCyclePath(parent, target, source), nil
				}
				next = append(next, to)
			}
		}
		frontier = next
	}

	return nil, nil
}

// buildCyclePath walks the BFS parent map back from source to target, then
// appends target to represent the candidate edge closing the loop.
func buildCyclePath(parent map[string]string, target, source string) []string {
	var rev []string
	for cur := source; cur != ""; cur = parent[cur] {
		rev = append(rev, cur)
		if cur == target {
			break
		}
	}
	path := make([]string, 0, len(rev)+1)
	for i := len(rev) - 1; i >= 0; i-- {
		path = append(path, rev[i])
	}
	return append(path, target)
}

// detectCycle runs a full white/gray/black depth-first search over the active
// edge set and reports any cycle found in committed state. The Engine never
// expects this to fire (every insert is pre-validated); it exists so the
// scheduler and invariant checks can fail loudly instead of truncating.
func detectCycle(s *snapshot) []string {
	const (
		white = iota
		gray
		black
	)

	color := make(map[string]int, len(s.tasks))
	var cycle []string

	var dfs func(id string, stack []string) bool
	dfs = func(id string, stack []string) bool {
		color[id] = gray
		stack = append(stack, id)
		for _, e := range s.out[id] {
			switch color[e.TargetTaskID] {
			case gray:
				// Trim the stack to the loop entry point and close it.
				for i, v := range stack {
					if v == e.TargetTaskID {
						cycle = append(append([]string{}, stack[i:]...), e.TargetTaskID)
						return true
					}
				}
			case white:
				if dfs(e.TargetTaskID, stack) {
					return true
				}
			}
		}
		color[id] = black
		return false
	}

	for id := range s.tasks {
		if color[id] == white && dfs(id, nil) {
			return cycle
		}
	}
	return nil
}

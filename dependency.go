package taskdep

// DependencyType is one of the four classic project-scheduling relationship
// kinds. The engine treats all four uniformly for cycle and ordering purposes;
// the type is preserved as metadata for the blocking-policy consumer.
type DependencyType string

const (
	FinishToStart  DependencyType = "finish_to_start"
	StartToStart   DependencyType = "start_to_start"
	FinishToFinish DependencyType = "finish_to_finish"
	StartToFinish  DependencyType = "start_to_finish"
)

// Valid reports whether t is one of the four dependency types.
func (t DependencyType) Valid() bool {
	switch t {
	case FinishToStart, StartToStart, FinishToFinish, StartToFinish:
		return true
	}
	return false
}

// DependencyStatus is the lifecycle state of an edge.
type DependencyStatus string

const (
	// DepActive edges constrain the graph: they participate in cycle
	// detection, topological ordering, and blocking.
	DepActive DependencyStatus = "ACTIVE"
	// DepOverridden is terminal; set only by OverrideDependency.
	DepOverridden DependencyStatus = "OVERRIDDEN"
	// DepResolved is the normal terminal state, set when the source task
	// completes. Managed by the caller via ResolveDependency.
	DepResolved DependencyStatus = "RESOLVED"
)

// Dependency is a directed edge: the target task depends on the source task.
type Dependency struct {
	ID           string           `json:"id,omitempty"`
	SourceTaskID string           `json:"source_task_id"`
	TargetTaskID string           `json:"target_task_id"`
	Type         DependencyType   `json:"dependency_type"`
	LagHours     float64          `json:"lag_hours"` // lead/lag; negative allowed, opaque to the engine
	HardBlock    bool             `json:"hard_block"`
	Status       DependencyStatus `json:"status"`
}

// Active reports whether the edge still constrains the graph.
func (d *Dependency) Active() bool {
	return d.Status == DepActive
}

// Subgraph is the result of a neighborhood query: the tasks and edges
// reachable from a root within a hop limit, for visualization consumers.
type Subgraph struct {
	Root         string       `json:"root"`
	Tasks        []Task       `json:"tasks"`
	Dependencies []Dependency `json:"dependencies"`
}

// Stats summarizes the committed graph for reporting.
type Stats struct {
	Tasks         int                      `json:"tasks"`
	Edges         int                      `json:"edges"`
	EdgesByStatus map[DependencyStatus]int `json:"edges_by_status"`
	EdgesByType   map[DependencyType]int   `json:"edges_by_type"`
	Roots         int                      `json:"roots"`  // tasks with no active incoming edge
	Leaves        int                      `json:"leaves"` // tasks with no active outgoing edge
}

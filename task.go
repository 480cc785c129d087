package taskdep

// TaskStatus is the lifecycle state of a task as far as the graph engine
// cares: it only needs enough to evaluate blocking.
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in_progress"
	StatusBlocked    TaskStatus = "blocked"
	StatusCompleted  TaskStatus = "completed"
	StatusDoneEnd    TaskStatus = "done_end"
)

// Valid reports whether s is one of the known task statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusBlocked, StatusCompleted, StatusDoneEnd:
		return true
	}
	return false
}

// Resolved reports whether a task in this status no longer blocks its
// dependents. Only completed and done_end count as resolved.
func (s TaskStatus) Resolved() bool {
	return s == StatusCompleted || s == StatusDoneEnd
}

// Priority orders tasks for scheduling tie-breaks.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Rank maps a priority to its sort position: critical first, low last.
// Unknown priorities sort after low.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	}
	return 4
}

// Task is a node in the dependency graph. The engine does not own full task
// content (title, description live in the task-management subsystem) — only
// the attributes needed to evaluate blocking state and order schedules.
type Task struct {
	ID           string     `json:"id,omitempty"`
	Status       TaskStatus `json:"status"`
	Priority     Priority   `json:"priority"`
	Completeness int        `json:"completeness"` // 0–100
}

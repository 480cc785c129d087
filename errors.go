package taskdep

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrTaskNotFound         = errors.New("taskdep: task not found")
	ErrDuplicateTask        = errors.New("taskdep: task already exists")
	ErrEdgeNotFound         = errors.New("taskdep: dependency not found")
	ErrDuplicateEdge        = errors.New("taskdep: dependency already exists for this (source, target, type)")
	ErrSelfDependency       = errors.New("taskdep: a task cannot depend on itself")
	ErrCycleDetected        = errors.New("taskdep: dependency would create a cycle")
	ErrMaxDepthExceeded     = errors.New("taskdep: traversal depth bound exceeded, cycle assumed")
	ErrInconsistentGraph    = errors.New("taskdep: committed graph contains a cycle")
	ErrInvalidState         = errors.New("taskdep: dependency is not in the required state")
	ErrNotHardBlocked       = errors.New("taskdep: dependency is not a hard block")
	ErrMissingReason        = errors.New("taskdep: override reason must not be empty")
	ErrMissingJustification = errors.New("taskdep: emergency justification required when downstream tasks are affected")
	ErrHardBlocked          = errors.New("taskdep: task is blocked by an active hard dependency")
	ErrEmptySubset          = errors.New("taskdep: task subset must not be empty")
	ErrInvalidInput         = errors.New("taskdep: invalid input")
	ErrLockTimeout          = errors.New("taskdep: graph lock not acquired within timeout")
)

// CycleError reports the concrete loop that a rejected edge would have closed.
// Path starts and ends at the same task id.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%v: %s", ErrCycleDetected, strings.Join(e.Path, " -> "))
}

func (e *CycleError) Is(target error) bool { return target == ErrCycleDetected }

// HardBlockedError reports which edges are blocking a task status transition.
type HardBlockedError struct {
	TaskID string
	Edges  []string
}

func (e *HardBlockedError) Error() string {
	return fmt.Sprintf("%v: task %s blocked by %d edge(s)", ErrHardBlocked, e.TaskID, len(e.Edges))
}

func (e *HardBlockedError) Is(target error) bool { return target == ErrHardBlocked }

// InconsistentGraphError reports the task ids left with nonzero in-degree
// after Kahn's algorithm drained — evidence of a cycle in committed state.
type InconsistentGraphError struct {
	Remaining []string
}

func (e *InconsistentGraphError) Error() string {
	return fmt.Sprintf("%v: %d task(s) unorderable: %s",
		ErrInconsistentGraph, len(e.Remaining), strings.Join(e.Remaining, ", "))
}

func (e *InconsistentGraphError) Is(target error) bool { return target == ErrInconsistentGraph }

// LockTimeoutError carries the wait budget that elapsed, so callers can
// surface a retry-after hint.
type LockTimeoutError struct {
	Wait time.Duration
}

func (e *LockTimeoutError) Error() string {
	return fmt.Sprintf("%v (%s)", ErrLockTimeout, e.Wait)
}

func (e *LockTimeoutError) Is(target error) bool { return target == ErrLockTimeout }

// ErrorCode maps an engine error to a stable machine-readable code for API
// consumers. Unknown errors map to "internal".
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrTaskNotFound):
		return "task_not_found"
	case errors.Is(err, ErrDuplicateTask):
		return "duplicate_task"
	case errors.Is(err, ErrEdgeNotFound):
		return "dependency_not_found"
	case errors.Is(err, ErrDuplicateEdge):
		return "duplicate_dependency"
	case errors.Is(err, ErrSelfDependency):
		return "self_dependency"
	case errors.Is(err, ErrCycleDetected):
		return "cycle_detected"
	case errors.Is(err, ErrMaxDepthExceeded):
		return "max_depth_exceeded"
	case errors.Is(err, ErrInconsistentGraph):
		return "inconsistent_graph"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrNotHardBlocked):
		return "not_hard_blocked"
	case errors.Is(err, ErrMissingReason):
		return "missing_reason"
	case errors.Is(err, ErrMissingJustification):
		return "missing_justification"
	case errors.Is(err, ErrHardBlocked):
		return "hard_blocked"
	case errors.Is(err, ErrEmptySubset):
		return "empty_subset"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrLockTimeout):
		return "lock_timeout"
	}
	return "internal"
}

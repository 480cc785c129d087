package taskdep

import (
	"context"
	"time"
)

// OverrideRecord is the immutable audit entry written when a hard-block
// dependency is overridden. Records are append-only: never mutated, never
// deleted, and they survive deletion of the task or edge they reference.
type OverrideRecord struct {
	ID                     string     `json:"id"`
	DependencyID           string     `json:"dependency_id"`
	SourceTaskID           string     `json:"source_task_id"`
	TargetTaskID           string     `json:"target_task_id"`
	OverriddenBy           string     `json:"overridden_by"`
	Reason                 string     `json:"override_reason"`
	EmergencyJustification string     `json:"emergency_justification,omitempty"`
	AffectedTasks          []string   `json:"affected_tasks"`
	EstimatedDelayHours    *float64   `json:"estimated_delay_hours,omitempty"`
	ApprovedBy             string     `json:"approved_by,omitempty"`
	ApprovalTimestamp      *time.Time `json:"approval_timestamp,omitempty"`
	CreatedAt              time.Time  `json:"created_at"`
}

// AuditSink persists override records. Append must be durable before it
// returns: the engine flips edge status only after a successful append, so a
// sink failure fails the whole override.
type AuditSink interface {
	Append(ctx context.Context, rec *OverrideRecord) (string, error)
	// List returns all records, oldest first. Read path is reporting only —
	// the engine never consults the audit log for graph decisions.
	List(ctx context.Context) ([]OverrideRecord, error)
	// ListForDependency returns the records referencing a single edge.
	ListForDependency(ctx context.Context, dependencyID string) ([]OverrideRecord, error)
}

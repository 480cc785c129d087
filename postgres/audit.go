package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meikuraledutech/taskdep"
)

// AuditSink implements taskdep.AuditSink on the override_records table.
// Append-only: the package exposes no update or delete path, and the schema
// carries no foreign keys, so records outlive the edges they reference.
type AuditSink struct {
	db *pgxpool.Pool
}

// NewAuditSink creates an AuditSink backed by the given pool. It can share
// the Store's pool.
func NewAuditSink(db *pgxpool.Pool) *AuditSink {
	return &AuditSink{db: db}
}

const auditColumns = `id, dependency_id, source_task_id, target_task_id, overridden_by,
	override_reason, emergency_justification, affected_tasks, estimated_delay_hours,
	approved_by, approval_timestamp, created_at`

// Append durably persists an override record and returns its ID. The insert
// commits before this returns, which is what lets the Engine flip edge
// status write-ahead.
func (a *AuditSink) Append(ctx context.Context, rec *taskdep.OverrideRecord) (string, error) {
	_, err := a.db.Exec(ctx,
		`INSERT INTO override_records (`+auditColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		rec.ID, rec.DependencyID, rec.SourceTaskID, rec.TargetTaskID, rec.OverriddenBy,
		rec.Reason, rec.EmergencyJustification, rec.AffectedTasks, rec.EstimatedDelayHours,
		rec.ApprovedBy, rec.ApprovalTimestamp, rec.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("taskdep: insert override record: %w", err)
	}
	return rec.ID, nil
}

// List returns all override records, oldest first.
func (a *AuditSink) List(ctx context.Context) ([]taskdep.OverrideRecord, error) {
	return a.query(ctx,
		`SELECT `+auditColumns+` FROM override_records ORDER BY created_at, id`)
}

// ListForDependency returns the records referencing dependencyID, oldest first.
func (a *AuditSink) ListForDependency(ctx context.Context, dependencyID string) ([]taskdep.OverrideRecord, error) {
	return a.query(ctx,
		`SELECT `+auditColumns+` FROM override_records WHERE dependency_id = $1 ORDER BY created_at, id`,
		dependencyID)
}

func (a *AuditSink) query(ctx context.Context, sql string, args ...any) ([]taskdep.OverrideRecord, error) {
	rows, err := a.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("taskdep: query override records: %w", err)
	}
	defer rows.Close()

	recs := []taskdep.OverrideRecord{}
	for rows.Next() {
		var r taskdep.OverrideRecord
		if err := rows.Scan(&r.ID, &r.DependencyID, &r.SourceTaskID, &r.TargetTaskID,
			&r.OverriddenBy, &r.Reason, &r.EmergencyJustification, &r.AffectedTasks,
			&r.EstimatedDelayHours, &r.ApprovedBy, &r.ApprovalTimestamp, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("taskdep: scan override record: %w", err)
		}
		recs = append(recs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("taskdep: rows override records: %w", err)
	}

	return recs, nil
}

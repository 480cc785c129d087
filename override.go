package taskdep

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// OverrideOptions carries the optional fields of an emergency override.
type OverrideOptions struct {
	// EmergencyJustification is the impact assessment. Required whenever the
	// blast radius extends beyond the edge's immediate target.
	EmergencyJustification string
	// EstimatedDelayHours is the operator's delay estimate, if any.
	EstimatedDelayHours *float64
	// ApprovedBy names a secondary approver for high-impact overrides.
	ApprovedBy string
}

// OverrideDependency bypasses a hard-block edge for an operational emergency.
//
// The edge must exist, be ACTIVE, and carry hard_block — overriding a soft
// dependency is rejected rather than silently accepted. The transition is
// one-way: OVERRIDDEN is terminal, and this method is the only code path that
// sets it, which is what makes the audit trail exhaustive. Re-activation must
// be modeled as deleting the override edge and recreating the dependency.
//
// Ordering is write-ahead: the audit record is appended durably first, then
// the status flips via compare-and-set. A sink failure fails the whole
// override and leaves the edge ACTIVE — an OVERRIDDEN edge without its record
// can never exist.
func (e *Engine) OverrideDependency(ctx context.Context, edgeID, overriddenBy, reason string, opts *OverrideOptions) (*Dependency, *OverrideRecord, error) {
	if opts == nil {
		opts = &OverrideOptions{}
	}
	if strings.TrimSpace(overriddenBy) == "" {
		return nil, nil, fmt.Errorf("%w: overridden_by required", ErrInvalidInput)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, nil, ErrMissingReason
	}

	release, err := e.acquire(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer release()

	d, err := e.store.GetDependency(ctx, edgeID)
	if err != nil {
		return nil, nil, err
	}
	if d == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrEdgeNotFound, edgeID)
	}
	if d.Status != DepActive {
		return nil, nil, fmt.Errorf("%w: dependency %s is %s, want %s", ErrInvalidState, edgeID, d.Status, DepActive)
	}
	if !d.HardBlock {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotHardBlocked, edgeID)
	}

	// Downstream blast radius: everything reachable forward from the target,
	// the target itself included. The graph is a DAG so this terminates.
	snap, _, err := e.loadSnapshot(ctx)
	if err != nil {
		return nil, nil, err
	}
	affected := snap.forwardReachable(d.TargetTaskID)
	if len(affected) > 1 && strings.TrimSpace(opts.EmergencyJustification) == "" {
		return nil, nil, fmt.Errorf("%w: override of %s affects %d downstream tasks", ErrMissingJustification, edgeID, len(affected))
	}

	rec := &OverrideRecord{
		ID:                     uuid.NewString(),
		DependencyID:           d.ID,
		SourceTaskID:           d.SourceTaskID,
		TargetTaskID:           d.TargetTaskID,
		OverriddenBy:           overriddenBy,
		Reason:                 reason,
		EmergencyJustification: strings.TrimSpace(opts.EmergencyJustification),
		AffectedTasks:          affected,
		EstimatedDelayHours:    opts.EstimatedDelayHours,
		ApprovedBy:             opts.ApprovedBy,
		CreatedAt:              e.now().UTC(),
	}
	if opts.ApprovedBy != "" {
		ts := rec.CreatedAt
		rec.ApprovalTimestamp = &ts
	}

	if _, err := e.audit.Append(ctx, rec); err != nil {
		return nil, nil, fmt.Errorf("taskdep: audit append failed, override aborted: %w", err)
	}
	if err := e.store.SetDependencyStatus(ctx, edgeID, DepActive, DepOverridden); err != nil {
		return nil, nil, err
	}
	d.Status = DepOverridden

	e.emit(Event{Type: EventDependencyOverridden, Dependency: d})
	return d, rec, nil
}

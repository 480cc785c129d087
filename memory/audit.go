package memory

import (
	"context"
	"sync"

	"github.com/meikuraledutech/taskdep"
)

// AuditSink is an in-memory append-only taskdep.AuditSink.
type AuditSink struct {
	mu      sync.RWMutex
	records []taskdep.OverrideRecord
}

// NewAuditSink returns an empty AuditSink.
func NewAuditSink() *AuditSink {
	return &AuditSink{}
}

// Append stores a copy of the record. Records are never mutated or deleted.
func (a *AuditSink) Append(ctx context.Context, rec *taskdep.OverrideRecord) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, *rec)
	return rec.ID, nil
}

// List returns all records, oldest first.
func (a *AuditSink) List(ctx context.Context) ([]taskdep.OverrideRecord, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]taskdep.OverrideRecord, len(a.records))
	copy(out, a.records)
	return out, nil
}

// ListForDependency returns the records referencing dependencyID, oldest first.
func (a *AuditSink) ListForDependency(ctx context.Context, dependencyID string) ([]taskdep.OverrideRecord, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := []taskdep.OverrideRecord{}
	for _, r := range a.records {
		if r.DependencyID == dependencyID {
			out = append(out, r)
		}
	}
	return out, nil
}

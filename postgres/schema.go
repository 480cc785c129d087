package postgres

import "context"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS tasks (
    id           TEXT PRIMARY KEY,
    status       TEXT NOT NULL DEFAULT 'pending',
    priority     TEXT NOT NULL DEFAULT 'medium',
    completeness INT  NOT NULL DEFAULT 0 CHECK (completeness BETWEEN 0 AND 100),
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS task_dependencies (
    id              TEXT PRIMARY KEY,
    source_task_id  TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
    target_task_id  TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
    dependency_type TEXT NOT NULL,
    lag_hours       DOUBLE PRECISION NOT NULL DEFAULT 0,
    hard_block      BOOLEAN NOT NULL DEFAULT FALSE,
    status          TEXT NOT NULL DEFAULT 'ACTIVE',
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CHECK (source_task_id <> target_task_id),
    UNIQUE (source_task_id, target_task_id, dependency_type)
);

-- No foreign key on dependency_id: override records are permanent audit
-- history and survive deletion of the edge and its endpoint tasks.
CREATE TABLE IF NOT EXISTS override_records (
    id                      TEXT PRIMARY KEY,
    dependency_id           TEXT NOT NULL,
    source_task_id          TEXT NOT NULL,
    target_task_id          TEXT NOT NULL,
    overridden_by           TEXT NOT NULL,
    override_reason         TEXT NOT NULL CHECK (override_reason <> ''),
    emergency_justification TEXT NOT NULL DEFAULT '',
    affected_tasks          TEXT[] NOT NULL DEFAULT '{}',
    estimated_delay_hours   DOUBLE PRECISION,
    approved_by             TEXT NOT NULL DEFAULT '',
    approval_timestamp      TIMESTAMPTZ,
    created_at              TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_task_dependencies_source ON task_dependencies(source_task_id);
CREATE INDEX IF NOT EXISTS idx_task_dependencies_target ON task_dependencies(target_task_id);
CREATE INDEX IF NOT EXISTS idx_task_dependencies_status ON task_dependencies(status);
CREATE INDEX IF NOT EXISTS idx_override_records_dep     ON override_records(dependency_id);
`

// CreateSchema creates the tasks, task_dependencies and override_records
// tables if they don't exist.
func (s *Store) CreateSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schemaSQL)
	return err
}

// DropSchema drops all engine tables, audit history included.
func (s *Store) DropSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DROP TABLE IF EXISTS task_dependencies, tasks, override_records CASCADE;`)
	return err
}

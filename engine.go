package taskdep

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// DefaultLockTimeout bounds how long a mutation waits for the writer lock
// before failing with ErrLockTimeout.
const DefaultLockTimeout = 5 * time.Second

// Engine is the dependency graph engine: it owns all graph-level validation
// (self-loops, duplicate triples, cycle checks, override rules) and serializes
// every mutation on a single writer lock so that check-then-commit sequences
// are atomic. Construct one per process and share it across request handlers.
type Engine struct {
	store  Store
	audit  AuditSink
	notify Notifier

	// writer is a semaphore rather than a sync.Mutex so acquisition can
	// honor a timeout and context cancellation.
	writer      chan struct{}
	lockTimeout time.Duration
	now         func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithNotifier sets the domain-event consumer.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notify = n }
}

// WithLockTimeout overrides DefaultLockTimeout.
func WithLockTimeout(d time.Duration) Option {
	return func(e *Engine) { e.lockTimeout = d }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an Engine over the given store and audit sink.
func New(store Store, audit AuditSink, opts ...Option) *Engine {
	e := &Engine{
		store:       store,
		audit:       audit,
		notify:      NopNotifier{},
		writer:      make(chan struct{}, 1),
		lockTimeout: DefaultLockTimeout,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// acquire takes the writer lock or fails with ErrLockTimeout / ctx error.
func (e *Engine) acquire(ctx context.Context) (func(), error) {
	timer := time.NewTimer(e.lockTimeout)
	defer timer.Stop()
	select {
	case e.writer <- struct{}{}:
		return func() { <-e.writer }, nil
	case <-timer.C:
		return nil, &LockTimeoutError{Wait: e.lockTimeout}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (e *Engine) emit(ev Event) {
	ev.At = e.now().UTC()
	e.notify.Notify(ev)
}

// loadSnapshot reads the committed graph into an adjacency view. Call it
// while holding the writer lock when the result feeds a mutation decision.
func (e *Engine) loadSnapshot(ctx context.Context) (*snapshot, []Dependency, error) {
	tasks, err := e.store.ListTasks(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("taskdep: list tasks: %w", err)
	}
	edges, err := e.store.ListDependencies(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("taskdep: list dependencies: %w", err)
	}
	return newSnapshot(tasks, edges), edges, nil
}

// CreateSchema initializes the backing store's schema.
func (e *Engine) CreateSchema(ctx context.Context) error { return e.store.CreateSchema(ctx) }

// DropSchema tears the backing store's schema down.
func (e *Engine) DropSchema(ctx context.Context) error { return e.store.DropSchema(ctx) }

// ── Tasks ────────────────────────────────────────────────────────────────

// AddTask registers a node. An empty ID gets a generated UUID; an empty
// status defaults to pending, an empty priority to medium. Re-registering an
// existing id fails with ErrDuplicateTask — idempotent registration is caller
// policy, not the engine's.
func (e *Engine) AddTask(ctx context.Context, t *Task) (string, error) {
	if t.Status == "" {
		t.Status = StatusPending
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if !t.Status.Valid() {
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalidInput, t.Status)
	}
	if !t.Priority.Valid() {
		return "", fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, t.Priority)
	}
	if t.Completeness < 0 || t.Completeness > 100 {
		return "", fmt.Errorf("%w: completeness %d out of range 0-100", ErrInvalidInput, t.Completeness)
	}

	release, err := e.acquire(ctx)
	if err != nil {
		return "", err
	}
	defer release()

	if t.ID == "" {
		t.ID = uuid.NewString()
	} else if existing, err := e.store.GetTask(ctx, t.ID); err != nil {
		return "", err
	} else if existing != nil {
		return "", fmt.Errorf("%w: %s", ErrDuplicateTask, t.ID)
	}

	if err := e.store.CreateTask(ctx, t); err != nil {
		return "", err
	}
	return t.ID, nil
}

// GetTask fetches a task by id.
func (e *Engine) GetTask(ctx context.Context, id string) (*Task, error) {
	t, err := e.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return t, nil
}

// Tasks lists every registered task.
func (e *Engine) Tasks(ctx context.Context) ([]Task, error) {
	return e.store.ListTasks(ctx)
}

// TaskUpdate carries the mutable task attributes; nil fields are untouched.
type TaskUpdate struct {
	Status       *TaskStatus
	Priority     *Priority
	Completeness *int
}

// UpdateTask applies a partial update. Transitions to in_progress or
// completed enforce the hard-block policy: while any active hard-block edge
// with an unresolved source targets the task, the transition fails with
// HardBlockedError naming the blocking edges.
func (e *Engine) UpdateTask(ctx context.Context, id string, upd TaskUpdate) (*Task, error) {
	if upd.Status != nil && !upd.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, *upd.Status)
	}
	if upd.Priority != nil && !upd.Priority.Valid() {
		return nil, fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, *upd.Priority)
	}
	if upd.Completeness != nil && (*upd.Completeness < 0 || *upd.Completeness > 100) {
		return nil, fmt.Errorf("%w: completeness %d out of range 0-100", ErrInvalidInput, *upd.Completeness)
	}

	release, err := e.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	t, err := e.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}

	if upd.Status != nil && (*upd.Status == StatusInProgress || *upd.Status == StatusCompleted) && *upd.Status != t.Status {
		blocking, err := e.blockingEdges(ctx, id)
		if err != nil {
			return nil, err
		}
		if len(blocking) > 0 {
			ids := make([]string, len(blocking))
			for i, b := range blocking {
				ids[i] = b.ID
			}
			return nil, &HardBlockedError{TaskID: id, Edges: ids}
		}
	}

	if upd.Status != nil {
		t.Status = *upd.Status
	}
	if upd.Priority != nil {
		t.Priority = *upd.Priority
	}
	if upd.Completeness != nil {
		t.Completeness = *upd.Completeness
	}
	if err := e.store.UpdateTask(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// RemoveTask deletes the task and cascades removal of every edge referencing
// it. Override records referencing those edges are audit history and survive.
func (e *Engine) RemoveTask(ctx context.Context, id string) error {
	release, err := e.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	t, err := e.store.GetTask(ctx, id)
	if err != nil {
		return err
	}
	if t == nil {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	if err := e.store.DeleteTask(ctx, id); err != nil {
		return err
	}
	e.emit(Event{Type: EventTaskRemoved, TaskID: id})
	return nil
}

// ── Dependencies ─────────────────────────────────────────────────────────

// AddDependency validates and commits a new edge. The whole sequence — local
// invariants, cycle check, commit — runs under the writer lock, so two
// concurrent inserts can never jointly close a cycle.
func (e *Engine) AddDependency(ctx context.Context, d *Dependency) (*Dependency, error) {
	if d.SourceTaskID == "" || d.TargetTaskID == "" {
		return nil, fmt.Errorf("%w: source and target task ids required", ErrInvalidInput)
	}
	if !d.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown dependency type %q", ErrInvalidInput, d.Type)
	}
	if d.SourceTaskID == d.TargetTaskID {
		return nil, fmt.Errorf("%w: %s", ErrSelfDependency, d.SourceTaskID)
	}

	release, err := e.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	snap, edges, err := e.loadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := snap.tasks[d.SourceTaskID]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, d.SourceTaskID)
	}
	if _, ok := snap.tasks[d.TargetTaskID]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, d.TargetTaskID)
	}
	// The triple is unique across all statuses: an overridden edge must be
	// deleted before an identical dependency can be recreated.
	for _, ex := range edges {
		if ex.SourceTaskID == d.SourceTaskID && ex.TargetTaskID == d.TargetTaskID && ex.Type == d.Type {
			return nil, fmt.Errorf("%w: %s -> %s (%s)", ErrDuplicateEdge, d.SourceTaskID, d.TargetTaskID, d.Type)
		}
	}

	path, err := findCyclePath(snap, d.SourceTaskID, d.TargetTaskID)
	if err != nil {
		return nil, err
	}
	if path != nil {
		return nil, &CycleError{Path: path}
	}

	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	d.Status = DepActive
	if err := e.store.CreateDependency(ctx, d); err != nil {
		return nil, err
	}
	e.emit(Event{Type: EventDependencyCreated, Dependency: d})
	return d, nil
}

// GetDependency fetches an edge by id.
func (e *Engine) GetDependency(ctx context.Context, id string) (*Dependency, error) {
	d, err := e.store.GetDependency(ctx, id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, fmt.Errorf("%w: %s", ErrEdgeNotFound, id)
	}
	return d, nil
}

// RemoveDependency deletes an edge. Removing edges can never introduce a
// cycle, so no validation beyond existence runs.
func (e *Engine) RemoveDependency(ctx context.Context, id string) error {
	release, err := e.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	d, err := e.store.GetDependency(ctx, id)
	if err != nil {
		return err
	}
	if d == nil {
		return fmt.Errorf("%w: %s", ErrEdgeNotFound, id)
	}
	if err := e.store.DeleteDependency(ctx, id); err != nil {
		return err
	}
	e.emit(Event{Type: EventDependencyRemoved, Dependency: d})
	return nil
}

// ResolveDependency marks an active edge RESOLVED: the normal terminal state
// when the source task completes. The caller (task lifecycle subsystem)
// drives this; the engine never resolves edges on its own.
func (e *Engine) ResolveDependency(ctx context.Context, id string) (*Dependency, error) {
	release, err := e.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := e.store.SetDependencyStatus(ctx, id, DepActive, DepResolved); err != nil {
		return nil, err
	}
	d, err := e.store.GetDependency(ctx, id)
	if err != nil {
		return nil, err
	}
	e.emit(Event{Type: EventDependencyResolved, Dependency: d})
	return d, nil
}

// Dependencies returns the edges targeting taskID — what it depends on.
// A deleted or unknown task yields an empty result, not an error.
func (e *Engine) Dependencies(ctx context.Context, taskID string) ([]Dependency, error) {
	return e.store.DependenciesOf(ctx, taskID)
}

// Dependents returns the edges sourced at taskID — what depends on it.
func (e *Engine) Dependents(ctx context.Context, taskID string) ([]Dependency, error) {
	return e.store.DependentsOf(ctx, taskID)
}

// Blocking returns the active hard-block edges currently preventing the task
// from starting: incoming edges whose source task is not yet resolved.
func (e *Engine) Blocking(ctx context.Context, taskID string) ([]Dependency, error) {
	return e.blockingEdges(ctx, taskID)
}

func (e *Engine) blockingEdges(ctx context.Context, taskID string) ([]Dependency, error) {
	incoming, err := e.store.DependenciesOf(ctx, taskID)
	if err != nil {
		return nil, err
	}
	blocking := []Dependency{}
	for _, d := range incoming {
		if !d.Active() || !d.HardBlock {
			continue
		}
		src, err := e.store.GetTask(ctx, d.SourceTaskID)
		if err != nil {
			return nil, err
		}
		if src != nil && !src.Status.Resolved() {
			blocking = append(blocking, d)
		}
	}
	return blocking, nil
}

// ── Queries ──────────────────────────────────────────────────────────────

// TopologicalSort orders the subset so that every active edge inside it
// points forward. Ordering is deterministic: zero-in-degree candidates are
// taken highest priority first, ties by task id ascending.
func (e *Engine) TopologicalSort(ctx context.Context, subset []string) ([]string, error) {
	snap, _, err := e.loadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	return topoSort(snap, subset)
}

// Subgraph returns the neighborhood of root within depth hops, following
// edges in both directions. Edges of every status are included so consumers
// can render overridden and resolved relationships; depth 0 returns only the
// root. Results are sorted by id for stable rendering.
func (e *Engine) Subgraph(ctx context.Context, root string, depth int) (*Subgraph, error) {
	if depth < 0 {
		return nil, fmt.Errorf("%w: depth must be >= 0", ErrInvalidInput)
	}

	tasks, err := e.store.ListTasks(ctx)
	if err != nil {
		return nil, err
	}
	edges, err := e.store.ListDependencies(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}
	if _, ok := byID[root]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, root)
	}

	neighbors := make(map[string][]string)
	for _, d := range edges {
		neighbors[d.SourceTaskID] = append(neighbors[d.SourceTaskID], d.TargetTaskID)
		neighbors[d.TargetTaskID] = append(neighbors[d.TargetTaskID], d.SourceTaskID)
	}

	visited := map[string]bool{root: true}
	frontier := []string{root}
	for hop := 0; hop < depth && len(frontier) > 0; hop++ {
		var next []string
		for _, cur := range frontier {
			for _, n := range neighbors[cur] {
				if !visited[n] {
					visited[n] = true
					next = append(next, n)
				}
			}
		}
		frontier = next
	}

	sg := &Subgraph{Root: root, Tasks: []Task{}, Dependencies: []Dependency{}}
	for id := range visited {
		sg.Tasks = append(sg.Tasks, byID[id])
	}
	for _, d := range edges {
		if visited[d.SourceTaskID] && visited[d.TargetTaskID] {
			sg.Dependencies = append(sg.Dependencies, d)
		}
	}
	sort.Slice(sg.Tasks, func(i, j int) bool { return sg.Tasks[i].ID < sg.Tasks[j].ID })
	sort.Slice(sg.Dependencies, func(i, j int) bool { return sg.Dependencies[i].ID < sg.Dependencies[j].ID })
	return sg, nil
}

// Stats summarizes the committed graph.
func (e *Engine) Stats(ctx context.Context) (*Stats, error) {
	snap, edges, err := e.loadSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	st := &Stats{
		Tasks:         len(snap.tasks),
		Edges:         len(edges),
		EdgesByStatus: make(map[DependencyStatus]int),
		EdgesByType:   make(map[DependencyType]int),
	}
	for _, d := range edges {
		st.EdgesByStatus[d.Status]++
		st.EdgesByType[d.Type]++
	}
	for id := range snap.tasks {
		if len(snap.in[id]) == 0 {
			st.Roots++
		}
		if len(snap.out[id]) == 0 {
			st.Leaves++
		}
	}
	return st, nil
}

// AuditLog lists every override record, oldest first. Reporting only.
func (e *Engine) AuditLog(ctx context.Context) ([]OverrideRecord, error) {
	return e.audit.List(ctx)
}

// AuditLogFor lists the override records referencing one edge.
func (e *Engine) AuditLogFor(ctx context.Context, dependencyID string) ([]OverrideRecord, error) {
	return e.audit.ListForDependency(ctx, dependencyID)
}

// CheckConsistency runs a full cycle sweep over committed state. It exists
// for operators investigating suspected external corruption (direct store
// edits bypassing the engine); a healthy graph always passes.
func (e *Engine) CheckConsistency(ctx context.Context) error {
	snap, _, err := e.loadSnapshot(ctx)
	if err != nil {
		return err
	}
	if cycle := detectCycle(snap); cycle != nil {
		return &InconsistentGraphError{Remaining: cycle[:len(cycle)-1]}
	}
	return nil
}

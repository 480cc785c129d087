package main

import (
	"errors"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v3"

	"github.com/meikuraledutech/taskdep"
)

type api struct {
	engine *taskdep.Engine
	log    *log.Logger
}

// newApp wires the HTTP routes over an Engine.
func newApp(engine *taskdep.Engine, logger *log.Logger) *fiber.App {
	a := &api{engine: engine, log: logger}

	app := fiber.New()

	app.Use(func(c fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		a.log.Info("request",
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"took", time.Since(start))
		return err
	})

	// ── Schema ────────────────────────────────────────────────────────
	app.Post("/schema", a.createSchema)
	app.Delete("/schema", a.dropSchema)

	// ── Tasks ─────────────────────────────────────────────────────────
	app.Post("/tasks", a.createTask)
	app.Get("/tasks", a.listTasks)
	app.Get("/tasks/:id", a.getTask)
	app.Patch("/tasks/:id", a.updateTask)
	app.Delete("/tasks/:id", a.deleteTask)
	app.Get("/tasks/:id/dependencies", a.taskDependencies)
	app.Get("/tasks/:id/dependents", a.taskDependents)
	app.Get("/tasks/:id/blocking", a.taskBlocking)
	app.Get("/tasks/:id/subgraph", a.taskSubgraph)

	// ── Dependencies ──────────────────────────────────────────────────
	app.Post("/dependencies", a.createDependency)
	app.Get("/dependencies/:id", a.getDependency)
	app.Delete("/dependencies/:id", a.deleteDependency)
	app.Post("/dependencies/:id/override", a.overrideDependency)
	app.Post("/dependencies/:id/resolve", a.resolveDependency)
	app.Get("/dependencies/:id/audit", a.dependencyAudit)

	// ── Queries ───────────────────────────────────────────────────────
	app.Post("/sort", a.topologicalSort)
	app.Get("/stats", a.stats)
	app.Get("/audit", a.auditLog)

	return app
}

// respondError maps engine errors to HTTP status codes and a stable JSON
// error shape: {error, code} plus structured diagnostics where available.
func (a *api) respondError(c fiber.Ctx, err error) error {
	body := fiber.Map{
		"error": err.Error(),
		"code":  taskdep.ErrorCode(err),
	}

	var cyc *taskdep.CycleError
	if errors.As(err, &cyc) {
		body["path"] = cyc.Path
	}
	var hb *taskdep.HardBlockedError
	if errors.As(err, &hb) {
		body["blocking_edges"] = hb.Edges
	}
	var incon *taskdep.InconsistentGraphError
	if errors.As(err, &incon) {
		body["has_cycle"] = true
		body["remaining"] = incon.Remaining
	}
	if errors.Is(err, taskdep.ErrLockTimeout) {
		c.Set("Retry-After", "1")
	}

	status := statusFor(err)
	if status >= 500 {
		a.log.Error("request failed", "code", body["code"], "err", err)
	}
	return c.Status(status).JSON(body)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, taskdep.ErrTaskNotFound),
		errors.Is(err, taskdep.ErrEdgeNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, taskdep.ErrDuplicateTask),
		errors.Is(err, taskdep.ErrDuplicateEdge),
		errors.Is(err, taskdep.ErrInvalidState),
		errors.Is(err, taskdep.ErrHardBlocked):
		return fiber.StatusConflict
	case errors.Is(err, taskdep.ErrCycleDetected):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, taskdep.ErrSelfDependency),
		errors.Is(err, taskdep.ErrNotHardBlocked),
		errors.Is(err, taskdep.ErrMissingReason),
		errors.Is(err, taskdep.ErrMissingJustification),
		errors.Is(err, taskdep.ErrEmptySubset),
		errors.Is(err, taskdep.ErrInvalidInput):
		return fiber.StatusBadRequest
	case errors.Is(err, taskdep.ErrLockTimeout):
		return fiber.StatusServiceUnavailable
	}
	return fiber.StatusInternalServerError
}

// ── Schema handlers ──────────────────────────────────────────────────────

func (a *api) createSchema(c fiber.Ctx) error {
	if err := a.engine.CreateSchema(c.Context()); err != nil {
		return a.respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "schema created"})
}

func (a *api) dropSchema(c fiber.Ctx) error {
	if err := a.engine.DropSchema(c.Context()); err != nil {
		return a.respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "schema dropped"})
}

// ── Task handlers ────────────────────────────────────────────────────────

func (a *api) createTask(c fiber.Ctx) error {
	var t taskdep.Task
	if err := c.Bind().JSON(&t); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body", "code": "invalid_input"})
	}
	id, err := a.engine.AddTask(c.Context(), &t)
	if err != nil {
		return a.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id})
}

func (a *api) listTasks(c fiber.Ctx) error {
	tasks, err := a.engine.Tasks(c.Context())
	if err != nil {
		return a.respondError(c, err)
	}
	return c.JSON(tasks)
}

func (a *api) getTask(c fiber.Ctx) error {
	t, err := a.engine.GetTask(c.Context(), c.Params("id"))
	if err != nil {
		return a.respondError(c, err)
	}
	return c.JSON(t)
}

type taskUpdateRequest struct {
	Status       *taskdep.TaskStatus `json:"status"`
	Priority     *taskdep.Priority   `json:"priority"`
	Completeness *int                `json:"completeness"`
}

func (a *api) updateTask(c fiber.Ctx) error {
	var req taskUpdateRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body", "code": "invalid_input"})
	}
	t, err := a.engine.UpdateTask(c.Context(), c.Params("id"), taskdep.TaskUpdate{
		Status:       req.Status,
		Priority:     req.Priority,
		Completeness: req.Completeness,
	})
	if err != nil {
		return a.respondError(c, err)
	}
	return c.JSON(t)
}

func (a *api) deleteTask(c fiber.Ctx) error {
	if err := a.engine.RemoveTask(c.Context(), c.Params("id")); err != nil {
		return a.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (a *api) taskDependencies(c fiber.Ctx) error {
	deps, err := a.engine.Dependencies(c.Context(), c.Params("id"))
	if err != nil {
		return a.respondError(c, err)
	}
	return c.JSON(deps)
}

func (a *api) taskDependents(c fiber.Ctx) error {
	deps, err := a.engine.Dependents(c.Context(), c.Params("id"))
	if err != nil {
		return a.respondError(c, err)
	}
	return c.JSON(deps)
}

func (a *api) taskBlocking(c fiber.Ctx) error {
	deps, err := a.engine.Blocking(c.Context(), c.Params("id"))
	if err != nil {
		return a.respondError(c, err)
	}
	return c.JSON(deps)
}

func (a *api) taskSubgraph(c fiber.Ctx) error {
	depth, err := strconv.Atoi(c.Query("depth", "1"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid depth", "code": "invalid_input"})
	}
	sg, err := a.engine.Subgraph(c.Context(), c.Params("id"), depth)
	if err != nil {
		return a.respondError(c, err)
	}
	return c.JSON(sg)
}

// ── Dependency handlers ──────────────────────────────────────────────────

func (a *api) createDependency(c fiber.Ctx) error {
	var d taskdep.Dependency
	if err := c.Bind().JSON(&d); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body", "code": "invalid_input"})
	}
	created, err := a.engine.AddDependency(c.Context(), &d)
	if err != nil {
		return a.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (a *api) getDependency(c fiber.Ctx) error {
	d, err := a.engine.GetDependency(c.Context(), c.Params("id"))
	if err != nil {
		return a.respondError(c, err)
	}
	return c.JSON(d)
}

func (a *api) deleteDependency(c fiber.Ctx) error {
	if err := a.engine.RemoveDependency(c.Context(), c.Params("id")); err != nil {
		return a.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type overrideRequest struct {
	OverriddenBy           string   `json:"overridden_by"`
	Reason                 string   `json:"override_reason"`
	EmergencyJustification string   `json:"emergency_justification"`
	EstimatedDelayHours    *float64 `json:"estimated_delay_hours"`
	ApprovedBy             string   `json:"approved_by"`
}

func (a *api) overrideDependency(c fiber.Ctx) error {
	var req overrideRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body", "code": "invalid_input"})
	}
	d, rec, err := a.engine.OverrideDependency(c.Context(), c.Params("id"), req.OverriddenBy, req.Reason, &taskdep.OverrideOptions{
		EmergencyJustification: req.EmergencyJustification,
		EstimatedDelayHours:    req.EstimatedDelayHours,
		ApprovedBy:             req.ApprovedBy,
	})
	if err != nil {
		return a.respondError(c, err)
	}
	return c.JSON(fiber.Map{"dependency": d, "override_record": rec})
}

func (a *api) resolveDependency(c fiber.Ctx) error {
	d, err := a.engine.ResolveDependency(c.Context(), c.Params("id"))
	if err != nil {
		return a.respondError(c, err)
	}
	return c.JSON(d)
}

func (a *api) dependencyAudit(c fiber.Ctx) error {
	recs, err := a.engine.AuditLogFor(c.Context(), c.Params("id"))
	if err != nil {
		return a.respondError(c, err)
	}
	return c.JSON(recs)
}

// ── Query handlers ───────────────────────────────────────────────────────

type sortRequest struct {
	TaskIDs []string `json:"task_ids"`
}

func (a *api) topologicalSort(c fiber.Ctx) error {
	var req sortRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body", "code": "invalid_input"})
	}
	order, err := a.engine.TopologicalSort(c.Context(), req.TaskIDs)
	if err != nil {
		return a.respondError(c, err)
	}
	return c.JSON(fiber.Map{"order": order, "has_cycle": false})
}

func (a *api) stats(c fiber.Ctx) error {
	st, err := a.engine.Stats(c.Context())
	if err != nil {
		return a.respondError(c, err)
	}
	return c.JSON(st)
}

func (a *api) auditLog(c fiber.Ctx) error {
	recs, err := a.engine.AuditLog(c.Context())
	if err != nil {
		return a.respondError(c, err)
	}
	return c.JSON(recs)
}

package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v3"

	"github.com/meikuraledutech/taskdep"
	"github.com/meikuraledutech/taskdep/memory"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	engine := taskdep.New(memory.NewStore(), memory.NewAuditSink())
	return newApp(engine, log.New(io.Discard))
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}

	var decoded map[string]any
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if len(raw) > 0 && raw[0] == '{' {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("%s %s: decode response %q: %v", method, path, raw, err)
		}
	}
	return resp, decoded
}

func createTask(t *testing.T, app *fiber.App, id, priority string) {
	t.Helper()
	resp, _ := doJSON(t, app, http.MethodPost, "/tasks", map[string]any{"id": id, "priority": priority})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create task %s: status %d", id, resp.StatusCode)
	}
}

func createDep(t *testing.T, app *fiber.App, source, target string, hard bool) string {
	t.Helper()
	resp, body := doJSON(t, app, http.MethodPost, "/dependencies", map[string]any{
		"source_task_id":  source,
		"target_task_id":  target,
		"dependency_type": "finish_to_start",
		"hard_block":      hard,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create dependency %s -> %s: status %d body %v", source, target, resp.StatusCode, body)
	}
	return body["id"].(string)
}

func TestAPI_TaskLifecycle(t *testing.T) {
	app := newTestApp(t)

	createTask(t, app, "T1", "high")

	resp, body := doJSON(t, app, http.MethodGet, "/tasks/T1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get task: status %d", resp.StatusCode)
	}
	if body["status"] != "pending" || body["priority"] != "high" {
		t.Errorf("unexpected task body: %v", body)
	}

	resp, body = doJSON(t, app, http.MethodGet, "/tasks/ghost", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing task: status %d", resp.StatusCode)
	}
	if body["code"] != "task_not_found" {
		t.Errorf("expected code task_not_found, got %v", body["code"])
	}

	resp, _ = doJSON(t, app, http.MethodPost, "/tasks", map[string]any{"id": "T1"})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate task: status %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, app, http.MethodDelete, "/tasks/T1", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete task: status %d", resp.StatusCode)
	}
}

func TestAPI_CycleRejection(t *testing.T) {
	app := newTestApp(t)
	for _, id := range []string{"T1", "T2", "T3"} {
		createTask(t, app, id, "medium")
	}
	createDep(t, app, "T1", "T2", false)
	createDep(t, app, "T2", "T3", false)

	resp, body := doJSON(t, app, http.MethodPost, "/dependencies", map[string]any{
		"source_task_id":  "T3",
		"target_task_id":  "T1",
		"dependency_type": "finish_to_start",
	})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("cycle: status %d body %v", resp.StatusCode, body)
	}
	if body["code"] != "cycle_detected" {
		t.Errorf("expected code cycle_detected, got %v", body["code"])
	}
	path, ok := body["path"].([]any)
	if !ok || len(path) != 4 {
		t.Errorf("expected 4-entry cycle path, got %v", body["path"])
	}
}

func TestAPI_SortAndSubgraph(t *testing.T) {
	app := newTestApp(t)
	createTask(t, app, "a", "critical")
	createTask(t, app, "b", "low")
	createTask(t, app, "c", "medium")
	createDep(t, app, "a", "c", false)
	createDep(t, app, "b", "c", false)

	resp, body := doJSON(t, app, http.MethodPost, "/sort", map[string]any{
		"task_ids": []string{"a", "b", "c"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("sort: status %d body %v", resp.StatusCode, body)
	}
	order, _ := body["order"].([]any)
	if len(order) != 3 || order[0] != "a" || order[1] != "b" || order[2] != "c" {
		t.Errorf("expected order [a b c], got %v", order)
	}
	if body["has_cycle"] != false {
		t.Errorf("expected has_cycle false, got %v", body["has_cycle"])
	}

	resp, body = doJSON(t, app, http.MethodPost, "/sort", map[string]any{"task_ids": []string{}})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty subset: status %d", resp.StatusCode)
	}
	if body["code"] != "empty_subset" {
		t.Errorf("expected code empty_subset, got %v", body["code"])
	}

	resp, body = doJSON(t, app, http.MethodGet, "/tasks/c/subgraph?depth=1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("subgraph: status %d", resp.StatusCode)
	}
	tasks, _ := body["tasks"].([]any)
	if len(tasks) != 3 {
		t.Errorf("expected 3 tasks in subgraph, got %v", body["tasks"])
	}
}

func TestAPI_OverrideFlow(t *testing.T) {
	app := newTestApp(t)
	createTask(t, app, "T1", "medium")
	createTask(t, app, "T2", "medium")
	edgeID := createDep(t, app, "T1", "T2", true)

	resp, body := doJSON(t, app, http.MethodPost, "/dependencies/"+edgeID+"/override", map[string]any{
		"overridden_by":   "alice",
		"override_reason": "critical hotfix",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("override: status %d body %v", resp.StatusCode, body)
	}
	dep, _ := body["dependency"].(map[string]any)
	if dep["status"] != "OVERRIDDEN" {
		t.Errorf("expected OVERRIDDEN, got %v", dep["status"])
	}
	rec, _ := body["override_record"].(map[string]any)
	if rec["override_reason"] != "critical hotfix" {
		t.Errorf("unexpected record: %v", rec)
	}

	// Second override conflicts.
	resp, body = doJSON(t, app, http.MethodPost, "/dependencies/"+edgeID+"/override", map[string]any{
		"overridden_by":   "bob",
		"override_reason": "again",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("double override: status %d", resp.StatusCode)
	}
	if body["code"] != "invalid_state" {
		t.Errorf("expected code invalid_state, got %v", body["code"])
	}

	// Audit trail is listable.
	resp, _ = doJSON(t, app, http.MethodGet, "/dependencies/"+edgeID+"/audit", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("audit list: status %d", resp.StatusCode)
	}

	// Missing reason is a 400.
	edge2 := func() string {
		createTask(t, app, "T3", "medium")
		return createDep(t, app, "T2", "T3", true)
	}()
	resp, body = doJSON(t, app, http.MethodPost, "/dependencies/"+edge2+"/override", map[string]any{
		"overridden_by": "alice",
	})
	if resp.StatusCode != http.StatusBadRequest || body["code"] != "missing_reason" {
		t.Errorf("missing reason: status %d code %v", resp.StatusCode, body["code"])
	}
}

func TestAPI_HardBlockConflict(t *testing.T) {
	app := newTestApp(t)
	createTask(t, app, "T1", "medium")
	createTask(t, app, "T2", "medium")
	createDep(t, app, "T1", "T2", true)

	resp, body := doJSON(t, app, http.MethodPatch, "/tasks/T2", map[string]any{"status": "in_progress"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("hard block: status %d body %v", resp.StatusCode, body)
	}
	if body["code"] != "hard_blocked" {
		t.Errorf("expected code hard_blocked, got %v", body["code"])
	}
	if _, ok := body["blocking_edges"].([]any); !ok {
		t.Errorf("expected blocking_edges diagnostic, got %v", body)
	}

	// Blocking query names the same edge.
	resp, _ = doJSON(t, app, http.MethodGet, "/tasks/T2/blocking", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("blocking: status %d", resp.StatusCode)
	}
}

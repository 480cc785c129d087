package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/log"

	"github.com/meikuraledutech/taskdep"
	"github.com/meikuraledutech/taskdep/memory"
)

func main() {
	ctx := context.Background()
	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "example"})

	// The engine runs here on the in-memory store; swap in postgres.New /
	// postgres.NewAuditSink over a pgxpool for durable state.
	engine := taskdep.New(memory.NewStore(), memory.NewAuditSink())

	// ── Register tasks ────────────────────────────────────────────────
	for _, t := range []taskdep.Task{
		{ID: "design-schema", Priority: taskdep.PriorityCritical},
		{ID: "write-migrations", Priority: taskdep.PriorityHigh},
		{ID: "build-api", Priority: taskdep.PriorityMedium},
		{ID: "ship-frontend", Priority: taskdep.PriorityLow},
	} {
		if _, err := engine.AddTask(ctx, &t); err != nil {
			logger.Fatal("add task", "err", err)
		}
	}
	fmt.Println("tasks registered")

	// ── Wire up dependencies ──────────────────────────────────────────
	edges := []taskdep.Dependency{
		{SourceTaskID: "design-schema", TargetTaskID: "write-migrations", Type: taskdep.FinishToStart, HardBlock: true},
		{SourceTaskID: "write-migrations", TargetTaskID: "build-api", Type: taskdep.FinishToStart, HardBlock: true},
		{SourceTaskID: "build-api", TargetTaskID: "ship-frontend", Type: taskdep.StartToStart, LagHours: 8},
	}
	var hard *taskdep.Dependency
	for i := range edges {
		d, err := engine.AddDependency(ctx, &edges[i])
		if err != nil {
			logger.Fatal("add dependency", "err", err)
		}
		if hard == nil {
			hard = d
		}
	}
	fmt.Println("dependencies created")

	// ── Cycle rejection ───────────────────────────────────────────────
	_, err := engine.AddDependency(ctx, &taskdep.Dependency{
		SourceTaskID: "ship-frontend",
		TargetTaskID: "design-schema",
		Type:         taskdep.FinishToStart,
	})
	var cyc *taskdep.CycleError
	if errors.As(err, &cyc) {
		fmt.Printf("\ncycle rejected, path: %v\n", cyc.Path)
	}

	// ── Topological order ─────────────────────────────────────────────
	order, err := engine.TopologicalSort(ctx, []string{
		"design-schema", "write-migrations", "build-api", "ship-frontend",
	})
	if err != nil {
		logger.Fatal("sort", "err", err)
	}
	fmt.Printf("\nexecution order: %v\n", order)

	// ── Emergency override ────────────────────────────────────────────
	d, rec, err := engine.OverrideDependency(ctx, hard.ID, "alice", "critical hotfix must ship tonight",
		&taskdep.OverrideOptions{
			EmergencyJustification: "migration review postponed; downstream build and frontend affected",
		})
	if err != nil {
		logger.Fatal("override", "err", err)
	}
	fmt.Printf("\ndependency %s now %s\n", d.ID, d.Status)
	fmt.Println("override record:")
	printJSON(rec)

	// ── Subgraph for the UI ───────────────────────────────────────────
	sg, err := engine.Subgraph(ctx, "write-migrations", 1)
	if err != nil {
		logger.Fatal("subgraph", "err", err)
	}
	fmt.Println("\nneighborhood of write-migrations:")
	printJSON(sg)
}

func printJSON(v any) {
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(out))
}

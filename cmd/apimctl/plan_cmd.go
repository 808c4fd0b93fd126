package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"

	"github.com/Mindburn-Labs/apimctl/pkg/differ"
	"github.com/Mindburn-Labs/apimctl/pkg/historyindex"
	"github.com/Mindburn-Labs/apimctl/pkg/obs"
	"github.com/Mindburn-Labs/apimctl/pkg/planfile"
	"github.com/Mindburn-Labs/apimctl/pkg/planner"
)

// runPlanCmd implements `apimctl plan` per spec.md §4.7/§6: diffs the
// source tree against recorded state and prints (and optionally saves) a
// plan. `plan` takes no lock — it is a read-only snapshot (spec.md §5).
//
// Exit codes: 0 no changes, 2 changes exist, 1 error.
func runPlanCmd(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("plan", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var f sharedFlags
	registerSharedFlags(fs, &f)
	var (
		sourceDir string
		outPath   string
		only      string
		onlyExpr  string
		verbose   bool
		historyDB string
	)
	fs.StringVar(&sourceDir, "source-dir", ".", "source tree root")
	fs.StringVar(&outPath, "out", "", "write the plan document to this path")
	fs.StringVar(&only, "only", "", "comma-separated kind list to restrict the plan to")
	fs.StringVar(&onlyExpr, "only-expr", "", "CEL boolean expression over {kind, id}, composes with --only")
	fs.BoolVar(&verbose, "verbose", false, "print every change, including noop")
	fs.StringVar(&historyDB, "history-db", "apimctl.history.db", "SQLite plan-history cache path")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	ctx := context.Background()
	logger := slog.Default()

	telemetry, err := obs.New(ctx, obs.ConfigFromEnv(appVersion))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer telemetry.Shutdown(ctx)

	backend, err := buildBackend(ctx, &f, logger)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	state, err := backend.Read(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if state == nil {
		fmt.Fprintln(stderr, "Error: no state found; run 'apimctl init' first")
		return 1
	}

	registry, err := buildRegistry()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	engine := planner.NewEngine(registry)
	var plan *planner.Plan
	if onlyExpr != "" {
		plan, err = engine.GenerateWithExpr(sourceDir, state, parseOnly(only), onlyExpr)
	} else {
		plan, err = engine.Generate(sourceDir, state, parseOnly(only))
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	printPlan(stdout, plan, verbose)
	telemetry.RecordPlanCounts(ctx, plan.Summary.Create, plan.Summary.Update, plan.Summary.Delete, plan.Summary.Noop)

	if outPath != "" {
		if err := planfile.Save(plan, outPath); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Fprintf(stdout, "Plan written to %s\n", outPath)
		recordPlanHistory(ctx, historyDB, plan, outPath, stderr)
	}

	if plan.Summary.Create+plan.Summary.Update+plan.Summary.Delete == 0 {
		return 0
	}
	return 2
}

func printPlan(w io.Writer, plan *planner.Plan, verbose bool) {
	fmt.Fprintf(w, "Plan: %d to create, %d to update, %d to delete, %d unchanged\n",
		plan.Summary.Create, plan.Summary.Update, plan.Summary.Delete, plan.Summary.Noop)
	for _, c := range plan.Changes {
		if !verbose && c.Action == "noop" {
			continue
		}
		fmt.Fprintf(w, "  %s %s (%s)\n", symbolFor(c.Action), c.Key, c.DisplayName)
	}
}

func symbolFor(action differ.Action) string {
	switch action {
	case differ.Create:
		return "+"
	case differ.Update:
		return "~"
	case differ.Delete:
		return "-"
	default:
		return " "
	}
}

// recordPlanHistory writes one entry to the local plan-history cache.
// Failure to record is non-fatal: the plan itself already succeeded and
// was printed/saved, and the history index is a convenience, not a
// correctness requirement.
func recordPlanHistory(ctx context.Context, path string, plan *planner.Plan, planPath string, stderr io.Writer) {
	idx, err := historyindex.Open(path)
	if err != nil {
		fmt.Fprintf(stderr, "Warning: could not open plan-history cache: %v\n", err)
		return
	}
	defer idx.Close()
	if _, err := idx.Record(ctx, plan, planPath); err != nil {
		fmt.Fprintf(stderr, "Warning: could not record plan history: %v\n", err)
	}
}

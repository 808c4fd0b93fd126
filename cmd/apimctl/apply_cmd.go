package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"

	"github.com/Mindburn-Labs/apimctl/pkg/applier"
	"github.com/Mindburn-Labs/apimctl/pkg/obs"
	"github.com/Mindburn-Labs/apimctl/pkg/planfile"
)

// runApplyCmd implements `apimctl apply` per spec.md §4.8/§6: executes a
// previously generated plan (or, with --force, pushes the whole source
// tree without a plan). Acquires the backend's exclusive lock for the
// duration of the run (spec.md §5) and releases it before returning.
//
// Exit codes: 0 success, 1 error.
func runApplyCmd(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("apply", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var f sharedFlags
	registerSharedFlags(fs, &f)
	var (
		sourceDir   string
		planPath    string
		force       bool
		autoApprove bool
		only        string
	)
	fs.StringVar(&sourceDir, "source-dir", ".", "source tree root (used with --force)")
	fs.StringVar(&planPath, "plan", "", "plan document to execute (required unless --force)")
	fs.BoolVar(&force, "force", false, "push the source tree directly, bypassing plan/diff")
	fs.BoolVar(&autoApprove, "auto-approve", false, "skip the interactive confirmation prompt")
	fs.StringVar(&only, "only", "", "comma-separated kind list to restrict --force to")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	if !force && planPath == "" {
		fmt.Fprintln(stderr, "Error: --plan is required unless --force is given")
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

	if err := backend.Lock(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer func() { _ = backend.Unlock(ctx) }()

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

	coords := resolveCoords(&f, state)
	client := buildRESTClient(&f, coords, logger, telemetry)
	app := applier.New(registry, client)

	var result *applier.Result
	if force {
		result, err = app.ApplyForce(ctx, sourceDir, parseOnly(only), backend, state, stdout)
	} else {
		plan, loadErr := planfile.Load(planPath)
		if loadErr != nil {
			fmt.Fprintf(stderr, "Error: %v\n", loadErr)
			return 1
		}
		result, err = app.Apply(ctx, plan.Changes, backend, state, stdout)
	}

	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if result.Error != "" {
		fmt.Fprintf(stderr, "Apply failed after %d/%d changes: %s\n", result.Succeeded, result.Total, result.Error)
		return 1
	}

	fmt.Fprintf(stdout, "Apply complete: %d/%d changes\n", result.Succeeded, result.Total)
	return 0
}

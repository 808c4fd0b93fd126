package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"

	"github.com/Mindburn-Labs/apimctl/pkg/extractor"
	"github.com/Mindburn-Labs/apimctl/pkg/obs"
)

// runExtractCmd implements `apimctl extract` per spec.md §4.9/§6:
// snapshots the live control plane into a source tree. Per-kind lenient:
// a failing kind is reported and skipped, extraction continues (spec.md
// §7). --update-state acquires the lock before writing (spec.md §5).
//
// Exit codes: 0 success, 1 error.
func runExtractCmd(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("extract", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var f sharedFlags
	registerSharedFlags(fs, &f)
	var (
		outputDir   string
		only        string
		updateState bool
		archive     string
	)
	fs.StringVar(&outputDir, "output-dir", ".", "source tree root to write extracted artifacts into")
	fs.StringVar(&only, "only", "", "comma-separated kind list to restrict extraction to")
	fs.BoolVar(&updateState, "update-state", false, "replace recorded state with the extracted artifact set")
	fs.StringVar(&archive, "archive", "", "optional gs://bucket/prefix to mirror the extracted tree to")
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

	var archiver extractor.Archiver
	if archive != "" {
		archiver, err = newArchiverFor(ctx, archive)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
	}

	registry, err := buildRegistry()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	coordState := readStateForCoords(ctx, backend)
	coords := resolveCoords(&f, coordState)
	client := buildRESTClient(&f, coords, logger, telemetry)

	ext := extractor.New(registry, client, archiver)
	result, err := ext.Extract(ctx, outputDir, parseOnly(only), stdout)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if updateState {
		if err := backend.Lock(ctx); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		defer func() { _ = backend.Unlock(ctx) }()

		if coordState == nil {
			fmt.Fprintln(stderr, "Error: no state found; run 'apimctl init' first")
			return 1
		}
		if err := ext.UpdateState(ctx, backend, coordState, result, stdout); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
	}

	total := 0
	for _, n := range result.Counts {
		total += n
	}
	fmt.Fprintf(stdout, "Extract complete: %d artifacts across %d kinds\n", total, len(result.Counts))
	return 0
}

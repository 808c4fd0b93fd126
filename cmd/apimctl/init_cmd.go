package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
)

// runInitCmd implements `apimctl init` per spec.md §6: creates (or adopts,
// if one already exists) the state document for a target service.
//
// Exit codes: 0 success, 1 error.
func runInitCmd(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var f sharedFlags
	registerSharedFlags(fs, &f)
	if err := fs.Parse(args); err != nil {
		return 1
	}

	ctx := context.Background()
	logger := slog.Default()

	backend, err := buildBackend(ctx, &f, logger)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	existing := readStateForCoords(ctx, backend)
	coords := resolveCoords(&f, existing)
	if coords.SubscriptionID == "" || coords.ResourceGroup == "" || coords.ServiceName == "" {
		fmt.Fprintln(stderr, "Error: --subscription-id, --resource-group, and --service-name (or their env/state equivalents) are required")
		return 1
	}

	state, err := backend.Init(ctx, coords.SubscriptionID, coords.ResourceGroup, coords.ServiceName)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "Initialized state for %s/%s/%s (%d artifacts recorded)\n",
		state.SubscriptionID, state.ResourceGroup, state.APIMService, len(state.Artifacts))
	return 0
}

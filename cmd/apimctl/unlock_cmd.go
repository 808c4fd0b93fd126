package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
)

// runUnlockCmd implements `apimctl force-unlock`: removes a stale
// exclusive lock left behind by a crashed apply (or extract
// --update-state) run.
//
// Exit codes: 0 success, 1 error.
func runUnlockCmd(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("force-unlock", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var f sharedFlags
	registerSharedFlags(fs, &f)
	if err := fs.Parse(args); err != nil {
		return 1
	}

	ctx := context.Background()
	backend, err := buildBackend(ctx, &f, slog.Default())
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if err := backend.ForceUnlock(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Fprintln(stdout, "Lock removed")
	return 0
}

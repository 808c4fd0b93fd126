package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/Mindburn-Labs/apimctl/pkg/historyindex"
)

// runHistoryCmd implements `apimctl history`, an additive verb beyond
// spec.md's core surface (SPEC_FULL.md §7): lists past `plan --out` runs
// recorded in the local SQLite plan-history cache.
//
// Exit codes: 0 success, 1 error.
func runHistoryCmd(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		historyDB string
		limit     int
	)
	fs.StringVar(&historyDB, "history-db", "apimctl.history.db", "SQLite plan-history cache path")
	fs.IntVar(&limit, "limit", 20, "maximum number of entries to show")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	idx, err := historyindex.Open(historyDB)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer idx.Close()

	entries, err := idx.List(context.Background(), limit)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if len(entries) == 0 {
		fmt.Fprintln(stdout, "No recorded plans")
		return 0
	}

	for _, e := range entries {
		fmt.Fprintf(stdout, "#%d  %s  %s -> %s  (+%d ~%d -%d =%d)\n",
			e.ID, e.GeneratedAt.Format("2006-01-02T15:04:05Z"), e.SourceDir, e.PlanPath,
			e.Create, e.Update, e.Delete, e.Noop)
	}
	return 0
}

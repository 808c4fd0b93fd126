// Command apimctl is a Terraform-style reconciliation engine for a
// managed API gateway control plane: it reads a declarative source tree,
// diffs it against recorded state, and applies the difference. Grounded
// on cmd/helm/main.go's dispatcher shape.
package main

import (
	"fmt"
	"io"
	"os"
)

// appVersion tags the telemetry resource; bumped by hand per release.
const appVersion = "0.1.0"

func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// Run is the entrypoint for both main() and tests.
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		printUsage(stdout)
		return 1
	}

	switch args[1] {
	case "init":
		return runInitCmd(args[2:], stdout, stderr)
	case "plan":
		return runPlanCmd(args[2:], stdout, stderr)
	case "apply":
		return runApplyCmd(args[2:], stdout, stderr)
	case "extract":
		return runExtractCmd(args[2:], stdout, stderr)
	case "force-unlock":
		return runUnlockCmd(args[2:], stdout, stderr)
	case "history":
		return runHistoryCmd(args[2:], stdout, stderr)
	case "help", "--help", "-h":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[1])
		printUsage(stderr)
		return 1
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "apimctl — declarative reconciliation for an API Management control plane")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "USAGE:")
	fmt.Fprintln(w, "  apimctl <command> [flags]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "COMMANDS:")
	fmt.Fprintln(w, "  init          Create or adopt a state document for a target service")
	fmt.Fprintln(w, "  plan          Diff the source tree against state and write a plan")
	fmt.Fprintln(w, "  apply         Execute a plan, or push the source tree with --force")
	fmt.Fprintln(w, "  extract       Snapshot the live control plane into a source tree")
	fmt.Fprintln(w, "  force-unlock  Remove a stale exclusive lock")
	fmt.Fprintln(w, "  history       List previously generated plans (local SQLite cache)")
	fmt.Fprintln(w, "  help          Show this help")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'apimctl <command> -h' for command-specific flags.")
}

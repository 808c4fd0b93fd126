package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/Mindburn-Labs/apimctl/pkg/artifact"
	"github.com/Mindburn-Labs/apimctl/pkg/statestore"
)

func TestRunNoArgsPrintsUsage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run([]string{"apimctl"}, &stdout, &stderr)
	if code != 1 {
		t.Errorf("code = %d, want 1", code)
	}
	if !bytes.Contains(stdout.Bytes(), []byte("USAGE")) {
		t.Errorf("expected usage text, got %q", stdout.String())
	}
}

func TestRunUnknownCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run([]string{"apimctl", "bogus"}, &stdout, &stderr)
	if code != 1 {
		t.Errorf("code = %d, want 1", code)
	}
	if !bytes.Contains(stderr.Bytes(), []byte("Unknown command")) {
		t.Errorf("expected unknown command message, got %q", stderr.String())
	}
}

func TestRunHelp(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run([]string{"apimctl", "help"}, &stdout, &stderr)
	if code != 0 {
		t.Errorf("code = %d, want 0", code)
	}
}

func TestInitThenPlanNoChanges(t *testing.T) {
	dir := t.TempDir()
	statePath := filepath.Join(dir, "state.json")
	sourceDir := filepath.Join(dir, "apiops")

	var stdout, stderr bytes.Buffer
	code := Run([]string{
		"apimctl", "init",
		"--state-file", statePath,
		"--subscription-id", "sub", "--resource-group", "rg", "--service-name", "svc",
	}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("init code = %d, stderr = %s", code, stderr.String())
	}

	stdout.Reset()
	stderr.Reset()
	code = Run([]string{
		"apimctl", "plan",
		"--state-file", statePath,
		"--source-dir", sourceDir,
	}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("plan code = %d, stderr = %s", code, stderr.String())
	}
	if !bytes.Contains(stdout.Bytes(), []byte("0 to create")) {
		t.Errorf("expected no-change summary, got %q", stdout.String())
	}
}

// TestPlanNoopOnlyExitsZero covers the case the naive len(plan.Changes)==0
// check missed: a source tree that already matches state produces one
// NOOP change per artifact (differ.Diff always emits a change for every
// key), so the zero-changes exit code must come from the summary's
// create/update/delete totals, not the change count.
func TestPlanNoopOnlyExitsZero(t *testing.T) {
	dir := t.TempDir()
	statePath := filepath.Join(dir, "state.json")
	sourceDir := filepath.Join(dir, "apiops")

	tagsDir := filepath.Join(sourceDir, "tags")
	if err := os.MkdirAll(tagsDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	props := map[string]interface{}{"displayName": "Foo"}
	data, err := json.Marshal(props)
	if err != nil {
		t.Fatalf("marshal props: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tagsDir, "foo.json"), data, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	hash, err := (artifact.Artifact{Kind: "tag", ID: "foo", Properties: props}).Hash()
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	state := statestore.Empty("sub", "rg", "svc")
	state.Artifacts["tag:foo"] = statestore.Artifact{Kind: "tag", ID: "foo", Hash: hash, Properties: props}
	if err := statestore.NewLocalBackend(statePath).Write(context.Background(), state); err != nil {
		t.Fatalf("write state: %v", err)
	}

	var stdout, stderr bytes.Buffer
	code := Run([]string{
		"apimctl", "plan",
		"--state-file", statePath,
		"--source-dir", sourceDir,
	}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("code = %d, want 0 (noop-only plan), stderr = %s, stdout = %s", code, stderr.String(), stdout.String())
	}
	if !bytes.Contains(stdout.Bytes(), []byte("1 unchanged")) {
		t.Errorf("expected one noop entry reported, got %q", stdout.String())
	}
}

func TestPlanWithoutStateErrors(t *testing.T) {
	dir := t.TempDir()
	var stdout, stderr bytes.Buffer
	code := Run([]string{
		"apimctl", "plan",
		"--state-file", filepath.Join(dir, "missing.json"),
		"--source-dir", dir,
	}, &stdout, &stderr)
	if code != 1 {
		t.Fatalf("code = %d, want 1, stderr = %s", code, stderr.String())
	}
}

func TestForceUnlockOnAbsentLockIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	var stdout, stderr bytes.Buffer
	code := Run([]string{
		"apimctl", "force-unlock",
		"--state-file", filepath.Join(dir, "state.json"),
	}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("code = %d, stderr = %s", code, stderr.String())
	}
}

func TestPlanWithOutRecordsHistory(t *testing.T) {
	dir := t.TempDir()
	statePath := filepath.Join(dir, "state.json")
	sourceDir := filepath.Join(dir, "apiops")
	planPath := filepath.Join(dir, "plan.json")
	historyPath := filepath.Join(dir, "history.db")

	var stdout, stderr bytes.Buffer
	if code := Run([]string{
		"apimctl", "init",
		"--state-file", statePath,
		"--subscription-id", "sub", "--resource-group", "rg", "--service-name", "svc",
	}, &stdout, &stderr); code != 0 {
		t.Fatalf("init code = %d, stderr = %s", code, stderr.String())
	}

	stdout.Reset()
	stderr.Reset()
	code := Run([]string{
		"apimctl", "plan",
		"--state-file", statePath,
		"--source-dir", sourceDir,
		"--out", planPath,
		"--history-db", historyPath,
	}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("plan code = %d, stderr = %s", code, stderr.String())
	}

	stdout.Reset()
	stderr.Reset()
	code = Run([]string{"apimctl", "history", "--history-db", historyPath}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("history code = %d, stderr = %s", code, stderr.String())
	}
	if !bytes.Contains(stdout.Bytes(), []byte(planPath)) {
		t.Errorf("expected recorded plan path in history output, got %q", stdout.String())
	}
}

package planner

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Mindburn-Labs/apimctl/pkg/artifact"
	"github.com/Mindburn-Labs/apimctl/pkg/differ"
	"github.com/Mindburn-Labs/apimctl/pkg/kinds"
	"github.com/Mindburn-Labs/apimctl/pkg/statestore"
)

func newTestRegistry(t *testing.T) *artifact.Registry {
	t.Helper()
	reg, err := artifact.NewRegistry(kinds.All())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return reg
}

func TestGeneratePlanCreateFromEmptyState(t *testing.T) {
	dir := t.TempDir()
	backendsDir := filepath.Join(dir, "backends")
	if err := os.MkdirAll(backendsDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(backendsDir, "echo.json"), []byte(`{"url":"https://echo"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	eng := NewEngine(newTestRegistry(t)).WithClock(func() time.Time {
		return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	})
	plan, err := eng.Generate(dir, nil, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if plan.Summary.Create != 1 {
		t.Fatalf("expected 1 create, got summary=%+v changes=%+v", plan.Summary, plan.Changes)
	}
	if plan.Changes[0].Key != "backend:echo" {
		t.Errorf("key = %q", plan.Changes[0].Key)
	}
}

func TestGeneratePlanNoopWhenStateMatches(t *testing.T) {
	dir := t.TempDir()
	backendsDir := filepath.Join(dir, "backends")
	if err := os.MkdirAll(backendsDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(backendsDir, "echo.json"), []byte(`{"url":"https://echo"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	reg := newTestRegistry(t)
	backendKind, _ := reg.Get("backend")
	artifacts, err := backendKind.ReadLocal(dir)
	if err != nil {
		t.Fatal(err)
	}
	a := artifacts["echo"]
	hash, err := a.Hash()
	if err != nil {
		t.Fatal(err)
	}

	state := statestore.Empty("sub", "rg", "svc")
	state.Artifacts["backend:echo"] = statestore.Artifact{Kind: "backend", ID: "echo", Hash: hash, Properties: a.Properties}

	eng := NewEngine(reg)
	plan, err := eng.Generate(dir, state, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if plan.Summary.Noop != 1 || plan.Summary.Create != 0 {
		t.Fatalf("expected noop, got %+v", plan.Summary)
	}
}

func TestGeneratePlanOnlyFilter(t *testing.T) {
	dir := t.TempDir()
	for _, sub := range []string{"backends", "loggers"} {
		d := filepath.Join(dir, sub)
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "backends", "echo.json"), []byte(`{"url":"https://echo"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "loggers", "app.json"), []byte(`{"loggerType":"azureMonitor"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	eng := NewEngine(newTestRegistry(t))
	plan, err := eng.Generate(dir, nil, []string{"backend"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if plan.Summary.Create != 1 {
		t.Fatalf("expected only backend included, got %+v", plan.Changes)
	}
}

func TestGenerateWithExprFiltersByKind(t *testing.T) {
	dir := t.TempDir()
	for _, sub := range []string{"backends", "loggers"} {
		d := filepath.Join(dir, sub)
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "backends", "echo.json"), []byte(`{"url":"https://echo"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "loggers", "app.json"), []byte(`{"loggerType":"azureMonitor"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	eng := NewEngine(newTestRegistry(t))
	plan, err := eng.GenerateWithExpr(dir, nil, nil, `kind == "backend"`)
	if err != nil {
		t.Fatalf("GenerateWithExpr: %v", err)
	}
	if plan.Summary.Create != 1 || plan.Changes[0].Kind != "backend" {
		t.Fatalf("expected only backend included, got %+v", plan.Changes)
	}
}

func TestGenerateWithExprRejectsBadExpression(t *testing.T) {
	eng := NewEngine(newTestRegistry(t))
	if _, err := eng.GenerateWithExpr(t.TempDir(), nil, nil, `kind +++ nonsense`); err == nil {
		t.Fatal("expected compile error for malformed expression")
	}
}

func TestOrderForExecutionCreatesForwardDeletesReverse(t *testing.T) {
	changes := []differ.Change{
		{Action: differ.Delete, Kind: "named_value"},
		{Action: differ.Create, Kind: "product"},
		{Action: differ.Delete, Kind: "product"},
		{Action: differ.Create, Kind: "named_value"},
	}
	ordered := OrderForExecution(changes)
	if len(ordered) != 4 {
		t.Fatalf("expected 4 changes, got %d", len(ordered))
	}
	// creates/updates first, in deploy order: named_value before product
	if ordered[0].Kind != "named_value" || ordered[0].Action != differ.Create {
		t.Errorf("ordered[0] = %+v", ordered[0])
	}
	if ordered[1].Kind != "product" || ordered[1].Action != differ.Create {
		t.Errorf("ordered[1] = %+v", ordered[1])
	}
	// deletes last, in reverse deploy order: product before named_value
	if ordered[2].Kind != "product" || ordered[2].Action != differ.Delete {
		t.Errorf("ordered[2] = %+v", ordered[2])
	}
	if ordered[3].Kind != "named_value" || ordered[3].Action != differ.Delete {
		t.Errorf("ordered[3] = %+v", ordered[3])
	}
}

package planfile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Mindburn-Labs/apimctl/pkg/differ"
	"github.com/Mindburn-Labs/apimctl/pkg/planner"
)

func samplePlan() *planner.Plan {
	return &planner.Plan{
		GeneratedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		SourceDir:   "./apiops",
		Summary:     planner.Summary{Create: 1, Noop: 1},
		Changes: []differ.Change{
			{Action: differ.Create, Key: "backend:echo", Kind: "backend", ID: "echo", DisplayName: "echo", Detail: "new"},
			{Action: differ.Noop, Key: "backend:zebra", Kind: "backend", ID: "zebra", DisplayName: "zebra", Detail: "unchanged"},
		},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.json")
	plan := samplePlan()

	if err := Save(plan, path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.SourceDir != plan.SourceDir || got.Summary.Create != 1 {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
	if len(got.Changes) != 2 || got.Changes[0].Key != "backend:echo" {
		t.Fatalf("changes mismatch: %+v", got.Changes)
	}
}

func TestLoadRejectsMissingRequiredField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.json")
	// Missing "summary" entirely.
	if err := os.WriteFile(path, []byte(`{"generated_at":"2026-01-01T00:00:00Z","source_dir":"x","changes":[]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected schema validation error for missing summary")
	}
}

func TestLoadRejectsInvalidAction(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.json")
	body := `{
		"generated_at": "2026-01-01T00:00:00Z",
		"source_dir": "x",
		"summary": {"create": 1, "update": 0, "delete": 0, "noop": 0},
		"changes": [{"action": "explode", "key": "backend:echo", "type": "backend", "id": "echo", "display_name": "echo", "detail": "new"}]
	}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected schema validation error for invalid action enum")
	}
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.json")
	if err := os.WriteFile(path, []byte(`{not json`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

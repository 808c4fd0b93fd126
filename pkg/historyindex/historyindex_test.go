package historyindex

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Mindburn-Labs/apimctl/pkg/planner"
)

func samplePlan(t time.Time) *planner.Plan {
	return &planner.Plan{
		GeneratedAt: t,
		SourceDir:   "./apiops",
		Summary:     planner.Summary{Create: 2, Update: 1, Delete: 0, Noop: 5},
	}
}

func TestRecordAndGet(t *testing.T) {
	idx, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer idx.Close()

	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	id, err := idx.Record(context.Background(), samplePlan(ts), "./plan.json")
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	entry, err := idx.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if entry.SourceDir != "./apiops" || entry.PlanPath != "./plan.json" {
		t.Errorf("entry = %+v", entry)
	}
	if entry.Create != 2 || entry.Update != 1 || entry.Noop != 5 {
		t.Errorf("entry counts = %+v", entry)
	}
	if !entry.GeneratedAt.Equal(ts) {
		t.Errorf("GeneratedAt = %v, want %v", entry.GeneratedAt, ts)
	}
}

func TestListOrdersNewestFirst(t *testing.T) {
	idx, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer idx.Close()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		plan := samplePlan(base.Add(time.Duration(i) * time.Hour))
		if _, err := idx.Record(context.Background(), plan, "plan.json"); err != nil {
			t.Fatalf("Record %d: %v", i, err)
		}
	}

	entries, err := idx.List(context.Background(), 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].ID <= entries[1].ID {
		t.Errorf("expected newest first, got ids %d then %d", entries[0].ID, entries[1].ID)
	}
}

func TestGetMissingEntryErrors(t *testing.T) {
	idx, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer idx.Close()

	if _, err := idx.Get(context.Background(), 999); err == nil {
		t.Fatal("expected error for missing entry")
	}
}

package applier

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Mindburn-Labs/apimctl/pkg/artifact"
	"github.com/Mindburn-Labs/apimctl/pkg/differ"
	"github.com/Mindburn-Labs/apimctl/pkg/kinds"
	"github.com/Mindburn-Labs/apimctl/pkg/restclient"
	"github.com/Mindburn-Labs/apimctl/pkg/statestore"
)

type fakeClient struct {
	puts      []string
	deletes   []string
	putErr    error
	putFailAt int // 1-based Put call index at which to fail; 0 = never
}

func (f *fakeClient) Get(ctx context.Context, path string) (map[string]interface{}, error) {
	return nil, nil
}
func (f *fakeClient) List(ctx context.Context, path string) ([]map[string]interface{}, error) {
	return nil, nil
}
func (f *fakeClient) Put(ctx context.Context, path string, body map[string]interface{}) (map[string]interface{}, error) {
	f.puts = append(f.puts, path)
	if f.putErr != nil && len(f.puts) == f.putFailAt {
		return nil, f.putErr
	}
	return body, nil
}
func (f *fakeClient) Delete(ctx context.Context, path string) error {
	f.deletes = append(f.deletes, path)
	return nil
}

type memBackend struct {
	writes []*statestore.State
}

func (m *memBackend) Init(ctx context.Context, sub, rg, svc string) (*statestore.State, error) {
	return statestore.Empty(sub, rg, svc), nil
}
func (m *memBackend) Read(ctx context.Context) (*statestore.State, error) { return nil, nil }
func (m *memBackend) Write(ctx context.Context, s *statestore.State) error {
	m.writes = append(m.writes, s)
	return nil
}
func (m *memBackend) Lock(ctx context.Context) error        { return nil }
func (m *memBackend) Unlock(ctx context.Context) error      { return nil }
func (m *memBackend) ForceUnlock(ctx context.Context) error { return nil }

func testRegistry(t *testing.T) *artifact.Registry {
	t.Helper()
	reg, err := artifact.NewRegistry(kinds.All())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return reg
}

func TestApplyCreateWritesStateAndPuts(t *testing.T) {
	client := &fakeClient{}
	backend := &memBackend{}
	state := statestore.Empty("sub", "rg", "svc")
	a := New(testRegistry(t), client)

	changes := []differ.Change{
		{Action: differ.Create, Key: "backend:echo", Kind: "backend", ID: "echo", DisplayName: "echo",
			New: &differ.Side{Kind: "backend", ID: "echo", Hash: "sha256:a", Properties: map[string]interface{}{"url": "https://echo"}}},
	}

	result, err := a.Apply(context.Background(), changes, backend, state, &discard{})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if result.Succeeded != 1 || result.Total != 1 || result.Error != "" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(client.puts) != 1 || client.puts[0] != "/backends/echo" {
		t.Fatalf("puts = %v", client.puts)
	}
	if state.Artifacts["backend:echo"].Hash != "sha256:a" {
		t.Fatalf("state not updated: %+v", state.Artifacts)
	}
	if len(backend.writes) != 2 { // one after the change, one for last_applied
		t.Fatalf("expected 2 state writes, got %d", len(backend.writes))
	}
	if state.LastApplied == nil {
		t.Fatal("expected LastApplied to be stamped")
	}
}

func TestApplyDeleteRemovesFromState(t *testing.T) {
	client := &fakeClient{}
	backend := &memBackend{}
	state := statestore.Empty("sub", "rg", "svc")
	state.Artifacts["backend:echo"] = statestore.Artifact{Kind: "backend", ID: "echo", Hash: "sha256:a"}
	a := New(testRegistry(t), client)

	changes := []differ.Change{
		{Action: differ.Delete, Key: "backend:echo", Kind: "backend", ID: "echo",
			Old: &differ.Side{Kind: "backend", ID: "echo", Hash: "sha256:a"}},
	}

	result, err := a.Apply(context.Background(), changes, backend, state, &discard{})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if result.Succeeded != 1 {
		t.Fatalf("result = %+v", result)
	}
	if _, ok := state.Artifacts["backend:echo"]; ok {
		t.Fatal("expected artifact removed from state")
	}
	if len(client.deletes) != 1 || client.deletes[0] != "/backends/echo" {
		t.Fatalf("deletes = %v", client.deletes)
	}
}

func TestApplyStopsAtFirstErrorWithoutRollback(t *testing.T) {
	client := &fakeClient{putErr: &restclient.Fault{StatusCode: 500, Message: "boom", ErrorCode: "InternalError", RequestID: "req-1"}, putFailAt: 2}
	backend := &memBackend{}
	state := statestore.Empty("sub", "rg", "svc")
	a := New(testRegistry(t), client)

	changes := []differ.Change{
		{Action: differ.Create, Key: "backend:a", Kind: "backend", ID: "a", DisplayName: "a",
			New: &differ.Side{Kind: "backend", ID: "a", Hash: "sha256:a", Properties: map[string]interface{}{"url": "https://a"}}},
		{Action: differ.Create, Key: "backend:b", Kind: "backend", ID: "b", DisplayName: "b",
			New: &differ.Side{Kind: "backend", ID: "b", Hash: "sha256:b", Properties: map[string]interface{}{"url": "https://b"}}},
	}

	result, err := a.Apply(context.Background(), changes, backend, state, &discard{})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if result.Succeeded != 1 || result.Total != 2 {
		t.Fatalf("result = %+v", result)
	}
	if result.Error == "" {
		t.Fatal("expected error message")
	}
	if _, ok := state.Artifacts["backend:a"]; !ok {
		t.Fatal("first change's state mutation must not be rolled back")
	}
	if _, ok := state.Artifacts["backend:b"]; ok {
		t.Fatal("second change must not have been applied")
	}
}

func TestApplyNoChangesReturnsEmptyResult(t *testing.T) {
	client := &fakeClient{}
	backend := &memBackend{}
	state := statestore.Empty("sub", "rg", "svc")
	a := New(testRegistry(t), client)

	changes := []differ.Change{{Action: differ.Noop, Key: "backend:echo"}}
	result, err := a.Apply(context.Background(), changes, backend, state, &discard{})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if result.Total != 0 || result.Succeeded != 0 {
		t.Fatalf("expected empty result, got %+v", result)
	}
	if len(backend.writes) != 0 {
		t.Fatalf("expected no state writes for a no-op plan, got %d", len(backend.writes))
	}
}

func TestApplyForcePushesEveryLocalArtifact(t *testing.T) {
	dir := t.TempDir()
	backendsDir := filepath.Join(dir, "backends")
	if err := os.MkdirAll(backendsDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(backendsDir, "echo.json"), []byte(`{"url":"https://echo"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	client := &fakeClient{}
	backend := &memBackend{}
	state := statestore.Empty("sub", "rg", "svc")
	state.Artifacts["stale:entry"] = statestore.Artifact{Kind: "stale", ID: "entry"}
	a := New(testRegistry(t), client)

	result, err := a.ApplyForce(context.Background(), dir, []string{"backend"}, backend, state, &discard{})
	if err != nil {
		t.Fatalf("ApplyForce: %v", err)
	}
	if result.Total != 1 || result.Succeeded != 1 {
		t.Fatalf("result = %+v", result)
	}
	if _, ok := state.Artifacts["stale:entry"]; ok {
		t.Fatal("expected force apply to clear prior state artifacts")
	}
	if _, ok := state.Artifacts["backend:echo"]; !ok {
		t.Fatal("expected backend:echo in rebuilt state")
	}
}

type discard struct{}

func (d *discard) Write(p []byte) (int, error) { return len(p), nil }

package apimconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Mindburn-Labs/apimctl/pkg/statestore"
)

func fakeEnv(vars map[string]string) EnvLookup {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestResolveTargetCoordsFlagWins(t *testing.T) {
	state := statestore.Empty("state-sub", "state-rg", "state-svc")
	lookup := fakeEnv(map[string]string{"APIM_SUBSCRIPTION_ID": "env-sub"})

	got := ResolveTargetCoords(TargetCoords{SubscriptionID: "flag-sub"}, lookup, state)
	if got.SubscriptionID != "flag-sub" {
		t.Errorf("SubscriptionID = %q, want flag value", got.SubscriptionID)
	}
}

func TestResolveTargetCoordsEnvBeatsState(t *testing.T) {
	state := statestore.Empty("state-sub", "state-rg", "state-svc")
	lookup := fakeEnv(map[string]string{"APIM_RESOURCE_GROUP": "env-rg"})

	got := ResolveTargetCoords(TargetCoords{}, lookup, state)
	if got.ResourceGroup != "env-rg" {
		t.Errorf("ResourceGroup = %q, want env value", got.ResourceGroup)
	}
}

func TestResolveTargetCoordsFallsBackToState(t *testing.T) {
	state := statestore.Empty("state-sub", "state-rg", "state-svc")
	got := ResolveTargetCoords(TargetCoords{}, fakeEnv(nil), state)
	if got.ServiceName != "state-svc" {
		t.Errorf("ServiceName = %q, want state value", got.ServiceName)
	}
}

func TestResolveTargetCoordsFieldsResolveIndependently(t *testing.T) {
	state := statestore.Empty("state-sub", "state-rg", "state-svc")
	lookup := fakeEnv(map[string]string{"APIM_SUBSCRIPTION_ID": "env-sub"})

	got := ResolveTargetCoords(TargetCoords{ServiceName: "flag-svc"}, lookup, state)
	if got.SubscriptionID != "env-sub" || got.ResourceGroup != "state-rg" || got.ServiceName != "flag-svc" {
		t.Errorf("got = %+v", got)
	}
}

func TestResolveTargetCoordsNilState(t *testing.T) {
	got := ResolveTargetCoords(TargetCoords{}, fakeEnv(nil), nil)
	if got.SubscriptionID != "" {
		t.Errorf("expected empty coords with nil state and no flags/env, got %+v", got)
	}
}

func TestLoadProjectDefaultsMissingFileIsNotError(t *testing.T) {
	defaults, err := LoadProjectDefaults(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadProjectDefaults: %v", err)
	}
	if defaults.Backend != "" {
		t.Errorf("expected zero-value defaults, got %+v", defaults)
	}
}

func TestLoadProjectDefaultsParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apimctl.yaml")
	body := "backend: local\nstate_file: ./apimctl.state.json\nsource_dir: ./apiops\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	defaults, err := LoadProjectDefaults(path)
	if err != nil {
		t.Fatalf("LoadProjectDefaults: %v", err)
	}
	if defaults.Backend != "local" || defaults.SourceDir != "./apiops" {
		t.Errorf("got = %+v", defaults)
	}
}

func TestProjectDefaultsMergeOverridesWin(t *testing.T) {
	base := ProjectDefaults{Backend: "local", SourceDir: "./apiops"}
	merged := base.Merge(ProjectDefaults{Backend: "blob"})
	if merged.Backend != "blob" || merged.SourceDir != "./apiops" {
		t.Errorf("got = %+v", merged)
	}
}

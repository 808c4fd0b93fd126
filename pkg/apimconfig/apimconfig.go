// Package apimconfig resolves the engine's target coordinates (the
// subscription/resource-group/service-name triple identifying a control
// plane instance) through the CLI's strict priority chain, and loads an
// optional per-project YAML file of lowest-priority defaults. Grounded on
// pkg/config/config.go's Load()-from-environment style, extended with
// the override chain spec.md §6 requires.
package apimconfig

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Mindburn-Labs/apimctl/pkg/statestore"
)

// TargetCoords identifies one control plane instance.
type TargetCoords struct {
	SubscriptionID string
	ResourceGroup  string
	ServiceName    string
}

// EnvLookup matches os.LookupEnv's signature; injectable for tests.
type EnvLookup func(key string) (string, bool)

// ResolveTargetCoords applies spec.md §6's strict priority chain per
// field: CLI flag (flags, non-empty fields win) → environment variable
// (APIM_SUBSCRIPTION_ID, APIM_RESOURCE_GROUP, APIM_SERVICE_NAME) → state
// file, if one was loaded. Fields resolve independently — a flag
// supplying only ServiceName doesn't block SubscriptionID from falling
// through to env/state.
func ResolveTargetCoords(flags TargetCoords, lookup EnvLookup, state *statestore.State) TargetCoords {
	var stateSub, stateRG, stateSvc string
	if state != nil {
		stateSub, stateRG, stateSvc = state.SubscriptionID, state.ResourceGroup, state.APIMService
	}
	return TargetCoords{
		SubscriptionID: firstNonEmpty(flags.SubscriptionID, envValue(lookup, "APIM_SUBSCRIPTION_ID"), stateSub),
		ResourceGroup:  firstNonEmpty(flags.ResourceGroup, envValue(lookup, "APIM_RESOURCE_GROUP"), stateRG),
		ServiceName:    firstNonEmpty(flags.ServiceName, envValue(lookup, "APIM_SERVICE_NAME"), stateSvc),
	}
}

func envValue(lookup EnvLookup, key string) string {
	if lookup == nil {
		return ""
	}
	if v, ok := lookup(key); ok {
		return v
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// ProjectDefaults is the optional apimctl.yaml project-default file: a
// fourth, lowest-priority source supplying backend defaults only (never
// target coordinates — those always resolve through ResolveTargetCoords).
type ProjectDefaults struct {
	Backend   string `yaml:"backend"`
	StateFile string `yaml:"state_file"`
	SourceDir string `yaml:"source_dir"`
	OutputDir string `yaml:"output_dir"`
}

// LoadProjectDefaults reads path (typically "./apimctl.yaml"). A missing
// file is not an error — it returns a zero-value ProjectDefaults, since
// the file is wholly optional.
func LoadProjectDefaults(path string) (*ProjectDefaults, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &ProjectDefaults{}, nil
		}
		return nil, fmt.Errorf("apimconfig: read %s: %w", path, err)
	}
	var defaults ProjectDefaults
	if err := yaml.Unmarshal(data, &defaults); err != nil {
		return nil, fmt.Errorf("apimconfig: parse %s: %w", path, err)
	}
	return &defaults, nil
}

// Merge overlays non-empty fields of override onto a copy of d; used to
// apply a higher-priority source (CLI flag, env var) on top of the
// project-default backend fields.
func (d ProjectDefaults) Merge(override ProjectDefaults) ProjectDefaults {
	return ProjectDefaults{
		Backend:   firstNonEmpty(override.Backend, d.Backend),
		StateFile: firstNonEmpty(override.StateFile, d.StateFile),
		SourceDir: firstNonEmpty(override.SourceDir, d.SourceDir),
		OutputDir: firstNonEmpty(override.OutputDir, d.OutputDir),
	}
}

// Package planfile persists a planner.Plan to and from disk as JSON,
// validating the decoded document against an embedded JSON Schema before
// it is trusted — catches a hand-edited or truncated plan file before
// apply --plan consumes it. Grounded on
// original_source/src/apy_ops/planner.py's save_plan/load_plan.
package planfile

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Mindburn-Labs/apimctl/pkg/planner"
)

// Save writes plan to path as indented JSON, matching planner.py's
// save_plan (json.dump(..., indent=2) plus a trailing newline).
func Save(plan *planner.Plan, path string) error {
	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return fmt.Errorf("planfile: encode plan: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("planfile: write %s: %w", path, err)
	}
	return nil
}

// Load reads path, validates it against the plan document schema, and
// decodes it into a planner.Plan. A plan file that fails schema
// validation (wrong types, missing required fields) is rejected before
// any of its changes reach the applier.
func Load(path string) (*planner.Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("planfile: read %s: %w", path, err)
	}

	var generic interface{}
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("planfile: %s is not valid JSON: %w", path, err)
	}

	schema, err := compiledPlanSchema()
	if err != nil {
		return nil, fmt.Errorf("planfile: compile schema: %w", err)
	}
	if err := schema.Validate(generic); err != nil {
		return nil, fmt.Errorf("planfile: %s failed schema validation: %w", path, err)
	}

	var plan planner.Plan
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("planfile: decode %s: %w", path, err)
	}
	return &plan, nil
}

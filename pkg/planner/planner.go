// Package planner generates and orders execution plans: reads every kind
// in deployment order, diffs the result against state, and produces a
// plan document. Grounded on original_source/src/apy_ops/planner.py and
// structurally on pkg/conform/engine.go's ordered-unit orchestration
// shape (a fixed list of units run deterministically, results
// aggregated).
package planner

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/cel-go/cel"

	"github.com/Mindburn-Labs/apimctl/pkg/artifact"
	"github.com/Mindburn-Labs/apimctl/pkg/differ"
	"github.com/Mindburn-Labs/apimctl/pkg/statestore"
)

// Summary tallies changes by action, matching planner.py's plan["summary"].
type Summary struct {
	Create int `json:"create"`
	Update int `json:"update"`
	Delete int `json:"delete"`
	Noop   int `json:"noop"`
}

// Plan is the full plan document, matching planner.py's generate_plan
// output shape.
type Plan struct {
	GeneratedAt time.Time       `json:"generated_at"`
	SourceDir   string          `json:"source_dir"`
	Summary     Summary         `json:"summary"`
	Changes     []differ.Change `json:"changes"`
}

// Engine generates plans against a fixed kind registry, in the registry's
// deployment order. Grounded on pkg/conform/engine.go's Engine shape
// (registered units run in a fixed order, clock injected for deterministic
// tests).
type Engine struct {
	registry *artifact.Registry
	clock    func() time.Time
}

// NewEngine builds a planner Engine over the given kind registry.
func NewEngine(registry *artifact.Registry) *Engine {
	return &Engine{registry: registry, clock: time.Now}
}

// WithClock overrides the clock for deterministic tests.
func (e *Engine) WithClock(clock func() time.Time) *Engine {
	e.clock = clock
	return e
}

// key builds the "<kind>:<id>" composite key used throughout the engine.
func key(kind, id string) string { return kind + ":" + id }

// Generate reads every kind ReadLocal in deployment order (filtered by
// `only` when non-empty), diffs against state, and returns a Plan.
func (e *Engine) Generate(sourceDir string, state *statestore.State, only []string) (*Plan, error) {
	return e.generate(sourceDir, state, only, nil)
}

// GenerateWithExpr is the CEL form of `--only`: onlyExpr is a predicate
// over each candidate artifact's {kind, id}, e.g.
// `kind in ["api","product"]`. It composes with the plain-list `only`
// filter rather than replacing it — both, when given, must pass.
func (e *Engine) GenerateWithExpr(sourceDir string, state *statestore.State, only []string, onlyExpr string) (*Plan, error) {
	prg, err := CompileOnlyExpr(onlyExpr)
	if err != nil {
		return nil, err
	}
	return e.generate(sourceDir, state, only, prg)
}

func (e *Engine) generate(sourceDir string, state *statestore.State, only []string, onlyExpr cel.Program) (*Plan, error) {
	onlySet := toSet(only)

	local := make(map[string]differ.Side)
	for _, k := range e.registry.Ordered(only) {
		artifacts, err := k.ReadLocal(sourceDir)
		if err != nil {
			return nil, fmt.Errorf("planner: read local %s: %w", k.Name(), err)
		}
		for id, a := range artifacts {
			match, err := matchesOnlyExpr(onlyExpr, k.Name(), id)
			if err != nil {
				return nil, err
			}
			if !match {
				continue
			}
			hash, err := a.Hash()
			if err != nil {
				return nil, fmt.Errorf("planner: hash %s %s: %w", k.Name(), id, err)
			}
			local[key(k.Name(), id)] = differ.Side{Kind: k.Name(), ID: id, Hash: hash, Properties: a.Properties}
		}
	}

	stateArtifacts := map[string]differ.Side{}
	if state != nil {
		for keyStr, a := range state.Artifacts {
			if len(onlySet) > 0 && !onlySet[a.Kind] {
				continue
			}
			match, err := matchesOnlyExpr(onlyExpr, a.Kind, a.ID)
			if err != nil {
				return nil, err
			}
			if !match {
				continue
			}
			stateArtifacts[keyStr] = differ.Side{Kind: a.Kind, ID: a.ID, Hash: a.Hash, Properties: a.Properties}
		}
	}

	changes := differ.Diff(local, stateArtifacts)
	summary := Summary{}
	for _, c := range changes {
		switch c.Action {
		case differ.Create:
			summary.Create++
		case differ.Update:
			summary.Update++
		case differ.Delete:
			summary.Delete++
		case differ.Noop:
			summary.Noop++
		}
	}

	return &Plan{
		GeneratedAt: e.clock().UTC(),
		SourceDir:   sourceDir,
		Summary:     summary,
		Changes:     changes,
	}, nil
}

func toSet(items []string) map[string]bool {
	if len(items) == 0 {
		return nil
	}
	set := make(map[string]bool, len(items))
	for _, it := range items {
		set[it] = true
	}
	return set
}

// OrderForExecution orders changes for the applier: creates/updates in
// deployment order, deletes in reverse deployment order, matching
// planner.py's order_changes.
func OrderForExecution(changes []differ.Change) []differ.Change {
	typeOrder := make(map[string]int, len(artifact.DeployOrder))
	for i, kind := range artifact.DeployOrder {
		typeOrder[kind] = i
	}
	orderOf := func(kind string) int {
		if i, ok := typeOrder[kind]; ok {
			return i
		}
		return len(artifact.DeployOrder) + 1
	}

	var createsUpdates, deletes []differ.Change
	for _, c := range changes {
		switch c.Action {
		case differ.Create, differ.Update:
			createsUpdates = append(createsUpdates, c)
		case differ.Delete:
			deletes = append(deletes, c)
		}
	}

	sort.SliceStable(createsUpdates, func(i, j int) bool {
		return orderOf(createsUpdates[i].Kind) < orderOf(createsUpdates[j].Kind)
	})
	sort.SliceStable(deletes, func(i, j int) bool {
		return orderOf(deletes[i].Kind) > orderOf(deletes[j].Kind)
	})

	out := make([]differ.Change, 0, len(changes))
	out = append(out, createsUpdates...)
	out = append(out, deletes...)
	return out
}

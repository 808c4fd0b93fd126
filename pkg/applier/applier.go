// Package applier executes an ordered change list against the control
// plane, writing state after every successful change so a partial run is
// always recoverable. Grounded on
// original_source/src/apy_ops/applier.py, with the claim→act→persist
// ordering generalized from pkg/runtime/obligation/engine.go's lease
// lifecycle (lease, record the attempt, persist before moving on).
package applier

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Mindburn-Labs/apimctl/pkg/artifact"
	"github.com/Mindburn-Labs/apimctl/pkg/differ"
	"github.com/Mindburn-Labs/apimctl/pkg/planner"
	"github.com/Mindburn-Labs/apimctl/pkg/restclient"
	"github.com/Mindburn-Labs/apimctl/pkg/statestore"
)

// Result reports how far an apply run got, matching applier.py's
// (succeeded, total, error?) return shape.
type Result struct {
	Succeeded int
	Total     int
	Error     string
}

// Applier executes changes against a fixed kind registry, the same shape
// planner.Engine reads from, so resource_path/to_rest_payload/operation
// payloads come from the identical Kind implementations a plan was
// generated against.
type Applier struct {
	registry *artifact.Registry
	client   artifact.RESTClient
}

// New builds an Applier over the given kind registry and REST client.
func New(registry *artifact.Registry, client artifact.RESTClient) *Applier {
	return &Applier{registry: registry, client: client}
}

// Apply executes plan changes in order(changes) (creates/updates forward,
// deletes reverse), writing state after each success. It stops at the
// first error without rolling back prior changes — the state file already
// reflects reality, and a subsequent plan will converge on what's left.
func (a *Applier) Apply(ctx context.Context, changes []differ.Change, backend statestore.Backend, state *statestore.State, out io.Writer) (*Result, error) {
	actionable := make([]differ.Change, 0, len(changes))
	for _, c := range changes {
		if c.Action != differ.Noop {
			actionable = append(actionable, c)
		}
	}
	if len(actionable) == 0 {
		fmt.Fprintln(out, "\nNo changes to apply.")
		return &Result{}, nil
	}

	ordered := planner.OrderForExecution(actionable)
	total := len(ordered)
	result := &Result{Total: total}

	fmt.Fprintln(out, "\nApplying changes...")

	for i, change := range ordered {
		label := fmt.Sprintf("  [%d/%d] %s %s %q", i+1, total, symbol(change.Action), strings.ReplaceAll(change.Kind, "_", " "), change.DisplayName)
		fmt.Fprint(out, label)

		if err := a.applyChange(ctx, change); err != nil {
			fmt.Fprintf(out, "  ✗ ERROR: %s\n", formatError(err))
			result.Error = formatError(err)
			fmt.Fprintf(out, "\nApply failed. %d of %d changes applied successfully.\n", result.Succeeded, total)
			fmt.Fprintln(out, "State file updated. Re-run 'plan' to see remaining changes.")
			return result, nil
		}

		updateState(state, change)
		if err := backend.Write(ctx, state); err != nil {
			return result, fmt.Errorf("applier: write state after %s: %w", change.Key, err)
		}
		fmt.Fprintln(out, "  ✓")
		result.Succeeded++
	}

	stampLastApplied(state)
	if err := backend.Write(ctx, state); err != nil {
		return result, fmt.Errorf("applier: write final state: %w", err)
	}
	fmt.Fprintf(out, "\nApply complete! %d changes applied successfully.\n", result.Succeeded)
	return result, nil
}

// ApplyForce bypasses the diff entirely: it clears state.Artifacts, reads
// every kind from disk in deployment order, PUTs each artifact, and
// continues past per-artifact errors, collecting them, rather than
// stopping at the first one — used when state is known-stale against a
// manually-modified remote.
func (a *Applier) ApplyForce(ctx context.Context, sourceDir string, only []string, backend statestore.Backend, state *statestore.State, out io.Writer) (*Result, error) {
	state.Artifacts = map[string]statestore.Artifact{}
	var errs []string
	result := &Result{}

	fmt.Fprintln(out, "\nForce apply: pushing ALL artifacts...")

	for _, k := range a.registry.Ordered(only) {
		artifacts, err := k.ReadLocal(sourceDir)
		if err != nil {
			return result, fmt.Errorf("applier: read local %s: %w", k.Name(), err)
		}
		for id, art := range artifacts {
			result.Total++
			name := art.DisplayName()
			fmt.Fprintf(out, "  + %s %q", strings.ReplaceAll(k.Name(), "_", " "), name)

			if err := a.pushArtifact(ctx, k, art); err != nil {
				fmt.Fprintf(out, "  ✗ ERROR: %s\n", formatError(err))
				errs = append(errs, fmt.Sprintf("%s %q: %s", k.Name(), name, formatError(err)))
				continue
			}

			hash, err := art.Hash()
			if err != nil {
				return result, fmt.Errorf("applier: hash %s %s: %w", k.Name(), id, err)
			}
			key := k.Name() + ":" + id
			state.Artifacts[key] = statestore.Artifact{Kind: k.Name(), ID: id, Hash: hash, Properties: art.Properties}
			if err := backend.Write(ctx, state); err != nil {
				return result, fmt.Errorf("applier: write state after %s: %w", key, err)
			}
			fmt.Fprintln(out, "  ✓")
			result.Succeeded++
		}
	}

	stampLastApplied(state)
	if err := backend.Write(ctx, state); err != nil {
		return result, fmt.Errorf("applier: write final state: %w", err)
	}

	if len(errs) > 0 {
		result.Error = strings.Join(errs, "; ")
		fmt.Fprintf(out, "\nForce apply completed with errors. %d/%d succeeded.\n", result.Succeeded, result.Total)
		for _, e := range errs {
			fmt.Fprintf(out, "  - %s\n", e)
		}
	} else {
		fmt.Fprintf(out, "\nForce apply complete! %d artifacts pushed.\n", result.Succeeded)
	}
	return result, nil
}

func (a *Applier) applyChange(ctx context.Context, change differ.Change) error {
	k, ok := a.registry.Get(change.Kind)
	if !ok {
		return fmt.Errorf("applier: unknown kind %q", change.Kind)
	}

	switch change.Action {
	case differ.Create, differ.Update:
		if change.New == nil {
			return fmt.Errorf("applier: %s change for %s has no new side", change.Action, change.Key)
		}
		art := artifact.Artifact{Kind: change.New.Kind, ID: change.New.ID, Properties: change.New.Properties}
		return a.pushArtifact(ctx, k, art)
	case differ.Delete:
		if change.Old == nil {
			return fmt.Errorf("applier: delete change for %s has no old side", change.Key)
		}
		return a.client.Delete(ctx, k.ResourcePath(change.Old.ID))
	default:
		return fmt.Errorf("applier: unexpected action %q for %s", change.Action, change.Key)
	}
}

// pushArtifact PUTs one artifact and, for the composite api kind, each of
// its nested operations under <api path>/operations/<opId>.
func (a *Applier) pushArtifact(ctx context.Context, k artifact.Kind, art artifact.Artifact) error {
	payload, err := k.ToRESTPayload(art)
	if err != nil {
		return fmt.Errorf("applier: build payload for %s %s: %w", k.Name(), art.ID, err)
	}
	if _, err := a.client.Put(ctx, k.ResourcePath(art.ID), payload); err != nil {
		return err
	}

	if opKind, ok := k.(artifact.OperationPayloadKind); ok {
		ops, err := opKind.OperationPayloads(art)
		if err != nil {
			return fmt.Errorf("applier: build operation payloads for %s: %w", art.ID, err)
		}
		for opID, body := range ops {
			if _, err := a.client.Put(ctx, k.ResourcePath(art.ID)+"/operations/"+opID, body); err != nil {
				return err
			}
		}
	}
	return nil
}

func updateState(state *statestore.State, change differ.Change) {
	switch change.Action {
	case differ.Create, differ.Update:
		state.Artifacts[change.Key] = statestore.Artifact{
			Kind: change.New.Kind, ID: change.New.ID, Hash: change.New.Hash, Properties: change.New.Properties,
		}
	case differ.Delete:
		delete(state.Artifacts, change.Key)
	}
}

func stampLastApplied(state *statestore.State) {
	now := time.Now().UTC()
	state.LastApplied = &now
}

func symbol(action differ.Action) string {
	switch action {
	case differ.Create:
		return "+"
	case differ.Update:
		return "~"
	case differ.Delete:
		return "-"
	default:
		return "."
	}
}

// formatError renders a human message plus, when the underlying error is
// a restclient.Fault, the REST error code in brackets and the request id,
// matching spec.md §4.8's error formatting requirement.
func formatError(err error) string {
	var fault *restclient.Fault
	if errors.As(err, &fault) {
		msg := fault.Message
		if fault.ErrorCode != "" {
			msg += " [" + fault.ErrorCode + "]"
		}
		if fault.RequestID != "" {
			msg += " (req-id: " + fault.RequestID + ")"
		}
		return msg
	}
	return err.Error()
}

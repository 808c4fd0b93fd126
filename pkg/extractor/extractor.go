// Package extractor snapshots the live control plane into the on-disk
// source tree format, one kind at a time. Grounded on
// original_source/src/apy_ops/extractor.py: extraction is never atomic —
// a failure reading one kind is reported inline and extraction continues
// with the next kind.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Mindburn-Labs/apimctl/pkg/artifact"
	"github.com/Mindburn-Labs/apimctl/pkg/restclient"
	"github.com/Mindburn-Labs/apimctl/pkg/statestore"
)

// Archiver optionally mirrors the written source tree somewhere durable
// (a GCS prefix) after a successful extraction. Additive to spec.md's
// scope — extraction output format itself is unconstrained by the
// Non-goals list.
type Archiver interface {
	Mirror(ctx context.Context, localDir string) error
}

// Result tallies what extract actually wrote, keyed by kind name, plus
// the full artifact set for an optional state update.
type Result struct {
	Counts    map[string]int
	Artifacts map[string]artifact.Artifact
}

// Extractor walks a fixed kind registry's ReadLive in deployment order.
type Extractor struct {
	registry *artifact.Registry
	client   artifact.RESTClient
	archiver Archiver // nil disables the --archive mirror
}

// New builds an Extractor. archiver may be nil.
func New(registry *artifact.Registry, client artifact.RESTClient, archiver Archiver) *Extractor {
	return &Extractor{registry: registry, client: client, archiver: archiver}
}

// Extract reads every kind (optionally filtered by only) from the control
// plane and writes it to outputDir. Per-kind errors — transient or
// permanent — are reported to out and do not stop extraction of the
// remaining kinds.
func (e *Extractor) Extract(ctx context.Context, outputDir string, only []string, out io.Writer) (*Result, error) {
	result := &Result{Counts: map[string]int{}, Artifacts: map[string]artifact.Artifact{}}

	for _, k := range e.registry.Ordered(only) {
		typeName := strings.ReplaceAll(k.Name(), "_", " ")
		fmt.Fprintf(out, "  Extracting %s...", typeName)

		artifacts, err := k.ReadLive(ctx, e.client)
		if err != nil {
			fmt.Fprintf(out, " ERROR: %s\n", formatExtractError(err))
			fmt.Fprintf(out, "         -> %s\n", recoveryHint(err, typeName))
			continue
		}

		if len(artifacts) == 0 {
			fmt.Fprintln(out, " none")
			continue
		}

		writeErr := false
		for id, a := range artifacts {
			if err := k.WriteLocal(outputDir, a); err != nil {
				fmt.Fprintf(out, " ERROR writing %s %s: %s\n", k.Name(), id, err)
				writeErr = true
				continue
			}
			result.Artifacts[k.Name()+":"+id] = a
		}
		if !writeErr {
			fmt.Fprintf(out, " %d found\n", len(artifacts))
		}
		result.Counts[k.Name()] = len(artifacts)
	}

	fmt.Fprintf(out, "\nExtracted %d artifacts to %s\n\n", len(result.Artifacts), outputDir)

	if e.archiver != nil {
		if err := e.archiver.Mirror(ctx, outputDir); err != nil {
			return result, fmt.Errorf("extractor: archive mirror: %w", err)
		}
	}

	return result, nil
}

// UpdateState replaces state.Artifacts wholesale with the extracted set
// and stamps LastApplied, then writes through backend — matching
// extractor.py's --update-state branch.
func (e *Extractor) UpdateState(ctx context.Context, backend statestore.Backend, state *statestore.State, result *Result, out io.Writer) error {
	state.Artifacts = map[string]statestore.Artifact{}
	for key, a := range result.Artifacts {
		hash, err := a.Hash()
		if err != nil {
			return fmt.Errorf("extractor: hash %s: %w", key, err)
		}
		state.Artifacts[key] = statestore.Artifact{Kind: a.Kind, ID: a.ID, Hash: hash, Properties: a.Properties}
	}
	now := time.Now().UTC()
	state.LastApplied = &now
	if err := backend.Write(ctx, state); err != nil {
		return fmt.Errorf("extractor: write state: %w", err)
	}
	fmt.Fprintln(out, "State file updated to match extracted artifacts.")
	return nil
}

func recoveryHint(err error, typeName string) string {
	var fault *restclient.Fault
	if errors.As(err, &fault) {
		if fault.Transient {
			return "May work on next run. Continuing with other artifact types..."
		}
		return fmt.Sprintf("Skipping %s. Fix the issue and re-run extract.", typeName)
	}
	return fmt.Sprintf("Skipping %s. Check logs and re-run extract.", typeName)
}

func formatExtractError(err error) string {
	var fault *restclient.Fault
	if errors.As(err, &fault) {
		label := "Permanent"
		if fault.Transient {
			label = "Transient"
		}
		msg := fmt.Sprintf("%s: %s", label, fault.Message)
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

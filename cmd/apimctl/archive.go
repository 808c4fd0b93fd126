package main

import (
	"context"

	"github.com/Mindburn-Labs/apimctl/pkg/extractor"
)

// newArchiverFor builds the extract --archive destination. Delegates to
// extractor.NewGCSArchiver, which is itself gated behind the "gcp" build
// tag: without it, the call returns an error telling the operator to
// rebuild with -tags gcp instead of silently skipping the mirror step.
func newArchiverFor(ctx context.Context, destination string) (extractor.Archiver, error) {
	return extractor.NewGCSArchiver(ctx, destination)
}

//go:build !gcp

package extractor

import (
	"context"
	"fmt"
)

// NewGCSArchiver reports that this binary was built without the gcp
// build tag rather than silently skipping --archive. Build with
// `-tags gcp` to link cloud.google.com/go/storage and enable the real
// mirror implemented in archive_gcs.go.
func NewGCSArchiver(ctx context.Context, gsURL string) (Archiver, error) {
	return nil, fmt.Errorf("extractor: --archive %s requires a binary built with -tags gcp", gsURL)
}

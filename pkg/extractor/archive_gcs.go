//go:build gcp

package extractor

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
)

// GCSArchiver mirrors an extracted source tree to a GCS prefix for
// long-term audit retention. Grounded on pkg/artifacts/gcs_store.go's
// client construction (ADC via storage.NewClient) and per-object upload
// shape, generalized from single-blob storage to a whole-tree walk.
type GCSArchiver struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSArchiver builds a GCSArchiver for the given "gs://bucket/prefix"
// destination.
func NewGCSArchiver(ctx context.Context, gsURL string) (Archiver, error) {
	bucket, prefix, err := parseGSURL(gsURL)
	if err != nil {
		return nil, err
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("extractor: create GCS client: %w", err)
	}
	return &GCSArchiver{client: client, bucket: bucket, prefix: prefix}, nil
}

// Mirror walks localDir and uploads every file under the configured
// bucket/prefix, preserving the relative path.
func (a *GCSArchiver) Mirror(ctx context.Context, localDir string) error {
	return filepath.WalkDir(localDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(localDir, path)
		if err != nil {
			return fmt.Errorf("extractor: relative path for %s: %w", path, err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("extractor: read %s: %w", path, err)
		}

		objectPath := strings.TrimSuffix(a.prefix, "/") + "/" + filepath.ToSlash(rel)
		w := a.client.Bucket(a.bucket).Object(objectPath).NewWriter(ctx)
		w.ContentType = "application/octet-stream"
		if _, err := w.Write(data); err != nil {
			_ = w.Close()
			return fmt.Errorf("extractor: upload %s: %w", objectPath, err)
		}
		return w.Close()
	})
}

// Close releases the underlying GCS client.
func (a *GCSArchiver) Close() error { return a.client.Close() }

func parseGSURL(gsURL string) (bucket, prefix string, err error) {
	const scheme = "gs://"
	if !strings.HasPrefix(gsURL, scheme) {
		return "", "", fmt.Errorf("extractor: archive destination %q must start with %q", gsURL, scheme)
	}
	rest := strings.TrimPrefix(gsURL, scheme)
	parts := strings.SplitN(rest, "/", 2)
	bucket = parts[0]
	if bucket == "" {
		return "", "", fmt.Errorf("extractor: archive destination %q has no bucket", gsURL)
	}
	if len(parts) == 2 {
		prefix = parts[1]
	}
	return bucket, prefix, nil
}

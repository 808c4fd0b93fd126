package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	_ "github.com/lib/pq"

	"github.com/Mindburn-Labs/apimctl/pkg/apimconfig"
	"github.com/Mindburn-Labs/apimctl/pkg/artifact"
	"github.com/Mindburn-Labs/apimctl/pkg/kinds"
	"github.com/Mindburn-Labs/apimctl/pkg/obs"
	"github.com/Mindburn-Labs/apimctl/pkg/restclient"
	"github.com/Mindburn-Labs/apimctl/pkg/statestore"
	"github.com/Mindburn-Labs/apimctl/pkg/tokensource"
)

// sharedFlags holds the flags common to every verb: backend selection,
// credentials, and target coordinates, grounded on cmd/helm/export_cmd.go's
// per-command flag.NewFlagSet convention generalized across multiple
// commands instead of one.
type sharedFlags struct {
	backend string

	stateFile string

	blobBucket   string
	blobKey      string
	blobRegion   string
	blobEndpoint string

	dbURL string

	clientID     string
	clientSecret string
	tenantID     string

	subscriptionID string
	resourceGroup  string
	serviceName    string
}

func registerSharedFlags(fs *flag.FlagSet, f *sharedFlags) {
	fs.StringVar(&f.backend, "backend", "local", "state backend: local, blob, or postgres")
	fs.StringVar(&f.stateFile, "state-file", "apimctl.state.json", "state file path (local backend)")
	fs.StringVar(&f.blobBucket, "backend-bucket", "", "S3 bucket name (blob backend)")
	fs.StringVar(&f.blobKey, "backend-key", "apimctl/state.json", "S3 object key (blob backend)")
	fs.StringVar(&f.blobRegion, "backend-region", "", "S3 region (blob backend)")
	fs.StringVar(&f.blobEndpoint, "backend-endpoint", "", "custom S3 endpoint, e.g. for MinIO (blob backend)")
	fs.StringVar(&f.dbURL, "backend-db-url", "", "Postgres connection string (postgres backend)")
	fs.StringVar(&f.clientID, "client-id", "", "service principal client id")
	fs.StringVar(&f.clientSecret, "client-secret", "", "service principal client secret")
	fs.StringVar(&f.tenantID, "tenant-id", "", "service principal tenant id")
	fs.StringVar(&f.subscriptionID, "subscription-id", "", "target subscription id")
	fs.StringVar(&f.resourceGroup, "resource-group", "", "target resource group")
	fs.StringVar(&f.serviceName, "service-name", "", "target API Management service name")
}

// buildBackend constructs the statestore.Backend selected by f.backend.
func buildBackend(ctx context.Context, f *sharedFlags, logger *slog.Logger) (statestore.Backend, error) {
	switch f.backend {
	case "", "local":
		return statestore.NewLocalBackend(f.stateFile), nil
	case "blob":
		if f.blobBucket == "" {
			return nil, fmt.Errorf("--backend-bucket is required for the blob backend")
		}
		cfg := statestore.BlobConfig{
			Bucket:   f.blobBucket,
			Key:      f.blobKey,
			Region:   f.blobRegion,
			Endpoint: f.blobEndpoint,
		}
		return statestore.NewBlobBackend(ctx, cfg, logger)
	case "postgres":
		if f.dbURL == "" {
			return nil, fmt.Errorf("--backend-db-url is required for the postgres backend")
		}
		db, err := sql.Open("postgres", f.dbURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		return statestore.NewPostgresBackend(db), nil
	default:
		return nil, fmt.Errorf("unknown --backend %q (want local, blob, or postgres)", f.backend)
	}
}

// readStateForCoords reads the current state, if any, purely to supply
// ResolveTargetCoords with its lowest-priority fallback. A missing or
// unreadable state is not fatal here — init hasn't necessarily run yet.
func readStateForCoords(ctx context.Context, backend statestore.Backend) *statestore.State {
	state, err := backend.Read(ctx)
	if err != nil {
		return nil
	}
	return state
}

// resolveCoords applies spec.md §6's flag → env → state priority chain.
func resolveCoords(f *sharedFlags, state *statestore.State) apimconfig.TargetCoords {
	return apimconfig.ResolveTargetCoords(apimconfig.TargetCoords{
		SubscriptionID: f.subscriptionID,
		ResourceGroup:  f.resourceGroup,
		ServiceName:    f.serviceName,
	}, os.LookupEnv, state)
}

// buildRESTClient wires a token source (client-credential if all three
// flags are set, otherwise the default environment-credential chain) and
// a restclient.Client pointed at the resolved target coordinates. Every
// call through the client is wrapped in telemetry's REST span/counters.
func buildRESTClient(f *sharedFlags, coords apimconfig.TargetCoords, logger *slog.Logger, telemetry *obs.Provider) *restclient.Client {
	var tokens restclient.TokenSource
	if f.clientID != "" && f.clientSecret != "" && f.tenantID != "" {
		tokens = tokensource.NewClientCredentialSource(f.tenantID, f.clientID, f.clientSecret, http.DefaultClient)
	} else {
		tokens = tokensource.NewDefaultCredentialSource(os.LookupEnv)
	}
	baseURL := fmt.Sprintf(
		"https://management.azure.com/subscriptions/%s/resourceGroups/%s/providers/Microsoft.ApiManagement/service/%s",
		coords.SubscriptionID, coords.ResourceGroup, coords.ServiceName,
	)
	return restclient.New(baseURL, tokens, logger).WithInstrumentation(telemetry)
}

func buildRegistry() (*artifact.Registry, error) {
	return artifact.NewRegistry(kinds.All())
}

func parseOnly(only string) []string {
	if only == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(only, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Package artifact defines the Artifact value type and the Kind interface
// that every one of the 22 resource kinds implements, plus the fixed,
// ordered registry of all kinds.
package artifact

import (
	"context"

	"github.com/Mindburn-Labs/apimctl/pkg/canon"
)

// Artifact is one locally-read or remotely-read resource instance: a
// gateway, a product, an api, an association edge between two resources,
// and so on. Properties is the resolved property bag (after $ref inlining);
// Hash is the content digest of Properties, used by the differ to decide
// whether local and remote have diverged.
type Artifact struct {
	Kind       string
	ID         string
	Properties map[string]interface{}
}

// Hash returns the content digest of the artifact's properties. Two
// artifacts with the same properties in different key order hash equal.
func (a Artifact) Hash() (string, error) {
	return canon.Digest(a.Properties)
}

// DisplayName returns the best human-readable label for an artifact:
// displayName, falling back to name, falling back to the id.
func (a Artifact) DisplayName() string {
	if v, ok := a.Properties["displayName"].(string); ok && v != "" {
		return v
	}
	if v, ok := a.Properties["name"].(string); ok && v != "" {
		return v
	}
	return a.ID
}

// RESTClient is the subset of the REST transport a Kind needs to read live
// state and push changes. Defined here (rather than imported from
// restclient) so that pkg/kinds does not need to depend on the transport's
// retry/auth internals, only on this call shape.
type RESTClient interface {
	Get(ctx context.Context, path string) (map[string]interface{}, error)
	List(ctx context.Context, path string) ([]map[string]interface{}, error)
	Put(ctx context.Context, path string, body map[string]interface{}) (map[string]interface{}, error)
	Delete(ctx context.Context, path string) error
}

// Kind is implemented once per resource kind (gateway, product, api, ...).
// ReadLocal and ReadLive both return the full set of artifacts of this kind
// keyed by id; the differ unions the two key sets.
type Kind interface {
	// Name is the kind's registry key, e.g. "gateway", "product_api".
	Name() string

	// ResourcePath returns the control-plane REST path for the artifact
	// with the given id, e.g. "/gateways/gw-1".
	ResourcePath(id string) string

	// ReadLocal reads every artifact of this kind from the source
	// directory tree, resolving $ref placeholders and computing ids.
	ReadLocal(sourceDir string) (map[string]Artifact, error)

	// WriteLocal persists one artifact back to the source directory tree,
	// in the same layout ReadLocal expects to find it in. Used by extract.
	WriteLocal(sourceDir string, a Artifact) error

	// ToRESTPayload builds the PUT request body for an artifact.
	ToRESTPayload(a Artifact) (map[string]interface{}, error)

	// ReadLive lists every live artifact of this kind from the control
	// plane, keyed by id, with properties in the same shape ReadLocal
	// produces so hashes are comparable.
	ReadLive(ctx context.Context, client RESTClient) (map[string]Artifact, error)
}

// OperationPayloadKind is implemented only by the composite "api" kind,
// which bundles nested per-operation pushes alongside its own PUT.
type OperationPayloadKind interface {
	Kind
	// OperationPayloads returns, for an api artifact, the PUT body for each
	// of its nested operations, keyed by operation id.
	OperationPayloads(a Artifact) (map[string]map[string]interface{}, error)
}

package kinds

import (
	"context"
	"os"
	"path/filepath"

	"github.com/Mindburn-Labs/apimctl/pkg/artifact"
)

// servicePolicyKind grounded on
// original_source/src/apy_ops/artifacts/service_policy.py: the single
// global policy document applied before any product/api/operation policy.
// Its id is always the literal string "policy" — there is exactly zero or
// one instance.
type servicePolicyKind struct{}

func ServicePolicy() artifact.Kind { return servicePolicyKind{} }

func (servicePolicyKind) Name() string { return "service_policy" }

func (servicePolicyKind) ResourcePath(string) string { return "/policies/policy" }

func (servicePolicyKind) ReadLocal(sourceDir string) (map[string]artifact.Artifact, error) {
	for _, candidate := range []string{
		filepath.Join(sourceDir, "policy", "policy.xml"),
		filepath.Join(sourceDir, "policy.xml"),
	} {
		content, err := os.ReadFile(candidate)
		if err != nil {
			continue
		}
		props := map[string]interface{}{"format": "rawxml", "value": string(content)}
		return map[string]artifact.Artifact{
			"policy": {Kind: "service_policy", ID: "policy", Properties: props},
		}, nil
	}
	return map[string]artifact.Artifact{}, nil
}

func (servicePolicyKind) WriteLocal(sourceDir string, a artifact.Artifact) error {
	dir := filepath.Join(sourceDir, "policy")
	if err := ensureDir(dir); err != nil {
		return err
	}
	content, _ := a.Properties["value"].(string)
	return writeTextFile(filepath.Join(dir, "policy.xml"), content)
}

func (servicePolicyKind) ToRESTPayload(a artifact.Artifact) (map[string]interface{}, error) {
	return map[string]interface{}{"properties": a.Properties}, nil
}

func (servicePolicyKind) ReadLive(ctx context.Context, client artifact.RESTClient) (map[string]artifact.Artifact, error) {
	data, err := client.Get(ctx, "/policies/policy")
	if err != nil {
		return map[string]artifact.Artifact{}, nil // no global policy set
	}
	props, _ := data["properties"].(map[string]interface{})
	if props == nil {
		props = map[string]interface{}{}
	}
	return map[string]artifact.Artifact{
		"policy": {Kind: "service_policy", ID: "policy", Properties: props},
	}, nil
}

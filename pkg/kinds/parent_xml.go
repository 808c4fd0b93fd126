package kinds

import (
	"context"
	"os"
	"path/filepath"

	"github.com/Mindburn-Labs/apimctl/pkg/artifact"
)

// parentXMLKind is a raw-XML policy document scoped to exactly one parent
// resource (an api or a product): one policy.xml living alongside the
// parent's information file. api_policy and product_policy are both this
// shape, grounded on original_source/src/apy_ops/artifacts/api_policies.py
// and product_policies.py respectively.
type parentXMLKind struct {
	name         string
	parentSubdir string // "apis" or "products"
	infoFileName string // "apiInformation.json" or "productInformation.json"
}

func (k parentXMLKind) Name() string { return k.name }

func (k parentXMLKind) ResourcePath(id string) string {
	return "/" + k.parentSubdir + "/" + id + "/policies/policy"
}

func (k parentXMLKind) ReadLocal(sourceDir string) (map[string]artifact.Artifact, error) {
	base := filepath.Join(sourceDir, k.parentSubdir)
	entries, err := listDirSorted(base)
	if err != nil {
		return nil, err
	}
	out := make(map[string]artifact.Artifact)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(base, e.Name())
		candidates := []string{k.infoFileName}
		if k.parentSubdir == "apis" {
			candidates = append(candidates, "configuration.json")
		}
		info, ok := readParentInfo(dir, candidates...)
		if !ok {
			continue
		}
		parentID := e.Name()
		if rawID, ok := info["id"].(string); ok && rawID != "" {
			parentID = extractIDFromPath(rawID)
		}
		policyPath := filepath.Join(dir, "policy.xml")
		content, err := os.ReadFile(policyPath)
		if err != nil {
			continue
		}
		props := map[string]interface{}{"format": "rawxml", "value": string(content)}
		out[parentID] = artifact.Artifact{Kind: k.name, ID: parentID, Properties: props}
	}
	return out, nil
}

func (k parentXMLKind) WriteLocal(sourceDir string, a artifact.Artifact) error {
	base := filepath.Join(sourceDir, k.parentSubdir)
	dir, ok := findParentDir(base, a.ID)
	if !ok {
		dir = filepath.Join(base, a.ID)
		if err := ensureDir(dir); err != nil {
			return err
		}
	}
	content, _ := a.Properties["value"].(string)
	return writeTextFile(filepath.Join(dir, "policy.xml"), content)
}

func (k parentXMLKind) ToRESTPayload(a artifact.Artifact) (map[string]interface{}, error) {
	return map[string]interface{}{"properties": a.Properties}, nil
}

func (k parentXMLKind) ReadLive(ctx context.Context, client artifact.RESTClient) (map[string]artifact.Artifact, error) {
	parents, err := client.List(ctx, "/"+k.parentSubdir)
	if err != nil {
		return nil, err
	}
	out := make(map[string]artifact.Artifact)
	for _, p := range parents {
		id, _ := p["name"].(string)
		if id == "" {
			continue
		}
		data, err := client.Get(ctx, k.ResourcePath(id))
		if err != nil {
			continue // no policy set for this parent
		}
		props, _ := data["properties"].(map[string]interface{})
		if props == nil {
			props = map[string]interface{}{}
		}
		out[id] = artifact.Artifact{Kind: k.name, ID: id, Properties: props}
	}
	return out, nil
}

func APIPolicy() artifact.Kind {
	return parentXMLKind{name: "api_policy", parentSubdir: "apis", infoFileName: "apiInformation.json"}
}

func ProductPolicy() artifact.Kind {
	return parentXMLKind{name: "product_policy", parentSubdir: "products", infoFileName: "productInformation.json"}
}

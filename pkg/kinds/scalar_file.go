package kinds

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/Mindburn-Labs/apimctl/pkg/artifact"
)

// scalarFileKind implements the simplest of the 22 kinds: one artifact per
// flat JSON file directly under sourceDir/subdir, with a REST resource path
// of "/<restPrefix>/<id>". named_value, tag, backend, logger, diagnostic and
// group are all this shape; only the subdir and REST prefix differ between
// them, so a single implementation is parameterized rather than copied six
// times.
type scalarFileKind struct {
	name       string
	subdir     string
	restPrefix string
}

func (k scalarFileKind) Name() string { return k.name }

func (k scalarFileKind) ResourcePath(id string) string {
	return "/" + k.restPrefix + "/" + id
}

func (k scalarFileKind) ReadLocal(sourceDir string) (map[string]artifact.Artifact, error) {
	base := filepath.Join(sourceDir, k.subdir)
	entries, err := listDirSorted(base)
	if err != nil {
		return nil, err
	}
	out := make(map[string]artifact.Artifact)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		path := filepath.Join(base, e.Name())
		props, err := readJSONProps(path)
		if err != nil {
			return nil, err
		}
		props, err = resolveRefsIn(props, base)
		if err != nil {
			return nil, err
		}
		id := strings.TrimSuffix(e.Name(), ".json")
		if rawID, ok := props["id"].(string); ok && rawID != "" {
			id = extractIDFromPath(rawID)
		}
		out[id] = artifact.Artifact{Kind: k.name, ID: id, Properties: props}
	}
	return out, nil
}

func (k scalarFileKind) WriteLocal(sourceDir string, a artifact.Artifact) error {
	base := filepath.Join(sourceDir, k.subdir)
	if err := ensureDir(base); err != nil {
		return err
	}
	props := cloneProps(a.Properties)
	props["id"] = k.ResourcePath(a.ID)
	return writeJSONProps(filepath.Join(base, a.ID+".json"), props)
}

func (k scalarFileKind) ToRESTPayload(a artifact.Artifact) (map[string]interface{}, error) {
	props := cloneProps(a.Properties)
	delete(props, "id")
	return map[string]interface{}{"properties": props}, nil
}

func (k scalarFileKind) ReadLive(ctx context.Context, client artifact.RESTClient) (map[string]artifact.Artifact, error) {
	items, err := client.List(ctx, k.ResourcePath(""))
	if err != nil {
		return nil, err
	}
	return artifactsFromListItems(k.name, items), nil
}

func artifactsFromListItems(kind string, items []map[string]interface{}) map[string]artifact.Artifact {
	out := make(map[string]artifact.Artifact, len(items))
	for _, item := range items {
		id, _ := item["name"].(string)
		props, _ := item["properties"].(map[string]interface{})
		if props == nil {
			props = map[string]interface{}{}
		}
		out[id] = artifact.Artifact{Kind: kind, ID: id, Properties: props}
	}
	return out
}

func cloneProps(props map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(props))
	for k, v := range props {
		out[k] = v
	}
	return out
}

package kinds

import (
	"context"
	"path/filepath"

	"github.com/Mindburn-Labs/apimctl/pkg/artifact"
)

// dirOnlyKind is a scalar kind always stored as a directory per artifact,
// containing a fixed-name information file. version_set and subscription
// are this shape; unlike gateway/policy_fragment there is no flat-file
// fallback to check.
type dirOnlyKind struct {
	name         string
	subdir       string
	altSubdirs   []string // additional historical directory names to try
	infoFileName string
	restPrefix   string
}

func (k dirOnlyKind) Name() string { return k.name }

func (k dirOnlyKind) ResourcePath(id string) string {
	return "/" + k.restPrefix + "/" + id
}

func (k dirOnlyKind) findBase(sourceDir string) (string, bool) {
	for _, name := range append([]string{k.subdir}, k.altSubdirs...) {
		path := filepath.Join(sourceDir, name)
		if entries, err := listDirSorted(path); err == nil && entries != nil {
			return path, true
		}
	}
	return "", false
}

func (k dirOnlyKind) ReadLocal(sourceDir string) (map[string]artifact.Artifact, error) {
	base, ok := k.findBase(sourceDir)
	if !ok {
		return map[string]artifact.Artifact{}, nil
	}
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
		infoPath := filepath.Join(dir, k.infoFileName)
		props, err := readJSONProps(infoPath)
		if err != nil {
			continue
		}
		props, err = resolveRefsIn(props, dir)
		if err != nil {
			return nil, err
		}
		id := e.Name()
		if rawID, ok := props["id"].(string); ok && rawID != "" {
			id = extractIDFromPath(rawID)
		}
		out[id] = artifact.Artifact{Kind: k.name, ID: id, Properties: props}
	}
	return out, nil
}

func (k dirOnlyKind) WriteLocal(sourceDir string, a artifact.Artifact) error {
	base := filepath.Join(sourceDir, k.subdir)
	dir := filepath.Join(base, a.ID)
	if err := ensureDir(dir); err != nil {
		return err
	}
	props := cloneProps(a.Properties)
	props["id"] = k.ResourcePath(a.ID)
	return writeJSONProps(filepath.Join(dir, k.infoFileName), props)
}

func (k dirOnlyKind) ToRESTPayload(a artifact.Artifact) (map[string]interface{}, error) {
	props := cloneProps(a.Properties)
	delete(props, "id")
	return map[string]interface{}{"properties": props}, nil
}

func (k dirOnlyKind) ReadLive(ctx context.Context, client artifact.RESTClient) (map[string]artifact.Artifact, error) {
	items, err := client.List(ctx, k.ResourcePath(""))
	if err != nil {
		return nil, err
	}
	return artifactsFromListItems(k.name, items), nil
}

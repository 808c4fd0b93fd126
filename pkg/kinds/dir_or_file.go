package kinds

import (
	"path/filepath"
	"strings"

	"github.com/Mindburn-Labs/apimctl/pkg/artifact"
)

// dirOrFileKind reads an artifact that may be stored either as a directory
// containing a named information file, or as a flat "<id>.json" file
// sibling to other such directories — gateway and policy_fragment are both
// this shape on read. Writes, REST payloads and live reads are unchanged
// from scalarFileKind.
type dirOrFileKind struct {
	scalarFileKind
	infoFileName string
}

func (k dirOrFileKind) ReadLocal(sourceDir string) (map[string]artifact.Artifact, error) {
	base := filepath.Join(sourceDir, k.subdir)
	entries, err := listDirSorted(base)
	if err != nil {
		return nil, err
	}
	out := make(map[string]artifact.Artifact)
	for _, e := range entries {
		entryPath := filepath.Join(base, e.Name())
		var props map[string]interface{}
		var refDir string

		switch {
		case e.IsDir():
			infoPath := filepath.Join(entryPath, k.infoFileName)
			p, err := readJSONProps(infoPath)
			if err != nil {
				continue
			}
			props, refDir = p, entryPath
		case strings.HasSuffix(e.Name(), ".json"):
			p, err := readJSONProps(entryPath)
			if err != nil {
				return nil, err
			}
			props, refDir = p, base
		default:
			continue
		}

		props, err := resolveRefsIn(props, refDir)
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

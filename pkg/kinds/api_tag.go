package kinds

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/Mindburn-Labs/apimctl/pkg/artifact"
)

// apiTagKind grounded on
// original_source/src/apy_ops/artifacts/api_tags.py: associates a tag with
// an api. Its id is the synthetic "<apiID>/<tagID>" pair; PUTting the
// association takes an empty body.
type apiTagKind struct{}

func APITag() artifact.Kind { return apiTagKind{} }

func (apiTagKind) Name() string { return "api_tag" }

func (apiTagKind) ResourcePath(id string) string {
	apiID, tagID := splitPairID(id)
	return fmt.Sprintf("/apis/%s/tags/%s", apiID, tagID)
}

func (apiTagKind) ReadLocal(sourceDir string) (map[string]artifact.Artifact, error) {
	base := filepath.Join(sourceDir, "apis")
	entries, err := listDirSorted(base)
	if err != nil {
		return nil, err
	}
	out := make(map[string]artifact.Artifact)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		apiDir := filepath.Join(base, e.Name())
		info, ok := readParentInfo(apiDir, "apiInformation.json", "configuration.json")
		if !ok {
			continue
		}
		apiID := e.Name()
		if rawID, ok := info["id"].(string); ok && rawID != "" {
			apiID = extractIDFromPath(rawID)
		}

		var tagIDs []string
		tagsPath := filepath.Join(apiDir, "tags.json")
		if raw, err := readJSONValue(tagsPath); err == nil {
			tagIDs = idsFromRaw(raw)
		} else if rawInline, ok := info["tags"]; ok {
			tagIDs = idsFromRaw(rawInline)
		} else {
			continue
		}

		for _, tagID := range tagIDs {
			pairID := apiID + "/" + tagID
			props := map[string]interface{}{"apiId": apiID, "tagId": tagID}
			out[pairID] = artifact.Artifact{Kind: "api_tag", ID: pairID, Properties: props}
		}
	}
	return out, nil
}

func (apiTagKind) WriteLocal(sourceDir string, a artifact.Artifact) error {
	base := filepath.Join(sourceDir, "apis")
	apiID, _ := a.Properties["apiId"].(string)
	dir, ok := findParentDir(base, apiID)
	if !ok {
		dir = filepath.Join(base, apiID)
		if err := ensureDir(dir); err != nil {
			return err
		}
	}
	return appendToIDListFile(filepath.Join(dir, "tags.json"), a.Properties["tagId"].(string))
}

func (apiTagKind) ToRESTPayload(artifact.Artifact) (map[string]interface{}, error) {
	return map[string]interface{}{}, nil
}

func (apiTagKind) ReadLive(ctx context.Context, client artifact.RESTClient) (map[string]artifact.Artifact, error) {
	out := make(map[string]artifact.Artifact)
	apis, err := client.List(ctx, "/apis")
	if err != nil {
		return out, nil
	}
	for _, api := range apis {
		apiID, _ := api["name"].(string)
		tags, err := client.List(ctx, "/apis/"+apiID+"/tags")
		if err != nil {
			continue
		}
		for _, tag := range tags {
			tagID, _ := tag["name"].(string)
			pairID := apiID + "/" + tagID
			props := map[string]interface{}{"apiId": apiID, "tagId": tagID}
			out[pairID] = artifact.Artifact{Kind: "api_tag", ID: pairID, Properties: props}
		}
	}
	return out, nil
}

package kinds

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Mindburn-Labs/apimctl/pkg/artifact"
)

// apiDiagnosticKind grounded on
// original_source/src/apy_ops/artifacts/api_diagnostics.py: an api-scoped
// diagnostic setting, nested one level deeper than api_policy under a
// "diagnostics" subdirectory of the api's own directory, one JSON file per
// diagnostic id — unlike api_policy/api_operation_policy, which hold raw
// XML, this kind carries a JSON property bag like the service-level
// diagnostic kind.
type apiDiagnosticKind struct{}

func APIDiagnostic() artifact.Kind { return apiDiagnosticKind{} }

func (apiDiagnosticKind) Name() string { return "api_diagnostic" }

func (apiDiagnosticKind) ResourcePath(id string) string {
	apiID, diagID := splitPairID(id)
	return fmt.Sprintf("/apis/%s/diagnostics/%s", apiID, diagID)
}

func (apiDiagnosticKind) ReadLocal(sourceDir string) (map[string]artifact.Artifact, error) {
	base := filepath.Join(sourceDir, "apis")
	apiDirs, err := listDirSorted(base)
	if err != nil {
		return nil, err
	}
	out := make(map[string]artifact.Artifact)
	for _, apiEntry := range apiDirs {
		if !apiEntry.IsDir() {
			continue
		}
		apiDir := filepath.Join(base, apiEntry.Name())
		info, ok := readParentInfo(apiDir, "apiInformation.json", "configuration.json")
		if !ok {
			continue
		}
		apiID := apiEntry.Name()
		if rawID, ok := info["id"].(string); ok && rawID != "" {
			apiID = extractIDFromPath(rawID)
		}

		diagDir := filepath.Join(apiDir, "diagnostics")
		diagEntries, err := listDirSorted(diagDir)
		if err != nil {
			return nil, err
		}
		for _, d := range diagEntries {
			if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") {
				continue
			}
			props, err := readJSONProps(filepath.Join(diagDir, d.Name()))
			if err != nil {
				return nil, err
			}
			props, err = resolveRefsIn(props, diagDir)
			if err != nil {
				return nil, err
			}
			diagID := strings.TrimSuffix(d.Name(), ".json")
			if rawID, ok := props["id"].(string); ok && rawID != "" {
				diagID = extractIDFromPath(rawID)
			}
			pairID := apiID + "/" + diagID
			out[pairID] = artifact.Artifact{Kind: "api_diagnostic", ID: pairID, Properties: props}
		}
	}
	return out, nil
}

func (apiDiagnosticKind) WriteLocal(sourceDir string, a artifact.Artifact) error {
	apiID, diagID := splitPairID(a.ID)
	base := filepath.Join(sourceDir, "apis")
	apiDir, ok := findParentDir(base, apiID)
	if !ok {
		apiDir = filepath.Join(base, apiID)
	}
	diagDir := filepath.Join(apiDir, "diagnostics")
	if err := ensureDir(diagDir); err != nil {
		return err
	}
	props := cloneProps(a.Properties)
	props["id"] = fmt.Sprintf("/apis/%s/diagnostics/%s", apiID, diagID)
	return writeJSONProps(filepath.Join(diagDir, diagID+".json"), props)
}

func (apiDiagnosticKind) ToRESTPayload(a artifact.Artifact) (map[string]interface{}, error) {
	props := cloneProps(a.Properties)
	delete(props, "id")
	return map[string]interface{}{"properties": props}, nil
}

func (apiDiagnosticKind) ReadLive(ctx context.Context, client artifact.RESTClient) (map[string]artifact.Artifact, error) {
	out := make(map[string]artifact.Artifact)
	apis, err := client.List(ctx, "/apis")
	if err != nil {
		return out, nil
	}
	for _, api := range apis {
		apiID, _ := api["name"].(string)
		diags, err := client.List(ctx, "/apis/"+apiID+"/diagnostics")
		if err != nil {
			continue
		}
		for _, diag := range diags {
			diagID, _ := diag["name"].(string)
			props, _ := diag["properties"].(map[string]interface{})
			if props == nil {
				props = map[string]interface{}{}
			}
			pairID := apiID + "/" + diagID
			out[pairID] = artifact.Artifact{Kind: "api_diagnostic", ID: pairID, Properties: props}
		}
	}
	return out, nil
}

package kinds

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Mindburn-Labs/apimctl/pkg/artifact"
)

// apiOperationPolicyKind grounded on
// original_source/src/apy_ops/artifacts/api_operation_policies.py: a raw
// XML policy scoped to one operation of one api. Reads look for a
// policy.xml in each immediate subdirectory of the api's own directory and
// take that subdirectory's name as the operation id; policies nested one
// level deeper, under "operations/<opId>/", are not read.
type apiOperationPolicyKind struct{}

func APIOperationPolicy() artifact.Kind { return apiOperationPolicyKind{} }

func (apiOperationPolicyKind) Name() string { return "api_operation_policy" }

func (apiOperationPolicyKind) ResourcePath(id string) string {
	apiID, opID := splitPairID(id)
	return fmt.Sprintf("/apis/%s/operations/%s/policies/policy", apiID, opID)
}

func (apiOperationPolicyKind) ReadLocal(sourceDir string) (map[string]artifact.Artifact, error) {
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

		opEntries, err := listDirSorted(apiDir)
		if err != nil {
			return nil, err
		}
		for _, opEntry := range opEntries {
			if !opEntry.IsDir() {
				continue
			}
			opDir := filepath.Join(apiDir, opEntry.Name())
			policyPath := filepath.Join(opDir, "policy.xml")
			content, err := os.ReadFile(policyPath)
			if err != nil {
				continue
			}
			opID := opEntry.Name()
			pairID := apiID + "/" + opID
			props := map[string]interface{}{"format": "rawxml", "value": string(content)}
			out[pairID] = artifact.Artifact{Kind: "api_operation_policy", ID: pairID, Properties: props}
		}
	}
	return out, nil
}

func (apiOperationPolicyKind) WriteLocal(sourceDir string, a artifact.Artifact) error {
	apiID, opID := splitPairID(a.ID)
	base := filepath.Join(sourceDir, "apis")
	apiDir, ok := findParentDir(base, apiID)
	if !ok {
		apiDir = filepath.Join(base, apiID)
	}
	opDir := filepath.Join(apiDir, opID)
	if err := ensureDir(opDir); err != nil {
		return err
	}
	content, _ := a.Properties["value"].(string)
	return writeTextFile(filepath.Join(opDir, "policy.xml"), content)
}

func (apiOperationPolicyKind) ToRESTPayload(a artifact.Artifact) (map[string]interface{}, error) {
	return map[string]interface{}{"properties": a.Properties}, nil
}

func (apiOperationPolicyKind) ReadLive(ctx context.Context, client artifact.RESTClient) (map[string]artifact.Artifact, error) {
	out := make(map[string]artifact.Artifact)
	apis, err := client.List(ctx, "/apis")
	if err != nil {
		return out, nil
	}
	for _, api := range apis {
		apiID, _ := api["name"].(string)
		ops, err := client.List(ctx, "/apis/"+apiID+"/operations")
		if err != nil {
			continue
		}
		for _, op := range ops {
			opID, _ := op["name"].(string)
			data, err := client.Get(ctx, fmt.Sprintf("/apis/%s/operations/%s/policies/policy", apiID, opID))
			if err != nil {
				continue
			}
			props, _ := data["properties"].(map[string]interface{})
			if props == nil {
				props = map[string]interface{}{}
			}
			pairID := apiID + "/" + opID
			out[pairID] = artifact.Artifact{Kind: "api_operation_policy", ID: pairID, Properties: props}
		}
	}
	return out, nil
}

package kinds

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/Mindburn-Labs/apimctl/pkg/artifact"
)

// gatewayAPIKind grounded on
// original_source/src/apy_ops/artifacts/gateway_apis.py: associates an api
// with a self-hosted gateway so that gateway serves it. Its REST payload is
// a fixed body — the control plane ignores the body content for this
// association and original_source always sends this exact shape.
type gatewayAPIKind struct{}

func GatewayAPI() artifact.Kind { return gatewayAPIKind{} }

func (gatewayAPIKind) Name() string { return "gateway_api" }

func (gatewayAPIKind) ResourcePath(id string) string {
	gwID, apiID := splitPairID(id)
	return fmt.Sprintf("/gateways/%s/apis/%s", gwID, apiID)
}

func (gatewayAPIKind) ReadLocal(sourceDir string) (map[string]artifact.Artifact, error) {
	base := filepath.Join(sourceDir, "gateways")
	entries, err := listDirSorted(base)
	if err != nil {
		return nil, err
	}
	out := make(map[string]artifact.Artifact)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		gwDir := filepath.Join(base, e.Name())
		gwID := e.Name()
		if info, ok := readParentInfo(gwDir, "gatewayInformation.json"); ok {
			if rawID, ok := info["id"].(string); ok && rawID != "" {
				gwID = extractIDFromPath(rawID)
			}
		}
		raw, err := readJSONValue(filepath.Join(gwDir, "apis.json"))
		if err != nil {
			continue
		}
		for _, apiID := range idsFromRaw(raw) {
			pairID := gwID + "/" + apiID
			props := map[string]interface{}{"gatewayId": gwID, "apiId": apiID}
			out[pairID] = artifact.Artifact{Kind: "gateway_api", ID: pairID, Properties: props}
		}
	}
	return out, nil
}

func (gatewayAPIKind) WriteLocal(sourceDir string, a artifact.Artifact) error {
	gwID, _ := a.Properties["gatewayId"].(string)
	apiID, _ := a.Properties["apiId"].(string)
	dir := filepath.Join(sourceDir, "gateways", gwID)
	if err := ensureDir(dir); err != nil {
		return err
	}
	return appendToIDListFile(filepath.Join(dir, "apis.json"), apiID)
}

func (gatewayAPIKind) ToRESTPayload(artifact.Artifact) (map[string]interface{}, error) {
	return map[string]interface{}{"properties": map[string]interface{}{"provisioningState": "created"}}, nil
}

func (gatewayAPIKind) ReadLive(ctx context.Context, client artifact.RESTClient) (map[string]artifact.Artifact, error) {
	out := make(map[string]artifact.Artifact)
	gateways, err := client.List(ctx, "/gateways")
	if err != nil {
		return out, nil
	}
	for _, gw := range gateways {
		gwID, _ := gw["name"].(string)
		apis, err := client.List(ctx, "/gateways/"+gwID+"/apis")
		if err != nil {
			continue
		}
		for _, api := range apis {
			apiID, _ := api["name"].(string)
			pairID := gwID + "/" + apiID
			props := map[string]interface{}{"gatewayId": gwID, "apiId": apiID}
			out[pairID] = artifact.Artifact{Kind: "gateway_api", ID: pairID, Properties: props}
		}
	}
	return out, nil
}

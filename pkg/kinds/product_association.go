package kinds

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/Mindburn-Labs/apimctl/pkg/artifact"
)

// productAssociationKind is shared by product_group, product_tag and
// product_api, grounded respectively on
// original_source/src/apy_ops/artifacts/product_groups.py, product_tags.py
// and product_apis.py: all three associate a product with something
// (a group, a tag, an api) via a JSON id-list file sibling to the
// product's own information file, falling back to an inline array on the
// product's properties when no sidecar file exists. Every PUT takes an
// empty body.
type productAssociationKind struct {
	name         string // "product_group" | "product_tag" | "product_api"
	listFileName string // "groups.json" | "tags.json" | "apis.json"
	childField   string // "groupId" | "tagId" | "apiId"
	inlineField  string // "groups" | "tags" | "apis"
	childSegment string // "groups" | "tags" | "apis" (REST path segment)
}

func ProductGroup() artifact.Kind {
	return productAssociationKind{name: "product_group", listFileName: "groups.json", childField: "groupId", inlineField: "groups", childSegment: "groups"}
}

func ProductTag() artifact.Kind {
	return productAssociationKind{name: "product_tag", listFileName: "tags.json", childField: "tagId", inlineField: "tags", childSegment: "tags"}
}

func ProductAPI() artifact.Kind {
	return productAssociationKind{name: "product_api", listFileName: "apis.json", childField: "apiId", inlineField: "apis", childSegment: "apis"}
}

func (k productAssociationKind) Name() string { return k.name }

func (k productAssociationKind) ResourcePath(id string) string {
	prodID, childID := splitPairID(id)
	return fmt.Sprintf("/products/%s/%s/%s", prodID, k.childSegment, childID)
}

func (k productAssociationKind) ReadLocal(sourceDir string) (map[string]artifact.Artifact, error) {
	base := filepath.Join(sourceDir, "products")
	entries, err := listDirSorted(base)
	if err != nil {
		return nil, err
	}
	out := make(map[string]artifact.Artifact)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		prodDir := filepath.Join(base, e.Name())
		info, ok := readProductInfo(prodDir)
		if !ok {
			continue
		}
		prodID := e.Name()
		if rawID, ok := info["id"].(string); ok && rawID != "" {
			prodID = extractIDFromPath(rawID)
		}

		var childIDs []string
		if raw, err := readJSONValue(filepath.Join(prodDir, k.listFileName)); err == nil {
			childIDs = idsFromRaw(raw)
		} else if rawInline, ok := info[k.inlineField]; ok {
			childIDs = idsFromRaw(rawInline)
		} else {
			continue
		}

		for _, childID := range childIDs {
			pairID := prodID + "/" + childID
			props := map[string]interface{}{"productId": prodID, k.childField: childID}
			out[pairID] = artifact.Artifact{Kind: k.name, ID: pairID, Properties: props}
		}
	}
	return out, nil
}

func (k productAssociationKind) WriteLocal(sourceDir string, a artifact.Artifact) error {
	prodID, _ := a.Properties["productId"].(string)
	childID, _ := a.Properties[k.childField].(string)
	dir := filepath.Join(sourceDir, "products", prodID)
	if err := ensureDir(dir); err != nil {
		return err
	}
	return appendToIDListFile(filepath.Join(dir, k.listFileName), childID)
}

func (productAssociationKind) ToRESTPayload(artifact.Artifact) (map[string]interface{}, error) {
	return map[string]interface{}{}, nil
}

func (k productAssociationKind) ReadLive(ctx context.Context, client artifact.RESTClient) (map[string]artifact.Artifact, error) {
	out := make(map[string]artifact.Artifact)
	products, err := client.List(ctx, "/products")
	if err != nil {
		return out, nil
	}
	for _, prod := range products {
		prodID, _ := prod["name"].(string)
		children, err := client.List(ctx, "/products/"+prodID+"/"+k.childSegment)
		if err != nil {
			continue
		}
		for _, child := range children {
			childID, _ := child["name"].(string)
			pairID := prodID + "/" + childID
			props := map[string]interface{}{"productId": prodID, k.childField: childID}
			out[pairID] = artifact.Artifact{Kind: k.name, ID: pairID, Properties: props}
		}
	}
	return out, nil
}

func readProductInfo(dir string) (map[string]interface{}, bool) {
	return readParentInfo(dir, "productInformation.json")
}

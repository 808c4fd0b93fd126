package kinds

import (
	"path/filepath"

	"github.com/Mindburn-Labs/apimctl/pkg/artifact"
)

// productKind grounded on original_source/src/apy_ops/artifacts/products.py:
// a product bundles apis behind a subscription/approval policy. Reads
// accept either directory or flat-file form; writes always produce the
// directory form (a product's groups/apis/policy associations live
// alongside it as sibling files). The REST payload strips the "groups" and
// "apis" properties, which are expressed instead via the product_group and
// product_api association kinds.
type productKind struct {
	dirOrFileKind
}

func Product() artifact.Kind {
	return productKind{dirOrFileKind{
		scalarFileKind: scalarFileKind{name: "product", subdir: "products", restPrefix: "products"},
		infoFileName:   "productInformation.json",
	}}
}

func (k productKind) WriteLocal(sourceDir string, a artifact.Artifact) error {
	dir := filepath.Join(sourceDir, k.subdir, a.ID)
	if err := ensureDir(dir); err != nil {
		return err
	}
	props := cloneProps(a.Properties)
	props["id"] = k.ResourcePath(a.ID)
	return writeJSONProps(filepath.Join(dir, "productInformation.json"), props)
}

func (k productKind) ToRESTPayload(a artifact.Artifact) (map[string]interface{}, error) {
	props := cloneProps(a.Properties)
	delete(props, "id")
	delete(props, "groups")
	delete(props, "apis")
	return map[string]interface{}{"properties": props}, nil
}

package kinds

import "github.com/Mindburn-Labs/apimctl/pkg/artifact"

// Group grounded on original_source/src/apy_ops/artifacts/groups.py (top-level
// variant): a developer-portal user group that products are exposed to via
// the product_group association kind.
func Group() artifact.Kind {
	return scalarFileKind{name: "group", subdir: "groups", restPrefix: "groups"}
}

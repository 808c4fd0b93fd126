package kinds

import "github.com/Mindburn-Labs/apimctl/pkg/artifact"

// Tag is a service-wide label that apis and products can be associated
// with via the api_tag/product_tag association kinds.
func Tag() artifact.Kind {
	return scalarFileKind{name: "tag", subdir: "tags", restPrefix: "tags"}
}

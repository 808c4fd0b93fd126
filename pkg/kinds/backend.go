package kinds

import "github.com/Mindburn-Labs/apimctl/pkg/artifact"

// Backend grounded on original_source/src/apy_ops/artifacts/backends.py: a
// named upstream HTTP target that api operations can be routed to.
func Backend() artifact.Kind {
	return scalarFileKind{name: "backend", subdir: "backends", restPrefix: "backends"}
}

package kinds

import "github.com/Mindburn-Labs/apimctl/pkg/artifact"

// NamedValue is a named key/value pair (plain or secret-backed) usable from
// policy expressions across the whole service.
func NamedValue() artifact.Kind {
	return scalarFileKind{name: "named_value", subdir: "namedValues", restPrefix: "namedValues"}
}

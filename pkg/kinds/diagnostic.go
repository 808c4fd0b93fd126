package kinds

import "github.com/Mindburn-Labs/apimctl/pkg/artifact"

// Diagnostic grounded on original_source/src/apy_ops/artifacts/diagnostics.py:
// a service-level diagnostic setting wiring a sampling rate and verbosity
// to a logger. The api-scoped equivalent is the api_diagnostic kind.
func Diagnostic() artifact.Kind {
	return scalarFileKind{name: "diagnostic", subdir: "diagnostics", restPrefix: "diagnostics"}
}

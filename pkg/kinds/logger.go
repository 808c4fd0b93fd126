package kinds

import "github.com/Mindburn-Labs/apimctl/pkg/artifact"

// Logger grounded on original_source/src/apy_ops/artifacts/loggers.py: a
// diagnostic log sink (event hub, app insights, ...) diagnostics can target.
func Logger() artifact.Kind {
	return scalarFileKind{name: "logger", subdir: "loggers", restPrefix: "loggers"}
}

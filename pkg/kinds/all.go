package kinds

import "github.com/Mindburn-Labs/apimctl/pkg/artifact"

// All returns one instance of every kind, in no particular order — callers
// build an artifact.Registry from this, which is what imposes
// artifact.DeployOrder.
func All() []artifact.Kind {
	return []artifact.Kind{
		NamedValue(),
		Gateway(),
		Tag(),
		VersionSet(),
		Backend(),
		Logger(),
		Diagnostic(),
		PolicyFragment(),
		ServicePolicy(),
		Product(),
		Group(),
		API(),
		Subscription(),
		APIPolicy(),
		APITag(),
		APIDiagnostic(),
		GatewayAPI(),
		ProductPolicy(),
		ProductGroup(),
		ProductTag(),
		ProductAPI(),
		APIOperationPolicy(),
	}
}

package kinds

import "github.com/Mindburn-Labs/apimctl/pkg/artifact"

// Gateway grounded on original_source/src/apy_ops/artifacts/gateways.py: a
// self-hosted or managed gateway instance. Stored locally either as
// gateways/<id>/gatewayInformation.json or a flat gateways/<id>.json.
func Gateway() artifact.Kind {
	return dirOrFileKind{
		scalarFileKind: scalarFileKind{name: "gateway", subdir: "gateways", restPrefix: "gateways"},
		infoFileName:   "gatewayInformation.json",
	}
}

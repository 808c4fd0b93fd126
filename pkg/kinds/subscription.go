package kinds

import "github.com/Mindburn-Labs/apimctl/pkg/artifact"

// Subscription grounded on
// original_source/src/apy_ops/artifacts/subscriptions.py: a key-bearing
// grant of access to a product or a specific api.
func Subscription() artifact.Kind {
	return dirOnlyKind{
		name:         "subscription",
		subdir:       "subscriptions",
		infoFileName: "subscriptionInformation.json",
		restPrefix:   "subscriptions",
	}
}

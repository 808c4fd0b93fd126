package artifact

import "fmt"

// DeployOrder is the fixed, canonical ordering of all 22 kinds: the order
// changes are created/updated in (top to bottom) and deleted in (bottom to
// top). It mirrors dependency order in the control plane — e.g. a gateway
// must exist before a gateway_api association naming it can be pushed.
var DeployOrder = []string{
	"named_value",
	"gateway",
	"tag",
	"version_set",
	"backend",
	"logger",
	"diagnostic",
	"policy_fragment",
	"service_policy",
	"product",
	"group",
	"api",
	"subscription",
	"api_policy",
	"api_tag",
	"api_diagnostic",
	"gateway_api",
	"product_policy",
	"product_group",
	"product_tag",
	"product_api",
	"api_operation_policy",
}

// Registry holds one Kind per entry of DeployOrder, keyed by name, and
// exposes them back out in DeployOrder so callers never need to re-sort.
// Unlike the teacher's map-keyed InMemoryRegistry (which serves arbitrary
// lookups with no ordering contract), this registry exists specifically to
// preserve the fixed deployment order the control plane depends on.
type Registry struct {
	byName map[string]Kind
}

// NewRegistry builds a Registry from the given kinds. It returns an error
// if a kind's Name() is not one of DeployOrder's 22 entries, or if any
// entry of DeployOrder is missing a kind.
func NewRegistry(kinds []Kind) (*Registry, error) {
	known := make(map[string]bool, len(DeployOrder))
	for _, name := range DeployOrder {
		known[name] = true
	}
	byName := make(map[string]Kind, len(kinds))
	for _, k := range kinds {
		if !known[k.Name()] {
			return nil, fmt.Errorf("artifact: unknown kind %q is not in DeployOrder", k.Name())
		}
		if _, dup := byName[k.Name()]; dup {
			return nil, fmt.Errorf("artifact: duplicate kind registered: %s", k.Name())
		}
		byName[k.Name()] = k
	}
	for _, name := range DeployOrder {
		if _, ok := byName[name]; !ok {
			return nil, fmt.Errorf("artifact: missing kind implementation for %q", name)
		}
	}
	return &Registry{byName: byName}, nil
}

// Get returns the Kind registered under name.
func (r *Registry) Get(name string) (Kind, bool) {
	k, ok := r.byName[name]
	return k, ok
}

// Ordered returns every registered kind in DeployOrder, optionally filtered
// down to the names in only (when only is non-empty). Filtering preserves
// DeployOrder; names not present in the registry are ignored.
func (r *Registry) Ordered(only []string) []Kind {
	names := DeployOrder
	if len(only) > 0 {
		filter := make(map[string]bool, len(only))
		for _, n := range only {
			filter[n] = true
		}
		names = make([]string, 0, len(DeployOrder))
		for _, n := range DeployOrder {
			if filter[n] {
				names = append(names, n)
			}
		}
	}
	out := make([]Kind, 0, len(names))
	for _, n := range names {
		if k, ok := r.byName[n]; ok {
			out = append(out, k)
		}
	}
	return out
}

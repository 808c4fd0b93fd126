// Package differ compares the locally-read (or live-read) artifact set
// against the state's recorded artifact set and classifies every key into
// create/update/delete/noop. Grounded on
// original_source/src/apy_ops/differ.py.
package differ

import (
	"fmt"
	"reflect"
	"sort"
)

// Action is one of the four change classifications differ.py defines.
type Action string

const (
	Create Action = "create"
	Update Action = "update"
	Delete Action = "delete"
	Noop   Action = "noop"
)

// Side is one half of a comparison: either the local/live artifact or the
// state's recorded copy of it. Both sides of a diff use the same shape so
// the comparison logic doesn't care which direction it's reading.
type Side struct {
	Kind       string                 `json:"type"`
	ID         string                 `json:"id"`
	Hash       string                 `json:"hash"`
	Properties map[string]interface{} `json:"properties,omitempty"`
}

// Change is one entry of the diff output, matching differ.py's change
// dict field-for-field.
type Change struct {
	Action      Action `json:"action"`
	Key         string `json:"key"`
	Kind        string `json:"type"`
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Detail      string `json:"detail"`
	Old         *Side  `json:"old,omitempty"`
	New         *Side  `json:"new,omitempty"`
}

// Diff compares local against state, keyed identically (kind-scoped ids,
// e.g. "api_tag" keys look like "echo/public"). Returned changes are
// sorted by key, matching differ.py's `for key in sorted(all_keys)`.
func Diff(local, state map[string]Side) []Change {
	keys := make(map[string]struct{}, len(local)+len(state))
	for k := range local {
		keys[k] = struct{}{}
	}
	for k := range state {
		keys[k] = struct{}{}
	}
	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	changes := make([]Change, 0, len(sorted))
	for _, key := range sorted {
		l, hasLocal := local[key]
		s, hasState := state[key]

		switch {
		case hasLocal && !hasState:
			changes = append(changes, Change{
				Action: Create, Key: key, Kind: l.Kind, ID: l.ID,
				DisplayName: displayName(l), Detail: "new",
				Old: nil, New: sidePtr(l),
			})
		case hasState && !hasLocal:
			changes = append(changes, Change{
				Action: Delete, Key: key, Kind: s.Kind, ID: s.ID,
				DisplayName: displayName(s), Detail: "removed",
				Old: sidePtr(s), New: nil,
			})
		case hasLocal && hasState && l.Hash != s.Hash:
			changes = append(changes, Change{
				Action: Update, Key: key, Kind: l.Kind, ID: l.ID,
				DisplayName: displayName(l), Detail: diffDetail(s.Properties, l.Properties),
				Old: sidePtr(s), New: sidePtr(l),
			})
		case hasLocal && hasState:
			changes = append(changes, Change{
				Action: Noop, Key: key, Kind: l.Kind, ID: l.ID,
				DisplayName: displayName(l), Detail: "unchanged",
				Old: sidePtr(s), New: sidePtr(l),
			})
		}
	}
	return changes
}

func sidePtr(s Side) *Side {
	return &s
}

func displayName(s Side) string {
	if v, ok := s.Properties["displayName"].(string); ok && v != "" {
		return v
	}
	if v, ok := s.Properties["name"].(string); ok && v != "" {
		return v
	}
	return s.ID
}

// diffDetail summarizes up to 3 changed property keys, matching
// differ.py's _diff_detail exactly: scalar changes render as
// "key old→new", additions/removals as "added/removed key", and anything
// else (maps, slices) as "changed key".
func diffDetail(oldProps, newProps map[string]interface{}) string {
	keys := make(map[string]struct{}, len(oldProps)+len(newProps))
	for k := range oldProps {
		keys[k] = struct{}{}
	}
	for k := range newProps {
		keys[k] = struct{}{}
	}
	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	var changed []string
	for _, k := range sorted {
		oldVal, hasOld := oldProps[k]
		newVal, hasNew := newProps[k]
		if !hasOld {
			oldVal = nil
		}
		if !hasNew {
			newVal = nil
		}
		if reflect.DeepEqual(oldVal, newVal) {
			continue
		}
		switch {
		case oldVal == nil:
			changed = append(changed, fmt.Sprintf("added %s", k))
		case newVal == nil:
			changed = append(changed, fmt.Sprintf("removed %s", k))
		case isScalar(oldVal) && isScalar(newVal):
			changed = append(changed, fmt.Sprintf("%s %s→%s", k, scalarRepr(oldVal), scalarRepr(newVal)))
		default:
			changed = append(changed, fmt.Sprintf("changed %s", k))
		}
	}
	if len(changed) == 0 {
		return "changed"
	}
	n := len(changed)
	if n > 3 {
		n = 3
	}
	result := changed[0]
	for _, c := range changed[1:n] {
		result += ", " + c
	}
	if len(changed) > 3 {
		result += "..."
	}
	return result
}

// scalarRepr renders a scalar value the way Python's repr() (!r) would:
// strings are single-quoted, everything else (numbers, bools) is bare.
func scalarRepr(v interface{}) string {
	if s, ok := v.(string); ok {
		return "'" + s + "'"
	}
	return fmt.Sprintf("%v", v)
}

func isScalar(v interface{}) bool {
	switch v.(type) {
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	default:
		return false
	}
}

// Package refresolve inlines the on-disk reference placeholders that
// artifact directories use to keep large string blobs (policy XML, HTML
// bodies) and list-valued associations out of the property JSON itself.
//
// A key "$ref-policy": "policy.xml" resolves to "policy": "<contents of
// policy.xml>". A key "$refs-groups": "groups.json" resolves to "groups":
// <parsed JSON array from groups.json>. Resolution recurses into nested
// objects and into object elements of arrays.
package refresolve

import (
	"encoding/json"
	"os"
	"path/filepath"
)

const (
	refPrefix  = "$ref-"
	refsPrefix = "$refs-"
)

// Resolve walks props and inlines every $ref-*/$refs-* key, reading sibling
// files relative to baseDir. A reference whose target file does not exist
// is left unresolved under its stripped key name rather than failing the
// whole read: the caller's hash will then be computed over the raw
// placeholder value. This mirrors the upstream tool this was ported from
// and is preserved deliberately even though it can silently mask a missing
// file — changing it would change digests for artifacts that currently
// resolve this way.
func Resolve(props map[string]interface{}, baseDir string) (map[string]interface{}, error) {
	resolved := make(map[string]interface{}, len(props))
	for key, value := range props {
		switch {
		case len(key) > len(refPrefix) && key[:len(refPrefix)] == refPrefix:
			name := key[len(refPrefix):]
			resolved[name] = resolveFile(value, baseDir, readText)
		case len(key) > len(refsPrefix) && key[:len(refsPrefix)] == refsPrefix:
			name := key[len(refsPrefix):]
			resolved[name] = resolveFile(value, baseDir, readJSON)
		default:
			v, err := resolveValue(value, baseDir)
			if err != nil {
				return nil, err
			}
			resolved[key] = v
		}
	}
	return resolved, nil
}

func resolveValue(value interface{}, baseDir string) (interface{}, error) {
	switch v := value.(type) {
	case map[string]interface{}:
		return Resolve(v, baseDir)
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			if m, ok := item.(map[string]interface{}); ok {
				r, err := Resolve(m, baseDir)
				if err != nil {
					return nil, err
				}
				out[i] = r
				continue
			}
			out[i] = item
		}
		return out, nil
	default:
		return value, nil
	}
}

// resolveFile resolves a single $ref-/$refs- value using reader. On any
// failure (value not a string, file missing, read error) it returns the
// raw value unchanged, per the preserved silent-swallow behavior.
func resolveFile(value interface{}, baseDir string, reader func(path string) (interface{}, bool)) interface{} {
	rel, ok := value.(string)
	if !ok {
		return value
	}
	path := filepath.Join(baseDir, rel)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return value
	}
	if resolved, ok := reader(path); ok {
		return resolved
	}
	return value
}

func readText(path string) (interface{}, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	return string(data), true
}

func readJSON(path string) (interface{}, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, false
	}
	return v, true
}

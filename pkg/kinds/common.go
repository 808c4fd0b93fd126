// Package kinds implements the 22 resource kinds of the control plane's
// object model, in the fixed order artifact.DeployOrder declares. Each file
// in this package mirrors one module of the upstream tool this was ported
// from: a scalar file kind (backend, logger, ...), a singleton XML-content
// kind (service_policy, api_policy, ...), an association-edge kind
// (api_tag, gateway_api, ...), or the one composite kind (api).
package kinds

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Mindburn-Labs/apimctl/pkg/refresolve"
)

// extractIDFromPath extracts the short id from a control-plane id path:
// "/apis/echo-api" -> "echo-api", "/products/starter/" -> "starter".
func extractIDFromPath(idPath string) string {
	trimmed := strings.TrimRight(idPath, "/")
	if trimmed == "" {
		return ""
	}
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}

// readJSONProps reads and parses a JSON object file.
func readJSONProps(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var props map[string]interface{}
	if err := json.Unmarshal(data, &props); err != nil {
		return nil, fmt.Errorf("kinds: parse %s: %w", path, err)
	}
	return props, nil
}

// readJSONValue reads and parses an arbitrary JSON value (used for the
// id-list sidecar files like tags.json/apis.json/groups.json).
func readJSONValue(path string) (interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("kinds: parse %s: %w", path, err)
	}
	return v, nil
}

// writeJSONProps writes props as indented JSON, matching the on-disk
// formatting produced by the upstream tool (2-space indent, trailing
// newline) so extracted trees diff cleanly against hand-authored ones.
func writeJSONProps(path string, props map[string]interface{}) error {
	data, err := json.MarshalIndent(props, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func writeJSONList(path string, ids []string) error {
	sorted := append([]string(nil), ids...)
	sortStrings(sorted)
	data, err := json.MarshalIndent(sorted, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// resolveRefsIn is a thin wrapper so kind files read uniformly.
func resolveRefsIn(props map[string]interface{}, baseDir string) (map[string]interface{}, error) {
	return refresolve.Resolve(props, baseDir)
}

func writeTextFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

func ensureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

// listDirSorted returns the sorted directory entries of dir, or nil if dir
// does not exist.
func listDirSorted(dir string) ([]os.DirEntry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return entries, nil
}

// findParentDir locates the directory for a parent resource (api or
// product) that may be stored either as exactly <id> or, for apis, with a
// display-name prefix "<displayName>_<id>". Returns false if no directory
// matches.
func findParentDir(base, id string) (string, bool) {
	entries, err := os.ReadDir(base)
	if err != nil {
		return "", false
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if e.Name() == id || strings.HasSuffix(e.Name(), "_"+id) {
			return filepath.Join(base, e.Name()), true
		}
	}
	return "", false
}

// readParentInfo reads a parent resource's information file, trying each
// candidate name in order (apis accept the legacy "configuration.json"
// name as a fallback; products do not).
func readParentInfo(dir string, candidates ...string) (map[string]interface{}, bool) {
	for _, name := range candidates {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			props, err := readJSONProps(path)
			if err == nil {
				return props, true
			}
		}
	}
	return nil, false
}

// splitPairID splits a synthetic association id "<parent>/<child>" into its
// two halves.
func splitPairID(id string) (string, string) {
	if i := strings.Index(id, "/"); i >= 0 {
		return id[:i], id[i+1:]
	}
	return id, ""
}

// appendToIDListFile adds id to the sorted JSON string array stored at
// path, creating the file if absent. Used by the association-edge kinds,
// which each receive one artifact per (parent, child) pair but share one
// list file per parent.
func appendToIDListFile(path, id string) error {
	existing := []string{}
	if raw, err := readJSONValue(path); err == nil {
		existing = idsFromRaw(raw)
	}
	for _, e := range existing {
		if e == id {
			return writeJSONList(path, existing)
		}
	}
	return writeJSONList(path, append(existing, id))
}

// idsFromRaw normalizes a JSON array of association ids: each element is
// either a bare string id or an object with an "id" path field.
func idsFromRaw(raw interface{}) []string {
	list, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(list))
	for _, item := range list {
		switch v := item.(type) {
		case string:
			ids = append(ids, v)
		case map[string]interface{}:
			if idPath, ok := v["id"].(string); ok {
				ids = append(ids, extractIDFromPath(idPath))
			}
		}
	}
	return ids
}

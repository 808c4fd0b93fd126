package kinds

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Mindburn-Labs/apimctl/pkg/artifact"
)

// apiKind is the one composite, atomic resource kind: an api bundles its
// own information document, an optional OpenAPI/WSDL/WADL/GraphQL
// specification file, and its operations into a single unit for hashing
// and deployment. Grounded on
// original_source/src/apy_ops/artifacts/apis.py.
//
// An api artifact's Properties always has exactly three top-level keys:
// "apiInfo" (the resolved information document, as read), "spec" (nil, or
// {"format","content","path"}) and "operations" (map of operation id to
// its resolved property bag, or to a bare {"id": ...} placeholder for
// operations stored in the newer per-operation-directory layout, whose
// properties are not kept locally).
type apiKind struct{}

func API() artifact.Kind { return apiKind{} }

func (apiKind) Name() string { return "api" }

func (apiKind) ResourcePath(id string) string { return "/apis/" + id }

var specFormatMap = map[string]string{
	"json-2": "swagger-json",
	"json-3": "openapi+json",
	"yaml-2": "swagger-link-json",
	"yaml-3": "openapi",
}

func detectSpecFormat(path string) (string, string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", "", err
	}
	ext := strings.ToLower(filepath.Ext(path))
	text := string(content)

	switch ext {
	case ".wsdl":
		return "wsdl", text, nil
	case ".wadl":
		return "wadl", text, nil
	case ".graphql":
		return "graphql", text, nil
	}

	isYAML := ext == ".yaml" || ext == ".yml"
	version := "3"
	var swagger string
	if isYAML {
		var parsed map[string]interface{}
		if err := yaml.Unmarshal(content, &parsed); err == nil {
			swagger, _ = parsed["swagger"].(string)
		}
	} else {
		var parsed map[string]interface{}
		if err := json.Unmarshal(content, &parsed); err == nil {
			swagger, _ = parsed["swagger"].(string)
		}
	}
	if strings.HasPrefix(swagger, "2") {
		version = "2"
	}

	kind := "json"
	fallback := "openapi+json"
	if isYAML {
		kind, fallback = "yaml", "openapi"
	}
	if fmt, ok := specFormatMap[kind+"-"+version]; ok {
		return fmt, text, nil
	}
	return fallback, text, nil
}

var specFileNames = []string{
	"specification.json", "specification.yaml", "specification.yml",
	"specification.wsdl", "specification.wadl", "specification.graphql",
}

func findSpecFile(apiDir string) string {
	for _, name := range specFileNames {
		path := filepath.Join(apiDir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

var reservedAPIFiles = map[string]bool{
	"apiInformation.json": true,
	"configuration.json":  true,
	"tags.json":           true,
}

// readOperations mirrors apis.py:_read_operations. The new per-operation
// layout wins outright when an "operations" subdirectory exists: old-format
// flat files are not also scanned in that case.
func readOperations(apiDir, apiID string) (map[string]interface{}, error) {
	opsDir := filepath.Join(apiDir, "operations")
	if entries, err := listDirSorted(opsDir); err == nil && entries != nil {
		ops := make(map[string]interface{}, len(entries))
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			ops[e.Name()] = map[string]interface{}{
				"id": fmt.Sprintf("/apis/%s/operations/%s", apiID, e.Name()),
			}
		}
		return ops, nil
	}

	entries, err := listDirSorted(apiDir)
	if err != nil {
		return nil, err
	}
	ops := make(map[string]interface{})
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		if reservedAPIFiles[name] || strings.HasPrefix(name, "specification.") {
			continue
		}
		raw, err := readJSONValue(filepath.Join(apiDir, name))
		if err != nil {
			return nil, err
		}
		opProps, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		opProps, err = resolveRefsIn(opProps, apiDir)
		if err != nil {
			return nil, err
		}
		opID := strings.TrimSuffix(name, ".json")
		if rawID, ok := opProps["id"].(string); ok && rawID != "" {
			opID = extractIDFromPath(rawID)
		}
		ops[opID] = opProps
	}
	return ops, nil
}

func (apiKind) ReadLocal(sourceDir string) (map[string]artifact.Artifact, error) {
	base := filepath.Join(sourceDir, "apis")
	entries, err := listDirSorted(base)
	if err != nil {
		return nil, err
	}
	out := make(map[string]artifact.Artifact)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		apiDir := filepath.Join(base, e.Name())
		props, ok := readParentInfo(apiDir, "apiInformation.json", "configuration.json")
		if !ok {
			continue
		}
		props, err = resolveRefsIn(props, apiDir)
		if err != nil {
			return nil, err
		}
		apiID := e.Name()
		if rawID, ok := props["id"].(string); ok && rawID != "" {
			apiID = extractIDFromPath(rawID)
		}

		var spec interface{}
		if specPath := findSpecFile(apiDir); specPath != "" {
			format, content, err := detectSpecFormat(specPath)
			if err != nil {
				return nil, err
			}
			spec = map[string]interface{}{
				"format":  format,
				"content": content,
				"path":    filepath.Base(specPath),
			}
		}

		operations, err := readOperations(apiDir, apiID)
		if err != nil {
			return nil, err
		}

		out[apiID] = artifact.Artifact{
			Kind: "api",
			ID:   apiID,
			Properties: map[string]interface{}{
				"apiInfo":    props,
				"spec":       spec,
				"operations": operations,
			},
		}
	}
	return out, nil
}

func (apiKind) WriteLocal(sourceDir string, a artifact.Artifact) error {
	base := filepath.Join(sourceDir, "apis")
	apiInfo, _ := a.Properties["apiInfo"].(map[string]interface{})
	display := a.ID
	if v, ok := apiInfo["displayName"].(string); ok && v != "" {
		display = v
	}
	dirName := a.ID
	if display != a.ID {
		dirName = display + "_" + a.ID
	}
	dirName = strings.NewReplacer("/", "_", "\\", "_").Replace(dirName)
	apiDir := filepath.Join(base, dirName)
	if err := ensureDir(apiDir); err != nil {
		return err
	}

	props := cloneProps(apiInfo)
	props["id"] = "/apis/" + a.ID
	if err := writeJSONProps(filepath.Join(apiDir, "apiInformation.json"), props); err != nil {
		return err
	}

	operations, _ := a.Properties["operations"].(map[string]interface{})
	for opID, raw := range operations {
		opProps, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		out := cloneProps(opProps)
		out["id"] = fmt.Sprintf("/apis/%s/operations/%s", a.ID, opID)
		if err := writeJSONProps(filepath.Join(apiDir, opID+".json"), out); err != nil {
			return err
		}
	}
	return nil
}

func (apiKind) ToRESTPayload(a artifact.Artifact) (map[string]interface{}, error) {
	apiInfo, _ := a.Properties["apiInfo"].(map[string]interface{})
	props := cloneProps(apiInfo)
	delete(props, "id")
	payload := map[string]interface{}{"properties": props}

	if spec, ok := a.Properties["spec"].(map[string]interface{}); ok && spec != nil {
		props["format"] = spec["format"]
		props["value"] = spec["content"]
	}
	return payload, nil
}

func (apiKind) OperationPayloads(a artifact.Artifact) (map[string]map[string]interface{}, error) {
	operations, _ := a.Properties["operations"].(map[string]interface{})
	out := make(map[string]map[string]interface{}, len(operations))
	for opID, raw := range operations {
		opProps, _ := raw.(map[string]interface{})
		props := cloneProps(opProps)
		delete(props, "id")
		out[opID] = map[string]interface{}{"properties": props}
	}
	return out, nil
}

func (apiKind) ReadLive(ctx context.Context, client artifact.RESTClient) (map[string]artifact.Artifact, error) {
	items, err := client.List(ctx, "/apis")
	if err != nil {
		return nil, err
	}
	out := make(map[string]artifact.Artifact, len(items))
	for _, item := range items {
		apiID, _ := item["name"].(string)
		props, _ := item["properties"].(map[string]interface{})
		if props == nil {
			props = map[string]interface{}{}
		}

		operations := map[string]interface{}{}
		if ops, err := client.List(ctx, "/apis/"+apiID+"/operations"); err == nil {
			for _, op := range ops {
				opID, _ := op["name"].(string)
				opProps, _ := op["properties"].(map[string]interface{})
				if opProps == nil {
					opProps = map[string]interface{}{}
				}
				operations[opID] = opProps
			}
		}

		out[apiID] = artifact.Artifact{
			Kind: "api",
			ID:   apiID,
			Properties: map[string]interface{}{
				"apiInfo":    props,
				"spec":       nil,
				"operations": operations,
			},
		}
	}
	return out, nil
}

var _ artifact.OperationPayloadKind = apiKind{}

package planfile

import (
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// schemaURL is a synthetic identifier for the compiler's resource cache;
// the schema is never fetched over the network.
const schemaURL = "https://apimctl.schemas.local/planfile/plan.schema.json"

// planSchemaJSON describes the shape generate_plan/Engine.Generate
// produces, matching pkg/planner.Plan field-for-field. Loading a
// hand-edited or truncated plan file fails this validation before it
// ever reaches json.Unmarshal into the typed struct.
const planSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["generated_at", "source_dir", "summary", "changes"],
  "properties": {
    "generated_at": {"type": "string"},
    "source_dir": {"type": "string"},
    "summary": {
      "type": "object",
      "required": ["create", "update", "delete", "noop"],
      "properties": {
        "create": {"type": "integer", "minimum": 0},
        "update": {"type": "integer", "minimum": 0},
        "delete": {"type": "integer", "minimum": 0},
        "noop":   {"type": "integer", "minimum": 0}
      }
    },
    "changes": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["action", "key", "type", "id"],
        "properties": {
          "action": {"type": "string", "enum": ["create", "update", "delete", "noop"]},
          "key":    {"type": "string"},
          "type":   {"type": "string"},
          "id":     {"type": "string"}
        }
      }
    }
  }
}`

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func compiledPlanSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		if err := c.AddResource(schemaURL, strings.NewReader(planSchemaJSON)); err != nil {
			compileErr = err
			return
		}
		compiledSchema, compileErr = c.Compile(schemaURL)
	})
	return compiledSchema, compileErr
}

package class

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// definitionMetaSchema constrains the JSON shape of a class definition
// before it is unmarshalled, so malformed payloads fail with a schema
// error instead of a partially-populated definition.
const definitionMetaSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["name", "kind"],
  "properties": {
    "id": {"type": "string"},
    "name": {"type": "string", "minLength": 1},
    "kind": {"enum": ["node", "relationship"]},
    "active": {"type": "boolean"},
    "relationType": {"type": "string"},
    "sourceKinds": {"type": "array", "items": {"type": "string"}},
    "targetKinds": {"type": "array", "items": {"type": "string"}},
    "required": {"type": "array", "items": {"type": "string"}},
    "properties": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "required": ["type"],
        "properties": {
          "type": {"enum": ["string", "number", "boolean"]},
          "required": {"type": "boolean"},
          "allowedValues": {
            "type": "array",
            "items": {"type": ["string", "number", "boolean"]}
          },
          "minLength": {"type": "integer", "minimum": 0},
          "maxLength": {"type": "integer", "minimum": 0},
          "default": {"type": ["string", "number", "boolean", "null"]}
        },
        "additionalProperties": false
      }
    }
  },
  "additionalProperties": false
}`

var compiledMetaSchema = mustCompileMetaSchema()

func mustCompileMetaSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7
	if err := compiler.AddResource("class-definition.json", strings.NewReader(definitionMetaSchema)); err != nil {
		panic(err)
	}
	return compiler.MustCompile("class-definition.json")
}

// ParseDefinitionJSON validates a JSON class definition against the
// meta-schema and unmarshals it. The returned definition is normalized
// but not yet structurally validated.
func ParseDefinitionJSON(data []byte) (*Definition, error) {
	var plain interface{}
	if err := json.Unmarshal(data, &plain); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if err := compiledMetaSchema.Validate(plain); err != nil {
		return nil, fmt.Errorf("invalid class definition: %w", err)
	}

	var def Definition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("invalid class definition: %w", err)
	}
	def.Normalize()
	return &def, nil
}

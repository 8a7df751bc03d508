package server

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// processSchema validates POST /process manifests before any base64
// decoding happens.
const processSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["pdf", "edges"],
  "properties": {
    "pdf": {"type": "string", "minLength": 1},
    "design_id": {"type": "string"},
    "edges": {
      "type": "object",
      "required": ["side"],
      "properties": {
        "side": {"$ref": "#/$defs/edge"},
        "top": {"$ref": "#/$defs/edge"},
        "bottom": {"$ref": "#/$defs/edge"}
      },
      "additionalProperties": false
    },
    "options": {
      "type": "object",
      "properties": {
        "bleed": {"enum": ["add", "existing"]},
        "edge_mode": {"enum": ["side-only", "all-edges"]},
        "scale": {"enum": ["fill", "fit", "stretch", "none", "extend-sides"]},
        "paper_type": {"enum": ["bw", "standard", "premium"]}
      },
      "additionalProperties": false
    }
  },
  "additionalProperties": false,
  "$defs": {
    "edge": {
      "type": "object",
      "properties": {
        "image": {"type": "string", "minLength": 1},
        "color": {"type": "string", "pattern": "^#[0-9a-fA-F]{6}([0-9a-fA-F]{2})?$"}
      },
      "oneOf": [
        {"required": ["image"]},
        {"required": ["color"]}
      ],
      "additionalProperties": false
    }
  }
}`

var compiledProcessSchema = mustCompileSchema("process.json", processSchema)

func mustCompileSchema(name, raw string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, strings.NewReader(raw)); err != nil {
		panic(fmt.Sprintf("failed to load %s: %v", name, err))
	}
	return compiler.MustCompile(name)
}

// validateManifest checks raw JSON against the process schema.
func validateManifest(raw []byte) error {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := compiledProcessSchema.Validate(doc); err != nil {
		return fmt.Errorf("manifest does not match schema: %w", err)
	}
	return nil
}

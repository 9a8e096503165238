package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Veraticus/the-data-must-flow/internal/model"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Response shapes the prompts ask for. Deviations are reported as warnings in
// result metadata; they never reject a response.
const (
	personalResponseSchema = `{
  "type": "object",
  "additionalProperties": {
    "oneOf": [
      {"type": ["string", "number", "null"]},
      {
        "type": "object",
        "required": ["value"],
        "properties": {
          "value": {"type": ["string", "number", "null"]},
          "confidence": {"type": ["number", "string"]}
        }
      }
    ]
  }
}`

	tabularResponseSchema = `{
  "type": "array",
  "items": {
    "type": "object",
    "required": ["headers", "data"],
    "properties": {
      "dataType": {"type": "string"},
      "headers": {"type": "array", "items": {"type": ["string", "number"]}},
      "data": {"type": "array", "items": {"type": ["array", "object"]}},
      "confidence": {"type": ["number", "string"]},
      "description": {"type": "string"}
    }
  }
}`
)

var (
	schemaOnce     sync.Once
	personalSchema *jsonschema.Schema
	tabularSchema  *jsonschema.Schema
	schemaErr      error
)

func compileSchemas() {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("personal.json", strings.NewReader(personalResponseSchema)); err != nil {
		schemaErr = fmt.Errorf("add personal schema: %w", err)
		return
	}
	if err := compiler.AddResource("tabular.json", strings.NewReader(tabularResponseSchema)); err != nil {
		schemaErr = fmt.Errorf("add tabular schema: %w", err)
		return
	}
	if personalSchema, schemaErr = compiler.Compile("personal.json"); schemaErr != nil {
		return
	}
	tabularSchema, schemaErr = compiler.Compile("tabular.json")
}

// schemaWarnings validates a JSON document against the expected response
// shape and returns one message per violated constraint.
func schemaWarnings(extractorType, data string) []string {
	schemaOnce.Do(compileSchemas)
	if schemaErr != nil {
		return []string{schemaErr.Error()}
	}

	schema := personalSchema
	if extractorType != model.TypePersonalData {
		schema = tabularSchema
	}

	var v any
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		return []string{fmt.Sprintf("invalid JSON: %v", err)}
	}

	err := schema.Validate(v)
	if err == nil {
		return nil
	}

	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []string{err.Error()}
	}

	var warnings []string
	collectLeaves(ve, &warnings)
	sort.Strings(warnings)
	return warnings
}

func collectLeaves(ve *jsonschema.ValidationError, out *[]string) {
	if len(ve.Causes) == 0 {
		loc := ve.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		*out = append(*out, fmt.Sprintf("%s: %s", loc, ve.Message))
		return
	}
	for _, cause := range ve.Causes {
		collectLeaves(cause, out)
	}
}

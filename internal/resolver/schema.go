package resolver

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"server/internal/domain"
)

// validateRequired enforces the only resolution-time schema rule: every
// field named in the schema's `required` array must be present and non-null
// in the merged document. Deeper type and range validation is a
// schema-definition concern (see CheckParamSchema).
func validateRequired(schema, doc domain.ParamDoc) error {
	raw, ok := schema["required"]
	if !ok {
		return nil
	}
	names, ok := raw.([]any)
	if !ok {
		if typed, isStrings := raw.([]string); isStrings {
			names = make([]any, len(typed))
			for i, n := range typed {
				names[i] = n
			}
		} else {
			return nil
		}
	}
	for _, entry := range names {
		name, ok := entry.(string)
		if !ok {
			continue
		}
		val, present := doc[name]
		if !present || val == nil {
			return domain.MissingParamError(name)
		}
	}
	return nil
}

// CheckParamSchema compiles the document as a JSON Schema and reports
// whether it is well formed. Catalog administration runs this when a version
// schema is written; the resolver itself never rejects a job over schema
// structure.
func CheckParamSchema(schema domain.ParamDoc) error {
	raw, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("encode schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	if _, err := compiler.Compile("schema.json"); err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	return nil
}

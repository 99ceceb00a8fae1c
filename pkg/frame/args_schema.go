package frame

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ArgsSchema is a compiled JSON Schema used to validate input arguments at
// frame construction.
type ArgsSchema = *jsonschema.Schema

// CompileArgsSchema compiles a JSON Schema document (draft 2020-12) for a
// capability's input arguments. name distinguishes schemas in error messages.
func CompileArgsSchema(name string, schema string) (ArgsSchema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	schemaURL := fmt.Sprintf("https://wake.schemas.local/args/%s.schema.json", name)
	if err := c.AddResource(schemaURL, strings.NewReader(schema)); err != nil {
		return nil, fmt.Errorf("args schema load failed: %w", err)
	}
	compiled, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("args schema compile failed: %w", err)
	}
	return compiled, nil
}

// validateArgs round-trips args through JSON so Go-native values take the
// decoded forms the validator expects, then validates.
func validateArgs(schema ArgsSchema, args map[string]any) error {
	if args == nil {
		args = map[string]any{}
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("input args encode: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return fmt.Errorf("input args decode: %w", err)
	}
	if err := schema.Validate(decoded); err != nil {
		return fmt.Errorf("input args schema: %w", err)
	}
	return nil
}

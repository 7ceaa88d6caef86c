// Package validate compiles stored JSON Schemas and checks draft documents
// against them.
package validate

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Validator wraps one compiled schema.
type Validator struct {
	compiled *jsonschema.Schema
}

// New compiles a schema from its stored content string.
func New(content string) (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource("schema.json", strings.NewReader(content)); err != nil {
		return nil, fmt.Errorf("error adding schema resource: %w", err)
	}
	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("error compiling schema: %w", err)
	}
	return &Validator{compiled: compiled}, nil
}

// Validate checks a decoded document against the schema.
func (v *Validator) Validate(document any) error {
	return v.compiled.Validate(document)
}

// ValidateJSON checks a raw JSON document against the schema.
func (v *Validator) ValidateJSON(content string) error {
	var document any
	if err := json.Unmarshal([]byte(content), &document); err != nil {
		return fmt.Errorf("error parsing document: %w", err)
	}
	return v.Validate(document)
}

// IsValid reports whether a decoded document conforms to the schema.
func (v *Validator) IsValid(document any) bool {
	return v.Validate(document) == nil
}

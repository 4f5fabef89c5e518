// Package schema validates inbound webhook payloads against an embedded
// JSON schema before they reach the orchestrator.
package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	_ "embed"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed webhook.schema.json
var webhookSchema string

// Validator checks raw webhook bodies.
type Validator struct {
	compiled *jsonschema.Schema
}

// NewValidator compiles the embedded webhook schema.
func NewValidator() (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("webhook.schema.json", strings.NewReader(webhookSchema)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	compiled, err := compiler.Compile("webhook.schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Validator{compiled: compiled}, nil
}

// Validate checks a raw webhook body against the schema.
func (v *Validator) Validate(raw []byte) error {
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	return v.compiled.Validate(payload)
}

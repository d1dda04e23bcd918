package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Tool is a named, schema-described capability the model may invoke.
//
// Name, Description and Schema are pure and used to advertise the tool to
// the model. Call is the only side-effecting operation; it validates args
// against the tool's schema and returns either the textual result or an
// error describing an ordinary failure.
type Tool interface {
	Name() string
	Description() string
	Schema() map[string]any

	// RequiresApproval reports whether the tool mutates the filesystem or
	// the system and must be confirmed by the user before running.
	RequiresApproval() bool
	// ApprovalPrompt renders a human-readable description of what the tool
	// is about to do with the given arguments.
	ApprovalPrompt(args json.RawMessage) string

	Call(ctx context.Context, args json.RawMessage) (string, error)
}

// GenerateSchema derives a JSON schema from a struct type's json and
// jsonschema_description tags.
func GenerateSchema[T any]() map[string]any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(&v)

	b, err := json.Marshal(schema)
	if err != nil {
		panic(fmt.Sprintf("tools: marshal schema: %v", err))
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		panic(fmt.Sprintf("tools: unmarshal schema: %v", err))
	}
	delete(m, "$schema")
	delete(m, "$id")
	return m
}

// decodeArgs unmarshals raw tool-call arguments into the tool's input
// struct. A malformed payload is an ordinary failure the model can correct.
func decodeArgs(raw json.RawMessage, into any) error {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

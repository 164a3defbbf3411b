// Package structured asks a chat model for a JSON document matching a schema
// derived from a Go type, validates the reply, and decodes it.
package structured

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/mohammad-safakhou/concordance/internal/helpers"
	"github.com/mohammad-safakhou/concordance/provider"
	validator "github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrDecode matches every DecodeError via errors.Is.
var ErrDecode = errors.New("structured output could not be decoded")

// DecodeError reports a model reply that is not valid JSON for the schema.
type DecodeError struct {
	Schema  string
	Payload string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Schema, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

// Schema is a reflected JSON schema plus its compiled validator.
type Schema struct {
	name     string
	doc      map[string]any
	compiled *validator.Schema
}

// For reflects T into a JSON schema named name and compiles it for validation.
func For[T any](name string) (*Schema, error) {
	reflector := jsonschema.Reflector{
		Anonymous:                  true,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	var v T
	raw, err := json.Marshal(reflector.Reflect(v))
	if err != nil {
		return nil, fmt.Errorf("marshal %s schema: %w", name, err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("reload %s schema: %w", name, err)
	}

	compiler := validator.NewCompiler()
	resource := name + ".json"
	if err := compiler.AddResource(resource, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	compiled, err := compiler.Compile(resource)
	if err != nil {
		return nil, fmt.Errorf("compile %s schema: %w", name, err)
	}
	delete(doc, "$schema")
	delete(doc, "$id")
	return &Schema{name: name, doc: doc, compiled: compiled}, nil
}

// MustFor is For that panics; intended for package-level schema variables.
func MustFor[T any](name string) *Schema {
	s, err := For[T](name)
	if err != nil {
		panic(err)
	}
	return s
}

// Name returns the schema name sent to providers.
func (s *Schema) Name() string { return s.name }

// Document returns the JSON schema as a generic map (used for tool parameters).
func (s *Schema) Document() map[string]any { return s.doc }

// Format returns the provider response format for this schema.
func (s *Schema) Format() *provider.ResponseFormat {
	return &provider.ResponseFormat{Name: s.name, Schema: s.doc}
}

// Decode validates payload against the schema and unmarshals it into out.
// Replies wrapped in prose or markdown fences are unwrapped first.
func (s *Schema) Decode(payload string, out any) error {
	body := strings.TrimSpace(payload)
	if !strings.HasPrefix(body, "{") && !strings.HasPrefix(body, "[") {
		extracted, err := helpers.ExtractJSON(body)
		if err != nil {
			return &DecodeError{Schema: s.name, Payload: payload, Err: err}
		}
		body = extracted
	}
	var doc any
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return &DecodeError{Schema: s.name, Payload: payload, Err: fmt.Errorf("invalid JSON: %w", err)}
	}
	if err := s.compiled.Validate(doc); err != nil {
		return &DecodeError{Schema: s.name, Payload: payload, Err: fmt.Errorf("does not match schema: %w", err)}
	}
	if err := json.Unmarshal([]byte(body), out); err != nil {
		return &DecodeError{Schema: s.name, Payload: payload, Err: err}
	}
	return nil
}

// Generate sends messages with the schema as response format and decodes the reply.
func Generate[T any](ctx context.Context, model provider.ChatModel, schema *Schema, messages []provider.Message) (T, error) {
	var out T
	resp, err := model.Chat(ctx, provider.ChatRequest{Messages: messages, ResponseFormat: schema.Format()})
	if err != nil {
		return out, err
	}
	if err := schema.Decode(resp.Content, &out); err != nil {
		return out, err
	}
	return out, nil
}

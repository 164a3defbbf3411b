// Package llm holds the provider-neutral chat and embedding types shared by
// every LLM client implementation.
package llm

import (
	"encoding/json"
	"errors"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrEmbeddingUnsupported is returned by providers without an embeddings API.
var ErrEmbeddingUnsupported = errors.New("provider does not support embeddings")

// Message represents a message in a conversation
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ToolDefinition describes a callable tool with a JSON schema for its arguments.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ToolCall is one tool invocation requested by the model.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ResponseFormat asks the model for a JSON document matching Schema.
type ResponseFormat struct {
	Name   string         `json:"name"`
	Schema map[string]any `json:"schema"`
}

// ChatRequest is a provider-neutral completion request.
type ChatRequest struct {
	Model          string
	Messages       []Message
	Temperature    *float64
	MaxTokens      int
	Tools          []ToolDefinition
	ResponseFormat *ResponseFormat
}

// Usage reports token consumption for one call.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// ChatResponse carries either text content, tool calls, or both.
type ChatResponse struct {
	Content   string
	ToolCalls []ToolCall
	Usage     Usage
}

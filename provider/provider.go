package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mohammad-safakhou/concordance/config"
	anthropic_provider "github.com/mohammad-safakhou/concordance/provider/anthropic"
	"github.com/mohammad-safakhou/concordance/provider/llm"
	openai_provider "github.com/mohammad-safakhou/concordance/provider/openai"
)

// Client represents different LLM providers
type Client string

const (
	OpenAI    Client = "openai"
	Anthropic Client = "anthropic"
)

// Re-exported request/response types so callers only import this package.
type (
	Message        = llm.Message
	ChatRequest    = llm.ChatRequest
	ChatResponse   = llm.ChatResponse
	ToolDefinition = llm.ToolDefinition
	ToolCall       = llm.ToolCall
	ResponseFormat = llm.ResponseFormat
	Usage          = llm.Usage
)

const (
	RoleSystem    = llm.RoleSystem
	RoleUser      = llm.RoleUser
	RoleAssistant = llm.RoleAssistant
)

// ErrEmbeddingUnsupported is returned by providers that cannot embed text.
var ErrEmbeddingUnsupported = llm.ErrEmbeddingUnsupported

// Provider is the interface that all LLM implementations must satisfy
type Provider interface {
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// ChatModel is a provider bound to one model and sampling configuration.
type ChatModel interface {
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
}

// Embedder turns texts into vectors.
type Embedder interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// NewProvider creates a new LLM client based on the provided configuration
func NewProvider(cfg config.LLMProvider, embeddingModel string) (Provider, error) {
	switch Client(strings.ToLower(cfg.Type)) {
	case OpenAI:
		return openai_provider.NewOpenAIClient(cfg, embeddingModel), nil
	case Anthropic:
		return anthropic_provider.NewAnthropicClient(cfg), nil
	default:
		return nil, errors.New("unsupported LLM provider")
	}
}

// Bound pins a provider to one model and sampling configuration.
type Bound struct {
	Provider    Provider
	Model       string
	Temperature float64
	MaxTokens   int
}

// Chat fills model defaults into req and forwards it to the provider.
func (b Bound) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	if req.Model == "" {
		req.Model = b.Model
	}
	if req.Temperature == nil {
		t := b.Temperature
		req.Temperature = &t
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = b.MaxTokens
	}
	return b.Provider.Chat(ctx, req)
}

// Registry owns one Provider per configured entry and resolves role routes.
type Registry struct {
	providers map[string]Provider
	cfg       config.LLMConfig
}

// NewRegistry instantiates every configured provider.
func NewRegistry(cfg config.LLMConfig) (*Registry, error) {
	r := &Registry{providers: make(map[string]Provider, len(cfg.Providers)), cfg: cfg}
	for name, p := range cfg.Providers {
		embeddingModel := ""
		if name == cfg.Embedding.Provider {
			embeddingModel = cfg.Embedding.Model
		}
		inst, err := NewProvider(p, embeddingModel)
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", name, err)
		}
		r.providers[name] = inst
	}
	return r, nil
}

// Route resolves a "provider:model" entry. defaultTemperature is used when the
// model has no explicit configuration.
func (r *Registry) Route(route string, defaultTemperature float64) (Bound, error) {
	providerName, model, err := config.SplitRoute(route)
	if err != nil {
		return Bound{}, err
	}
	p, ok := r.providers[providerName]
	if !ok {
		return Bound{}, fmt.Errorf("provider %q not configured", providerName)
	}
	b := Bound{Provider: p, Model: model, Temperature: defaultTemperature}
	if m, ok := r.cfg.Providers[providerName].Models[model]; ok {
		if m.APIName != "" {
			b.Model = m.APIName
		}
		if m.Temperature > 0 {
			b.Temperature = m.Temperature
		}
		b.MaxTokens = m.MaxTokens
	}
	return b, nil
}

// Embedder returns the provider configured for embeddings.
func (r *Registry) Embedder() (Embedder, error) {
	p, ok := r.providers[r.cfg.Embedding.Provider]
	if !ok {
		return nil, fmt.Errorf("embedding provider %q not configured", r.cfg.Embedding.Provider)
	}
	return p, nil
}

// ParseArguments decodes tool call arguments, treating an empty payload as {}.
func ParseArguments(call ToolCall, out any) error {
	raw := call.Arguments
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	return json.Unmarshal(raw, out)
}

package anthropic_provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mohammad-safakhou/concordance/config"
	"github.com/mohammad-safakhou/concordance/internal/helpers"
	"github.com/mohammad-safakhou/concordance/provider/llm"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL   = "https://api.anthropic.com"
	apiVersion       = "2023-06-01"
	defaultMaxTokens = 4096
)

// client implements the provider interface against the Anthropic Messages API
type client struct {
	apiKey  string
	baseURL string
	http    *helpers.HTTPClient
	limiter *rate.Limiter
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema"`
}

type toolChoice struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

type request struct {
	Model       string      `json:"model"`
	MaxTokens   int         `json:"max_tokens"`
	System      string      `json:"system,omitempty"`
	Messages    []message   `json:"messages"`
	Temperature *float64    `json:"temperature,omitempty"`
	Tools       []tool      `json:"tools,omitempty"`
	ToolChoice  *toolChoice `json:"tool_choice,omitempty"`
}

type contentBlock struct {
	Type  string          `json:"type"`
	Text  string          `json:"text,omitempty"`
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

type response struct {
	Content []contentBlock `json:"content"`
	Usage   struct {
		InputTokens  int64 `json:"input_tokens"`
		OutputTokens int64 `json:"output_tokens"`
	} `json:"usage"`
}

// NewAnthropicClient creates a client. The key falls back to ANTHROPIC_API_KEY.
func NewAnthropicClient(cfg config.LLMProvider) *client {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return &client{
		apiKey:  apiKey,
		baseURL: baseURL,
		http:    helpers.NewHTTPClient(timeout, cfg.MaxRetries, 500*time.Millisecond),
		limiter: limiter,
	}
}

// Chat sends a Messages API request. System messages are lifted into the
// top-level system prompt; a ResponseFormat is enforced by forcing a single
// tool whose input schema is the requested schema.
func (c *client) Chat(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
	if c.apiKey == "" {
		return llm.ChatResponse{}, errors.New("anthropic API key not configured")
	}
	body := request{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	if body.MaxTokens <= 0 {
		body.MaxTokens = defaultMaxTokens
	}

	var system []string
	for _, m := range req.Messages {
		if m.Role == llm.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		// consecutive turns of the same role are merged
		if n := len(body.Messages); n > 0 && body.Messages[n-1].Role == m.Role {
			body.Messages[n-1].Content += "\n\n" + m.Content
			continue
		}
		body.Messages = append(body.Messages, message{Role: m.Role, Content: m.Content})
	}
	body.System = strings.Join(system, "\n\n")
	if len(body.Messages) == 0 || body.Messages[0].Role != llm.RoleUser {
		body.Messages = append([]message{{Role: llm.RoleUser, Content: "(start)"}}, body.Messages...)
	}

	for _, t := range req.Tools {
		body.Tools = append(body.Tools, tool{Name: t.Name, Description: t.Description, InputSchema: t.Parameters})
	}
	if req.ResponseFormat != nil {
		body.Tools = append(body.Tools, tool{
			Name:        req.ResponseFormat.Name,
			Description: "Return the answer as structured output.",
			InputSchema: req.ResponseFormat.Schema,
		})
		body.ToolChoice = &toolChoice{Type: "tool", Name: req.ResponseFormat.Name}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return llm.ChatResponse{}, err
		}
	}
	headers := map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": apiVersion,
	}
	var resp response
	if err := c.http.DoJSON(ctx, "POST", c.baseURL+"/v1/messages", headers, body, &resp); err != nil {
		return llm.ChatResponse{}, fmt.Errorf("anthropic chat: %w", err)
	}

	out := llm.ChatResponse{Usage: llm.Usage{InputTokens: resp.Usage.InputTokens, OutputTokens: resp.Usage.OutputTokens}}
	var text []string
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			text = append(text, block.Text)
		case "tool_use":
			if req.ResponseFormat != nil && block.Name == req.ResponseFormat.Name {
				out.Content = string(block.Input)
				continue
			}
			out.ToolCalls = append(out.ToolCalls, llm.ToolCall{ID: block.ID, Name: block.Name, Arguments: block.Input})
		}
	}
	if out.Content == "" {
		out.Content = strings.Join(text, "")
	}
	return out, nil
}

// CreateEmbedding is not offered by the Anthropic API.
func (c *client) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, llm.ErrEmbeddingUnsupported
}

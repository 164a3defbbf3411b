package openai_provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/mohammad-safakhou/concordance/config"
	"github.com/mohammad-safakhou/concordance/provider/llm"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

const embeddingBatchSize = 128

// client implements the provider interface on top of the OpenAI API
type client struct {
	api            *openai.Client
	embeddingModel string
	retries        int
	backoff        time.Duration
	limiter        *rate.Limiter
}

// NewOpenAIClient creates a new OpenAI client. The API key falls back to
// OPENAI_API_KEY when the configuration leaves it empty.
func NewOpenAIClient(cfg config.LLMProvider, embeddingModel string) *client {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	oc := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	oc.HTTPClient = &http.Client{Timeout: timeout}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return &client{
		api:            openai.NewClientWithConfig(oc),
		embeddingModel: embeddingModel,
		retries:        cfg.MaxRetries,
		backoff:        500 * time.Millisecond,
		limiter:        limiter,
	}
}

// Chat sends a chat completion request, translating tools and response formats.
func (c *client) Chat(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
	creq := openai.ChatCompletionRequest{
		Model:     req.Model,
		MaxTokens: req.MaxTokens,
	}
	if req.Temperature != nil {
		creq.Temperature = float32(*req.Temperature)
	}
	for _, m := range req.Messages {
		creq.Messages = append(creq.Messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	for _, t := range req.Tools {
		creq.Tools = append(creq.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	if req.ResponseFormat != nil {
		schema, err := json.Marshal(req.ResponseFormat.Schema)
		if err != nil {
			return llm.ChatResponse{}, fmt.Errorf("marshal response schema: %w", err)
		}
		creq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   req.ResponseFormat.Name,
				Schema: json.RawMessage(schema),
			},
		}
	}

	var resp openai.ChatCompletionResponse
	err := c.withRetry(ctx, func() error {
		var err error
		resp, err = c.api.CreateChatCompletion(ctx, creq)
		return err
	})
	if err != nil {
		return llm.ChatResponse{}, fmt.Errorf("openai chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return llm.ChatResponse{}, errors.New("openai chat: no choices in response")
	}

	msg := resp.Choices[0].Message
	out := llm.ChatResponse{
		Content: msg.Content,
		Usage: llm.Usage{
			InputTokens:  int64(resp.Usage.PromptTokens),
			OutputTokens: int64(resp.Usage.CompletionTokens),
		},
	}
	for _, tc := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, llm.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: json.RawMessage(tc.Function.Arguments),
		})
	}
	return out, nil
}

// CreateEmbedding generates embeddings for the given texts, preserving order.
func (c *client) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if c.embeddingModel == "" {
		return nil, llm.ErrEmbeddingUnsupported
	}
	out := make([][]float32, len(texts))
	for start := 0; start < len(texts); start += embeddingBatchSize {
		end := min(start+embeddingBatchSize, len(texts))
		batch := texts[start:end]

		var resp openai.EmbeddingResponse
		err := c.withRetry(ctx, func() error {
			var err error
			resp, err = c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
				Input: batch,
				Model: openai.EmbeddingModel(c.embeddingModel),
			})
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("openai embeddings: %w", err)
		}
		if len(resp.Data) != len(batch) {
			return nil, fmt.Errorf("openai embeddings: expected %d vectors, got %d", len(batch), len(resp.Data))
		}
		for _, d := range resp.Data {
			if d.Index < 0 || d.Index >= len(batch) {
				return nil, fmt.Errorf("openai embeddings: index %d out of range", d.Index)
			}
			out[start+d.Index] = d.Embedding
		}
	}
	return out, nil
}

func (c *client) withRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	tries := c.retries + 1
	for attempt := 0; attempt < tries; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		lastErr = fn()
		if lastErr == nil || !retryable(lastErr) {
			return lastErr
		}
		if attempt < tries-1 {
			select {
			case <-time.After(c.backoff * time.Duration(1<<attempt)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return lastErr
}

func retryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}
	return false
}

// Package tools holds the tools the supervisor can call during a chat turn.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mohammad-safakhou/concordance/internal/structured"
	"github.com/mohammad-safakhou/concordance/provider"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

const (
	VisualizationTool = "generate_visualization"
	WebSearchTool     = "search_web"
	TrainingTool      = "get_training_content"
	KnowledgeBaseTool = "search_knowledge_base"
)

var (
	ErrToolMissing   = errors.New("tool not registered")
	ErrDuplicateTool = errors.New("tool already registered")
)

// Result is a tool payload. It always carries "status".
type Result map[string]any

func (r Result) Status() string {
	s, _ := r["status"].(string)
	return s
}

func (r Result) OK() bool { return r.Status() == StatusSuccess }

// ErrorResult wraps err in the error payload.
func ErrorResult(err error) Result {
	return Result{"status": StatusError, "error": err.Error()}
}

// Handler runs a tool with its raw JSON arguments.
type Handler func(ctx context.Context, args json.RawMessage) (Result, error)

type Tool struct {
	Name        string
	Description string
	InputSchema map[string]any
	Handler     Handler
}

// Registry holds tools in registration order.
type Registry struct {
	tools map[string]Tool
	order []string
}

func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Register(t Tool) error {
	if t.Name == "" || t.Handler == nil {
		return fmt.Errorf("tool %q: name and handler required", t.Name)
	}
	if _, ok := r.tools[t.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, t.Name)
	}
	r.tools[t.Name] = t
	r.order = append(r.order, t.Name)
	return nil
}

// Tool returns the named tool.
func (r *Registry) Tool(name string) (Tool, bool) {
	if r == nil {
		return Tool{}, false
	}
	t, ok := r.tools[name]
	return t, ok
}

func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Definitions describes every tool to the model.
func (r *Registry) Definitions() []provider.ToolDefinition {
	out := make([]provider.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		out = append(out, provider.ToolDefinition{Name: t.Name, Description: t.Description, Parameters: t.InputSchema})
	}
	return out
}

// Call runs the named tool. Handler failures are returned as error results,
// never as errors; only an unknown tool yields ErrToolMissing.
func (r *Registry) Call(ctx context.Context, name string, args json.RawMessage) (Result, error) {
	t, ok := r.Tool(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolMissing, name)
	}
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	res, err := t.Handler(ctx, args)
	if err != nil {
		return ErrorResult(err), nil
	}
	if res == nil {
		res = Result{}
	}
	if res.Status() == "" {
		res["status"] = StatusSuccess
	}
	return res, nil
}

// inputSchema derives a tool's argument schema from T.
func inputSchema[T any](name string) map[string]any {
	return structured.MustFor[T](name).Document()
}

// decodeArgs unmarshals tool arguments into T.
func decodeArgs[T any](args json.RawMessage) (T, error) {
	var out T
	if err := json.Unmarshal(args, &out); err != nil {
		return out, fmt.Errorf("invalid arguments: %w", err)
	}
	return out, nil
}

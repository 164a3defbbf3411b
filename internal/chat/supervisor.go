package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/mohammad-safakhou/concordance/internal/metrics"
	"github.com/mohammad-safakhou/concordance/internal/telemetry"
	"github.com/mohammad-safakhou/concordance/internal/tools"
	"github.com/mohammad-safakhou/concordance/provider"
	"go.opentelemetry.io/otel/attribute"
)

// historyWindow is how many recent messages the supervisor sees.
const historyWindow = 5

const supervisorRequestTemplate = `
User Request: %s
Web Search Enabled: %t
Recent Conversation: %s

Analyze the request and call appropriate tools. If no tools are needed, just respond with "No tools needed".
`

var errWebSearchDisabled = errors.New("web search is disabled for this turn")

// Decision is what the supervisor did before the reply is written.
type Decision struct {
	ToolsCalled    []string
	Results        map[string]tools.Result
	ContextSummary string
	Error          string
}

// Called reports whether name ran this turn.
func (d Decision) Called(name string) bool {
	for _, n := range d.ToolsCalled {
		if n == name {
			return true
		}
	}
	return false
}

// Succeeded returns the result of name when it ran and succeeded.
func (d Decision) Succeeded(name string) (tools.Result, bool) {
	if !d.Called(name) {
		return nil, false
	}
	r, ok := d.Results[name]
	if !ok || !r.OK() {
		return nil, false
	}
	return r, true
}

// Supervisor picks and runs tools for one user message.
type Supervisor struct {
	model    provider.ChatModel
	registry *tools.Registry
	logger   *log.Logger
}

func NewSupervisor(model provider.ChatModel, registry *tools.Registry, logger *log.Logger) *Supervisor {
	if logger == nil {
		logger = log.New(log.Writer(), "[SUPERVISOR] ", log.LstdFlags)
	}
	return &Supervisor{model: model, registry: registry, logger: logger}
}

type historyEntry struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

func formatHistory(history []provider.Message) string {
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	entries := make([]historyEntry, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case provider.RoleUser:
			entries = append(entries, historyEntry{Type: "human", Content: m.Content})
		case provider.RoleAssistant:
			entries = append(entries, historyEntry{Type: "ai", Content: m.Content})
		}
	}
	b, _ := json.Marshal(entries)
	return string(b)
}

// Decide makes a single tool-selection call and runs the chosen tools in
// order. A failed selection call yields an empty decision carrying Error.
func (s *Supervisor) Decide(ctx context.Context, userMessage string, history []provider.Message, webSearchEnabled bool) Decision {
	ctx, span := telemetry.Tracer().Start(ctx, "chat.supervise")
	defer span.End()

	d := Decision{Results: map[string]tools.Result{}}
	resp, err := s.model.Chat(ctx, provider.ChatRequest{
		Messages: []provider.Message{
			{Role: provider.RoleSystem, Content: supervisorPrompt},
			{Role: provider.RoleUser, Content: fmt.Sprintf(supervisorRequestTemplate, userMessage, webSearchEnabled, formatHistory(history))},
		},
		Tools: s.registry.Definitions(),
	})
	if err != nil {
		s.logger.Printf("tool selection failed: %v", err)
		span.RecordError(err)
		d.Error = err.Error()
		return d
	}
	if len(resp.ToolCalls) == 0 {
		s.logger.Printf("no tools needed")
	}

	for _, call := range resp.ToolCalls {
		if call.Name == tools.WebSearchTool && !webSearchEnabled {
			s.logger.Printf("refusing %s: %v", call.Name, errWebSearchDisabled)
			metrics.ObserveTool(call.Name, "refused")
			continue
		}
		res, err := s.registry.Call(ctx, call.Name, call.Arguments)
		if errors.Is(err, tools.ErrToolMissing) {
			s.logger.Printf("tool not found: %s", call.Name)
			continue
		}
		if err != nil {
			res = tools.ErrorResult(err)
		}
		if !res.OK() {
			s.logger.Printf("tool %s failed: %v", call.Name, res["error"])
		}
		metrics.ObserveTool(call.Name, res.Status())
		if !d.Called(call.Name) {
			d.ToolsCalled = append(d.ToolsCalled, call.Name)
		}
		d.Results[call.Name] = res
	}
	span.SetAttributes(attribute.StringSlice("chat.tools", d.ToolsCalled))
	d.ContextSummary = summarize(d)
	return d
}

// summarize writes the internal instruction that tells the reply model how
// to use what the tools produced.
func summarize(d Decision) string {
	var parts []string
	if _, ok := d.Succeeded(tools.VisualizationTool); ok {
		parts = append(parts, "A visualization has been generated and will appear as an image. Write a brief 1-2 sentence introduction starting with 'Le tableau ci-dessus présente...' then provide insights. Do NOT create markdown tables.")
	}
	if r, ok := d.Succeeded(tools.WebSearchTool); ok {
		parts = append(parts, fmt.Sprintf("Web search completed with %d sources. Use the search results in your answer and include inline citations [1], [2], [3].", countOf(r["results"])))
	}
	if r, ok := d.Succeeded(tools.TrainingTool); ok {
		name := stringOf(r["module_name"])
		if name == "" {
			name = "Unknown module"
		}
		parts = append(parts, fmt.Sprintf("Training content retrieved: %s. Use it to answer the user's question, referencing specific scenarios and expert opinions.", name))
	}
	if r, ok := d.Succeeded(tools.KnowledgeBaseTool); ok {
		sources := stringsOf(r["sources"])
		if len(sources) > 3 {
			sources = sources[:3]
		}
		from := "reference documents"
		if len(sources) > 0 {
			from = strings.Join(sources, ", ")
		}
		if relevant, _ := r["found_relevant"].(bool); relevant {
			parts = append(parts, "Knowledge base search completed. Relevant information found from: "+from+". "+
				"Use this information to provide an evidence-based answer. "+
				"Cite the source documents when referencing specific information.")
		} else {
			parts = append(parts, "Knowledge base search completed. Limited relevant information found from: "+from+". "+
				"Use the available information but note that it may not fully address the query. "+
				"Consider suggesting the user consult additional resources if needed.")
		}
	}
	return strings.Join(parts, "\n")
}

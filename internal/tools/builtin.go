package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mohammad-safakhou/concordance/internal/evaluation"
	"github.com/mohammad-safakhou/concordance/internal/rag"
	"github.com/mohammad-safakhou/concordance/internal/training"
	"github.com/mohammad-safakhou/concordance/internal/visualization"
	"github.com/mohammad-safakhou/concordance/tools/web_search"
)

// KnowledgeSearcher is the agentic retrieval loop.
type KnowledgeSearcher interface {
	Search(ctx context.Context, query, userMessage string, maxRetries int) rag.SearchResult
}

// Visualizer renders charts for the learner.
type Visualizer interface {
	Generate(ctx context.Context, req visualization.Request, ev evaluation.Evaluations) (visualization.Output, error)
}

type knowledgeBaseArgs struct {
	Query       string `json:"query" jsonschema:"required" jsonschema_description:"A well-formulated search query for document retrieval focused on domain-specific terminology"`
	UserMessage string `json:"user_message,omitempty" jsonschema_description:"The original user message for context (helps with query rewriting)"`
}

const knowledgeBaseDescription = `Search the knowledge base of reference documents using agentic retrieval (retrieve, rank, rewrite and retry up to 3 times).
Use this tool for specialized domain questions: concepts, criteria, classifications, best practices, protocols, guidelines, procedures or recommendations that require evidence-based knowledge beyond the training content.
Do NOT use it for questions about the learner's own performance (already in context), for what experts said in training scenarios (use get_training_content) or for current/latest information (use search_web).`

// NewKnowledgeBaseTool searches the indexed reference documents.
func NewKnowledgeBaseTool(searcher KnowledgeSearcher, maxRetries int) Tool {
	return Tool{
		Name:        KnowledgeBaseTool,
		Description: knowledgeBaseDescription,
		InputSchema: inputSchema[knowledgeBaseArgs](KnowledgeBaseTool),
		Handler: func(ctx context.Context, raw json.RawMessage) (Result, error) {
			args, err := decodeArgs[knowledgeBaseArgs](raw)
			if err != nil {
				return nil, err
			}
			if strings.TrimSpace(args.Query) == "" {
				return nil, errors.New("query is required")
			}
			return Result(searcher.Search(ctx, args.Query, args.UserMessage, maxRetries).Map()), nil
		},
	}
}

type webSearchArgs struct {
	Query string `json:"query" jsonschema:"required" jsonschema_description:"The search query (French or English)"`
}

const webSearchDescription = `Search the web for current medical information, guidelines or recent research.
Use this tool when the user asks about latest information ("dernière", "récent", "actuel", "nouveau"), current guidelines or recommendations, recent studies or research ("étude", "recherche médicale", "littérature") or updated practices ("mise à jour").`

// NewWebSearchTool searches the web through the configured provider.
func NewWebSearchTool(searcher web_search.WebSearcher, maxResults int) Tool {
	return Tool{
		Name:        WebSearchTool,
		Description: webSearchDescription,
		InputSchema: inputSchema[webSearchArgs](WebSearchTool),
		Handler: func(ctx context.Context, raw json.RawMessage) (Result, error) {
			args, err := decodeArgs[webSearchArgs](raw)
			if err != nil {
				return nil, err
			}
			resp, err := searcher.Search(ctx, args.Query, maxResults)
			if err != nil {
				return nil, fmt.Errorf("web search: %w", err)
			}
			results := web_search.Results(resp)
			return Result{
				"status":    StatusSuccess,
				"results":   results,
				"citations": web_search.Citations(results),
				"formatted": web_search.Format(results),
			}, nil
		},
	}
}

type trainingArgs struct {
	ModuleNumber int    `json:"module_number" jsonschema:"required" jsonschema_description:"The training module number (1, 2 or 3)"`
	Section      string `json:"section,omitempty" jsonschema:"enum=all,enum=scenarios,enum=objectives" jsonschema_description:"Which section to retrieve"`
}

const trainingDescription = `Retrieve the content of a training module when the user asks about specific training scenarios, clinical cases or expert panel responses that are not in the evaluation summary.
Use this tool when the user references a specific module (1, 2 or 3), a scenario or situation, or wants to see what experts said in a particular case.`

// NewTrainingTool serves the embedded training modules.
func NewTrainingTool() Tool {
	return Tool{
		Name:        TrainingTool,
		Description: trainingDescription,
		InputSchema: inputSchema[trainingArgs](TrainingTool),
		Handler: func(ctx context.Context, raw json.RawMessage) (Result, error) {
			args, err := decodeArgs[trainingArgs](raw)
			if err != nil {
				return nil, err
			}
			ex, err := training.Lookup(args.ModuleNumber, training.Section(args.Section))
			if err != nil {
				return nil, err
			}
			return Result{
				"status":      StatusSuccess,
				"module_name": ex.Name,
				"content":     ex.Content,
				"section":     string(ex.Section),
			}, nil
		},
	}
}

type visualizationArgs struct {
	UserRequest           string `json:"user_request" jsonschema:"required" jsonschema_description:"The user's request including the specific data or context to visualize"`
	ConversationHistory   string `json:"conversation_history,omitempty" jsonschema_description:"JSON array of recent messages as {type: human|ai, content}"`
	DataContext           string `json:"data_context,omitempty" jsonschema_description:"Additional data to visualize such as retrieved content or a previous answer with tables or lists"`
	IncludeEvaluationData bool   `json:"include_evaluation_data,omitempty" jsonschema_description:"True only when the chart is about the learner's own performance or evaluation scores"`
}

const visualizationDescription = `Generate a visualization (chart, table, graph) based on the user's request.
Use this tool ONLY when the user explicitly asks for a table ("tableau"), a chart or graph ("graphique", "diagramme", "courbe", "histogramme") or a visual comparison.
Set include_evaluation_data to true only when the visualization is about the learner's performance; otherwise pass the data to plot in data_context.`

// NewVisualizationTool charts data for the session whose evaluations are ev.
func NewVisualizationTool(v Visualizer, ev evaluation.Evaluations) Tool {
	return Tool{
		Name:        VisualizationTool,
		Description: visualizationDescription,
		InputSchema: inputSchema[visualizationArgs](VisualizationTool),
		Handler: func(ctx context.Context, raw json.RawMessage) (Result, error) {
			args, err := decodeArgs[visualizationArgs](raw)
			if err != nil {
				return nil, err
			}
			var history []visualization.Turn
			if s := strings.TrimSpace(args.ConversationHistory); s != "" {
				if err := json.Unmarshal([]byte(s), &history); err != nil {
					return nil, fmt.Errorf("invalid conversation_history: %w", err)
				}
			}
			out, err := v.Generate(ctx, visualization.Request{
				UserRequest:       args.UserRequest,
				History:           history,
				DataContext:       args.DataContext,
				IncludeEvaluation: args.IncludeEvaluationData,
			}, ev)
			if err != nil {
				return nil, fmt.Errorf("visualization: %w", err)
			}
			return Result{"status": StatusSuccess, "output": out}, nil
		},
	}
}

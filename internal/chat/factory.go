package chat

import (
	"fmt"
	"log"

	"github.com/mohammad-safakhou/concordance/internal/evaluation"
	"github.com/mohammad-safakhou/concordance/internal/tools"
	"github.com/mohammad-safakhou/concordance/provider"
	"github.com/mohammad-safakhou/concordance/tools/web_search"
)

// Deps are the process-wide collaborators shared by every session's agent.
// Web and Knowledge are optional; their tools are only offered when set.
type Deps struct {
	Chat       provider.ChatModel
	Supervisor provider.ChatModel
	Visualizer tools.Visualizer
	Knowledge  tools.KnowledgeSearcher
	Web        web_search.WebSearcher

	WebMaxResults int
	RAGMaxRetries int
	Logger        *log.Logger
}

// Tools builds the tool registry bound to one session's evaluations.
func (d Deps) Tools(ev evaluation.Evaluations) (*tools.Registry, error) {
	var list []tools.Tool
	if d.Visualizer != nil {
		list = append(list, tools.NewVisualizationTool(d.Visualizer, ev))
	}
	if d.Web != nil {
		list = append(list, tools.NewWebSearchTool(d.Web, d.WebMaxResults))
	}
	list = append(list, tools.NewTrainingTool())
	if d.Knowledge != nil {
		list = append(list, tools.NewKnowledgeBaseTool(d.Knowledge, d.RAGMaxRetries))
	}
	return tools.NewRegistry(list...)
}

// NewAgent builds the chat agent for a session.
func (d Deps) NewAgent(ev evaluation.Evaluations) (*Agent, error) {
	if d.Chat == nil || d.Supervisor == nil {
		return nil, fmt.Errorf("chat: chat and supervisor models are required")
	}
	reg, err := d.Tools(ev)
	if err != nil {
		return nil, err
	}
	return NewAgent(d.Chat, NewSupervisor(d.Supervisor, reg, d.Logger), ev, WithLogger(d.Logger)), nil
}

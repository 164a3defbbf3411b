// Package chat runs the feedback conversation: an initial summary of the
// learner's evaluations, then supervised turns where tools may run before
// the reply is written.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mohammad-safakhou/concordance/internal/evaluation"
	"github.com/mohammad-safakhou/concordance/internal/helpers"
	"github.com/mohammad-safakhou/concordance/internal/metrics"
	"github.com/mohammad-safakhou/concordance/internal/telemetry"
	"github.com/mohammad-safakhou/concordance/internal/tools"
	"github.com/mohammad-safakhou/concordance/internal/training"
	"github.com/mohammad-safakhou/concordance/provider"
)

// State is the conversation phase.
type State int

const (
	AwaitingFirstMessage State = iota
	InConversation
)

func (s State) String() string {
	if s == InConversation {
		return "in_conversation"
	}
	return "awaiting_first_message"
}

// Reply is one assistant turn as returned to the client.
type Reply struct {
	Response   string             `json:"response"`
	HasCode    bool               `json:"has_code"`
	Code       *string            `json:"code"`
	CodeOutput *string            `json:"code_output"`
	Citations  []helpers.Citation `json:"citations"`
}

// Agent holds one learner's conversation. Turns are serialized.
type Agent struct {
	mu sync.Mutex

	model       provider.ChatModel
	supervisor  *Supervisor
	evaluations evaluation.Evaluations
	objectives  string
	logger      *log.Logger

	history []provider.Message
	state   State
}

type Option func(*Agent)

func WithLogger(l *log.Logger) Option {
	return func(a *Agent) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithObjectives overrides the training objectives placed in the context.
func WithObjectives(o string) Option {
	return func(a *Agent) { a.objectives = o }
}

func NewAgent(model provider.ChatModel, supervisor *Supervisor, ev evaluation.Evaluations, opts ...Option) *Agent {
	a := &Agent{
		model:       model,
		supervisor:  supervisor,
		evaluations: ev,
		objectives:  training.Objectives(),
		logger:      log.New(log.Writer(), "[CHAT] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Agent) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// History returns a copy of the conversation so far.
func (a *Agent) History() []provider.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]provider.Message(nil), a.history...)
}

// Reset clears the history and returns to the initial state.
func (a *Agent) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.history = nil
	a.state = AwaitingFirstMessage
}

// Chat answers one user message. The first message of a conversation always
// gets the initial feedback summary regardless of its content. History is
// only updated when the turn succeeds.
func (a *Agent) Chat(ctx context.Context, userMessage string, webSearchEnabled bool) (Reply, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	base, err := baseContext(a.objectives, a.evaluations)
	if err != nil {
		return Reply{}, err
	}
	if a.state == AwaitingFirstMessage {
		return a.initialFeedback(ctx, base, userMessage)
	}
	return a.turn(ctx, base, userMessage, webSearchEnabled)
}

func (a *Agent) initialFeedback(ctx context.Context, base, userMessage string) (Reply, error) {
	defer metrics.ObserveTurn("initial", time.Now())
	ctx, span := telemetry.Tracer().Start(ctx, "chat.initial_feedback")
	defer span.End()

	resp, err := a.model.Chat(ctx, provider.ChatRequest{Messages: initialMessages(base)})
	if err != nil {
		span.RecordError(err)
		return Reply{}, fmt.Errorf("initial feedback: %w", err)
	}
	a.history = append(a.history,
		provider.Message{Role: provider.RoleUser, Content: userMessage},
		provider.Message{Role: provider.RoleAssistant, Content: resp.Content},
	)
	a.state = InConversation
	return Reply{Response: resp.Content, Citations: []helpers.Citation{}}, nil
}

func (a *Agent) turn(ctx context.Context, base, userMessage string, webSearchEnabled bool) (Reply, error) {
	defer metrics.ObserveTurn("turn", time.Now())
	ctx, span := telemetry.Tracer().Start(ctx, "chat.turn")
	defer span.End()

	d := a.supervisor.Decide(ctx, userMessage, a.history, webSearchEnabled)
	if d.Error != "" {
		a.logger.Printf("supervisor error, answering without tools: %s", d.Error)
	}

	resp, err := a.model.Chat(ctx, provider.ChatRequest{Messages: replyMessages(base, d, a.history, userMessage)})
	if err != nil {
		span.RecordError(err)
		return Reply{}, fmt.Errorf("chat reply: %w", err)
	}
	vizCalled := d.Called(tools.VisualizationTool)
	text := Sanitize(resp.Content, vizCalled)

	a.history = append(a.history,
		provider.Message{Role: provider.RoleUser, Content: userMessage},
		provider.Message{Role: provider.RoleAssistant, Content: text},
	)

	reply := Reply{Response: text, HasCode: vizCalled, Citations: []helpers.Citation{}}
	if r, ok := d.Succeeded(tools.VisualizationTool); ok {
		if b, err := json.Marshal(r["output"]); err == nil {
			out := string(b)
			reply.CodeOutput = &out
		}
	}
	if r, ok := d.Succeeded(tools.WebSearchTool); ok {
		if cites, ok := r["citations"].([]helpers.Citation); ok {
			reply.Citations = cites
		}
	}
	return reply, nil
}

package rag

import (
	"context"
	"log"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/mohammad-safakhou/concordance/internal/metrics"
	"github.com/mohammad-safakhou/concordance/internal/telemetry"
)

const (
	defaultTopK       = 10
	defaultMaxRetries = 3
)

// Agent runs the retrieve, rank, rewrite loop.
type Agent struct {
	retriever  Retriever
	ranker     Ranker
	rewriter   Rewriter
	topK       int
	maxRetries int
	logger     *log.Logger
}

type AgentOption func(*Agent)

func WithTopK(k int) AgentOption { return func(a *Agent) { a.topK = k } }

func WithMaxRetries(n int) AgentOption { return func(a *Agent) { a.maxRetries = n } }

func WithAgentLogger(l *log.Logger) AgentOption {
	return func(a *Agent) {
		if l != nil {
			a.logger = l
		}
	}
}

func NewAgent(retriever Retriever, ranker Ranker, rewriter Rewriter, opts ...AgentOption) *Agent {
	a := &Agent{
		retriever:  retriever,
		ranker:     ranker,
		rewriter:   rewriter,
		topK:       defaultTopK,
		maxRetries: defaultMaxRetries,
		logger:     log.New(log.Writer(), "[RAG] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.topK <= 0 {
		a.topK = defaultTopK
	}
	if a.maxRetries <= 0 {
		a.maxRetries = defaultMaxRetries
	}
	return a
}

// Search retrieves chunks for query, rewriting it up to maxRetries-1 times
// until the ranker accepts a batch. The first non-empty batch is kept as a
// fallback and only replaced by a relevant one. maxRetries <= 0 uses the
// agent default.
func (a *Agent) Search(ctx context.Context, query, userMessage string, maxRetries int) SearchResult {
	if userMessage == "" {
		userMessage = query
	}
	if maxRetries <= 0 {
		maxRetries = a.maxRetries
	}
	ctx, span := telemetry.Tracer().Start(ctx, "rag.search")
	defer span.End()

	history := []string{query}
	current := query
	var best []Chunk
	bestRelevant := false

	for attempt := 1; attempt <= maxRetries; attempt++ {
		metrics.RAGAttempts.Inc()
		last := attempt == maxRetries

		chunks, err := a.retriever.Retrieve(ctx, current, a.topK)
		if err != nil {
			a.logger.Printf("retrieval error on attempt %d: %v", attempt, err)
			chunks = nil
		}
		if len(chunks) == 0 {
			a.logger.Printf("attempt %d/%d: no chunks for %q", attempt, maxRetries, current)
			if !last {
				current = a.rewriter.Rewrite(ctx, current, userMessage, attempt)
				history = append(history, current)
			}
			continue
		}

		verdict := a.ranker.Rank(ctx, current, chunks)
		a.logger.Printf("attempt %d/%d: %d chunks, relevant=%t", attempt, maxRetries, len(chunks), verdict.IsRelevant)
		if verdict.IsRelevant || len(best) == 0 {
			best, bestRelevant = chunks, verdict.IsRelevant
		}
		if verdict.IsRelevant {
			break
		}
		if !last {
			current = a.rewriter.Rewrite(ctx, current, userMessage, attempt)
			history = append(history, current)
		}
	}

	span.SetAttributes(
		attribute.Int("rag.attempts", len(history)),
		attribute.Bool("rag.found_relevant", bestRelevant),
	)
	if len(best) == 0 {
		span.SetStatus(codes.Error, errNoDocuments)
		metrics.ObserveSearch(StatusError, false)
		return SearchResult{
			Status:       StatusError,
			Error:        errNoDocuments,
			QueryHistory: history,
			Attempts:     len(history),
		}
	}
	metrics.ObserveSearch(StatusSuccess, bestRelevant)
	return SearchResult{
		Status:        StatusSuccess,
		Chunks:        best,
		Sources:       uniqueSources(best),
		QueryHistory:  history,
		Attempts:      len(history),
		FoundRelevant: bestRelevant,
	}
}

package rag

import (
	"context"
	"fmt"
	"log"

	"github.com/mohammad-safakhou/concordance/internal/structured"
	"github.com/mohammad-safakhou/concordance/provider"
)

// Ranker judges whether retrieved chunks can help answer a query.
type Ranker interface {
	Rank(ctx context.Context, query string, chunks []Chunk) Verdict
}

const rankingPrompt = `You are a Ranking Agent that evaluates whether retrieved document chunks can answer a user's query.

Your task:
1. Analyze the query and the retrieved chunks
2. Determine if the chunks contain SUFFICIENT and RELEVANT information to answer the query
3. Be strict but fair - the chunks don't need to answer everything perfectly, but should provide meaningful information

You are domain-agnostic and can evaluate documents from any field (education, science, business, healthcare, etc.).

IMPORTANT:
- Set is_relevant=true if the chunks contain at least some useful information to address the query
- Set is_relevant=false ONLY if the chunks are completely unrelated or insufficient
- Consider that partial information is better than no information
- Provide a brief reasoning explaining your decision`

var verdictSchema = structured.MustFor[Verdict]("ranking_result")

// LLMRanker asks a chat model for a structured Verdict. Any failure counts
// as relevant so retrieved information is never thrown away on an error.
type LLMRanker struct {
	model  provider.ChatModel
	logger *log.Logger
}

func NewLLMRanker(model provider.ChatModel, logger *log.Logger) *LLMRanker {
	if logger == nil {
		logger = log.New(log.Writer(), "[RANKER] ", log.LstdFlags)
	}
	return &LLMRanker{model: model, logger: logger}
}

func (r *LLMRanker) Rank(ctx context.Context, query string, chunks []Chunk) Verdict {
	user := fmt.Sprintf("\n**User Query:** %s\n\n**Retrieved Chunks:**\n%s\n\nEvaluate whether these chunks can help answer the user's query.\n",
		query, renderForRanking(chunks))
	v, err := structured.Generate[Verdict](ctx, r.model, verdictSchema, []provider.Message{
		{Role: provider.RoleSystem, Content: rankingPrompt},
		{Role: provider.RoleUser, Content: user},
	})
	if err != nil {
		r.logger.Printf("ranking agent error: %v", err)
		return Verdict{IsRelevant: true, Reasoning: fmt.Sprintf("Ranking error: %v", err)}
	}
	return v
}

package rag

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/mohammad-safakhou/concordance/internal/structured"
	"github.com/mohammad-safakhou/concordance/provider"
)

// Rewriter reformulates a query that failed to retrieve relevant chunks.
type Rewriter interface {
	Rewrite(ctx context.Context, failedQuery, userMessage string, attempt int) string
}

const rewritePromptTemplate = `You are a Query Rewriting Agent. Your task is to reformulate a search query to find more relevant documents from a knowledge base.

The current query didn't retrieve relevant information from the document database. You need to rewrite it to be more effective.

This is attempt %d of 3. Previous query failed to find relevant content.

Guidelines for rewriting:
1. Use different terminology or synonyms relevant to the domain
2. Make the query more specific or more general (depending on what might help)
3. Focus on key concepts and terminology
4. Consider alternative phrasings
5. Use terms that would likely appear in professional documents, guidelines, or reference materials`

type rewrittenQuery struct {
	Query string `json:"query" jsonschema:"required,description=The rewritten search query optimized for better document retrieval"`
}

var rewriteSchema = structured.MustFor[rewrittenQuery]("rewritten_query")

// FallbackRewrite is used whenever the model cannot produce a new query.
func FallbackRewrite(query string) string {
	return query + " guidelines recommendations"
}

// LLMRewriter asks a chat model for a structured rewrite. The result is
// never empty and never equal to the failed query.
type LLMRewriter struct {
	model  provider.ChatModel
	logger *log.Logger
}

func NewLLMRewriter(model provider.ChatModel, logger *log.Logger) *LLMRewriter {
	if logger == nil {
		logger = log.New(log.Writer(), "[REWRITER] ", log.LstdFlags)
	}
	return &LLMRewriter{model: model, logger: logger}
}

func (r *LLMRewriter) Rewrite(ctx context.Context, failedQuery, userMessage string, attempt int) string {
	user := fmt.Sprintf("\n**Original User Message:** %s\n\n**Current Query (that didn't work):** %s\n\nProvide a better query to search the document database.",
		userMessage, failedQuery)
	out, err := structured.Generate[rewrittenQuery](ctx, r.model, rewriteSchema, []provider.Message{
		{Role: provider.RoleSystem, Content: fmt.Sprintf(rewritePromptTemplate, attempt)},
		{Role: provider.RoleUser, Content: user},
	})
	if err != nil {
		r.logger.Printf("rewrite agent error: %v", err)
		return FallbackRewrite(failedQuery)
	}
	q := strings.TrimSpace(out.Query)
	if q == "" || strings.EqualFold(q, strings.TrimSpace(failedQuery)) {
		return FallbackRewrite(failedQuery)
	}
	return q
}

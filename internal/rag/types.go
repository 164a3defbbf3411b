// Package rag implements agentic retrieval over the knowledge base:
// retrieve, judge relevance, rewrite the query, and retry.
package rag

import "github.com/mohammad-safakhou/concordance/internal/vectorstore"

const (
	StatusSuccess = "success"
	StatusError   = "error"

	errNoDocuments = "No relevant documents found"
)

// Chunk is a retrieved passage with its provenance.
type Chunk struct {
	ID             string  `json:"-"`
	Content        string  `json:"content"`
	Source         string  `json:"source"`
	DocumentTitle  string  `json:"document_title"`
	PageNumber     int     `json:"page_number"`
	Distance       float64 `json:"-"`
	RelevanceScore float64 `json:"relevance_score"`
}

func chunkFromMatch(m vectorstore.Match) Chunk {
	source := m.Metadata.Source
	if source == "" {
		source = "Unknown"
	}
	title := m.Metadata.DocumentTitle
	if title == "" {
		title = "Unknown"
	}
	page := m.Metadata.PageNumber
	if page < 1 {
		page = 1
	}
	return Chunk{
		ID:             m.ID,
		Content:        m.Content,
		Source:         source,
		DocumentTitle:  title,
		PageNumber:     page,
		Distance:       m.Distance,
		RelevanceScore: 1 - m.Distance,
	}
}

// Verdict is the ranking agent's judgement on a batch of chunks.
type Verdict struct {
	IsRelevant bool   `json:"is_relevant" jsonschema:"required,description=Whether the retrieved chunks contain relevant information to answer the query"`
	Reasoning  string `json:"reasoning" jsonschema:"required,description=Brief explanation of the relevance decision"`
}

// SearchResult is the outcome of one agentic search.
type SearchResult struct {
	Status        string
	Error         string
	Chunks        []Chunk
	Sources       []string
	QueryHistory  []string
	Attempts      int
	FoundRelevant bool
}

// Map renders the result as the tool payload. Error payloads carry no
// chunks, sources or relevance flag.
func (r SearchResult) Map() map[string]any {
	if r.Status != StatusSuccess {
		return map[string]any{
			"status":        StatusError,
			"error":         r.Error,
			"query_history": r.QueryHistory,
			"attempts":      r.Attempts,
		}
	}
	return map[string]any{
		"status":            StatusSuccess,
		"chunks":            r.Chunks,
		"sources":           r.Sources,
		"formatted_context": FormatChunks(r.Chunks),
		"query_history":     r.QueryHistory,
		"attempts":          r.Attempts,
		"found_relevant":    r.FoundRelevant,
	}
}

package rag

import (
	"fmt"
	"strings"
)

// FormatChunks renders chunks as prompt context grouped by source document,
// sources in first-seen order.
func FormatChunks(chunks []Chunk) string {
	if len(chunks) == 0 {
		return "No relevant documents found."
	}
	var order []string
	bySource := make(map[string][]Chunk)
	for _, c := range chunks {
		if _, ok := bySource[c.Source]; !ok {
			order = append(order, c.Source)
		}
		bySource[c.Source] = append(bySource[c.Source], c)
	}

	var parts []string
	for _, source := range order {
		group := bySource[source]
		title := group[0].DocumentTitle
		if title == "" {
			title = source
		}
		parts = append(parts, fmt.Sprintf("\n### Source: %s\n", title))
		for _, c := range group {
			parts = append(parts, fmt.Sprintf("[Page %d]", c.PageNumber), c.Content, "\n---\n")
		}
	}
	return strings.Join(parts, "\n")
}

// uniqueSources lists distinct sources in first-seen order.
func uniqueSources(chunks []Chunk) []string {
	seen := make(map[string]struct{}, len(chunks))
	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if _, ok := seen[c.Source]; ok {
			continue
		}
		seen[c.Source] = struct{}{}
		out = append(out, c.Source)
	}
	return out
}

func renderForRanking(chunks []Chunk) string {
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = fmt.Sprintf("**Source: %s**\n%s", c.Source, c.Content)
	}
	return strings.Join(parts, "\n\n---\n\n")
}

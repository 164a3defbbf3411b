package chat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/mohammad-safakhou/concordance/internal/evaluation"
	"github.com/mohammad-safakhou/concordance/internal/tools"
	"github.com/mohammad-safakhou/concordance/provider"
)

// baseContext renders the learning objectives and evaluations shared by
// every reply.
func baseContext(objectives string, ev evaluation.Evaluations) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ev); err != nil {
		return "", fmt.Errorf("encode evaluations: %w", err)
	}
	return "\nObjectifs d'apprentissage:\n" + objectives + "\n\nÉvaluations:\n" + strings.TrimRight(buf.String(), "\n") + "\n", nil
}

// toolContext appends the successful tool payloads to the reply context.
func toolContext(d Decision) string {
	var parts []string
	if r, ok := d.Succeeded(tools.WebSearchTool); ok {
		parts = append(parts, "\n\n=== WEB SEARCH RESULTS ===", stringOf(r["formatted"]))
	}
	if r, ok := d.Succeeded(tools.TrainingTool); ok {
		parts = append(parts,
			"\n\n=== TRAINING MODULE CONTENT ===",
			"Module: "+stringOf(r["module_name"]),
			"Content:\n"+stringOf(r["content"]),
		)
	}
	if r, ok := d.Succeeded(tools.KnowledgeBaseTool); ok {
		if formatted := stringOf(r["formatted_context"]); formatted != "" {
			parts = append(parts,
				"\n\n=== KNOWLEDGE BASE (from reference documents) ===",
				"Sources: "+strings.Join(stringsOf(r["sources"]), ", "),
				"\n"+formatted,
			)
		}
	}
	return strings.Join(parts, "\n")
}

// replyMessages assembles the prompt for a follow-up turn: persona, context,
// the optional supervisor instruction, history and the new user message.
func replyMessages(base string, d Decision, history []provider.Message, userMessage string) []provider.Message {
	msgs := make([]provider.Message, 0, len(history)+4)
	msgs = append(msgs,
		provider.Message{Role: provider.RoleSystem, Content: personaPrompt},
		provider.Message{Role: provider.RoleSystem, Content: "Context:\n" + base + toolContext(d)},
	)
	if d.ContextSummary != "" {
		msgs = append(msgs, provider.Message{
			Role:    provider.RoleSystem,
			Content: "<internal_instruction>\n" + d.ContextSummary + "\n</internal_instruction>",
		})
	}
	msgs = append(msgs, history...)
	return append(msgs, provider.Message{Role: provider.RoleUser, Content: userMessage})
}

func initialMessages(base string) []provider.Message {
	return []provider.Message{
		{Role: provider.RoleSystem, Content: personaPrompt},
		{Role: provider.RoleSystem, Content: "Context:\n" + base},
		{Role: provider.RoleUser, Content: initialFeedbackRequest},
	}
}

func stringOf(v any) string {
	s, _ := v.(string)
	return s
}

func stringsOf(v any) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, x := range vv {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func countOf(v any) int {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice {
		return rv.Len()
	}
	return 0
}

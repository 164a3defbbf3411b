package chat

import (
	"regexp"
	"strings"
)

const (
	vizPlaceholder     = "[Visualization générée - voir ci-dessus]"
	contentPlaceholder = "[Contenu généré - voir ci-dessus]"
)

var (
	requestPairRe  = regexp.MustCompile(`(?is)<request_[^>]*>.*?</request_[^>]*>`)
	requestTagRe   = regexp.MustCompile(`(?i)<[^>]*request[^>]*>`)
	pythonFenceRe  = regexp.MustCompile("(?s)```python.*?```")
	anyFenceRe     = regexp.MustCompile("(?s)```.*?```")
	tableHeadingRe = regexp.MustCompile(`(?m)^#.*Tableau.*$`)
	tableSepRe     = regexp.MustCompile(`^\s*\|?\s*:?-{3,}:?\s*(\|\s*:?-{3,}:?\s*)+\|?\s*$`)
)

// Sanitize strips control tags and code fences from a model reply. When a
// chart was produced this turn, markdown tables are removed too since the
// chart already shows them. Sanitize(Sanitize(s)) == Sanitize(s).
func Sanitize(text string, visualizationCalled bool) string {
	text = requestPairRe.ReplaceAllString(text, "")
	text = requestTagRe.ReplaceAllString(text, "")

	text = pythonFenceRe.ReplaceAllLiteralString(text, vizPlaceholder)
	text = anyFenceRe.ReplaceAllLiteralString(text, contentPlaceholder)

	if visualizationCalled {
		text = stripTables(text)
		text = tableHeadingRe.ReplaceAllString(text, "")
	}
	return text
}

// stripTables drops every line led by "|" and every run of consecutive
// "|"-bearing lines that contains a separator row, which covers tables
// written without outer pipes.
func stripTables(text string) string {
	lines := strings.Split(text, "\n")
	drop := make([]bool, len(lines))
	for start := 0; start < len(lines); {
		if !strings.Contains(lines[start], "|") {
			start++
			continue
		}
		end, hasSep := start, false
		for end < len(lines) && strings.Contains(lines[end], "|") {
			hasSep = hasSep || tableSepRe.MatchString(lines[end])
			end++
		}
		for i := start; i < end; i++ {
			drop[i] = hasSep || strings.HasPrefix(strings.TrimSpace(lines[i]), "|")
		}
		start = end
	}
	kept := lines[:0]
	for i, line := range lines {
		if !drop[i] {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

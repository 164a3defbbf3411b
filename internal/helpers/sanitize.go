package helpers

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strictPolicyOnce sync.Once
	strictPolicy     *bluemonday.Policy
)

// StrictHTMLPolicy returns a singleton policy that strips every element and attribute.
func StrictHTMLPolicy() *bluemonday.Policy {
	strictPolicyOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()
	})
	return strictPolicy
}

// SanitizeHTMLStrict removes every HTML tag from s and trims it.
func SanitizeHTMLStrict(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return strings.TrimSpace(StrictHTMLPolicy().Sanitize(s))
}

// PlainText turns a web snippet or page body into prompt-safe text: tags are
// stripped, entities decoded, whitespace collapsed, and the result cut to
// at most limit runes (0 means unlimited).
func PlainText(s string, limit int) string {
	s = html.UnescapeString(SanitizeHTMLStrict(s))
	s = strings.Join(strings.Fields(s), " ")
	if limit > 0 {
		if r := []rune(s); len(r) > limit {
			s = strings.TrimSpace(string(r[:limit])) + "…"
		}
	}
	return s
}

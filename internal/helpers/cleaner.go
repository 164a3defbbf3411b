package helpers

import (
	"errors"
	"strings"
)

// ExtractJSON returns the first balanced JSON object or array in s. A reply
// wrapped entirely in a markdown fence is unwrapped first; otherwise prose
// around the JSON value is skipped.
func ExtractJSON(s string) (string, error) {
	s = strings.TrimSpace(strings.TrimPrefix(s, "\uFEFF"))
	if inner, ok := unfence(s); ok {
		s = strings.TrimSpace(inner)
	}
	for i := 0; i < len(s); i++ {
		if s[i] != '{' && s[i] != '[' {
			continue
		}
		if out, ok := balancedFrom(s, i); ok {
			return out, nil
		}
	}
	return "", errors.New("no balanced JSON object/array found")
}

// unfence strips a leading ``` or ~~~ block, ignoring its language tag.
func unfence(s string) (string, bool) {
	fence := ""
	switch {
	case strings.HasPrefix(s, "```"):
		fence = "```"
	case strings.HasPrefix(s, "~~~"):
		fence = "~~~"
	default:
		return "", false
	}
	rest := s[len(fence):]
	nl := strings.IndexByte(rest, '\n')
	if nl == -1 {
		return "", false
	}
	rest = rest[nl+1:]
	end := strings.Index(rest, fence)
	if end == -1 {
		return "", false
	}
	return rest[:end], true
}

// balancedFrom scans from an opening brace/bracket to its matching closer,
// ignoring delimiters inside string literals.
func balancedFrom(s string, start int) (string, bool) {
	var (
		stack    []byte
		inString bool
		escaped  bool
	)
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			stack = append(stack, c)
		case '}', ']':
			if len(stack) == 0 {
				return "", false
			}
			open := stack[len(stack)-1]
			if (open == '{') != (c == '}') {
				return "", false
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

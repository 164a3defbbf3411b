package helpers

import "strings"

// Citation is a web source surfaced to the learner alongside an answer.
type Citation struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Citations keeps only entries with a URL, dropping later duplicates of the
// same canonical address. Order is preserved. The result is never nil.
func Citations(in []Citation) []Citation {
	out := make([]Citation, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, c := range in {
		link := strings.TrimSpace(c.URL)
		if link == "" {
			continue
		}
		key, err := CanonicalURL(link)
		if err != nil {
			key = link
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, Citation{Title: strings.TrimSpace(c.Title), URL: link})
	}
	return out
}

package models

// Result is one web search hit.
type Result struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// Response is a provider answer: an optional synthesized answer plus hits.
type Response struct {
	Answer  string
	Results []Result
}

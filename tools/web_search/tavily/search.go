package tavily

import (
	"context"
	"net/http"

	"github.com/mohammad-safakhou/concordance/internal/helpers"
	"github.com/mohammad-safakhou/concordance/tools/web_search/models"
)

const DefaultBaseURL = "https://api.tavily.com"

type Search struct {
	APIKey  string
	BaseURL string
	HTTP    *helpers.HTTPClient
}

func (s Search) Search(ctx context.Context, q string, k int) (models.Response, error) {
	// https://docs.tavily.com/documentation/api-reference/endpoint/search
	base := s.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	payload := map[string]any{
		"query":          q,
		"max_results":    k,
		"search_depth":   "advanced",
		"include_answer": true,
	}
	headers := map[string]string{"Authorization": "Bearer " + s.APIKey}
	var raw struct {
		Answer  string `json:"answer"`
		Results []struct {
			Title   string  `json:"title"`
			URL     string  `json:"url"`
			Content string  `json:"content"`
			Score   float64 `json:"score"`
		} `json:"results"`
	}
	if err := s.HTTP.DoJSON(ctx, http.MethodPost, base+"/search", headers, payload, &raw); err != nil {
		return models.Response{}, err
	}
	out := models.Response{Answer: raw.Answer}
	for i, r := range raw.Results {
		if i >= k {
			break
		}
		out.Results = append(out.Results, models.Result{Title: r.Title, URL: r.URL, Content: r.Content, Score: r.Score})
	}
	return out, nil
}

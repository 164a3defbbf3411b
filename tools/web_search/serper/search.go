package serper

import (
	"context"
	"net/http"

	"github.com/mohammad-safakhou/concordance/internal/helpers"
	"github.com/mohammad-safakhou/concordance/tools/web_search/models"
)

const DefaultBaseURL = "https://google.serper.dev"

type Search struct {
	APIKey  string
	BaseURL string
	HTTP    *helpers.HTTPClient
}

func (s Search) Search(ctx context.Context, q string, k int) (models.Response, error) {
	// https://serper.dev/ docs
	base := s.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	payload := map[string]any{"q": q, "num": k}
	headers := map[string]string{"X-API-KEY": s.APIKey}
	var raw struct {
		AnswerBox struct {
			Answer  string `json:"answer"`
			Snippet string `json:"snippet"`
		} `json:"answerBox"`
		Organic []struct {
			Title    string `json:"title"`
			Link     string `json:"link"`
			Snippet  string `json:"snippet"`
			Position int    `json:"position"`
		} `json:"organic"`
	}
	if err := s.HTTP.DoJSON(ctx, http.MethodPost, base+"/search", headers, payload, &raw); err != nil {
		return models.Response{}, err
	}

	out := models.Response{Answer: raw.AnswerBox.Answer}
	if out.Answer == "" {
		out.Answer = raw.AnswerBox.Snippet
	}
	for i, it := range raw.Organic {
		if i >= k {
			break
		}
		out.Results = append(out.Results, models.Result{
			Title: it.Title, URL: it.Link, Content: it.Snippet, Score: 1 / float64(i+1),
		})
	}
	return out, nil
}

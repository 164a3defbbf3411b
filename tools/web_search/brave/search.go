package brave

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/mohammad-safakhou/concordance/internal/helpers"
	"github.com/mohammad-safakhou/concordance/tools/web_search/models"
)

const DefaultBaseURL = "https://api.search.brave.com"

type Search struct {
	APIKey  string
	BaseURL string
	HTTP    *helpers.HTTPClient
}

func (s Search) Search(ctx context.Context, q string, k int) (models.Response, error) {
	// https://api.search.brave.com/app/documentation/web-search
	base := s.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	endpoint := fmt.Sprintf("%s/res/v1/web/search?q=%s&count=%d", base, url.QueryEscape(q), k)
	headers := map[string]string{
		"Accept":               "application/json",
		"X-Subscription-Token": s.APIKey,
	}
	var raw struct {
		Web struct {
			Results []struct {
				Title   string `json:"title"`
				URL     string `json:"url"`
				Snippet string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := s.HTTP.DoJSON(ctx, http.MethodGet, endpoint, headers, nil, &raw); err != nil {
		return models.Response{}, err
	}
	var out models.Response
	for i, r := range raw.Web.Results {
		if i >= k {
			break
		}
		out.Results = append(out.Results, models.Result{Title: r.Title, URL: r.URL, Content: r.Snippet, Score: 1 / float64(i+1)})
	}
	return out, nil
}

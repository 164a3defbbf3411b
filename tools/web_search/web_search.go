package web_search

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mohammad-safakhou/concordance/config"
	"github.com/mohammad-safakhou/concordance/internal/helpers"
	"github.com/mohammad-safakhou/concordance/tools/web_fetch"
	"github.com/mohammad-safakhou/concordance/tools/web_search/brave"
	"github.com/mohammad-safakhou/concordance/tools/web_search/models"
	"github.com/mohammad-safakhou/concordance/tools/web_search/serper"
	"github.com/mohammad-safakhou/concordance/tools/web_search/tavily"
)

type WebSearcher interface {
	Search(ctx context.Context, q string, k int) (models.Response, error)
}

type Provider string

const (
	TavilyProvider Provider = "tavily"
	SerperProvider Provider = "serper"
	BraveProvider  Provider = "brave"
)

var ErrUnsupportedProvider = errors.New("unsupported web search provider")

const snippetLimit = 1500

// NewWebSearcher builds the configured provider client. With
// cfg.FetchContent set, results without a snippet are filled from the page.
func NewWebSearcher(cfg config.WebSearchConfig, logger *log.Logger) (WebSearcher, error) {
	httpc := helpers.NewHTTPClient(cfg.Timeout, 2, 500*time.Millisecond)
	var s WebSearcher
	switch Provider(cfg.Provider) {
	case TavilyProvider:
		s = tavily.Search{APIKey: cfg.TavilyAPIKey, HTTP: httpc}
	case SerperProvider:
		s = serper.Search{APIKey: cfg.SerperAPIKey, HTTP: httpc}
	case BraveProvider:
		s = brave.Search{APIKey: cfg.BraveAPIKey, HTTP: httpc}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, cfg.Provider)
	}
	if cfg.FetchContent {
		s = &Enricher{Next: s, Fetcher: web_fetch.NewWebFetcher(cfg.Timeout, snippetLimit), Logger: logger}
	}
	return s, nil
}

// Enricher fills empty snippets with the readable text of the result page.
type Enricher struct {
	Next    WebSearcher
	Fetcher web_fetch.WebFetcher
	Logger  *log.Logger
}

func (e *Enricher) Search(ctx context.Context, q string, k int) (models.Response, error) {
	resp, err := e.Next.Search(ctx, q, k)
	if err != nil {
		return resp, err
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i := range resp.Results {
		r := &resp.Results[i]
		if strings.TrimSpace(r.Content) != "" || r.URL == "" {
			continue
		}
		g.Go(func() error {
			page, err := e.Fetcher.Exec(gctx, r.URL)
			if err != nil {
				if e.Logger != nil {
					e.Logger.Printf("fetch %s: %v", r.URL, err)
				}
				return nil
			}
			r.Content = page.Text
			if r.Title == "" {
				r.Title = page.Title
			}
			return nil
		})
	}
	_ = g.Wait()
	return resp, nil
}

// Results flattens a response into the tool's result list: HTML is
// stripped and the provider answer, if any, comes first as "Direct Answer".
func Results(resp models.Response) []models.Result {
	out := make([]models.Result, 0, len(resp.Results)+1)
	if answer := helpers.PlainText(resp.Answer, 0); answer != "" {
		out = append(out, models.Result{Title: "Direct Answer", Content: answer, Score: 1.0})
	}
	for _, r := range resp.Results {
		r.Title = helpers.PlainText(r.Title, 0)
		r.Content = helpers.PlainText(r.Content, snippetLimit)
		out = append(out, r)
	}
	return out
}

// Format renders results as numbered prompt context.
func Format(results []models.Result) string {
	if len(results) == 0 {
		return "No search results found."
	}
	var b strings.Builder
	b.WriteString("Web Search Results:\n\n")
	for i, r := range results {
		fmt.Fprintf(&b, "[%d] %s\n", i+1, r.Title)
		if r.URL != "" {
			fmt.Fprintf(&b, "URL: %s\n", r.URL)
		}
		fmt.Fprintf(&b, "Content: %s\n\n", r.Content)
	}
	return b.String()
}

// Citations lists the results that carry a URL.
func Citations(results []models.Result) []helpers.Citation {
	in := make([]helpers.Citation, 0, len(results))
	for _, r := range results {
		in = append(in, helpers.Citation{Title: r.Title, URL: r.URL})
	}
	return helpers.Citations(in)
}

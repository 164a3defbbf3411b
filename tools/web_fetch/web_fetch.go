// Package web_fetch downloads a page and extracts its readable text.
package web_fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"

	"github.com/mohammad-safakhou/concordance/internal/helpers"
)

const (
	DefaultTimeout  = 15 * time.Second
	MaxCharsDefault = 20000
	maxBodyBytes    = 4 << 20
)

// Result is the extracted article.
type Result struct {
	URL    string `json:"url"`
	Title  string `json:"title"`
	Text   string `json:"text"`
	Status int    `json:"status"`
}

type WebFetcher interface {
	Exec(ctx context.Context, link string) (Result, error)
}

// Fetcher retrieves pages over plain HTTP. Non-HTML or unparsable pages give
// an empty Text with the upstream status; network failures give status 599.
type Fetcher struct {
	Client   *http.Client
	Timeout  time.Duration
	MaxChars int
}

func NewWebFetcher(timeout time.Duration, maxChars int) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxChars <= 0 {
		maxChars = MaxCharsDefault
	}
	return &Fetcher{Client: &http.Client{Timeout: timeout}, Timeout: timeout, MaxChars: maxChars}
}

func (f *Fetcher) Exec(ctx context.Context, link string) (Result, error) {
	if strings.TrimSpace(link) == "" {
		return Result{}, errors.New("invalid url")
	}
	ctx, cancel := context.WithTimeout(ctx, f.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return Result{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "concordance/1.0 (+feedback assistant)")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	resp, err := f.Client.Do(req)
	if err != nil {
		return Result{URL: link, Status: 599}, nil
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !strings.Contains(resp.Header.Get("Content-Type"), "html") {
		return Result{URL: link, Status: resp.StatusCode}, nil
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Result{URL: link, Status: 599}, nil
	}

	article, err := readability.FromReader(strings.NewReader(string(body)), mustParseURL(link))
	if err != nil {
		return Result{URL: link, Status: resp.StatusCode}, nil
	}
	return Result{
		URL:    link,
		Title:  strings.TrimSpace(article.Title),
		Text:   helpers.PlainText(article.TextContent, f.MaxChars),
		Status: resp.StatusCode,
	}, nil
}

func mustParseURL(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		return &url.URL{}
	}
	return u
}

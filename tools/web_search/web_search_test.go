package web_search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mohammad-safakhou/concordance/config"
	"github.com/mohammad-safakhou/concordance/internal/helpers"
	"github.com/mohammad-safakhou/concordance/tools/web_fetch"
	"github.com/mohammad-safakhou/concordance/tools/web_search/brave"
	"github.com/mohammad-safakhou/concordance/tools/web_search/models"
	"github.com/mohammad-safakhou/concordance/tools/web_search/serper"
	"github.com/mohammad-safakhou/concordance/tools/web_search/tavily"
)

func TestTavilySearchRequestAndDecode(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer tvly-test" {
			t.Errorf("missing bearer token")
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"answer":"Les gépants sont recommandés.","results":[
			{"title":"HAS 2025","url":"https://has-sante.fr/migraine","content":"<p>Recommandations</p>","score":0.91},
			{"title":"SFEMC","url":"https://sfemc.fr/","content":"Guide","score":0.8}]}`))
	}))
	defer srv.Close()

	s := tavily.Search{APIKey: "tvly-test", BaseURL: srv.URL, HTTP: helpers.NewHTTPClient(time.Second, 0, time.Millisecond)}
	resp, err := s.Search(context.Background(), "migraine 2025", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if got["search_depth"] != "advanced" || got["include_answer"] != true || got["max_results"] != float64(5) {
		t.Fatalf("unexpected payload %v", got)
	}
	if resp.Answer == "" || len(resp.Results) != 2 || resp.Results[0].Score != 0.91 {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestSerperAndBraveDecode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/search":
			if r.Header.Get("X-API-KEY") != "k" {
				t.Errorf("missing serper key")
			}
			_, _ = w.Write([]byte(`{"organic":[{"title":"A","link":"https://a.example","snippet":"a"},{"title":"B","link":"https://b.example","snippet":"b"}]}`))
		case "/res/v1/web/search":
			if r.URL.Query().Get("q") != "céphalée de tension" {
				t.Errorf("query not escaped: %q", r.URL.RawQuery)
			}
			_, _ = w.Write([]byte(`{"web":{"results":[{"title":"C","url":"https://c.example","description":"c"}]}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	httpc := helpers.NewHTTPClient(time.Second, 0, time.Millisecond)

	sr, err := serper.Search{APIKey: "k", BaseURL: srv.URL, HTTP: httpc}.Search(context.Background(), "q", 1)
	if err != nil || len(sr.Results) != 1 || sr.Results[0].URL != "https://a.example" {
		t.Fatalf("serper: %+v %v", sr, err)
	}
	br, err := brave.Search{APIKey: "k", BaseURL: srv.URL, HTTP: httpc}.Search(context.Background(), "céphalée de tension", 3)
	if err != nil || len(br.Results) != 1 || br.Results[0].Content != "c" {
		t.Fatalf("brave: %+v %v", br, err)
	}
}

func TestResultsFormatAndCitations(t *testing.T) {
	results := Results(models.Response{
		Answer: "Réponse directe",
		Results: []models.Result{
			{Title: "<b>HAS</b>", URL: "https://has-sante.fr/a", Content: "<p>Texte &amp; suite</p>"},
			{Title: "Sans lien", Content: "x"},
		},
	})
	if len(results) != 3 || results[0].Title != "Direct Answer" || results[0].URL != "" {
		t.Fatalf("direct answer must come first: %+v", results)
	}
	if results[1].Title != "HAS" || results[1].Content != "Texte & suite" {
		t.Fatalf("html not stripped: %+v", results[1])
	}

	want := "Web Search Results:\n\n" +
		"[1] Direct Answer\nContent: Réponse directe\n\n" +
		"[2] HAS\nURL: https://has-sante.fr/a\nContent: Texte & suite\n\n" +
		"[3] Sans lien\nContent: x\n\n"
	if got := Format(results); got != want {
		t.Fatalf("Format mismatch\n got: %q\nwant: %q", got, want)
	}
	if Format(nil) != "No search results found." {
		t.Fatalf("unexpected empty format")
	}

	cites := Citations(results)
	if len(cites) != 1 || cites[0].URL != "https://has-sante.fr/a" {
		t.Fatalf("citations must skip URL-less items: %+v", cites)
	}
}

type staticSearcher struct{ resp models.Response }

func (s staticSearcher) Search(ctx context.Context, q string, k int) (models.Response, error) {
	return s.resp, nil
}

func TestEnricherFillsEmptySnippets(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><head><title>Migraine chronique</title></head><body><article>
			<h1>Migraine chronique</h1>
			<p>La migraine chronique se définit par au moins quinze jours de céphalée par mois pendant plus de trois mois,
			dont au moins huit jours présentant les caractéristiques de la migraine. Le traitement de fond est alors indiqué.</p>
			<p>Les anticorps anti-CGRP ont modifié la prise en charge de ces patients depuis plusieurs années.</p>
			</article></body></html>`))
	}))
	defer page.Close()

	e := &Enricher{
		Next: staticSearcher{resp: models.Response{Results: []models.Result{
			{Title: "kept", URL: "https://example.org", Content: "already here"},
			{URL: page.URL},
		}}},
		Fetcher: web_fetch.NewWebFetcher(time.Second, 500),
	}
	resp, err := e.Search(context.Background(), "q", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if resp.Results[0].Content != "already here" {
		t.Fatalf("non-empty snippet must not be replaced")
	}
	if !strings.Contains(resp.Results[1].Content, "quinze jours") {
		t.Fatalf("expected page text, got %q", resp.Results[1].Content)
	}
}

func TestNewWebSearcherRejectsUnknownProvider(t *testing.T) {
	if _, err := NewWebSearcher(config.WebSearchConfig{Provider: "bing"}, nil); err == nil {
		t.Fatalf("expected error")
	}
	s, err := NewWebSearcher(config.WebSearchConfig{Provider: "tavily", TavilyAPIKey: "k", FetchContent: true}, nil)
	if err != nil {
		t.Fatalf("NewWebSearcher: %v", err)
	}
	if _, ok := s.(*Enricher); !ok {
		t.Fatalf("fetch_content must wrap the provider, got %T", s)
	}
}

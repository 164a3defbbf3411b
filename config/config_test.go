package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleConfig = `{
  "llm": {
    "providers": {
      "openai": {"type": "openai", "api_key": "sk-test", "timeout": "20s"},
      "claude": {"type": "anthropic", "api_key": "ak-test"}
    },
    "routing": {
      "chat": "claude:claude-sonnet-4-5",
      "supervisor": "claude:claude-sonnet-4-5",
      "ranking": "claude:claude-sonnet-4-5",
      "rewrite": "claude:claude-sonnet-4-5",
      "evaluator": "claude:claude-sonnet-4-5",
      "visualization": "openai:gpt-4o-mini"
    },
    "embedding": {"provider": "openai", "model": "text-embedding-3-small"}
  },
  "rag": {"docs_dir": "kb", "store": "memory"}
}`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.RAG.DocsDir != "kb" {
		t.Fatalf("expected docs dir kb, got %q", cfg.RAG.DocsDir)
	}
	if cfg.RAG.TopK != 10 || cfg.RAG.MaxRetries != 3 {
		t.Fatalf("unexpected retrieval defaults: top_k=%d max_retries=%d", cfg.RAG.TopK, cfg.RAG.MaxRetries)
	}
	if cfg.RAG.ChunkSize != 2000 || cfg.RAG.ChunkOverlap != 200 {
		t.Fatalf("unexpected chunking defaults: %d/%d", cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	}
	if cfg.WebSearch.MaxResults != 5 {
		t.Fatalf("expected 5 web results, got %d", cfg.WebSearch.MaxResults)
	}
	if cfg.Storage.Sessions != "memory" {
		t.Fatalf("expected memory sessions, got %q", cfg.Storage.Sessions)
	}
	if cfg.Server.Address != ":8000" {
		t.Fatalf("expected default address, got %q", cfg.Server.Address)
	}
	if got := cfg.LLM.Providers["openai"].Timeout; got != 20*time.Second {
		t.Fatalf("expected 20s timeout, got %s", got)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("CONCORDANCE_RAG_TOP_K", "4")
	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.RAG.TopK != 4 {
		t.Fatalf("expected env override top_k=4, got %d", cfg.RAG.TopK)
	}
}

func TestLLMValidateRejectsUnknownRoute(t *testing.T) {
	l := LLMConfig{
		Providers: map[string]LLMProvider{"openai": {Type: "openai"}},
		Routing: LLMRoutingConfig{
			Chat: "openai:gpt-4o", Supervisor: "openai:gpt-4o", Ranking: "missing:model",
			Rewrite: "openai:gpt-4o", Evaluator: "openai:gpt-4o", Visualization: "openai:gpt-4o",
		},
		Embedding: EmbeddingConfig{Provider: "openai", Model: "text-embedding-3-small"},
	}
	if err := l.Validate(); err == nil {
		t.Fatalf("expected unknown provider error")
	}
}

func TestSplitRoute(t *testing.T) {
	p, m, err := SplitRoute("claude:claude-sonnet-4-5")
	if err != nil || p != "claude" || m != "claude-sonnet-4-5" {
		t.Fatalf("unexpected split: %q %q %v", p, m, err)
	}
	if _, _, err := SplitRoute("no-colon"); err == nil {
		t.Fatalf("expected error for malformed route")
	}
}

func TestRAGValidateOverlap(t *testing.T) {
	r := RAGConfig{ChunkSize: 100, ChunkOverlap: 100}.Normalize()
	if err := r.Validate(); err == nil {
		t.Fatalf("expected overlap validation error")
	}
}

func TestPostgresDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", User: "u", Password: "p", DBName: "kb"}
	if got, want := p.DSN(), "postgres://u:p@db:5432/kb?sslmode=disable"; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

package rag

import (
	"testing"

	"github.com/mohammad-safakhou/concordance/internal/vectorstore"
)

func TestFormatChunksGroupsBySource(t *testing.T) {
	chunks := []Chunk{
		{Content: "A1", Source: "a.pdf", DocumentTitle: "guide a", PageNumber: 2},
		{Content: "B1", Source: "b.pdf", DocumentTitle: "guide b", PageNumber: 1},
		{Content: "A2", Source: "a.pdf", DocumentTitle: "guide a", PageNumber: 5},
	}
	want := "\n### Source: guide a\n\n[Page 2]\nA1\n\n---\n\n[Page 5]\nA2\n\n---\n\n" +
		"\n### Source: guide b\n\n[Page 1]\nB1\n\n---\n"
	if got := FormatChunks(chunks); got != want {
		t.Fatalf("FormatChunks mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestFormatChunksEmpty(t *testing.T) {
	if got := FormatChunks(nil); got != "No relevant documents found." {
		t.Fatalf("unexpected %q", got)
	}
}

func TestRenderForRanking(t *testing.T) {
	got := renderForRanking([]Chunk{{Source: "a.pdf", Content: "x"}, {Source: "Unknown", Content: "y"}})
	want := "**Source: a.pdf**\nx\n\n---\n\n**Source: Unknown**\ny"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestChunkFromMatchDefaults(t *testing.T) {
	c := chunkFromMatch(vectorstore.Match{ID: "x_0", Content: "c", Distance: 0.25})
	if c.Source != "Unknown" || c.DocumentTitle != "Unknown" || c.PageNumber != 1 {
		t.Fatalf("unexpected defaults %+v", c)
	}
	if c.RelevanceScore != 0.75 {
		t.Fatalf("relevance must be 1 - distance, got %v", c.RelevanceScore)
	}
}

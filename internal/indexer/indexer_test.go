package indexer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mohammad-safakhou/concordance/config"
	"github.com/mohammad-safakhou/concordance/internal/vectorstore"
)

type fakeLoader struct {
	pages map[string][]Page
}

func (f fakeLoader) Load(path string) ([]Page, error) {
	p, ok := f.pages[filepath.Base(path)]
	if !ok {
		return nil, errors.New("corrupt xref table")
	}
	return p, nil
}

type countingEmbedder struct {
	mu    sync.Mutex
	calls int
	fail  error
}

func (e *countingEmbedder) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.fail != nil {
		return nil, e.fail
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1}
	}
	return out, nil
}

func writeDocs(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("%PDF-1.4 "+n), 0o644); err != nil {
			t.Fatalf("write %s: %v", n, err)
		}
	}
}

func newTestIndexer(t *testing.T, loader Loader, emb *countingEmbedder) (*Indexer, vectorstore.Store, config.RAGConfig) {
	t.Helper()
	cfg := config.RAGConfig{
		DocsDir:      filepath.Join(t.TempDir(), "docs"),
		PersistDir:   filepath.Join(t.TempDir(), "index"),
		ChunkSize:    50,
		ChunkOverlap: 0,
	}
	if err := os.MkdirAll(cfg.DocsDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	store := vectorstore.NewMemory()
	quiet := log.New(io.Discard, "", 0)
	return New(store, emb, cfg, WithLoader(loader), WithLogger(quiet)), store, cfg
}

var twoPageDoc = []Page{
	{Number: 1, Text: "La migraine sans aura dure de 4 à 72 heures.\n\nElle est souvent unilatérale."},
	{Number: 2, Text: "Les triptans sont le traitement de crise."},
}

func TestEnsureFreshBuildsThenUsesCache(t *testing.T) {
	emb := &countingEmbedder{}
	ix, store, cfg := newTestIndexer(t, fakeLoader{pages: map[string][]Page{"guide_migraine.pdf": twoPageDoc}}, emb)
	writeDocs(t, cfg.DocsDir, "guide_migraine.pdf")
	ctx := context.Background()

	if err := ix.EnsureFresh(ctx); err != nil {
		t.Fatalf("EnsureFresh: %v", err)
	}
	all, _ := store.All(ctx)
	if len(all) != 3 {
		t.Fatalf("expected 3 chunks, got %d: %+v", len(all), all)
	}
	for i, m := range all {
		if m.ID != fmt.Sprintf("guide_migraine_%d", i) {
			t.Fatalf("unexpected id %q at %d", m.ID, i)
		}
		if m.Metadata.DocumentTitle != "guide migraine" || m.Metadata.Source != "guide_migraine.pdf" || m.Metadata.TotalChunks != 3 {
			t.Fatalf("unexpected metadata %+v", m.Metadata)
		}
	}
	if all[2].Metadata.PageNumber != 2 || all[0].Metadata.PageNumber != 1 {
		t.Fatalf("page numbers not preserved: %+v", all)
	}
	if (Freshness{DocsDir: cfg.DocsDir, PersistDir: cfg.PersistDir}).Stored() == "" {
		t.Fatalf("token must be saved after a build")
	}

	if err := ix.EnsureFresh(ctx); err != nil {
		t.Fatalf("EnsureFresh (cached): %v", err)
	}
	if emb.calls != 1 {
		t.Fatalf("unchanged documents must not be re-embedded, got %d calls", emb.calls)
	}
}

func TestEnsureFreshRebuildsWhenDocumentsChange(t *testing.T) {
	emb := &countingEmbedder{}
	ix, _, cfg := newTestIndexer(t, fakeLoader{pages: map[string][]Page{"a.pdf": twoPageDoc, "b.pdf": twoPageDoc[:1]}}, emb)
	writeDocs(t, cfg.DocsDir, "a.pdf")
	ctx := context.Background()
	if err := ix.EnsureFresh(ctx); err != nil {
		t.Fatalf("EnsureFresh: %v", err)
	}
	writeDocs(t, cfg.DocsDir, "b.pdf")
	if err := ix.EnsureFresh(ctx); err != nil {
		t.Fatalf("EnsureFresh after change: %v", err)
	}
	if emb.calls != 2 {
		t.Fatalf("expected a rebuild after adding a document, got %d embed calls", emb.calls)
	}
	if n, _ := ix.Count(ctx); n != 5 {
		t.Fatalf("expected 5 chunks across both documents, got %d", n)
	}
}

func TestReindexIsIdempotent(t *testing.T) {
	emb := &countingEmbedder{}
	ix, store, cfg := newTestIndexer(t, fakeLoader{pages: map[string][]Page{"a.pdf": twoPageDoc}}, emb)
	writeDocs(t, cfg.DocsDir, "a.pdf")
	ctx := context.Background()

	first, err := ix.Reindex(ctx)
	if err != nil {
		t.Fatalf("Reindex: %v", err)
	}
	before, _ := store.All(ctx)
	second, err := ix.Reindex(ctx)
	if err != nil {
		t.Fatalf("Reindex again: %v", err)
	}
	after, _ := store.All(ctx)
	if first != second || len(before) != len(after) {
		t.Fatalf("reindex changed the chunk count: %d vs %d", first, second)
	}
	for i := range before {
		if before[i].ID != after[i].ID || before[i].Content != after[i].Content {
			t.Fatalf("reindex changed chunk %d: %+v vs %+v", i, before[i], after[i])
		}
	}
}

func TestBadDocumentIsSkipped(t *testing.T) {
	emb := &countingEmbedder{}
	ix, store, cfg := newTestIndexer(t, fakeLoader{pages: map[string][]Page{"good.pdf": twoPageDoc}}, emb)
	writeDocs(t, cfg.DocsDir, "broken.pdf", "good.pdf", "notes.txt")
	n, err := ix.Reindex(context.Background())
	if err != nil {
		t.Fatalf("Reindex: %v", err)
	}
	all, _ := store.All(context.Background())
	if n != 3 || len(all) != 3 || all[0].Metadata.Source != "good.pdf" {
		t.Fatalf("expected only good.pdf chunks, got %d: %+v", n, all)
	}
}

func TestEmbeddingFailureStoresNothing(t *testing.T) {
	emb := &countingEmbedder{fail: errors.New("rate limited")}
	ix, store, cfg := newTestIndexer(t, fakeLoader{pages: map[string][]Page{"a.pdf": twoPageDoc}}, emb)
	writeDocs(t, cfg.DocsDir, "a.pdf")
	_ = store.Upsert(context.Background(), []vectorstore.Record{{ID: "stale_0", Embedding: []float32{1, 1}}})

	if _, err := ix.Reindex(context.Background()); err == nil {
		t.Fatalf("expected embedding error")
	}
	if n, _ := store.Count(context.Background()); n != 0 {
		t.Fatalf("expected zero chunks after failed build, got %d", n)
	}
	if (Freshness{DocsDir: cfg.DocsDir, PersistDir: cfg.PersistDir}).Stored() != "" {
		t.Fatalf("token must not be saved after a failed build")
	}
}

func TestQueryTriggersFirstFreshnessCheck(t *testing.T) {
	emb := &countingEmbedder{}
	ix, _, cfg := newTestIndexer(t, fakeLoader{pages: map[string][]Page{"a.pdf": twoPageDoc}}, emb)
	writeDocs(t, cfg.DocsDir, "a.pdf")
	got, err := ix.Query(context.Background(), []float32{10, 1}, 2)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 2 || emb.calls != 1 {
		t.Fatalf("expected lazy build before query, got %d matches and %d embed calls", len(got), emb.calls)
	}
}

func TestFreshnessToken(t *testing.T) {
	dir := t.TempDir()
	f := Freshness{DocsDir: filepath.Join(dir, "missing"), PersistDir: filepath.Join(dir, "persist")}
	if tok, err := f.Compute(); err != nil || tok != "" {
		t.Fatalf("missing dir must give empty token, got %q %v", tok, err)
	}

	f.DocsDir = dir
	writeDocs(t, dir, "a.pdf")
	t1, err := f.Compute()
	if err != nil || t1 == "" {
		t.Fatalf("Compute: %q %v", t1, err)
	}
	t2, _ := f.Compute()
	if t1 != t2 {
		t.Fatalf("token must be stable for unchanged files")
	}
	later := time.Now().Add(time.Hour)
	if err := os.Chtimes(filepath.Join(dir, "a.pdf"), later, later); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}
	t3, _ := f.Compute()
	if t3 == t1 {
		t.Fatalf("token must change with modification time")
	}
	writeDocs(t, dir, "ignored.txt")
	if t4, _ := f.Compute(); t4 != t3 {
		t.Fatalf("non-pdf files must not affect the token")
	}

	if err := f.Save(t3); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if f.Stored() != t3 {
		t.Fatalf("Stored() = %q, want %q", f.Stored(), t3)
	}
}

func TestSchedulerParsesSpec(t *testing.T) {
	if _, err := NewScheduler(nil, "not a cron", nil); err == nil {
		t.Fatalf("expected parse error")
	}
	s, err := NewScheduler(nil, "0 */6 * * *", nil)
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	base := time.Date(2026, 3, 1, 7, 30, 0, 0, time.UTC)
	if next := s.Next(base); !next.Equal(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected next firing %v", next)
	}
}

func TestQueryReindexesAfterDocumentChange(t *testing.T) {
	emb := &countingEmbedder{}
	ix, _, cfg := newTestIndexer(t, fakeLoader{pages: map[string][]Page{"a.pdf": twoPageDoc, "b.pdf": twoPageDoc[:1]}}, emb)
	writeDocs(t, cfg.DocsDir, "a.pdf")
	ctx := context.Background()

	if _, err := ix.Query(ctx, []float32{10, 1}, 10); err != nil {
		t.Fatalf("Query: %v", err)
	}
	if _, err := ix.Query(ctx, []float32{10, 1}, 10); err != nil {
		t.Fatalf("Query: %v", err)
	}
	if emb.calls != 1 {
		t.Fatalf("unchanged folder must not rebuild, got %d embed calls", emb.calls)
	}

	writeDocs(t, cfg.DocsDir, "b.pdf")
	got, err := ix.Query(ctx, []float32{10, 1}, 10)
	if err != nil {
		t.Fatalf("Query after change: %v", err)
	}
	if len(got) != 5 || emb.calls != 2 {
		t.Fatalf("expected rebuild before serving, got %d matches and %d embed calls", len(got), emb.calls)
	}
}

func TestQueryRetriesAfterFailedBuild(t *testing.T) {
	emb := &countingEmbedder{fail: errors.New("rate limited")}
	ix, _, cfg := newTestIndexer(t, fakeLoader{pages: map[string][]Page{"a.pdf": twoPageDoc}}, emb)
	writeDocs(t, cfg.DocsDir, "a.pdf")
	ctx := context.Background()

	if got, _ := ix.Query(ctx, []float32{10, 1}, 10); len(got) != 0 {
		t.Fatalf("failed build must serve nothing, got %d", len(got))
	}
	emb.mu.Lock()
	emb.fail = nil
	emb.mu.Unlock()

	got, err := ix.Query(ctx, []float32{10, 1}, 10)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 3 || emb.calls != 2 {
		t.Fatalf("expected the next access to rebuild, got %d matches and %d embed calls", len(got), emb.calls)
	}
}

func TestEmptyFolderIsNotRebuiltOnEveryQuery(t *testing.T) {
	emb := &countingEmbedder{}
	ix, _, _ := newTestIndexer(t, fakeLoader{}, emb)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if got, err := ix.Query(ctx, []float32{1, 1}, 5); err != nil || len(got) != 0 {
			t.Fatalf("Query on empty folder: %v %v", got, err)
		}
	}
	if g := ix.Generation(); g != 1 {
		t.Fatalf("expected a single empty build, got generation %d", g)
	}
	if ix.fresh.Stored() == "" {
		t.Fatalf("empty build must still record its token")
	}
}

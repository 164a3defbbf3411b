// Package indexer builds the knowledge-base vector index from a folder of
// PDF documents and keeps it in step with that folder.
package indexer

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/mohammad-safakhou/concordance/config"
	"github.com/mohammad-safakhou/concordance/internal/vectorstore"
	"github.com/mohammad-safakhou/concordance/provider"
)

// Indexer owns the vector store. Rebuilds take the write lock; reads go
// through Query and All, which take the read lock, so a half-built index is
// never observed.
type Indexer struct {
	mu       sync.RWMutex
	store    vectorstore.Store
	embedder provider.Embedder
	loader   Loader
	splitter *Splitter
	fresh    Freshness
	docsDir  string
	logger   *log.Logger
	gen      atomic.Uint64

	buildMu sync.Mutex // serialises freshness checks and rebuilds
	built   atomic.Pointer[string]
}

// Option customises an Indexer.
type Option func(*Indexer)

// WithLoader replaces the PDF loader.
func WithLoader(l Loader) Option { return func(ix *Indexer) { ix.loader = l } }

func WithLogger(l *log.Logger) Option {
	return func(ix *Indexer) {
		if l != nil {
			ix.logger = l
		}
	}
}

func New(store vectorstore.Store, embedder provider.Embedder, cfg config.RAGConfig, opts ...Option) *Indexer {
	cfg = cfg.Normalize()
	ix := &Indexer{
		store:    store,
		embedder: embedder,
		loader:   PDFLoader{},
		splitter: NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap),
		fresh:    Freshness{DocsDir: cfg.DocsDir, PersistDir: cfg.PersistDir},
		docsDir:  cfg.DocsDir,
		logger:   log.New(log.Writer(), "[INDEXER] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// EnsureFresh rebuilds the index when it is empty or the documents changed
// since the last build.
func (ix *Indexer) EnsureFresh(ctx context.Context) error {
	ix.buildMu.Lock()
	defer ix.buildMu.Unlock()
	token, err := ix.fresh.Compute()
	if err != nil {
		return fmt.Errorf("compute freshness token: %w", err)
	}
	if ix.isBuilt(token) {
		return nil
	}
	count, err := ix.Count(ctx)
	if err != nil {
		return fmt.Errorf("count chunks: %w", err)
	}
	switch {
	case count == 0:
		ix.logger.Printf("no documents in vector store, indexing %s", ix.docsDir)
	case token != ix.fresh.Stored():
		ix.logger.Printf("documents have changed, re-indexing")
	default:
		ix.logger.Printf("using cached vector store (%d chunks)", count)
		ix.built.Store(&token)
		return nil
	}
	if _, err := ix.rebuild(ctx, token); err != nil {
		return err
	}
	ix.built.Store(&token)
	return nil
}

// Reindex forces a destructive rebuild and returns the number of stored chunks.
func (ix *Indexer) Reindex(ctx context.Context) (int, error) {
	ix.buildMu.Lock()
	defer ix.buildMu.Unlock()
	token, err := ix.fresh.Compute()
	if err != nil {
		return 0, fmt.Errorf("compute freshness token: %w", err)
	}
	n, err := ix.rebuild(ctx, token)
	if err == nil {
		ix.built.Store(&token)
	}
	return n, err
}

func (ix *Indexer) rebuild(ctx context.Context, token string) (int, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	defer ix.gen.Add(1)

	if err := ix.store.Recreate(ctx); err != nil {
		return 0, fmt.Errorf("recreate store: %w", err)
	}
	records, err := ix.parseAll()
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		ix.logger.Printf("no chunks to index")
		return 0, ix.fresh.Save(token)
	}

	ix.logger.Printf("generating embeddings for %d chunks", len(records))
	texts := make([]string, len(records))
	for i, r := range records {
		texts[i] = r.Content
	}
	vectors, err := ix.embedder.CreateEmbedding(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(records) {
		return 0, fmt.Errorf("embed chunks: got %d vectors for %d chunks", len(vectors), len(records))
	}
	for i := range records {
		records[i].Embedding = vectors[i]
	}
	if err := ix.store.Upsert(ctx, records); err != nil {
		return 0, fmt.Errorf("store chunks: %w", err)
	}
	ix.logger.Printf("successfully indexed %d chunks", len(records))
	return len(records), ix.fresh.Save(token)
}

// parseAll chunks every document. Documents that fail are logged and skipped.
func (ix *Indexer) parseAll() ([]vectorstore.Record, error) {
	files, err := listPDFs(ix.docsDir)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	if files == nil {
		ix.logger.Printf("documents folder not found or empty: %s", ix.docsDir)
	}
	var records []vectorstore.Record
	for _, info := range files {
		name := info.Name()
		pages, err := ix.loader.Load(filepath.Join(ix.docsDir, name))
		if err != nil {
			ix.logger.Printf("error processing %s: %v", name, err)
			continue
		}
		recs := ix.chunkDocument(name, pages)
		ix.logger.Printf("created %d chunks from %s", len(recs), name)
		records = append(records, recs...)
	}
	return records, nil
}

func (ix *Indexer) chunkDocument(name string, pages []Page) []vectorstore.Record {
	type piece struct {
		page int
		text string
	}
	var pieces []piece
	for _, p := range pages {
		for _, c := range ix.splitter.Split(p.Text) {
			pieces = append(pieces, piece{page: p.Number, text: c})
		}
	}
	title := DocumentTitle(name)
	base := stem(name)
	out := make([]vectorstore.Record, len(pieces))
	for i, p := range pieces {
		page := p.page
		if page < 1 {
			page = 1
		}
		out[i] = vectorstore.Record{
			ID:      fmt.Sprintf("%s_%d", base, i),
			Content: p.text,
			Metadata: vectorstore.Metadata{
				Source:        name,
				DocumentTitle: title,
				PageNumber:    page,
				ChunkIndex:    i,
				TotalChunks:   len(pieces),
			},
		}
	}
	return out
}

// Query runs a nearest-neighbour search under the read lock. The document
// folder is checked first, and a changed folder is re-indexed before the
// search runs.
func (ix *Indexer) Query(ctx context.Context, embedding []float32, k int) ([]vectorstore.Match, error) {
	ix.refresh(ctx)
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.store.Query(ctx, embedding, k)
}

// All returns every indexed chunk under the read lock, with the generation
// it belongs to.
func (ix *Indexer) All(ctx context.Context) ([]vectorstore.Match, uint64, error) {
	ix.refresh(ctx)
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	all, err := ix.store.All(ctx)
	return all, ix.gen.Load(), err
}

// Generation changes every time the index is rebuilt.
func (ix *Indexer) Generation() uint64 { return ix.gen.Load() }

func (ix *Indexer) Count(ctx context.Context) (int, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.store.Count(ctx)
}

// isBuilt reports whether the index was last built, or confirmed, for token.
func (ix *Indexer) isBuilt(token string) bool {
	p := ix.built.Load()
	return p != nil && *p == token
}

// refresh re-indexes when the document folder no longer matches the last
// build. Failed builds are not remembered, so the next access retries.
func (ix *Indexer) refresh(ctx context.Context) {
	token, err := ix.fresh.Compute()
	if err != nil {
		ix.logger.Printf("freshness check failed: %v", err)
		return
	}
	if ix.isBuilt(token) {
		return
	}
	if err := ix.EnsureFresh(ctx); err != nil {
		ix.logger.Printf("freshness check failed: %v", err)
	}
}

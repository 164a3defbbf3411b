// Package vectorstore persists embedded knowledge-base chunks and serves
// nearest-neighbour queries by cosine distance.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"

	"github.com/mohammad-safakhou/concordance/config"
)

// ErrDimensionMismatch is returned when a query vector does not match the indexed dimension.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Metadata describes where a chunk came from.
type Metadata struct {
	Source        string `json:"source"`
	DocumentTitle string `json:"document_title"`
	PageNumber    int    `json:"page_number"`
	ChunkIndex    int    `json:"chunk_index"`
	TotalChunks   int    `json:"total_chunks"`
}

// Record is one embedded chunk to store.
type Record struct {
	ID        string
	Content   string
	Embedding []float32
	Metadata  Metadata
}

// Match is a stored chunk returned by Query.
type Match struct {
	ID       string
	Content  string
	Metadata Metadata
	// Distance is the cosine distance clamped to [0, 1].
	Distance float64
}

// Store is a collection of embedded chunks.
type Store interface {
	// Upsert inserts records, replacing any entry that shares an ID.
	Upsert(ctx context.Context, records []Record) error
	// Query returns at most k matches ordered by ascending distance.
	Query(ctx context.Context, embedding []float32, k int) ([]Match, error)
	Count(ctx context.Context) (int, error)
	// Recreate drops every entry of the collection.
	Recreate(ctx context.Context) error
	// All returns every stored chunk without embeddings, in insertion order.
	All(ctx context.Context) ([]Match, error)
	Close() error
}

// Clear is an alias of Recreate.
func Clear(ctx context.Context, s Store) error { return s.Recreate(ctx) }

// New opens the store selected by cfg.RAG.Store.
func New(ctx context.Context, cfg *config.Config, logger *log.Logger) (Store, error) {
	if logger == nil {
		logger = log.New(log.Writer(), "[VECTORSTORE] ", log.LstdFlags)
	}
	rag := cfg.RAG.Normalize()
	switch rag.Store {
	case "memory":
		return NewMemory(), nil
	case "sqlite":
		return OpenSQLite(ctx, filepath.Join(rag.PersistDir, "index.db"), rag.Collection, logger)
	case "postgres":
		pg := cfg.Storage.Postgres
		if pg.AutoMigrate {
			if err := Migrate("", pg.DSN(), "up", 0); err != nil {
				return nil, fmt.Errorf("migrate vector store: %w", err)
			}
		}
		return OpenPostgres(ctx, pg.DSN(), rag.Collection, logger)
	default:
		return nil, fmt.Errorf("unsupported vector store %q", rag.Store)
	}
}

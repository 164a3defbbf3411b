// Package embedding splits large embedding requests into provider-sized
// batches.
package embedding

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/mohammad-safakhou/concordance/provider"
)

const (
	DefaultBatchSize   = 256
	DefaultConcurrency = 4
)

// Embedding wraps an embedder and sends texts in batches, a few at a time.
// Output order always matches input order.
type Embedding struct {
	provider    provider.Embedder
	batchSize   int
	concurrency int
}

func NewEmbedding(p provider.Embedder, batchSize, concurrency int) *Embedding {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Embedding{provider: p, batchSize: batchSize, concurrency: concurrency}
}

// CreateEmbedding satisfies provider.Embedder.
func (e *Embedding) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	return e.EmbedMany(ctx, texts)
}

func (e *Embedding) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if len(texts) <= e.batchSize {
		return e.embed(ctx, texts)
	}

	out := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for start := 0; start < len(texts); start += e.batchSize {
		start := start
		end := min(start+e.batchSize, len(texts))
		g.Go(func() error {
			vecs, err := e.embed(gctx, texts[start:end])
			if err != nil {
				return fmt.Errorf("batch %d-%d: %w", start, end, err)
			}
			copy(out[start:end], vecs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Embedding) embed(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := e.provider.CreateEmbedding(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("got %d vectors for %d texts", len(vecs), len(texts))
	}
	return vecs, nil
}

package rag

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/blevesearch/bleve"
	"github.com/blevesearch/bleve/analysis/lang/fr"

	"github.com/mohammad-safakhou/concordance/internal/vectorstore"
	"github.com/mohammad-safakhou/concordance/provider"
)

// Index is the read side of the knowledge base.
type Index interface {
	Query(ctx context.Context, embedding []float32, k int) ([]vectorstore.Match, error)
	All(ctx context.Context) ([]vectorstore.Match, uint64, error)
}

// Retriever returns the k most relevant chunks for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]Chunk, error)
}

// DenseRetriever embeds the query and runs a cosine search.
type DenseRetriever struct {
	embedder provider.Embedder
	index    Index
}

func NewDenseRetriever(embedder provider.Embedder, index Index) *DenseRetriever {
	return &DenseRetriever{embedder: embedder, index: index}
}

func (r *DenseRetriever) Retrieve(ctx context.Context, query string, k int) ([]Chunk, error) {
	matches, err := r.dense(ctx, query, k)
	if err != nil {
		return nil, err
	}
	out := make([]Chunk, len(matches))
	for i, m := range matches {
		out[i] = chunkFromMatch(m)
	}
	return out, nil
}

func (r *DenseRetriever) dense(ctx context.Context, query string, k int) ([]vectorstore.Match, error) {
	if k <= 0 {
		return nil, nil
	}
	vecs, err := r.embedder.CreateEmbedding(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) == 0 {
		return nil, errors.New("embed query: empty response")
	}
	return r.index.Query(ctx, vecs[0], k)
}

const rrfK = 60 // reciprocal-rank-fusion constant

// HybridRetriever fuses the dense ranking with a French BM25 ranking from
// an in-memory bleve index. The lexical index is rebuilt whenever the
// knowledge base generation changes.
type HybridRetriever struct {
	dense *DenseRetriever
	index Index

	mu    sync.Mutex
	gen   uint64
	built bool
	lex   bleve.Index
	byID  map[string]vectorstore.Match
}

func NewHybridRetriever(embedder provider.Embedder, index Index) *HybridRetriever {
	return &HybridRetriever{dense: NewDenseRetriever(embedder, index), index: index}
}

type lexDoc struct {
	Content string `json:"content"`
	Title   string `json:"title"`
}

func (h *HybridRetriever) lexicon(ctx context.Context) (bleve.Index, map[string]vectorstore.Match, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	all, gen, err := h.index.All(ctx)
	if err != nil {
		return nil, nil, err
	}
	if h.built && gen == h.gen {
		return h.lex, h.byID, nil
	}
	mapping := bleve.NewIndexMapping()
	mapping.DefaultAnalyzer = fr.AnalyzerName
	idx, err := bleve.NewMemOnly(mapping)
	if err != nil {
		return nil, nil, err
	}
	byID := make(map[string]vectorstore.Match, len(all))
	batch := idx.NewBatch()
	for _, m := range all {
		byID[m.ID] = m
		if err := batch.Index(m.ID, lexDoc{Content: m.Content, Title: m.Metadata.DocumentTitle}); err != nil {
			return nil, nil, err
		}
	}
	if err := idx.Batch(batch); err != nil {
		return nil, nil, err
	}
	if h.lex != nil {
		_ = h.lex.Close()
	}
	h.lex, h.byID, h.gen, h.built = idx, byID, gen, true
	return idx, byID, nil
}

func (h *HybridRetriever) bm25(ctx context.Context, query string, k int) ([]vectorstore.Match, error) {
	idx, byID, err := h.lexicon(ctx)
	if err != nil {
		return nil, err
	}
	q := bleve.NewMatchQuery(query)
	req := bleve.NewSearchRequestOptions(q, k, 0, false)
	res, err := idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, err
	}
	out := make([]vectorstore.Match, 0, len(res.Hits))
	for _, hit := range res.Hits {
		if m, ok := byID[hit.ID]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

func (h *HybridRetriever) Retrieve(ctx context.Context, query string, k int) ([]Chunk, error) {
	if k <= 0 {
		return nil, nil
	}
	dense, err := h.dense.dense(ctx, query, k*3)
	if err != nil {
		return nil, err
	}
	lexical, err := h.bm25(ctx, query, k*3)
	if err != nil {
		return nil, fmt.Errorf("bm25: %w", err)
	}
	fused := fuseRRF(dense, lexical, k)
	out := make([]Chunk, len(fused))
	for i, m := range fused {
		out[i] = chunkFromMatch(m)
	}
	return out, nil
}

// fuseRRF merges two rankings by reciprocal rank. Lexical-only hits have no
// dense distance and receive the worst distance of the dense pool.
func fuseRRF(dense, lexical []vectorstore.Match, k int) []vectorstore.Match {
	type agg struct {
		m     vectorstore.Match
		score float64
		first int
	}
	worst := 1.0
	if len(dense) > 0 {
		worst = dense[len(dense)-1].Distance
	}
	seen := make(map[string]*agg)
	order := 0
	add := func(list []vectorstore.Match, fromDense bool) {
		for rank, m := range list {
			a, ok := seen[m.ID]
			if !ok {
				if !fromDense {
					m.Distance = worst
				}
				a = &agg{m: m, first: order}
				order++
				seen[m.ID] = a
			}
			a.score += 1.0 / float64(rrfK+rank+1)
		}
	}
	add(dense, true)
	add(lexical, false)

	all := make([]*agg, 0, len(seen))
	for _, a := range seen {
		all = append(all, a)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].score != all[j].score {
			return all[i].score > all[j].score
		}
		return all[i].first < all[j].first
	})
	if len(all) > k {
		all = all[:k]
	}
	out := make([]vectorstore.Match, len(all))
	for i, a := range all {
		out[i] = a.m
	}
	return out
}

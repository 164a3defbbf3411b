package embedding

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
)

type recordingEmbedder struct {
	mu      sync.Mutex
	batches []int
	fail    bool
}

func (r *recordingEmbedder) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	r.mu.Lock()
	r.batches = append(r.batches, len(texts))
	r.mu.Unlock()
	if r.fail {
		return nil, errors.New("rate limited")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		n, _ := strconv.Atoi(t)
		out[i] = []float32{float32(n)}
	}
	return out, nil
}

func TestEmbedManyKeepsOrderAcrossBatches(t *testing.T) {
	rec := &recordingEmbedder{}
	e := NewEmbedding(rec, 3, 2)
	texts := make([]string, 10)
	for i := range texts {
		texts[i] = strconv.Itoa(i)
	}
	vecs, err := e.EmbedMany(context.Background(), texts)
	if err != nil {
		t.Fatalf("EmbedMany: %v", err)
	}
	for i, v := range vecs {
		if v[0] != float32(i) {
			t.Fatalf("vector %d out of order: %v", i, v)
		}
	}
	if len(rec.batches) != 4 {
		t.Fatalf("expected 4 batches, got %v", rec.batches)
	}
}

func TestEmbedManyPropagatesErrors(t *testing.T) {
	e := NewEmbedding(&recordingEmbedder{fail: true}, 2, 1)
	if _, err := e.EmbedMany(context.Background(), []string{"1", "2", "3"}); err == nil {
		t.Fatalf("expected error")
	}
	if vecs, err := e.EmbedMany(context.Background(), nil); vecs != nil || err != nil {
		t.Fatalf("empty input: %v %v", vecs, err)
	}
}

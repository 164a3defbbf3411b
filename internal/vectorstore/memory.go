package vectorstore

import (
	"context"
	"fmt"
	"sync"
)

type memEntry struct {
	record Record
	order  int
}

// Memory is a process-local store; its content is lost on exit. Upsert
// writes a whole batch or nothing.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memEntry
	seq     int
	dim     int
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memEntry)}
}

func (m *Memory) Upsert(ctx context.Context, records []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	dim := m.dim
	for _, r := range records {
		if len(r.Embedding) == 0 {
			return fmt.Errorf("record %s: empty embedding", r.ID)
		}
		if dim == 0 {
			dim = len(r.Embedding)
		} else if len(r.Embedding) != dim {
			return fmt.Errorf("record %s: %w", r.ID, ErrDimensionMismatch)
		}
	}
	m.dim = dim
	for _, r := range records {
		order := m.seq
		if prev, ok := m.entries[r.ID]; ok {
			order = prev.order
		} else {
			m.seq++
		}
		r.Embedding = append([]float32(nil), r.Embedding...)
		m.entries[r.ID] = memEntry{record: r, order: order}
	}
	return nil
}

func (m *Memory) Query(ctx context.Context, embedding []float32, k int) ([]Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.entries) == 0 {
		return nil, nil
	}
	if len(embedding) != m.dim {
		return nil, ErrDimensionMismatch
	}
	cands := make([]candidate, 0, len(m.entries))
	for _, e := range m.entries {
		cands = append(cands, candidate{
			match: Match{
				ID:       e.record.ID,
				Content:  e.record.Content,
				Metadata: e.record.Metadata,
				Distance: CosineDistance(embedding, e.record.Embedding),
			},
			order: e.order,
		})
	}
	return nearest(cands, k), nil
}

func (m *Memory) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries), nil
}

func (m *Memory) Recreate(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]memEntry)
	m.seq = 0
	m.dim = 0
	return nil
}

func (m *Memory) All(ctx context.Context) ([]Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cands := make([]candidate, 0, len(m.entries))
	for _, e := range m.entries {
		cands = append(cands, candidate{match: Match{ID: e.record.ID, Content: e.record.Content, Metadata: e.record.Metadata}, order: e.order})
	}
	return nearest(cands, 0), nil
}

func (m *Memory) Close() error { return nil }

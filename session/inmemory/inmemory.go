package inmemory

import (
	"context"
	"sync"
	"time"

	"github.com/mohammad-safakhou/concordance/session/session_models"
)

// Store keeps evaluation records for the life of the process.
type Store struct {
	records map[string]session_models.Record
	next    int64
	mu      sync.RWMutex
}

func NewInMemorySessionStore() *Store {
	return &Store{records: make(map[string]session_models.Record)}
}

func (store *Store) Save(ctx context.Context, rec session_models.Record) (session_models.Record, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.next++
	rec.ID = session_models.SessionID(store.next)
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	store.records[rec.ID] = rec
	return rec, nil
}

func (store *Store) Get(ctx context.Context, id string) (session_models.Record, bool, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()
	rec, ok := store.records[id]
	return rec, ok, nil
}

func (store *Store) Close() error { return nil }

package redis_session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mohammad-safakhou/concordance/session/session_models"
	"github.com/redis/go-redis/v9"
)

// Store persists evaluation records in Redis so they survive restarts and
// can be shared between replicas. Keys:
//
//	{prefix}session_counter      INCR counter for ids
//	{prefix}evaluation:{id}      JSON record
type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisSessionStore wraps client. A zero ttl keeps records forever.
func NewRedisSessionStore(client *redis.Client, prefix string, ttl time.Duration) *Store {
	return &Store{client: client, prefix: prefix, ttl: ttl}
}

func (store *Store) counterKey() string { return store.prefix + "session_counter" }
func (store *Store) recordKey(id string) string { return store.prefix + "evaluation:" + id }

func (store *Store) Save(ctx context.Context, rec session_models.Record) (session_models.Record, error) {
	n, err := store.client.Incr(ctx, store.counterKey()).Result()
	if err != nil {
		return rec, fmt.Errorf("allocate session id: %w", err)
	}
	rec.ID = session_models.SessionID(n)
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return rec, err
	}
	if err := store.client.Set(ctx, store.recordKey(rec.ID), data, store.ttl).Err(); err != nil {
		return rec, fmt.Errorf("save %s: %w", rec.ID, err)
	}
	return rec, nil
}

func (store *Store) Get(ctx context.Context, id string) (session_models.Record, bool, error) {
	var rec session_models.Record
	val, err := store.client.Get(ctx, store.recordKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return rec, false, nil
	}
	if err != nil {
		return rec, false, fmt.Errorf("load %s: %w", id, err)
	}
	if err := json.Unmarshal(val, &rec); err != nil {
		return rec, false, fmt.Errorf("decode %s: %w", id, err)
	}
	return rec, true, nil
}

func (store *Store) Close() error { return store.client.Close() }

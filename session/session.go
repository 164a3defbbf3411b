// Package session tracks evaluation runs and the chat agent attached to each.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/mohammad-safakhou/concordance/config"
	"github.com/mohammad-safakhou/concordance/internal/chat"
	"github.com/mohammad-safakhou/concordance/internal/evaluation"
	"github.com/mohammad-safakhou/concordance/repository/redis_repository"
	"github.com/mohammad-safakhou/concordance/session/inmemory"
	redis_session "github.com/mohammad-safakhou/concordance/session/redis"
	"github.com/mohammad-safakhou/concordance/session/session_models"
)

// ErrNotFound is returned for a session id with no stored evaluation.
var ErrNotFound = errors.New("session not found")

// Store persists evaluation records.
type Store interface {
	Save(ctx context.Context, rec session_models.Record) (session_models.Record, error)
	Get(ctx context.Context, id string) (session_models.Record, bool, error)
	Close() error
}

type StoreType string

const (
	InMemoryStore StoreType = "memory"
	RedisStore    StoreType = "redis"
)

// NewStore opens the record store selected by cfg.Sessions.
func NewStore(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch StoreType(cfg.Sessions) {
	case InMemoryStore, "":
		return inmemory.NewInMemorySessionStore(), nil
	case RedisStore:
		client, err := redis_repository.Conn(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return redis_session.NewRedisSessionStore(client, cfg.Redis.KeyPrefix, 0), nil
	default:
		return nil, fmt.Errorf("unsupported session store: %s", cfg.Sessions)
	}
}

// AgentFactory builds the chat agent for a session's evaluations.
type AgentFactory interface {
	NewAgent(ev evaluation.Evaluations) (*chat.Agent, error)
}

// Registry maps session ids to evaluations and live chat agents. Agents are
// process-local even when records live in Redis.
type Registry struct {
	store   Store
	factory AgentFactory
	logger  *log.Logger

	mu     sync.Mutex
	agents map[string]*chat.Agent
	locks  map[string]*sessionLock
}

// sessionLock is dropped from the registry once nobody holds or waits on it.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func NewRegistry(store Store, factory AgentFactory, logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.New(log.Writer(), "[SESSION] ", log.LstdFlags)
	}
	return &Registry{
		store:   store,
		factory: factory,
		logger:  logger,
		agents:  make(map[string]*chat.Agent),
		locks:   make(map[string]*sessionLock),
	}
}

// Create stores ev under a fresh session id.
func (r *Registry) Create(ctx context.Context, ev evaluation.Evaluations) (string, error) {
	rec, err := r.store.Save(ctx, session_models.Record{Evaluations: ev})
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	r.logger.Printf("created %s", rec.ID)
	return rec.ID, nil
}

func (r *Registry) Evaluation(ctx context.Context, id string) (evaluation.Evaluations, error) {
	rec, ok, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return rec.Evaluations, nil
}

// Agent returns the session's chat agent, building it on first use.
func (r *Registry) Agent(ctx context.Context, id string) (*chat.Agent, error) {
	r.mu.Lock()
	a, ok := r.agents[id]
	r.mu.Unlock()
	if ok {
		return a, nil
	}

	ev, err := r.Evaluation(ctx, id)
	if err != nil {
		return nil, err
	}
	built, err := r.factory.NewAgent(ev)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.agents[id]; ok {
		return a, nil
	}
	r.agents[id] = built
	return built, nil
}

// Reset clears the session's conversation once any in-flight turn is done.
// The evaluation record is kept so the learner can start over.
func (r *Registry) Reset(ctx context.Context, id string) {
	unlock := r.Lock(id)
	defer unlock()
	r.mu.Lock()
	a, ok := r.agents[id]
	r.mu.Unlock()
	if ok {
		a.Reset()
	}
}

// Lock serializes turns of one session and returns the unlock func.
func (r *Registry) Lock(id string) func() {
	r.mu.Lock()
	l, ok := r.locks[id]
	if !ok {
		l = &sessionLock{}
		r.locks[id] = l
	}
	l.refs++
	r.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		r.mu.Lock()
		defer r.mu.Unlock()
		l.refs--
		if l.refs == 0 {
			delete(r.locks, id)
		}
	}
}

// Chat runs one turn for the session while holding its lock.
func (r *Registry) Chat(ctx context.Context, id, message string, webSearchEnabled bool) (chat.Reply, error) {
	unlock := r.Lock(id)
	defer unlock()
	a, err := r.Agent(ctx, id)
	if err != nil {
		return chat.Reply{}, err
	}
	return a.Chat(ctx, message, webSearchEnabled)
}

func (r *Registry) Close() error { return r.store.Close() }

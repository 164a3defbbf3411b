//go:build integration

package redis_session_test

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mohammad-safakhou/concordance/config"
	"github.com/mohammad-safakhou/concordance/internal/evaluation"
	"github.com/mohammad-safakhou/concordance/repository/redis_repository"
	redis_session "github.com/mohammad-safakhou/concordance/session/redis"
	"github.com/mohammad-safakhou/concordance/session/session_models"
)

func startRedis(t *testing.T, ctx context.Context) (testcontainers.Container, config.RedisConfig) {
	t.Helper()
	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
	}
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Fatalf("failed to start redis: %v", err)
	}
	port, err := c.MappedPort(ctx, "6379")
	if err != nil {
		_ = c.Terminate(ctx)
		t.Fatalf("failed to get mapped port: %v", err)
	}
	host, err := c.Host(ctx)
	if err != nil {
		_ = c.Terminate(ctx)
		t.Fatalf("failed to get host: %v", err)
	}
	return c, config.RedisConfig{Host: host, Port: port.Port(), Timeout: 5 * time.Second, KeyPrefix: "it:"}
}

func TestRedisStoreAgainstRealServer(t *testing.T) {
	ctx := context.Background()
	c, cfg := startRedis(t, ctx)
	defer func() { _ = c.Terminate(ctx) }()

	client, err := redis_repository.Conn(ctx, cfg)
	if err != nil {
		t.Fatalf("Conn: %v", err)
	}
	store := redis_session.NewRedisSessionStore(client, cfg.KeyPrefix, time.Hour)
	defer store.Close()

	rec, err := store.Save(ctx, session_models.Record{Evaluations: evaluation.Evaluations{"training_2": {}}})
	if err != nil || rec.ID != "session_1" {
		t.Fatalf("Save: %+v %v", rec, err)
	}
	got, ok, err := store.Get(ctx, rec.ID)
	if err != nil || !ok || len(got.Evaluations) != 1 {
		t.Fatalf("Get: %+v %v %v", got, ok, err)
	}
	if ttl := client.TTL(ctx, cfg.KeyPrefix+"evaluation:"+rec.ID).Val(); ttl <= 0 {
		t.Fatalf("expected ttl on record, got %v", ttl)
	}
}

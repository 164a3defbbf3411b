// Package redis_repository opens Redis connections from configuration.
package redis_repository

import (
	"context"
	"fmt"
	"log"
	"net"

	"github.com/mohammad-safakhou/concordance/config"
	"github.com/redis/go-redis/v9"
)

// Conn dials Redis and verifies the connection with PING.
func Conn(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
		DialTimeout:  cfg.Timeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
		Password:     cfg.Password,
		DB:           cfg.DB,
	})
	log.Printf("redis options -> %s db=%d", client.Options().Addr, cfg.DB)

	pong, err := client.Ping(ctx).Result()
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	if pong != "PONG" {
		_ = client.Close()
		return nil, fmt.Errorf("expected PONG, got %s", pong)
	}
	return client, nil
}

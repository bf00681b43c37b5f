package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cubahno/refbundle/pkg/config"
	"github.com/redis/go-redis/v9"
)

// NewTable creates a table based on configuration.
// It returns nil when caching is disabled.
// If type is redis and the server cannot be reached, an in-memory table is used instead.
func NewTable(cfg *config.CacheConfig, name string) Table {
	if cfg == nil || cfg.Type == "" || cfg.Type == config.CacheTypeNone {
		return nil
	}

	switch cfg.Type {
	case config.CacheTypeMemory:
		return newMemoryTable()
	case config.CacheTypeRedis:
		client, err := newRedisClient(cfg.Redis)
		if err != nil {
			slog.Error("Failed to create Redis table, falling back to memory", "error", err)
			return newMemoryTable()
		}
		return newRedisTable(client, cfg.Prefix, name, cfg.TTL)
	}

	slog.Warn("Unknown cache type, falling back to memory", "type", cfg.Type)
	return newMemoryTable()
}

// newRedisClient creates a client and checks the connection.
func newRedisClient(cfg *config.RedisConfig) (*redis.Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config is nil")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}

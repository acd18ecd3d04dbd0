// Package cache connects the optional Redis instance used for read-mostly lookups.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/worktime/worktime-backend/pkg/config"
	"github.com/worktime/worktime-backend/pkg/logger"
)

// New connects to Redis. It returns a nil client when Redis is disabled so
// callers fall back to reading PostgreSQL directly.
func New(ctx context.Context, cfg *config.RedisConfig, log *logger.Logger) (*redis.Client, error) {
	if !cfg.Enabled {
		log.Info().Msg("redis disabled, holiday lookups go to the database")
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	log.Info().Str("addr", cfg.Addr).Msg("connected to redis")
	return client, nil
}

// Health reports the Redis status for the health endpoint
func Health(ctx context.Context, client *redis.Client) map[string]string {
	if client == nil {
		return map[string]string{"status": "disabled"}
	}
	if err := client.Ping(ctx).Err(); err != nil {
		return map[string]string{"status": "unhealthy", "error": err.Error()}
	}
	return map[string]string{"status": "healthy"}
}

package database

import (
	"context"
	"fmt"
	"time"

	"pinturas-backend/internal/config"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// OpenRedis connects to cfg.RedisAddr and returns the client plus a lock
// client on top of it. Returns nil, nil, nil when no address is configured.
func OpenRedis(ctx context.Context, cfg *config.Config) (*redis.Client, *redislock.Client, error) {
	if cfg.RedisAddr == "" {
		return nil, nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		DB:       0,
		PoolSize: 10,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, nil, fmt.Errorf("ping redis %s: %w", cfg.RedisAddr, err)
	}

	return rdb, redislock.New(rdb), nil
}

package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"session-auth-demo/config"
	"session-auth-demo/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// ErrCacheMiss is returned by Get when the key does not exist or has expired.
// Any other error from a Store means the backend itself failed.
var ErrCacheMiss = errors.New("cache: key not found")

// Store is a byte-oriented key/value store with per-key expiry.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// InitializeCache opens the backend selected by cfg.Store. The redis backend
// is pinged once so a misconfigured address fails at startup, not per request.
func InitializeCache(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Store {
	case config.StoreMemory:
		logger.Info("Using in-memory session store")
		return NewMemoryStore(), nil
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		store := NewRedisStore(client)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("ping redis at %s: %w", cfg.RedisAddr, err)
		}

		logger.Info("Using redis session store", zap.String("addr", cfg.RedisAddr), zap.Int("db", cfg.RedisDB))
		return store, nil
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.Store)
	}
}

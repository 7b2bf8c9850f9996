// Package cache provides query-result cache backends for the SQL
// orchestrator: a Redis-backed cache for deployments and an in-process
// cache for tests and single-node setups.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Redis stores serialized query results in a Redis instance. Entries expire
// after the configured TTL; Invalidate removes every key under a prefix
// with a cursor scan so large keyspaces never block the server.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedis builds a Redis cache. ttlSeconds <= 0 falls back to five
// minutes.
func NewRedis(client *redis.Client, ttlSeconds int, logger *zap.Logger) *Redis {
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := time.Duration(ttlSeconds) * time.Second
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Redis{client: client, ttl: ttl, logger: logger}
}

// Get fetches a cached entry. Transport errors degrade to a miss.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			r.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return raw, true
}

// Set stores an entry with the configured TTL. Failures are logged and
// swallowed; the cache is an optimization, not a source of truth.
func (r *Redis) Set(ctx context.Context, key string, value []byte) {
	if err := r.client.Set(ctx, key, value, r.ttl).Err(); err != nil {
		r.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate deletes every key under the given prefix.
func (r *Redis) Invalidate(ctx context.Context, prefix string) {
	var (
		cursor  uint64
		removed int
	)
	for {
		keys, next, err := r.client.Scan(ctx, cursor, prefix+"*", 100).Result()
		if err != nil {
			r.logger.Warn("cache invalidation scan failed",
				zap.String("prefix", prefix),
				zap.Error(err),
			)
			return
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				r.logger.Warn("cache invalidation delete failed",
					zap.String("prefix", prefix),
					zap.Error(err),
				)
				return
			}
			removed += len(keys)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	r.logger.Debug("cache invalidated",
		zap.String("prefix", prefix),
		zap.Int("keys", removed),
	)
}

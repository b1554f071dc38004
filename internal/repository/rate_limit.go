package repository

import (
	"context"
	"time"

	"mate_chat/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const RateLimitKeyPrefix = "ratelimit:"

// RateLimitRepository counts hits per key inside a fixed window.
type RateLimitRepository interface {
	// Increment atomically counts one hit and returns the total in the
	// current window. Callers compare the result against their limit.
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)
}

type rateLimitRepository struct {
	redis *redis.Client
	log   logger.Logger
}

func NewRateLimitRepository(redis *redis.Client, log logger.Logger) RateLimitRepository {
	return &rateLimitRepository{redis: redis, log: log}
}

func (r *rateLimitRepository) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	key = RateLimitKeyPrefix + key
	count, err := r.redis.Incr(ctx, key).Result()
	if err != nil {
		r.log.Error("Failed to increment rate limit", "error", err)
		return 0, err
	}

	if count == 1 {
		if err := r.redis.Expire(ctx, key, window).Err(); err != nil {
			r.log.Warn("Failed to set rate limit window", "error", err, "key", key)
		}
	}

	return count, nil
}

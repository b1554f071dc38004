package service

import (
	"context"
	"time"

	"mate_chat/internal/repository"
	"mate_chat/pkg/logger"
)

type RateLimitService interface {
	// Allow counts one hit for key and reports whether it fits into limit per
	// window, plus the hits left. Limiter failures let the request through.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, int)
}

type rateLimitService struct {
	rateLimitRepo repository.RateLimitRepository
	log           logger.Logger
}

// NewRateLimitService returns a limiter backed by rateLimitRepo. A nil
// repository disables limiting.
func NewRateLimitService(rateLimitRepo repository.RateLimitRepository, log logger.Logger) RateLimitService {
	return &rateLimitService{
		rateLimitRepo: rateLimitRepo,
		log:           log,
	}
}

func (s *rateLimitService) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, int) {
	if s.rateLimitRepo == nil {
		return true, limit
	}

	// INCR до сравнения: параллельные запросы не проскочат мимо лимита
	count, err := s.rateLimitRepo.Increment(ctx, key, window)
	if err != nil {
		s.log.Error("Rate limit increment failed", "error", err, "key", key)
		return true, limit
	}
	if count > int64(limit) {
		return false, 0
	}

	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return true, remaining
}

package repository

import (
	"context"
	"sync/atomic"
	"time"

	"balemuya/internal/domain"

	"github.com/rs/zerolog"
)

// FailoverCache переключается на резервный кэш при недоступности
// основного и пробует вернуться через минуту.
type FailoverCache struct {
	primary   domain.Cache
	fallback  domain.Cache
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck time.Time
}

func NewFailoverCache(primary, fallback domain.Cache, logger *zerolog.Logger) *FailoverCache {
	return &FailoverCache{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverCache) markDown(err error) {
	r.logger.Error().Err(err).Msg("Primary cache failed, falling back to memory")
	r.isDown.Store(true)
	r.lastCheck = time.Now()
}

func (r *FailoverCache) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !r.isDown.Load() {
		found, err := r.primary.GetJSON(ctx, key, dest)
		if err == nil {
			return found, nil
		}
		r.markDown(err)
	}

	// Try to recover after 1 minute
	if r.isDown.Load() && time.Since(r.lastCheck) > time.Minute {
		found, err := r.primary.GetJSON(ctx, key, dest)
		if err == nil {
			r.isDown.Store(false)
			return found, nil
		}
		r.lastCheck = time.Now()
	}

	return r.fallback.GetJSON(ctx, key, dest)
}

func (r *FailoverCache) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !r.isDown.Load() {
		err := r.primary.SetJSON(ctx, key, value, ttl)
		if err == nil {
			return nil
		}
		r.markDown(err)
	}

	return r.fallback.SetJSON(ctx, key, value, ttl)
}

func (r *FailoverCache) Delete(ctx context.Context, key string) error {
	if !r.isDown.Load() {
		err := r.primary.Delete(ctx, key)
		if err == nil {
			return nil
		}
		r.markDown(err)
	}

	return r.fallback.Delete(ctx, key)
}

func (r *FailoverCache) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if !r.isDown.Load() {
		allowed, err := r.primary.CheckRateLimit(ctx, key, limit, window)
		if err == nil {
			return allowed, nil
		}
		r.markDown(err)
	}

	return r.fallback.CheckRateLimit(ctx, key, limit, window)
}

package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"balemuya/internal/config"

	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	client *redis.Client
}

// NewRedisClient создает новый клиент Redis на основе конфигурации
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	options := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}

	client := redis.NewClient(options)

	return client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (r *RedisCache) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get value from redis: %w", err)
	}

	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached value: %w", err)
	}

	return true, nil
}

func (r *RedisCache) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set value in redis: %w", err)
	}

	return nil
}

func (r *RedisCache) Delete(ctx context.Context, key string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete key from redis: %w", err)
	}
	return nil
}

func (r *RedisCache) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	counterKey := fmt.Sprintf("rate_limit:%s", key)
	count, err := r.client.Incr(ctx, counterKey).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit: %w", err)
	}

	if count == 1 {
		r.client.Expire(ctx, counterKey, window)
	}

	return count <= int64(limit), nil
}

// Ping проверяет соединение с Redis
func Ping(ctx context.Context, client *redis.Client) error {
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}

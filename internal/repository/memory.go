package repository

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

type MemoryCache struct {
	mu         sync.RWMutex
	entries    map[string]memoryEntry
	rateLimits sync.Map
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
	}
}

func (r *MemoryCache) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	r.mu.RLock()
	entry, ok := r.entries[key]
	r.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if time.Now().After(entry.expiresAt) {
		r.mu.Lock()
		delete(r.entries, key)
		r.mu.Unlock()
		return false, nil
	}
	if err := json.Unmarshal(entry.data, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (r *MemoryCache) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.entries[key] = memoryEntry{data: data, expiresAt: time.Now().Add(ttl)}
	r.mu.Unlock()
	return nil
}

func (r *MemoryCache) Delete(ctx context.Context, key string) error {
	r.mu.Lock()
	delete(r.entries, key)
	r.mu.Unlock()
	return nil
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func (r *MemoryCache) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	val, ok := r.rateLimits.Load(key)

	var entry *rateLimitEntry
	if !ok {
		entry = &rateLimitEntry{
			count:     1,
			expiresAt: now.Add(window),
		}
	} else {
		entry = val.(*rateLimitEntry)
		if now.After(entry.expiresAt) {
			entry.count = 1
			entry.expiresAt = now.Add(window)
		} else {
			entry.count++
		}
	}

	r.rateLimits.Store(key, entry)
	return entry.count <= limit, nil
}

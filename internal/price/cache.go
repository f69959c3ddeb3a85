package price

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Cache stores the last known quote. Get reports false when nothing is stored.
type Cache interface {
	Get(ctx context.Context) (Quote, bool, error)
	Set(ctx context.Context, q Quote) error
}

// MemoryCache is a process-local Cache.
type MemoryCache struct {
	mu    sync.RWMutex
	quote Quote
	ok    bool
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{}
}

// Get implements Cache.
func (c *MemoryCache) Get(context.Context) (Quote, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.quote, c.ok, nil
}

// Set implements Cache.
func (c *MemoryCache) Set(_ context.Context, q Quote) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.quote = q
	c.ok = true
	return nil
}

// DefaultRedisKey is the key holding the shared quote.
const DefaultRedisKey = "pump-sniper:price:sol-usd"

// RedisCache shares the quote between processes through Redis.
type RedisCache struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

// NewRedisCache creates a cache storing the quote under key with the given TTL.
// A zero ttl keeps the value until overwritten.
func NewRedisCache(rdb *redis.Client, key string, ttl time.Duration) *RedisCache {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisCache{rdb: rdb, key: key, ttl: ttl}
}

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context) (Quote, bool, error) {
	raw, err := c.rdb.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Quote{}, false, nil
	}
	if err != nil {
		return Quote{}, false, errors.Wrap(err, "redis get quote")
	}

	var q Quote
	if err := json.Unmarshal(raw, &q); err != nil {
		return Quote{}, false, errors.Wrap(err, "decode cached quote")
	}
	return q, true, nil
}

// Set implements Cache.
func (c *RedisCache) Set(ctx context.Context, q Quote) error {
	raw, err := json.Marshal(q)
	if err != nil {
		return errors.Wrap(err, "encode quote")
	}
	if err := c.rdb.Set(ctx, c.key, raw, c.ttl).Err(); err != nil {
		return errors.Wrap(err, "redis set quote")
	}
	return nil
}

var (
	_ Cache = (*MemoryCache)(nil)
	_ Cache = (*RedisCache)(nil)
)

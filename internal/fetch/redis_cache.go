package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces fetch cache keys.
const DefaultRedisPrefix = "legal-indexer:fetch:"

// scanBatch is the SCAN COUNT hint used by Len.
const scanBatch = 500

// RedisCache shares fetched responses between processes. Expiry is left to
// Redis through SET EX.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache wraps a connected client. An empty prefix uses DefaultRedisPrefix.
func NewRedisCache(client *redis.Client, prefix string, ttl time.Duration) *RedisCache {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *RedisCache) key(locator string) string {
	return c.prefix + locator
}

// Get loads and decodes a cached response.
func (c *RedisCache) Get(ctx context.Context, locator string) (*Response, bool, error) {
	data, err := c.client.Get(ctx, c.key(locator)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis cache get: %w", err)
	}

	var resp Response
	if err = json.Unmarshal(data, &resp); err != nil {
		return nil, false, fmt.Errorf("redis cache decode: %w", err)
	}
	return &resp, true, nil
}

// Set encodes and stores resp with the cache TTL.
func (c *RedisCache) Set(ctx context.Context, locator string, resp *Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("redis cache encode: %w", err)
	}
	if err = c.client.Set(ctx, c.key(locator), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis cache set: %w", err)
	}
	return nil
}

// Len counts the keys under the prefix.
func (c *RedisCache) Len(ctx context.Context) (int, error) {
	var (
		cursor uint64
		count  int
	)
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.prefix+"*", scanBatch).Result()
		if err != nil {
			return 0, fmt.Errorf("redis cache scan: %w", err)
		}
		count += len(keys)
		if next == 0 {
			return count, nil
		}
		cursor = next
	}
}

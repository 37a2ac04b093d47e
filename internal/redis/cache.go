package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/rueidis"
)

// Cache is a string key-value store with TTL support.
// Every call is a single round trip; read-modify-write sequences are up to the caller.
type Cache struct {
	client rueidis.Client
}

// NewCache wraps an existing rueidis client.
func NewCache(client rueidis.Client) *Cache {
	return &Cache{client: client}
}

// Get returns the value stored at key. The boolean is false if the key does not exist.
func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := c.client.Do(ctx, c.client.B().Get().Key(key).Build()).ToString()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return "", false, nil
		}

		return "", false, fmt.Errorf("failed to get %s: %w", key, err)
	}

	return value, true, nil
}

// Set stores value at key without an expiry.
func (c *Cache) Set(ctx context.Context, key, value string) error {
	if err := c.client.Do(ctx, c.client.B().Set().Key(key).Value(value).Build()).Error(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}

	return nil
}

// SetWithTTL stores value at key and expires it after ttl.
func (c *Cache) SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := c.client.Do(ctx, c.client.B().Set().Key(key).Value(value).Ex(ttl).Build()).Error(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}

	return nil
}

// Expire sets a time to live on an existing key.
func (c *Cache) Expire(ctx context.Context, key string, ttl time.Duration) error {
	seconds := int64(ttl / time.Second)
	if err := c.client.Do(ctx, c.client.B().Expire().Key(key).Seconds(seconds).Build()).Error(); err != nil {
		return fmt.Errorf("failed to expire %s: %w", key, err)
	}

	return nil
}

// Del removes key if it exists.
func (c *Cache) Del(ctx context.Context, key string) error {
	if err := c.client.Do(ctx, c.client.B().Del().Key(key).Build()).Error(); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}

	return nil
}

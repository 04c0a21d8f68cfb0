package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "temporal"

// Cache stores query responses in Redis as JSON under deterministic
// keys, so identical queries share an entry until it expires.
type Cache struct {
	client *redis.Client
}

// NewCache creates a new query cache
func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Key builds the cache key for an endpoint and its query parameters.
// Parameters are sorted by name so the key does not depend on the
// order they arrived in.
func Key(endpoint string, params map[string]string) string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(keyPrefix)
	b.WriteString(":")
	b.WriteString(endpoint)
	for _, name := range names {
		fmt.Fprintf(&b, ":%s=%s", name, params[name])
	}
	return b.String()
}

// Get loads the cached value for key into dest. Returns false on a miss.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get %s from Redis: %w", key, err)
	}

	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached value for %s: %w", key, err)
	}
	return true, nil
}

// Set stores value under key for ttl.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value for %s: %w", key, err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %s in Redis: %w", key, err)
	}
	return nil
}

// Clear drops every cached query response and returns how many
// entries were removed.
func (c *Cache) Clear(ctx context.Context) (int, error) {
	keys, err := c.client.Keys(ctx, keyPrefix+":*").Result()
	if err != nil {
		return 0, fmt.Errorf("failed to list cache keys: %w", err)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return 0, fmt.Errorf("failed to delete cache keys: %w", err)
	}
	return len(keys), nil
}

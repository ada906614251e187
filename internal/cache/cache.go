package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when a key is absent or expired. Absence is a
// distinguished error, never an empty result.
var ErrNotFound = errors.New("value not found in cache")

// Cache adapts Redis into the ephemeral flow-state store: set with TTL, get,
// delete, and atomic single-use consumption.
type Cache struct {
	client *redis.Client
}

// New wraps an already-connected Redis client.
func New(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// SetString stores a value under the key with the given TTL.
func (c *Cache) SetString(ctx context.Context, key string, ttl time.Duration, value string) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// SetJSON marshals the value and stores it under the key with the given TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, ttl time.Duration, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// GetString fetches the value stored under the key.
func (c *Cache) GetString(ctx context.Context, key string) (string, error) {
	value, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("cache get %s: %w", key, err)
	}
	return value, nil
}

// GetJSON fetches and unmarshals the value stored under the key.
func (c *Cache) GetJSON(ctx context.Context, key string, dest any) error {
	payload, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("cache get %s: %w", key, err)
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return fmt.Errorf("cache decode %s: %w", key, err)
	}
	return nil
}

// ConsumeString atomically fetches and deletes the value under the key.
// Two concurrent consumers of the same key cannot both succeed: the loser
// observes ErrNotFound.
func (c *Cache) ConsumeString(ctx context.Context, key string) (string, error) {
	value, err := c.client.GetDel(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("cache consume %s: %w", key, err)
	}
	return value, nil
}

// ConsumeJSON atomically fetches, deletes, and unmarshals the value under the key.
func (c *Cache) ConsumeJSON(ctx context.Context, key string, dest any) error {
	payload, err := c.client.GetDel(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("cache consume %s: %w", key, err)
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return fmt.Errorf("cache decode %s: %w", key, err)
	}
	return nil
}

// Delete removes the key. Deleting an absent key is a no-op.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("cache delete %s: %w", key, err)
	}
	return nil
}

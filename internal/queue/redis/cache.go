// Package redis provides a Redis implementation of queue.StatsCache.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mediq/patient-queue/internal/pkg/metrics"
	"github.com/redis/go-redis/v9"
)

// Cache stores statistics as JSON under a generation-scoped key.
// Invalidate bumps the generation so every previously stored value becomes
// unreachable and expires with its TTL.
type Cache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewCache creates a new cache. Keys are namespaced with prefix.
func NewCache(client *redis.Client, prefix string, ttl time.Duration) *Cache {
	return &Cache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// Get decodes the value stored under key into dst. It also returns the
// generation it looked in, for a following Set.
func (c *Cache) Get(ctx context.Context, key string, dst any) (bool, string, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		metrics.CacheRequests.WithLabelValues("error").Inc()
		return false, "", err
	}

	raw, err := c.client.Get(ctx, c.key(gen, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.CacheRequests.WithLabelValues("miss").Inc()
		return false, gen, nil
	}
	if err != nil {
		metrics.CacheRequests.WithLabelValues("error").Inc()
		return false, "", fmt.Errorf("get %s: %w", key, err)
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		metrics.CacheRequests.WithLabelValues("error").Inc()
		return false, gen, fmt.Errorf("decode %s: %w", key, err)
	}

	metrics.CacheRequests.WithLabelValues("hit").Inc()
	return true, gen, nil
}

// Set stores value under key in generation gen with the cache TTL. A value
// stored under an outdated generation is never read.
func (c *Cache) Set(ctx context.Context, key, gen string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	if err := c.client.Set(ctx, c.key(gen, key), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Invalidate drops every cached value.
func (c *Cache) Invalidate(ctx context.Context) error {
	if err := c.client.Incr(ctx, c.generationKey()).Err(); err != nil {
		return fmt.Errorf("bump generation: %w", err)
	}
	return nil
}

func (c *Cache) generation(ctx context.Context) (string, error) {
	gen, err := c.client.Get(ctx, c.generationKey()).Result()
	if errors.Is(err, redis.Nil) {
		return "0", nil
	}
	if err != nil {
		return "", fmt.Errorf("get generation: %w", err)
	}
	return gen, nil
}

func (c *Cache) key(gen, key string) string {
	return c.prefix + "stats:" + gen + ":" + key
}

func (c *Cache) generationKey() string {
	return c.prefix + "stats:generation"
}

package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache keeps whole catalog pages in Redis, one key per product type. A nil
// Cache, a nil client or a non-positive TTL disables caching.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a page cache.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) enabled() bool { return c != nil && c.client != nil && c.ttl > 0 }

func pageKey(t BuyableType) string { return "catalog:page:" + string(t) }

// Page returns the cached page of t and whether it was present.
func (c *Cache) Page(ctx context.Context, t BuyableType) ([]Buyable, bool, error) {
	if !c.enabled() {
		return nil, false, nil
	}
	data, err := c.client.Get(ctx, pageKey(t)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get %s: %w", t, err)
	}
	var items []Buyable
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, false, fmt.Errorf("cache decode %s: %w", t, err)
	}
	return items, true, nil
}

// StorePage caches the page of t.
func (c *Cache) StorePage(ctx context.Context, t BuyableType, items []Buyable) error {
	if !c.enabled() {
		return nil
	}
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, pageKey(t), data, c.ttl).Err()
}

// Invalidate drops the cached page of t.
func (c *Cache) Invalidate(ctx context.Context, t BuyableType) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, pageKey(t)).Err()
}

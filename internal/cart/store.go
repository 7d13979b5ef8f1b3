package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store persists carts by owner.
type Store interface {
	Load(ctx context.Context, owner string) (*Cart, error)
	Save(ctx context.Context, owner string, c *Cart) error
	Clear(ctx context.Context, owner string) error
}

// RedisStore keeps each cart as one JSON value. Every save refreshes the TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore constructs a RedisStore; ttl <= 0 defaults to three days.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &RedisStore{client: client, ttl: ttl}
}

func key(owner string) string { return "cart:" + owner }

// Load returns the owner's cart, or an empty one.
func (s *RedisStore) Load(ctx context.Context, owner string) (*Cart, error) {
	data, err := s.client.Get(ctx, key(owner)).Bytes()
	if errors.Is(err, redis.Nil) {
		return &Cart{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cart.Load: %w", err)
	}
	var c Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("cart.Load decode: %w", err)
	}
	return &c, nil
}

func (s *RedisStore) Save(ctx context.Context, owner string, c *Cart) error {
	if c.IsEmpty() {
		return s.Clear(ctx, owner)
	}
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("cart.Save encode: %w", err)
	}
	if err := s.client.Set(ctx, key(owner), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("cart.Save: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, owner string) error {
	if err := s.client.Del(ctx, key(owner)).Err(); err != nil {
		return fmt.Errorf("cart.Clear: %w", err)
	}
	return nil
}

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds configuration for the Redis cache.
type Config struct {
	// Enabled toggles caching; with it off every read goes to the database.
	Enabled bool `mapstructure:"enabled" default:"false"`
	// Addr is the Redis server address.
	Addr string `mapstructure:"addr" default:"localhost:6379"`
	// Password is the Redis password, empty for none.
	Password string `mapstructure:"password" default:""`
	// DB is the Redis database index.
	DB int `mapstructure:"db" default:"0"`
	// TTLSeconds is the default expiry for cached values.
	TTLSeconds int `mapstructure:"ttl_seconds" default:"300"`
}

// ErrMiss is returned by GetJSON when the key is absent.
var ErrMiss = errors.New("cache miss")

// Cache is a small JSON read-through cache. A nil *Cache is valid and
// behaves as always-miss, so callers don't need to branch on whether
// caching is configured.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates a Redis-backed cache, or nil when disabled.
func New(cfg Config) *Cache {
	if !cfg.Enabled {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ttl := time.Duration(cfg.TTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{client: client, ttl: ttl}
}

// GetJSON loads a key and unmarshals it into out. Returns ErrMiss when
// the key does not exist or the cache is disabled.
func (c *Cache) GetJSON(ctx context.Context, key string, out any) error {
	if c == nil {
		return ErrMiss
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// SetJSON marshals value and stores it under key with the default TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, value any) error {
	if c == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, c.ttl).Err()
}

// Invalidate drops a key.
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	if c == nil {
		return nil
	}
	return c.client.Del(ctx, key).Err()
}

// Close releases the underlying client.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}

package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/comunidade-central/accessctl/internal/config"
)

const (
	pingTimeout = 5 * time.Second
	scanCount   = 500
)

// Redis is a cache shared by every instance connected to the same server.
// Keys are namespaced with a prefix so Flush only touches this cache's entries.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis connects to the server in cfg and checks it answers.
func NewRedis(cfg config.Redis, ttl time.Duration) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cache: redis ping failed: %w", err)
	}

	return NewRedisFromClient(client, cfg.KeyPrefix, ttl), nil
}

// NewRedisFromClient wraps an existing client.
func NewRedisFromClient(client *redis.Client, prefix string, ttl time.Duration) *Redis {
	return &Redis{client: client, prefix: prefix, ttl: ttl}
}

func (r *Redis) key(k string) string {
	return r.prefix + k
}

// Get implements Cache.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}

	if err != nil {
		return nil, false, fmt.Errorf("cache: redis get: %w", err)
	}

	return b, true, nil
}

// Set implements Cache.
func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, r.key(key), value, r.ttl).Err(); err != nil {
		return fmt.Errorf("cache: redis set: %w", err)
	}

	return nil
}

// Delete implements Cache.
func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.key(k)
	}

	if err := r.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("cache: redis del: %w", err)
	}

	return nil
}

// Flush implements Cache. It scans the prefix instead of flushing the database.
func (r *Redis) Flush(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, r.prefix+"*", scanCount).Iterator()

	var batch []string

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanCount {
			if err := r.client.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("cache: redis del: %w", err)
			}

			batch = batch[:0]
		}
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache: redis scan: %w", err)
	}

	if len(batch) > 0 {
		if err := r.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("cache: redis del: %w", err)
		}
	}

	return nil
}

// Close implements Cache.
func (r *Redis) Close() error {
	return r.client.Close()
}

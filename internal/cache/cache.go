// Package cache stores resolved grants between decisions.
//
// Two backends are available: an in-process cache for a single instance and
// redis for several instances sharing one database.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/comunidade-central/accessctl/internal/config"
)

const (
	// BackendMemory keeps entries in the process.
	BackendMemory = "memory"
	// BackendRedis keeps entries in a redis server.
	BackendRedis = "redis"
)

// ErrUnknownBackend is returned for a backend other than memory or redis.
var ErrUnknownBackend = errors.New("unknown cache backend")

// Cache is a byte store with a fixed entry lifetime.
type Cache interface {
	// Get returns the value of key. ok is false on a miss.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Set stores value under key for the configured TTL.
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes keys. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error
	// Flush removes every entry owned by this cache.
	Flush(ctx context.Context) error
	// Close releases the backend.
	Close() error
}

// New creates the cache selected by cfg.
func New(cfg config.Cache) (Cache, error) {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 5 * time.Second
	}

	switch cfg.Backend {
	case BackendMemory, "":
		return NewMemory(ttl), nil
	case BackendRedis:
		return NewRedis(cfg.Redis, ttl)
	default:
		return nil, ErrUnknownBackend
	}
}

package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Memory is an in-process cache.
type Memory struct {
	c *gocache.Cache
}

// NewMemory creates an in-process cache whose entries live for ttl.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{c: gocache.New(ttl, time.Minute)}
}

// Get implements Cache.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.c.Get(key)
	if !ok {
		return nil, false, nil
	}

	b, ok := v.([]byte)

	return b, ok, nil
}

// Set implements Cache.
func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.c.SetDefault(key, value)
	return nil
}

// Delete implements Cache.
func (m *Memory) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		m.c.Delete(k)
	}

	return nil
}

// Flush implements Cache.
func (m *Memory) Flush(context.Context) error {
	m.c.Flush()
	return nil
}

// Close implements Cache.
func (m *Memory) Close() error {
	m.c.Flush()
	return nil
}

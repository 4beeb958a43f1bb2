package cachestore

import (
	"context"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/agar-cache/agar/pkg/errors"
)

// Memcached is a CacheStore backed by a shared memcached server, selected when
// memcached.server is configured in place of the default in-process store.
type Memcached struct {
	client *memcache.Client
}

// NewMemcached dials the given memcached server address (host:port).
func NewMemcached(server string) *Memcached {
	return &Memcached{client: memcache.New(server)}
}

// Get returns the cached bytes for key. A memcache.ErrCacheMiss is reported as a
// plain miss, not an error.
func (m *Memcached) Get(ctx context.Context, key string) ([]byte, bool, error) {
	item, err := m.client.Get(key)
	if err == memcache.ErrCacheMiss {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.NewError(errors.ErrCodeTransientStore, "memcached get failed").
			WithComponent("cachestore").WithOperation("Get").WithCause(err)
	}
	return item.Value, true, nil
}

// Put stores value under key with no expiration; the store may still evict
// under its own memory pressure since no TTL or size semantics are assumed by
// the core.
func (m *Memcached) Put(ctx context.Context, key string, value []byte) error {
	err := m.client.Set(&memcache.Item{Key: key, Value: value})
	if err != nil {
		return errors.NewError(errors.ErrCodeTransientStore, "memcached set failed").
			WithComponent("cachestore").WithOperation("Put").WithCause(err)
	}
	return nil
}

// HealthCheck probes the memcached server with a Get for a sentinel key. A
// cache miss still proves the server answered; any other error (connection
// refused, timeout) is reported as unhealthy.
func (m *Memcached) HealthCheck(ctx context.Context) error {
	_, err := m.client.Get("__agar_healthcheck__")
	if err == nil || err == memcache.ErrCacheMiss {
		return nil
	}
	return errors.NewError(errors.ErrCodeTransientStore, "memcached health check failed").
		WithComponent("cachestore").WithOperation("HealthCheck").WithCause(err)
}

// Close is a no-op; the memcache client owns no persistent connections to drain.
func (m *Memcached) Close() error { return nil }

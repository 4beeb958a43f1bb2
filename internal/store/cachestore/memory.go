// Package cachestore implements the CacheStore connection adapter (§4.4): a
// single-node key/value memory store of opaque byte arrays keyed by the block key
// K ∥ i. The core assumes no size or TTL semantics; eviction, if any, is the
// store's own business.
package cachestore

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/agar-cache/agar/pkg/types"
)

// MemoryConfig configures the in-process LRU cache store.
type MemoryConfig struct {
	MaxBytes int64
	TTL      time.Duration
}

type entry struct {
	key        string
	data       []byte
	size       int64
	storedAt   time.Time
	accessedAt time.Time
	accesses   int64
	element    *list.Element
}

// Memory is a thread-safe, LRU in-process CacheStore implementation, adapted
// from the teacher's LRU block cache: least-recently-used items are evicted
// first when MaxBytes is exceeded. Per-entry access counts are recorded but
// play no part in eviction.
type Memory struct {
	mu          sync.RWMutex
	items       map[string]*entry
	evictList   *list.List
	currentSize int64
	config      MemoryConfig
	misses      uint64 // mutex-guarded, unlike the shared-across-goroutines types.CacheStats
}

// NewMemory builds an in-process cache store bounded to config.MaxBytes (0 means
// unbounded).
func NewMemory(config MemoryConfig) *Memory {
	return &Memory{
		items:     make(map[string]*entry),
		evictList: list.New(),
		config:    config,
	}
}

// Get returns the cached bytes for key, or ok=false on a miss or expiry.
func (m *Memory) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, exists := m.items[key]
	if !exists {
		m.misses++
		return nil, false, nil
	}

	if m.isExpired(e) {
		m.removeLocked(key)
		m.misses++
		return nil, false, nil
	}

	e.accessedAt = time.Now()
	e.accesses++
	m.evictList.MoveToFront(e.element)

	out := make([]byte, len(e.data))
	copy(out, e.data)
	return out, true, nil
}

// Put stores value under key, evicting least-recently-used entries if MaxBytes
// would otherwise be exceeded. Last writer wins; repeated identical writes are
// idempotent.
func (m *Memory) Put(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	size := int64(len(value))

	if e, exists := m.items[key]; exists {
		m.currentSize -= e.size
		e.data = append([]byte(nil), value...)
		e.size = size
		e.storedAt = time.Now()
		e.accessedAt = time.Now()
		e.accesses++
		m.currentSize += size
		m.evictList.MoveToFront(e.element)
		m.evictIfNeeded()
		return nil
	}

	e := &entry{
		key:        key,
		data:       append([]byte(nil), value...),
		size:       size,
		storedAt:   time.Now(),
		accessedAt: time.Now(),
		accesses:   1,
	}
	e.element = m.evictList.PushFront(e)
	m.items[key] = e
	m.currentSize += size

	m.evictIfNeeded()
	return nil
}

// HealthCheck always succeeds: the in-process store has no external
// dependency to fail against.
func (m *Memory) HealthCheck(ctx context.Context) error { return nil }

// Close is a no-op for the in-process store; it satisfies types.CacheStore.
func (m *Memory) Close() error { return nil }

// Stats returns a snapshot whose CacheMisses holds the store's miss count; hits
// and partial hits are not counted by the store and stay zero. Size reports the
// current byte size.
func (m *Memory) Stats() types.CacheStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var snap types.CacheStats
	snap.CacheMisses.Store(m.misses)
	return snap
}

// Size returns the current total size in bytes of all cached entries.
func (m *Memory) Size() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentSize
}

func (m *Memory) isExpired(e *entry) bool {
	if m.config.TTL == 0 {
		return false
	}
	return time.Since(e.storedAt) > m.config.TTL
}

func (m *Memory) removeLocked(key string) {
	e, exists := m.items[key]
	if !exists {
		return
	}
	m.evictList.Remove(e.element)
	delete(m.items, key)
	m.currentSize -= e.size
}

func (m *Memory) evictIfNeeded() {
	if m.config.MaxBytes <= 0 {
		return
	}
	for m.currentSize > m.config.MaxBytes && m.evictList.Len() > 0 {
		back := m.evictList.Back()
		if back == nil {
			break
		}
		e := back.Value.(*entry)
		m.removeLocked(e.key)
	}
}

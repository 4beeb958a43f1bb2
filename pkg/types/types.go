package types

import (
	"sync/atomic"
	"time"

	"github.com/agar-cache/agar/internal/config"
)

// Origin identifies whether a fetched block came from the cache or a backend region.
type Origin int

const (
	OriginCache Origin = iota
	OriginBackend
)

func (o Origin) String() string {
	switch o {
	case OriginCache:
		return "cache"
	case OriginBackend:
		return "backend"
	default:
		return "unknown"
	}
}

// BlockEnvelope is the transient, per-read record of one fetched erasure-coded block.
type BlockEnvelope struct {
	BaseKey string
	Index   int
	Bytes   []byte
	Origin  Origin
}

// Recipe is the proxy-assigned cached-block count for a key: blocks 0..CachedBlocks-1
// are expected to currently reside in the cache.
type Recipe struct {
	Key          string
	CachedBlocks int
}

// PopularityRecord tracks the decayed access weight for one key.
type PopularityRecord struct {
	Key     string
	Weight  float64
	Updated time.Time
}

// CacheStats are the three mutually-exclusive read-outcome counters, injected through
// the client constructor rather than held as package globals. Read is invoked
// concurrently by many workload goroutines sharing one *Client (§4.3), so the
// counters are atomic.Uint64 rather than plain uint64 fields.
type CacheStats struct {
	CacheHits        atomic.Uint64
	CacheMisses      atomic.Uint64
	CachePartialHits atomic.Uint64
}

// Total returns the number of completed reads accounted for so far.
func (s *CacheStats) Total() uint64 {
	return s.CacheHits.Load() + s.CacheMisses.Load() + s.CachePartialHits.Load()
}

// Snapshot returns the current counter values as plain uint64s, e.g. for
// logging a final benchmark summary.
func (s *CacheStats) Snapshot() (hits, misses, partialHits uint64) {
	return s.CacheHits.Load(), s.CacheMisses.Load(), s.CachePartialHits.Load()
}

// HealthStatus represents the health status of one component (a backend region, the
// cache store, the proxy connection).
type HealthStatus struct {
	Status     string            `json:"status"`
	LastCheck  time.Time         `json:"last_check"`
	Response   time.Duration     `json:"response_time"`
	ErrorCount int64             `json:"error_count"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details"`
}

// ConnectionStats represents connection pool statistics for a per-region backend store.
type ConnectionStats struct {
	Active      int           `json:"active"`
	Idle        int           `json:"idle"`
	Total       int           `json:"total"`
	MaxOpen     int           `json:"max_open"`
	Lifetime    time.Duration `json:"lifetime"`
	IdleTimeout time.Duration `json:"idle_timeout"`
}

// Configuration type aliases, re-exported from internal/config so callers that only
// need the top-level type do not need to import the config package directly.
type (
	Configuration = config.Configuration
	LonghairConfig = config.LonghairConfig
	S3Config       = config.S3Config
	MemcachedConfig = config.MemcachedConfig
	ExecutorConfig  = config.ExecutorConfig
	ProxyConfig     = config.ProxyConfig
	CacheConfig     = config.CacheConfig
	AllocatorConfig = config.AllocatorConfig
	MonitoringConfig = config.MonitoringConfig
	LoggingConfig    = config.LoggingConfig
)

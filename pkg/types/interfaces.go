package types

import (
	"context"
	"time"
)

// Codec is the erasure-coding collaborator: a pure function pair encode/decode.
type Codec interface {
	// Encode splits data into k+m blocks indexed 0..k+m-1.
	Encode(data []byte) (map[int][]byte, error)
	// Decode reconstructs the original bytes from >= k of the blocks. No partial decoding.
	Decode(blocks map[int][]byte) ([]byte, error)
	K() int
	M() int
}

// CacheStore is the single-node key/value memory store consulted by the read engine.
// Eviction, if any, is the store's own business; the core assumes no size or TTL semantics.
type CacheStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	HealthCheck(ctx context.Context) error
	Close() error
}

// BackendStore is a per-region blob store of opaque byte arrays keyed by string.
type BackendStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	HealthCheck(ctx context.Context) error
	Close() error
}

// BackendRegions routes a block index to its owning region (i mod R) across
// the k+m configured backend stores. internal/store/backendstore.Multi is the
// concrete binding.
type BackendRegions interface {
	Region(i int) BackendStore
	R() int
	HealthCheck(ctx context.Context) error
	Close() error
}

// ProxyClient requests the current recipe for a key from the proxy's recipe server.
type ProxyClient interface {
	RequestRecipe(ctx context.Context, key string) (cachedBlocks int, err error)
	Close() error
}

// MetricsCollector defines the metrics collection interface implemented by internal/metrics.
type MetricsCollector interface {
	RecordReadOutcome(outcome string)
	RecordAllocatorAssignment(totalAssigned int)
	RecordRecipeRequest()
	RecordBackendLatency(region string, d time.Duration, success bool)
	GetMetrics() map[string]interface{}
}

// HealthChecker defines health monitoring interface.
type HealthChecker interface {
	Check(ctx context.Context) HealthStatus
	RegisterCheck(name string, check func(context.Context) error)
	GetStatus() map[string]HealthStatus
}

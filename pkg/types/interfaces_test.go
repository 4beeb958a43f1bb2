package types

import (
	"context"
	"testing"
	"time"
)

// TestInterfaces verifies that our interfaces are properly structured.
func TestInterfaces(t *testing.T) {
	var (
		_ Codec           = (*mockCodec)(nil)
		_ CacheStore       = (*mockCacheStore)(nil)
		_ BackendStore     = (*mockBackendStore)(nil)
		_ BackendRegions   = (*mockBackendRegions)(nil)
		_ ProxyClient      = (*mockProxyClient)(nil)
		_ MetricsCollector = (*mockMetricsCollector)(nil)
		_ HealthChecker    = (*mockHealthChecker)(nil)
	)
}

type mockCodec struct{}

func (m *mockCodec) Encode(data []byte) (map[int][]byte, error)   { return nil, nil }
func (m *mockCodec) Decode(blocks map[int][]byte) ([]byte, error) { return nil, nil }
func (m *mockCodec) K() int                                       { return 4 }
func (m *mockCodec) M() int                                       { return 2 }

type mockCacheStore struct{}

func (m *mockCacheStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, nil
}
func (m *mockCacheStore) Put(ctx context.Context, key string, value []byte) error { return nil }
func (m *mockCacheStore) HealthCheck(ctx context.Context) error                   { return nil }
func (m *mockCacheStore) Close() error                                            { return nil }

type mockBackendStore struct{}

func (m *mockBackendStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, nil
}
func (m *mockBackendStore) HealthCheck(ctx context.Context) error { return nil }
func (m *mockBackendStore) Close() error                          { return nil }

type mockBackendRegions struct{}

func (m *mockBackendRegions) Region(i int) BackendStore      { return &mockBackendStore{} }
func (m *mockBackendRegions) R() int                         { return 1 }
func (m *mockBackendRegions) HealthCheck(ctx context.Context) error { return nil }
func (m *mockBackendRegions) Close() error                   { return nil }

type mockProxyClient struct{}

func (m *mockProxyClient) RequestRecipe(ctx context.Context, key string) (int, error) {
	return 0, nil
}
func (m *mockProxyClient) Close() error { return nil }

type mockMetricsCollector struct{}

func (m *mockMetricsCollector) RecordReadOutcome(outcome string)            {}
func (m *mockMetricsCollector) RecordAllocatorAssignment(totalAssigned int) {}
func (m *mockMetricsCollector) RecordRecipeRequest()                       {}
func (m *mockMetricsCollector) RecordBackendLatency(region string, d time.Duration, success bool) {
}
func (m *mockMetricsCollector) GetMetrics() map[string]interface{} { return nil }

type mockHealthChecker struct{}

func (m *mockHealthChecker) Check(ctx context.Context) HealthStatus                        { return HealthStatus{} }
func (m *mockHealthChecker) RegisterCheck(name string, check func(context.Context) error) {}
func (m *mockHealthChecker) GetStatus() map[string]HealthStatus                            { return nil }

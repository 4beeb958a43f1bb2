// Package metrics exposes the read-outcome, allocator-assignment, and
// per-region backend metrics consumed by the admin /metrics surface, backed
// by a Prometheus registry.
package metrics

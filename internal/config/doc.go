// Package config loads and validates the proxy/client configuration: erasure-code
// parameters, per-region backend stores, the cache store binding, worker pool size,
// the proxy's recipe-server endpoint, the cache budget, and allocator tuning. YAML
// is the primary source, with AGAR_-prefixed environment variables as overrides.
package config

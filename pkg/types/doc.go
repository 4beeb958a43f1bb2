// Package types defines the data model and connection-adapter interfaces shared between
// the proxy (allocator, recipe server) and the client (read engine): block envelopes,
// recipes, popularity records, and the Codec/CacheStore/BackendStore/ProxyClient contracts.
package types

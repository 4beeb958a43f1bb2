// Package client implements the read engine (§4.3): for a given key, races
// cache and backend fetches per block, stops at k-quorum, decodes, and
// schedules background cache repairs restricted to the recipe prefix.
package client

import (
	"context"
	"time"

	"github.com/agar-cache/agar/pkg/errors"
	"github.com/agar-cache/agar/pkg/types"
	"github.com/agar-cache/agar/pkg/utils"
)

// Config tunes the read engine's timeouts and worker pool size.
type Config struct {
	K, M         int
	Threads      int
	ProxyTimeout time.Duration // T1, default 200ms
	FetchTimeout time.Duration // T2, default 2s
}

func (c Config) withDefaults() Config {
	if c.Threads <= 0 {
		c.Threads = 5
	}
	if c.ProxyTimeout <= 0 {
		c.ProxyTimeout = 200 * time.Millisecond
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 2 * time.Second
	}
	return c
}

// Client is the erasure-coded read engine: Read(ctx, key) races cache and
// backend fetches for every block, reconstructs the object once k blocks
// arrive, and repairs the cache in the background.
type Client struct {
	cfg    Config
	codec  types.Codec
	cache  types.CacheStore
	proxy  types.ProxyClient
	logger *utils.StructuredLogger
	stats  *types.CacheStats
	metrics types.MetricsCollector

	regions types.BackendRegions

	pool chan struct{} // buffered semaphore, size cfg.Threads
}

// New builds a read engine. stats is injected (not a package global) so tests
// can assert on its fields directly. regions routes block index i to region i
// mod R via the BackendRegions adapter (internal/store/backendstore.Multi).
func New(cfg Config, codec types.Codec, cache types.CacheStore, proxy types.ProxyClient, regions types.BackendRegions, stats *types.CacheStats, metrics types.MetricsCollector, logger *utils.StructuredLogger) *Client {
	cfg = cfg.withDefaults()
	if stats == nil {
		stats = &types.CacheStats{}
	}
	return &Client{
		cfg:     cfg,
		codec:   codec,
		cache:   cache,
		proxy:   proxy,
		regions: regions,
		stats:   stats,
		metrics: metrics,
		logger:  logger,
		pool:    make(chan struct{}, cfg.Threads),
	}
}

// Stats returns the injected counters.
func (c *Client) Stats() *types.CacheStats { return c.stats }

type fetchResult struct {
	index  int
	bytes  []byte
	origin types.Origin
	err    error
}

// Read obtains k distinct blocks for key as fast as possible, reconstructs the
// object, and repairs cache state in the background.
func (c *Client) Read(ctx context.Context, key string) ([]byte, error) {
	cachedBlocks := c.requestRecipe(ctx, key)

	total := c.cfg.K + c.cfg.M
	resultCh := make(chan fetchResult, total)

	taskCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	for i := 0; i < total; i++ {
		go func(idx int) {
			c.fetchBlock(taskCtx, key, idx, cachedBlocks, resultCh)
		}(i)
	}

	blocks := make(map[int][]byte)
	origins := make(map[int]types.Origin)
	successes, failures := 0, 0

	for successes < c.cfg.K && failures <= c.cfg.M {
		select {
		case res := <-resultCh:
			if res.err != nil {
				failures++
				continue
			}
			blocks[res.index] = res.bytes
			origins[res.index] = res.origin
			successes++
		case <-ctx.Done():
			cancel()
			c.incrementMiss()
			return nil, errors.NewError(errors.ErrCodeCancelled, "read cancelled").
				WithComponent("client").WithOperation("Read")
		}
	}

	cancel() // best-effort: stop any still-running fetches

	if successes < c.cfg.K {
		c.incrementMiss()
		return nil, errors.NewError(errors.ErrCodeQuorumLost, "fewer than k blocks fetched").
			WithComponent("client").WithOperation("Read").
			WithDetail("successes", successes).WithDetail("k", c.cfg.K)
	}

	decoded, err := c.codec.Decode(blocks)
	if err != nil {
		if c.logger != nil {
			c.logger.Error("decode failed despite quorum", map[string]interface{}{"key": key, "error": err.Error()})
		}
		c.incrementMiss()
		return nil, errors.NewError(errors.ErrCodeDecodeFailed, "codec rejected a quorum block set").
			WithComponent("client").WithOperation("Read").WithCause(err)
	}

	fromCache, fromBackend := 0, 0
	for _, o := range origins {
		if o == types.OriginCache {
			fromCache++
		} else {
			fromBackend++
		}
	}

	c.repair(key, blocks, origins, cachedBlocks)
	c.accountOutcome(fromCache, fromBackend)

	if c.metrics != nil {
		c.metrics.RecordReadOutcome(outcomeLabel(fromCache, fromBackend))
	}

	return decoded, nil
}

func (c *Client) requestRecipe(ctx context.Context, key string) int {
	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.ProxyTimeout)
	defer cancel()

	cachedBlocks, err := c.proxy.RequestRecipe(reqCtx, key)
	if err != nil {
		if c.logger != nil {
			c.logger.Debug("proxy unreachable, proceeding with c=0", map[string]interface{}{"key": key, "error": err.Error()})
		}
		if c.metrics != nil {
			c.metrics.RecordRecipeRequest()
		}
		return 0
	}
	if c.metrics != nil {
		c.metrics.RecordRecipeRequest()
	}
	return cachedBlocks
}

// fetchBlock implements one task of §4.3 step 2: try cache first if i < c,
// else (or on miss) fall through to the backend for region i mod R.
func (c *Client) fetchBlock(ctx context.Context, key string, index, cachedBlocks int, out chan<- fetchResult) {
	select {
	case c.pool <- struct{}{}:
		defer func() { <-c.pool }()
	case <-ctx.Done():
		out <- fetchResult{index: index, err: ctx.Err()}
		return
	}

	blockKey := blockKey(key, index)

	taskCtx, cancel := context.WithTimeout(ctx, c.cfg.FetchTimeout)
	defer cancel()

	if index < cachedBlocks && c.cache != nil {
		if data, ok, err := c.cache.Get(taskCtx, blockKey); err == nil && ok {
			out <- fetchResult{index: index, bytes: data, origin: types.OriginCache}
			return
		}
	}

	if c.regions == nil || c.regions.R() == 0 {
		out <- fetchResult{index: index, err: errors.NewError(errors.ErrCodeTransientStore, "no backend regions configured")}
		return
	}

	region := c.regions.Region(index)
	data, ok, err := region.Get(taskCtx, blockKey)
	if err != nil || !ok {
		if err == nil {
			err = errors.NewError(errors.ErrCodeTransientStore, "backend block not found").
				WithComponent("client").WithDetail("block_key", blockKey)
		}
		out <- fetchResult{index: index, err: err}
		return
	}

	out <- fetchResult{index: index, bytes: data, origin: types.OriginBackend}
}

// repair submits up to `missing` background writes of BACKEND-origin blocks
// into the cache, walking the successful set from the highest index downward
// and restricted to i < c. Fixes the source bug where the tail-walk was not
// filtered by the recipe prefix.
func (c *Client) repair(key string, blocks map[int][]byte, origins map[int]types.Origin, cachedBlocks int) {
	if c.cache == nil || cachedBlocks == 0 {
		return
	}

	fromCache := 0
	for _, o := range origins {
		if o == types.OriginCache {
			fromCache++
		}
	}
	missing := cachedBlocks - fromCache
	if missing <= 0 {
		return
	}

	indices := make([]int, 0, len(blocks))
	for i := range blocks {
		indices = append(indices, i)
	}
	sortDesc(indices)

	submitted := 0
	for _, i := range indices {
		if submitted >= missing {
			break
		}
		if i >= cachedBlocks {
			continue
		}
		if origins[i] != types.OriginBackend {
			continue
		}

		data := blocks[i]
		bk := blockKey(key, i)
		go func(k string, v []byte) {
			ctx, cancel := context.WithTimeout(context.Background(), c.cfg.FetchTimeout)
			defer cancel()
			if err := c.cache.Put(ctx, k, v); err != nil && c.logger != nil {
				c.logger.Debug("background repair failed", map[string]interface{}{"key": k, "error": err.Error()})
			}
		}(bk, data)
		submitted++
	}
}

func (c *Client) accountOutcome(fromCache, fromBackend int) {
	switch {
	case fromCache == c.cfg.K:
		c.stats.CacheHits.Add(1)
	case fromCache > 0 && fromBackend > 0:
		c.stats.CachePartialHits.Add(1)
	default:
		c.stats.CacheMisses.Add(1)
	}
}

func (c *Client) incrementMiss() {
	c.stats.CacheMisses.Add(1)
	if c.metrics != nil {
		c.metrics.RecordReadOutcome("miss")
	}
}

func outcomeLabel(fromCache, fromBackend int) string {
	switch {
	case fromBackend == 0:
		return "hit"
	case fromCache > 0:
		return "partial_hit"
	default:
		return "miss"
	}
}

// Close releases the proxy connection, the cache store, and every backend
// region's store.
func (c *Client) Close() error {
	var first error
	if c.proxy != nil {
		if err := c.proxy.Close(); err != nil && first == nil {
			first = err
		}
	}
	if c.cache != nil {
		if err := c.cache.Close(); err != nil && first == nil {
			first = err
		}
	}
	if c.regions != nil {
		if err := c.regions.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func sortDesc(s []int) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] < s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// Command client is a small YCSB-flavored benchmark driver: it loads
// configuration, constructs the read engine, runs a configurable number of
// reads against a synthetic key distribution, and prints the final
// hit/miss/partial-hit counters at cleanup.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/agar-cache/agar/internal/client"
	"github.com/agar-cache/agar/internal/codec"
	"github.com/agar-cache/agar/internal/config"
	"github.com/agar-cache/agar/internal/metrics"
	"github.com/agar-cache/agar/internal/proxy"
	"github.com/agar-cache/agar/internal/store/backendstore"
	"github.com/agar-cache/agar/internal/store/cachestore"
	"github.com/agar-cache/agar/pkg/health"
	"github.com/agar-cache/agar/pkg/types"
	"github.com/agar-cache/agar/pkg/utils"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML configuration file")
	numKeys := flag.Int("keys", 10, "number of distinct synthetic keys to read")
	numReads := flag.Int("reads", 100, "total number of reads to issue")
	cacheBytes := flag.String("cache-bytes", "256MB", "in-process cache capacity, e.g. 256MB")
	flag.Parse()

	maxBytes, err := utils.ParseBytes(*cacheBytes)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -cache-bytes: %v\n", err)
		os.Exit(1)
	}

	cfg := config.NewDefault()
	if *configPath != "" {
		if err := cfg.LoadFromFile(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			os.Exit(1)
		}
	}
	if err := cfg.LoadFromEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "load config overrides: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	level, err := utils.ParseLogLevel(cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewStructuredLogger(&utils.StructuredLoggerConfig{
		Level:  level,
		Output: os.Stdout,
		Format: utils.FormatText,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "build logger: %v\n", err)
		os.Exit(1)
	}
	logger = logger.WithComponent("client")

	rsCodec, err := codec.New(cfg.Longhair.K, cfg.Longhair.M)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build codec: %v\n", err)
		os.Exit(1)
	}

	var cache types.CacheStore
	if cfg.Memcached.Server != "" {
		cache = cachestore.NewMemcached(cfg.Memcached.Server)
	} else {
		cache = cachestore.NewMemory(cachestore.MemoryConfig{MaxBytes: maxBytes})
		logger.Info("in-process cache store ready", map[string]interface{}{"capacity": utils.FormatBytes(maxBytes)})
	}
	defer cache.Close()

	ctx := context.Background()
	regions, err := buildRegions(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build backend regions: %v\n", err)
		os.Exit(1)
	}
	defer regions.Close()

	proxyClient, err := proxy.DialRPCClient(cfg.Proxy.Host, cfg.Proxy.Port, 200*time.Millisecond)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dial proxy: %v\n", err)
		os.Exit(1)
	}
	defer proxyClient.Close()

	healthTracker := health.NewTracker(health.DefaultConfig())
	healthTracker.RegisterComponent("cache-store")
	healthTracker.RegisterComponent("backend-regions")

	healthCtx, stopHealthChecks := context.WithCancel(context.Background())
	defer stopHealthChecks()
	go healthTracker.StartHealthChecks(healthCtx, func(component string) error {
		switch component {
		case "cache-store":
			return cache.HealthCheck(healthCtx)
		case "backend-regions":
			return regions.HealthCheck(healthCtx)
		default:
			return nil
		}
	})

	var metricsCollector *metrics.Collector
	if cfg.Monitoring.MetricsEnabled {
		metricsCollector, err = metrics.NewCollector(&metrics.Config{Enabled: true})
		if err != nil {
			fmt.Fprintf(os.Stderr, "build metrics collector: %v\n", err)
			os.Exit(1)
		}
	} else {
		metricsCollector, _ = metrics.NewCollector(&metrics.Config{Enabled: false})
	}

	stats := &types.CacheStats{}
	readEngine := client.New(client.Config{
		K:       cfg.Longhair.K,
		M:       cfg.Longhair.M,
		Threads: cfg.Executor.Threads,
	}, rsCodec, cache, proxyClient, regions, stats, metricsCollector, logger)
	defer readEngine.Close()

	keys := syntheticKeys(*numKeys)

	logger.Info("benchmark starting", map[string]interface{}{"keys": *numKeys, "reads": *numReads})

	start := time.Now()
	for i := 0; i < *numReads; i++ {
		key := keys[i%len(keys)]
		if _, err := readEngine.Read(ctx, key); err != nil {
			logger.Error("read failed", map[string]interface{}{"key": key, "error": err.Error()})
		}
	}
	elapsed := time.Since(start)

	hits, misses, partialHits := stats.Snapshot()
	fmt.Printf("reads=%d elapsed=%s hits=%d partial_hits=%d misses=%d\n",
		stats.Total(), elapsed, hits, partialHits, misses)
}

func buildRegions(ctx context.Context, cfg *config.Configuration) (*backendstore.Multi, error) {
	if len(cfg.S3.Regions) == 0 {
		return nil, fmt.Errorf("no backend regions configured")
	}
	regions := make([]types.BackendStore, 0, len(cfg.S3.Regions))
	for i, region := range cfg.S3.Regions {
		store, err := backendstore.NewS3Store(ctx, backendstore.Config{
			Region:   region,
			Endpoint: cfg.S3.Endpoints[i],
			Bucket:   cfg.S3.Buckets[i],
		})
		if err != nil {
			return nil, fmt.Errorf("region %s: %w", region, err)
		}
		regions = append(regions, store)
	}
	return backendstore.NewMulti(regions), nil
}

func syntheticKeys(n int) []string {
	keys := make([]string, n)
	for i := range keys {
		keys[i] = fmt.Sprintf("bench-%d-object", i)
	}
	return keys
}

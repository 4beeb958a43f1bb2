// Command proxy runs the recipe server: the adaptive allocator, the UDP
// recipe protocol listener, the admin HTTP surface, and the Prometheus
// metrics endpoint.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agar-cache/agar/internal/admin"
	"github.com/agar-cache/agar/internal/allocator"
	"github.com/agar-cache/agar/internal/config"
	"github.com/agar-cache/agar/internal/metrics"
	"github.com/agar-cache/agar/internal/proxy"
	"github.com/agar-cache/agar/pkg/health"
	"github.com/agar-cache/agar/pkg/status"
	"github.com/agar-cache/agar/pkg/utils"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML configuration file")
	flag.Parse()

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
		Level:         level,
		Output:        os.Stdout,
		Format:        formatFromString(cfg.Logging.Format),
		IncludeCaller: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "build logger: %v\n", err)
		os.Exit(1)
	}
	logger = logger.WithComponent("proxy")

	alloc := allocator.New(allocator.Config{
		K:        cfg.Longhair.K,
		M:        cfg.Longhair.M,
		Budget:   cfg.Cache.Capacity,
		Decay:    cfg.Allocator.Decay,
		Interval: time.Duration(cfg.Allocator.IntervalMS) * time.Millisecond,
	}, logger.WithComponent("allocator"))
	alloc.Start()

	recipeServer := proxy.New(alloc, logger.WithComponent("recipe-server"))
	if err := recipeServer.Start(cfg.Proxy.Host, cfg.Proxy.Port); err != nil {
		fmt.Fprintf(os.Stderr, "start recipe server: %v\n", err)
		os.Exit(1)
	}

	healthTracker := health.NewTracker(health.DefaultConfig())
	healthTracker.RegisterComponent("allocator")
	healthTracker.RegisterComponent("recipe-server")

	healthCtx, stopHealthChecks := context.WithCancel(context.Background())
	defer stopHealthChecks()
	go healthTracker.StartHealthChecks(healthCtx, func(component string) error {
		switch component {
		case "allocator":
			return alloc.HealthCheck(healthCtx)
		case "recipe-server":
			return recipeServer.HealthCheck(healthCtx)
		default:
			return nil
		}
	})

	statusTracker := status.NewTracker()

	var metricsCollector *metrics.Collector
	if cfg.Monitoring.MetricsEnabled {
		metricsCollector, err = metrics.NewCollector(&metrics.Config{Enabled: true, Path: "/metrics"})
		if err != nil {
			fmt.Fprintf(os.Stderr, "build metrics collector: %v\n", err)
			os.Exit(1)
		}
	}

	adminAddr := fmt.Sprintf("%s:%d", cfg.Proxy.Host, cfg.Proxy.AdminPort)
	adminCfg := admin.DefaultConfig()
	adminCfg.Address = adminAddr
	adminServer := admin.New(adminCfg, statusTracker, healthTracker, alloc, metricsCollector, logger.WithComponent("admin"))
	adminServer.StartBackground()

	go reportAllocatorStatus(alloc, statusTracker, cfg.Cache.Capacity)

	logger.Info("proxy started", map[string]interface{}{
		"recipe_addr": fmt.Sprintf("%s:%d", cfg.Proxy.Host, cfg.Proxy.Port),
		"admin_addr":  adminAddr,
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("proxy shutting down", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	alloc.Stop()
	_ = recipeServer.Stop()
	_ = adminServer.Shutdown(shutdownCtx)
}

func reportAllocatorStatus(alloc *allocator.Allocator, tracker *status.Tracker, budget int) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		snap := alloc.StatusSnapshot()
		tracker.SetAllocatorStatus(snap.KeysTracked, snap.BlocksAssigned, budget, snap.LastReallocation)
	}
}

func formatFromString(s string) utils.LogFormat {
	if s == "text" {
		return utils.FormatText
	}
	return utils.FormatJSON
}

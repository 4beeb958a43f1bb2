package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

// Configuration represents the complete application configuration: the enumerated
// domain parameters (erasure code, backend regions, cache store, executor, proxy,
// cache budget, allocator) plus the ambient monitoring/logging sections.
type Configuration struct {
	Longhair   LonghairConfig   `yaml:"longhair"`
	S3         S3Config         `yaml:"s3"`
	Memcached  MemcachedConfig  `yaml:"memcached"`
	Executor   ExecutorConfig   `yaml:"executor"`
	Proxy      ProxyConfig      `yaml:"proxy"`
	Cache      CacheConfig      `yaml:"cache"`
	Allocator  AllocatorConfig  `yaml:"allocator"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LonghairConfig holds the erasure-code parameters, named after the Cauchy
// Reed-Solomon library ("longhair") used by the source this spec distills from.
type LonghairConfig struct {
	K int `yaml:"k"`
	M int `yaml:"m"`
}

// S3Config lists the per-region backend stores. Regions, Endpoints, and Buckets
// must be equal-length; element i defines backend region i.
type S3Config struct {
	Regions   []string `yaml:"regions"`
	Endpoints []string `yaml:"endpoints"`
	Buckets   []string `yaml:"buckets"`
}

// MemcachedConfig configures the optional memcached-backed cache store. If Server
// is empty, the in-process LRU cache store is used instead.
type MemcachedConfig struct {
	Server string `yaml:"server"`
}

// ExecutorConfig sizes the shared worker pool used for all block fetches.
type ExecutorConfig struct {
	Threads int `yaml:"threads"`
}

// ProxyConfig is the recipe server's listen endpoint.
type ProxyConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// AdminPort serves the ambient health/status/metrics/admin HTTP surface.
	AdminPort int `yaml:"admin_port"`
}

// CacheConfig holds the total cached-block budget B.
type CacheConfig struct {
	Capacity int `yaml:"capacity"`
}

// AllocatorConfig controls the reallocation cadence and popularity decay.
type AllocatorConfig struct {
	IntervalMS int     `yaml:"interval_ms"`
	Decay      float64 `yaml:"decay"`
}

// MonitoringConfig represents ambient observability settings.
type MonitoringConfig struct {
	MetricsEnabled   bool `yaml:"metrics_enabled"`
	HealthEnabled    bool `yaml:"health_enabled"`
	HealthInterval   time.Duration `yaml:"health_interval"`
}

// LoggingConfig represents ambient logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
}

// NewDefault returns a configuration with sensible defaults matching the spec's
// documented defaults (executor.threads=5, allocator.interval_ms=5000, allocator.decay=1.0).
func NewDefault() *Configuration {
	return &Configuration{
		Longhair: LonghairConfig{K: 4, M: 2},
		S3: S3Config{
			Regions:   []string{},
			Endpoints: []string{},
			Buckets:   []string{},
		},
		Memcached: MemcachedConfig{Server: ""},
		Executor:  ExecutorConfig{Threads: 5},
		Proxy: ProxyConfig{
			Host:      "127.0.0.1",
			Port:      9191,
			AdminPort: 9192,
		},
		Cache:     CacheConfig{Capacity: 0},
		Allocator: AllocatorConfig{IntervalMS: 5000, Decay: 1.0},
		Monitoring: MonitoringConfig{
			MetricsEnabled: true,
			HealthEnabled:  true,
			HealthInterval: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "json",
		},
	}
}

// LoadFromFile loads configuration from a YAML file.
func (c *Configuration) LoadFromFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// LoadFromEnv overrides configuration fields from AGAR_-prefixed environment variables.
func (c *Configuration) LoadFromEnv() error {
	if val := os.Getenv("AGAR_LONGHAIR_K"); val != "" {
		if k, err := strconv.Atoi(val); err == nil {
			c.Longhair.K = k
		}
	}
	if val := os.Getenv("AGAR_LONGHAIR_M"); val != "" {
		if m, err := strconv.Atoi(val); err == nil {
			c.Longhair.M = m
		}
	}
	if val := os.Getenv("AGAR_S3_REGIONS"); val != "" {
		c.S3.Regions = strings.Split(val, ",")
	}
	if val := os.Getenv("AGAR_S3_ENDPOINTS"); val != "" {
		c.S3.Endpoints = strings.Split(val, ",")
	}
	if val := os.Getenv("AGAR_S3_BUCKETS"); val != "" {
		c.S3.Buckets = strings.Split(val, ",")
	}
	if val := os.Getenv("AGAR_MEMCACHED_SERVER"); val != "" {
		c.Memcached.Server = val
	}
	if val := os.Getenv("AGAR_EXECUTOR_THREADS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.Executor.Threads = n
		}
	}
	if val := os.Getenv("AGAR_PROXY_HOST"); val != "" {
		c.Proxy.Host = val
	}
	if val := os.Getenv("AGAR_PROXY_PORT"); val != "" {
		if p, err := strconv.Atoi(val); err == nil {
			c.Proxy.Port = p
		}
	}
	if val := os.Getenv("AGAR_CACHE_CAPACITY"); val != "" {
		if cap, err := strconv.Atoi(val); err == nil {
			c.Cache.Capacity = cap
		}
	}
	if val := os.Getenv("AGAR_ALLOCATOR_INTERVAL_MS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.Allocator.IntervalMS = n
		}
	}
	if val := os.Getenv("AGAR_ALLOCATOR_DECAY"); val != "" {
		if d, err := strconv.ParseFloat(val, 64); err == nil {
			c.Allocator.Decay = d
		}
	}
	if val := os.Getenv("AGAR_LOG_LEVEL"); val != "" {
		c.Logging.Level = val
	}

	return nil
}

// SaveToFile saves the configuration to a YAML file.
func (c *Configuration) SaveToFile(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(filename), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(filename, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate enforces the configuration invariants from the enumerated config keys.
func (c *Configuration) Validate() error {
	if c.Longhair.K < 0 || c.Longhair.K >= 256 {
		return fmt.Errorf("longhair.k must satisfy 0 <= k < 256, got %d", c.Longhair.K)
	}
	if c.Longhair.M < 0 || c.Longhair.M > 256-c.Longhair.K {
		return fmt.Errorf("longhair.m must satisfy 0 <= m <= 256-k, got %d", c.Longhair.M)
	}

	if len(c.S3.Regions) != len(c.S3.Endpoints) || len(c.S3.Regions) != len(c.S3.Buckets) {
		return fmt.Errorf("s3.regions, s3.endpoints, and s3.buckets must have equal length (got %d, %d, %d)",
			len(c.S3.Regions), len(c.S3.Endpoints), len(c.S3.Buckets))
	}

	if c.Executor.Threads <= 0 {
		return fmt.Errorf("executor.threads must be greater than 0")
	}

	if c.Proxy.Port <= 0 {
		return fmt.Errorf("proxy.port must be greater than 0")
	}

	if c.Cache.Capacity < 0 {
		return fmt.Errorf("cache.capacity must be non-negative")
	}

	if c.Allocator.IntervalMS <= 0 {
		return fmt.Errorf("allocator.interval_ms must be greater than 0")
	}

	if c.Allocator.Decay <= 0 || c.Allocator.Decay > 1.0 {
		return fmt.Errorf("allocator.decay must satisfy 0 < decay <= 1.0, got %f", c.Allocator.Decay)
	}

	validLogLevels := []string{"DEBUG", "INFO", "WARN", "ERROR"}
	logLevelValid := false
	for _, level := range validLogLevels {
		if c.Logging.Level == level {
			logLevelValid = true
			break
		}
	}
	if !logLevelValid {
		return fmt.Errorf("invalid logging.level: %s (must be one of: %s)",
			c.Logging.Level, strings.Join(validLogLevels, ", "))
	}

	return nil
}

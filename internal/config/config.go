// Package config loads and validates the VFS core's ambient configuration:
// logging/metrics/health ports, mount defaults, and the retry/circuit
// breaker tuning that feeds pkg/vfs.Config.
//
// Grounded on the teacher's internal/config.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/objectfs/vfscore/internal/circuit"
	"github.com/objectfs/vfscore/internal/metrics"
	"github.com/objectfs/vfscore/pkg/health"
	"github.com/objectfs/vfscore/pkg/retry"
	"github.com/objectfs/vfscore/pkg/vfs"
)

// Configuration is the complete application configuration for a vfscore
// deployment: one VFS's resilience tuning plus the ambient ports and
// flags around it.
type Configuration struct {
	Global     GlobalConfig     `yaml:"global"`
	Mount      MountConfig      `yaml:"mount"`
	Retry      RetryConfig      `yaml:"retry"`
	Circuit    CircuitConfig    `yaml:"circuit_breaker"`
	Cache      CacheConfig      `yaml:"cache"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Features   FeatureConfig    `yaml:"features"`
}

// GlobalConfig holds process-wide settings.
type GlobalConfig struct {
	LogLevel    string `yaml:"log_level"`
	LogFile     string `yaml:"log_file"`
	MetricsPort int    `yaml:"metrics_port"`
	HealthPort  int    `yaml:"health_port"`
}

// MountConfig holds defaults applied to Components that don't set their
// own Options explicitly.
type MountConfig struct {
	DefaultReadOnly  bool   `yaml:"default_read_only"`
	DefaultShareMode string `yaml:"default_share_mode"`
	MaxPathLength    int    `yaml:"max_path_length"`
}

// RetryConfig is the YAML-serializable projection of retry.Config (which
// carries an OnRetry func field that cannot round-trip through YAML).
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
	Multiplier   float64       `yaml:"multiplier"`
	Jitter       bool          `yaml:"jitter"`
}

// ToRetryConfig builds a retry.Config from these settings.
func (r RetryConfig) ToRetryConfig() retry.Config {
	return retry.Config{
		MaxAttempts:  r.MaxAttempts,
		InitialDelay: r.InitialDelay,
		MaxDelay:     r.MaxDelay,
		Multiplier:   r.Multiplier,
		Jitter:       r.Jitter,
	}
}

// CircuitConfig is the YAML-serializable projection of circuit.Config
// (which carries a ReadyToTrip func field).
type CircuitConfig struct {
	Enabled          bool          `yaml:"enabled"`
	MaxRequests      uint32        `yaml:"max_requests"`
	Interval         time.Duration `yaml:"interval"`
	Timeout          time.Duration `yaml:"timeout"`
	FailureThreshold uint32        `yaml:"failure_threshold"`
}

// ToCircuitConfig builds a circuit.Config from these settings. When
// Enabled is false, ReadyToTrip never fires, so the breaker never opens.
func (c CircuitConfig) ToCircuitConfig() circuit.Config {
	threshold := c.FailureThreshold
	enabled := c.Enabled
	return circuit.Config{
		MaxRequests: c.MaxRequests,
		Interval:    c.Interval,
		Timeout:     c.Timeout,
		ReadyToTrip: func(counts circuit.Counts) bool {
			if !enabled {
				return false
			}
			return counts.ConsecutiveFailures >= threshold
		},
	}
}

// ToVFSConfig builds the vfs.Config passed to vfs.New from the retry,
// circuit breaker, and metrics settings.
func (c *Configuration) ToVFSConfig() vfs.Config {
	return vfs.Config{
		Breaker: c.Circuit.ToCircuitConfig(),
		Retry:   c.Retry.ToRetryConfig(),
		Metrics: c.Monitoring.Metrics.ToMetricsConfig(c.Global.MetricsPort),
		Health:  c.Monitoring.HealthChecks.ToTrackerConfig(),
	}
}

// ToTrackerConfig builds a health.TrackerConfig from these settings. A
// disabled HealthChecksConfig yields the zero TrackerConfig, which
// vfs.New recognizes and substitutes health.DefaultConfig() for.
func (h HealthChecksConfig) ToTrackerConfig() health.TrackerConfig {
	if !h.Enabled {
		return health.TrackerConfig{}
	}
	d := health.DefaultConfig()
	d.HealthCheckInterval = h.Interval
	return d
}

// ToMetricsConfig builds an internal/metrics.Config, taking the listen
// port from GlobalConfig.MetricsPort since MetricsConfig itself has no
// port field (metrics and health share the process's port namespace,
// configured once at the top level).
func (m MetricsConfig) ToMetricsConfig(port int) metrics.Config {
	return metrics.Config{
		Enabled:   m.Enabled,
		Port:      port,
		Path:      m.Path,
		Namespace: m.Namespace,
	}
}

// CacheConfig tunes a read-ahead/metadata cache a Component may layer in
// front of its backend. The VFS core itself never caches content or
// metadata (no cross-request cache sits inside pkg/vfs); this is a knob
// consumed by backends/callers that choose to wrap one, not by the core.
type CacheConfig struct {
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
}

// MonitoringConfig groups the Prometheus and health check settings.
type MonitoringConfig struct {
	Metrics      MetricsConfig      `yaml:"metrics"`
	HealthChecks HealthChecksConfig `yaml:"health_checks"`
}

// MetricsConfig controls the internal/metrics Collector.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Path      string `yaml:"path"`
	Namespace string `yaml:"namespace"`
}

// HealthChecksConfig controls pkg/health polling.
type HealthChecksConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
	Timeout  time.Duration `yaml:"timeout"`
}

// FeatureConfig toggles optional behavior layered above the VFS core by
// its caller (none of these are enforced inside pkg/vfs itself).
type FeatureConfig struct {
	MetadataCaching bool `yaml:"metadata_caching"`
	OfflineMode     bool `yaml:"offline_mode"`
}

// NewDefault returns a Configuration with sensible defaults.
func NewDefault() *Configuration {
	return &Configuration{
		Global: GlobalConfig{
			LogLevel:    "INFO",
			MetricsPort: 9090,
			HealthPort: 9091,
		},
		Mount: MountConfig{
			DefaultShareMode: "read_write",
			MaxPathLength:    4096,
		},
		Retry: RetryConfig{
			MaxAttempts:  3,
			InitialDelay: 50 * time.Millisecond,
			MaxDelay:     5 * time.Second,
			Multiplier:   2.0,
			Jitter:       true,
		},
		Circuit: CircuitConfig{
			Enabled:          true,
			MaxRequests:      1,
			Interval:         30 * time.Second,
			Timeout:          30 * time.Second,
			FailureThreshold: 5,
		},
		Cache: CacheConfig{
			TTL:        5 * time.Minute,
			MaxEntries: 100000,
		},
		Monitoring: MonitoringConfig{
			Metrics: MetricsConfig{
				Enabled:   true,
				Path:      "/metrics",
				Namespace: "vfscore",
			},
			HealthChecks: HealthChecksConfig{
				Enabled:  true,
				Interval: 30 * time.Second,
				Timeout:  5 * time.Second,
			},
		},
		Features: FeatureConfig{
			MetadataCaching: true,
			OfflineMode:     false,
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

// LoadFromEnv overlays environment variable overrides onto c.
func (c *Configuration) LoadFromEnv() error {
	if val := os.Getenv("VFSCORE_LOG_LEVEL"); val != "" {
		c.Global.LogLevel = val
	}
	if val := os.Getenv("VFSCORE_LOG_FILE"); val != "" {
		c.Global.LogFile = val
	}
	if val := os.Getenv("VFSCORE_METRICS_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			c.Global.MetricsPort = port
		}
	}
	if val := os.Getenv("VFSCORE_HEALTH_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			c.Global.HealthPort = port
		}
	}
	if val := os.Getenv("VFSCORE_RETRY_MAX_ATTEMPTS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.Retry.MaxAttempts = n
		}
	}
	if val := os.Getenv("VFSCORE_CIRCUIT_ENABLED"); val != "" {
		c.Circuit.Enabled = strings.ToLower(val) == "true"
	}
	if val := os.Getenv("VFSCORE_OFFLINE_MODE"); val != "" {
		c.Features.OfflineMode = strings.ToLower(val) == "true"
	}
	return nil
}

// SaveToFile writes c to filename as YAML, creating parent directories
// as needed.
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

// Validate rejects configurations that would produce a non-functional
// VFS or conflicting listener ports.
func (c *Configuration) Validate() error {
	if c.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("retry.max_attempts must be greater than 0")
	}
	if c.Global.MetricsPort != 0 && c.Global.MetricsPort == c.Global.HealthPort {
		return fmt.Errorf("metrics_port and health_port cannot be the same")
	}
	if c.Mount.MaxPathLength <= 0 {
		return fmt.Errorf("mount.max_path_length must be greater than 0")
	}

	validLogLevels := []string{"TRACE", "DEBUG", "INFO", "WARN", "ERROR", "FATAL"}
	valid := false
	for _, level := range validLogLevels {
		if c.Global.LogLevel == level {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("invalid log_level: %s (must be one of: %s)",
			c.Global.LogLevel, strings.Join(validLogLevels, ", "))
	}
	return nil
}

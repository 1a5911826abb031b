/*
Package config loads and validates the ambient configuration for a vfscore
deployment: process-wide logging/metrics/health settings, mount defaults,
and the retry/circuit breaker tuning fed into vfs.Config.

# Configuration sources

Configuration is built up in increasing precedence:

	Default values (NewDefault)
	  → Configuration file (LoadFromFile, YAML)
	    → Environment variables (LoadFromEnv, VFSCORE_*)

Usage:

	cfg := config.NewDefault()
	if err := cfg.LoadFromFile("/etc/vfscore/config.yaml"); err != nil {
		log.Fatal(err)
	}
	if err := cfg.LoadFromEnv(); err != nil {
		log.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	core := vfs.New("primary", cfg.ToVFSConfig())

# Retry and circuit breaker

retry.Config and circuit.Config both carry callback fields (OnRetry,
ReadyToTrip) that cannot round-trip through YAML, so Configuration keeps
its own RetryConfig/CircuitConfig projections and converts them with
ToRetryConfig/ToCircuitConfig. ToVFSConfig composes both into the
vfs.Config a VFS core is constructed with.

# Example file

	global:
	  log_level: INFO
	  metrics_port: 9090
	  health_port: 9091

	retry:
	  max_attempts: 3
	  initial_delay: 50ms
	  max_delay: 5s
	  multiplier: 2.0
	  jitter: true

	circuit_breaker:
	  enabled: true
	  failure_threshold: 5
	  timeout: 30s

	cache:
	  ttl: 5m
	  max_entries: 100000
*/
package config

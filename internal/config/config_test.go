package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/objectfs/vfscore/internal/circuit"
)

func contains(s, substr string) bool {
	return strings.Contains(s, substr)
}

func TestNewDefault(t *testing.T) {
	cfg := NewDefault()

	if cfg.Global.LogLevel != "INFO" {
		t.Errorf("Expected LogLevel to be INFO, got %s", cfg.Global.LogLevel)
	}
	if cfg.Global.MetricsPort != 9090 {
		t.Errorf("Expected MetricsPort to be 9090, got %d", cfg.Global.MetricsPort)
	}
	if cfg.Global.HealthPort != 9091 {
		t.Errorf("Expected HealthPort to be 9091, got %d", cfg.Global.HealthPort)
	}
	if cfg.Retry.MaxAttempts != 3 {
		t.Errorf("Expected Retry.MaxAttempts to be 3, got %d", cfg.Retry.MaxAttempts)
	}
	if !cfg.Circuit.Enabled {
		t.Error("Expected Circuit.Enabled to be true by default")
	}
	if cfg.Cache.TTL != 5*time.Minute {
		t.Errorf("Expected Cache TTL to be 5 minutes, got %v", cfg.Cache.TTL)
	}
	if cfg.Features.OfflineMode {
		t.Error("Expected OfflineMode to be disabled by default")
	}
}

func TestToVFSConfig(t *testing.T) {
	cfg := NewDefault()
	vc := cfg.ToVFSConfig()

	if vc.Retry.MaxAttempts != cfg.Retry.MaxAttempts {
		t.Errorf("Retry.MaxAttempts not carried through: got %d want %d", vc.Retry.MaxAttempts, cfg.Retry.MaxAttempts)
	}
	if vc.Breaker.MaxRequests != cfg.Circuit.MaxRequests {
		t.Errorf("Breaker.MaxRequests not carried through: got %d want %d", vc.Breaker.MaxRequests, cfg.Circuit.MaxRequests)
	}
	if vc.Breaker.ReadyToTrip == nil {
		t.Fatal("expected ReadyToTrip to be populated")
	}
	if vc.Metrics.Port != cfg.Global.MetricsPort {
		t.Errorf("Metrics.Port not carried through: got %d want %d", vc.Metrics.Port, cfg.Global.MetricsPort)
	}
	if vc.Metrics.Enabled != cfg.Monitoring.Metrics.Enabled {
		t.Errorf("Metrics.Enabled not carried through: got %v want %v", vc.Metrics.Enabled, cfg.Monitoring.Metrics.Enabled)
	}
}

func TestCircuitConfigDisabledNeverTrips(t *testing.T) {
	cfg := NewDefault()
	cfg.Circuit.Enabled = false
	cc := cfg.Circuit.ToCircuitConfig()

	if cc.ReadyToTrip(circuit.Counts{ConsecutiveFailures: 1000}) {
		t.Error("expected a disabled breaker's ReadyToTrip to never fire")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  func() *Configuration
		wantErr bool
		errMsg  string
	}{
		{
			name:   "valid config",
			config: NewDefault,
		},
		{
			name: "invalid retry max attempts",
			config: func() *Configuration {
				cfg := NewDefault()
				cfg.Retry.MaxAttempts = 0
				return cfg
			},
			wantErr: true,
			errMsg:  "retry.max_attempts must be greater than 0",
		},
		{
			name: "same metrics and health ports",
			config: func() *Configuration {
				cfg := NewDefault()
				cfg.Global.MetricsPort = 9090
				cfg.Global.HealthPort = 9090
				return cfg
			},
			wantErr: true,
			errMsg:  "metrics_port and health_port cannot be the same",
		},
		{
			name: "invalid log level",
			config: func() *Configuration {
				cfg := NewDefault()
				cfg.Global.LogLevel = "INVALID"
				return cfg
			},
			wantErr: true,
			errMsg:  "invalid log_level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config().Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if err != nil && tt.errMsg != "" && !contains(err.Error(), tt.errMsg) {
				t.Errorf("Validate() error = %v, want error containing %v", err, tt.errMsg)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")

	configContent := `
global:
  log_level: DEBUG
  metrics_port: 9190
  health_port: 9191

retry:
  max_attempts: 5

features:
  offline_mode: true
`
	if err := os.WriteFile(configFile, []byte(configContent), 0600); err != nil {
		t.Fatalf("Failed to write test config file: %v", err)
	}

	cfg := NewDefault()
	if err := cfg.LoadFromFile(configFile); err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if cfg.Global.LogLevel != "DEBUG" {
		t.Errorf("Expected LogLevel to be DEBUG, got %s", cfg.Global.LogLevel)
	}
	if cfg.Global.MetricsPort != 9190 {
		t.Errorf("Expected MetricsPort to be 9190, got %d", cfg.Global.MetricsPort)
	}
	if cfg.Retry.MaxAttempts != 5 {
		t.Errorf("Expected Retry.MaxAttempts to be 5, got %d", cfg.Retry.MaxAttempts)
	}
	if !cfg.Features.OfflineMode {
		t.Error("Expected OfflineMode to be true")
	}
}

func TestLoadFromFileNonExistent(t *testing.T) {
	cfg := NewDefault()
	if err := cfg.LoadFromFile("/nonexistent/config.yaml"); err == nil {
		t.Error("Expected error when loading non-existent config file")
	}
}

func TestLoadFromEnv(t *testing.T) {
	os.Setenv("VFSCORE_LOG_LEVEL", "WARN")
	os.Setenv("VFSCORE_METRICS_PORT", "9290")
	os.Setenv("VFSCORE_CIRCUIT_ENABLED", "false")
	defer func() {
		os.Unsetenv("VFSCORE_LOG_LEVEL")
		os.Unsetenv("VFSCORE_METRICS_PORT")
		os.Unsetenv("VFSCORE_CIRCUIT_ENABLED")
	}()

	cfg := NewDefault()
	if err := cfg.LoadFromEnv(); err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}

	if cfg.Global.LogLevel != "WARN" {
		t.Errorf("Expected LogLevel to be WARN, got %s", cfg.Global.LogLevel)
	}
	if cfg.Global.MetricsPort != 9290 {
		t.Errorf("Expected MetricsPort to be 9290, got %d", cfg.Global.MetricsPort)
	}
	if cfg.Circuit.Enabled {
		t.Error("Expected Circuit.Enabled to be false")
	}
}

func TestSaveToFile(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "nested", "config.yaml")

	cfg := NewDefault()
	cfg.Global.LogLevel = "ERROR"
	if err := cfg.SaveToFile(configFile); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	loaded := NewDefault()
	if err := loaded.LoadFromFile(configFile); err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if loaded.Global.LogLevel != "ERROR" {
		t.Errorf("Expected round-tripped LogLevel to be ERROR, got %s", loaded.Global.LogLevel)
	}
}

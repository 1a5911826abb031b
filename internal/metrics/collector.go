// Package metrics implements Prometheus-based instrumentation for the
// VFS core: per-operation counters/latency, mount and observer gauges,
// and per-component health.
//
// Grounded on the teacher's internal/metrics Collector.
package metrics

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	vfserrors "github.com/objectfs/vfscore/pkg/errors"
	"github.com/objectfs/vfscore/pkg/health"
)

// Config controls metrics collection and the /metrics HTTP endpoint.
type Config struct {
	Enabled        bool              `yaml:"enabled"`
	Port           int               `yaml:"port"`
	Path           string            `yaml:"path"`
	Labels         map[string]string `yaml:"labels"`
	Namespace      string            `yaml:"namespace"`
	Subsystem      string            `yaml:"subsystem"`
	UpdateInterval time.Duration     `yaml:"update_interval"`
}

// DefaultConfig returns a disabled-by-default Config (metrics are opt-in,
// matching the teacher's pattern of never binding a port unasked).
func DefaultConfig() *Config {
	return &Config{
		Enabled:        false,
		Port:           9090,
		Path:           "/metrics",
		Namespace:      "vfscore",
		UpdateInterval: 30 * time.Second,
		Labels:         make(map[string]string),
	}
}

// OperationMetrics tracks running counters for one operation name.
type OperationMetrics struct {
	Count         int64
	TotalDuration time.Duration
	Errors        int64
	LastOperation time.Time
	AvgDuration   time.Duration
}

// Collector aggregates VFS core metrics and, when enabled, exports them
// as Prometheus metrics over HTTP.
type Collector struct {
	mu       sync.RWMutex
	config   *Config
	registry *prometheus.Registry

	operationCounter  *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	errorCounter      *prometheus.CounterVec
	mountGauge        prometheus.Gauge
	observerGauge     prometheus.Gauge
	componentHealth   *prometheus.GaugeVec

	operations map[string]*OperationMetrics
	lastReset  time.Time

	server *http.Server
}

// NewCollector builds a Collector from config (DefaultConfig() if nil).
// When config.Enabled is false, the returned Collector's Record*/Set*
// methods are no-ops and Start does nothing — callers never need to
// branch on whether metrics are on.
func NewCollector(config *Config) (*Collector, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if !config.Enabled {
		return &Collector{config: config}, nil
	}

	c := &Collector{
		config:     config,
		registry:   prometheus.NewRegistry(),
		operations: make(map[string]*OperationMetrics),
		lastReset:  time.Now(),
	}
	c.initMetrics()
	if err := c.registerMetrics(); err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}
	return c, nil
}

func (c *Collector) initMetrics() {
	c.operationCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: c.config.Namespace,
		Subsystem: c.config.Subsystem,
		Name:      "operations_total",
		Help:      "Total number of VFS core operations.",
	}, []string{"operation", "status"})

	c.operationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: c.config.Namespace,
		Subsystem: c.config.Subsystem,
		Name:      "operation_duration_seconds",
		Help:      "Duration of VFS core operations in seconds.",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 18), // 100us to ~13s
	}, []string{"operation"})

	c.errorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: c.config.Namespace,
		Subsystem: c.config.Subsystem,
		Name:      "errors_total",
		Help:      "Total number of VFS core operation errors, by kind.",
	}, []string{"operation", "kind"})

	c.mountGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: c.config.Namespace,
		Subsystem: c.config.Subsystem,
		Name:      "mounts",
		Help:      "Number of Mount Nodes currently carrying a Binding.",
	})

	c.observerGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: c.config.Namespace,
		Subsystem: c.config.Subsystem,
		Name:      "observers",
		Help:      "Number of live Observer Handles.",
	})

	c.componentHealth = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: c.config.Namespace,
		Subsystem: c.config.Subsystem,
		Name:      "component_health",
		Help:      "Health state of each mounted Component (0=healthy, 1=degraded, 2=read-only, 3=unavailable).",
	}, []string{"component"})
}

func (c *Collector) registerMetrics() error {
	collectors := []prometheus.Collector{
		c.operationCounter,
		c.operationDuration,
		c.errorCounter,
		c.mountGauge,
		c.observerGauge,
		c.componentHealth,
	}
	for _, m := range collectors {
		if err := c.registry.Register(m); err != nil {
			return err
		}
	}
	return nil
}

// Start serves /metrics (plus /health and /debug/operations) on
// config.Port and runs the periodic update loop until ctx is canceled.
// A no-op when metrics are disabled.
func (c *Collector) Start(ctx context.Context) error {
	if !c.config.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(c.config.Path, promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{EnableOpenMetrics: true}))
	mux.HandleFunc("/health", c.healthHandler)
	mux.HandleFunc("/debug/operations", c.debugOperationsHandler)

	c.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", c.config.Port),
		Handler:           mux,
		ReadHeaderTimeout: 30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		if err := c.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("metrics server error: %v\n", err)
		}
	}()
	go c.updateLoop(ctx)

	return nil
}

// Stop shuts down the metrics HTTP server, if running.
func (c *Collector) Stop(ctx context.Context) error {
	if c.server == nil {
		return nil
	}
	return c.server.Shutdown(ctx)
}

// RecordOperation records one completed VFS core operation (e.g.
// "browse", "open", "move").
func (c *Collector) RecordOperation(operation string, duration time.Duration, success bool) {
	if !c.config.Enabled {
		return
	}

	c.mu.Lock()
	m, exists := c.operations[operation]
	if !exists {
		m = &OperationMetrics{}
		c.operations[operation] = m
	}
	m.Count++
	m.TotalDuration += duration
	if !success {
		m.Errors++
	}
	m.LastOperation = time.Now()
	m.AvgDuration = time.Duration(int64(m.TotalDuration) / m.Count)
	c.mu.Unlock()

	status := "success"
	if !success {
		status = "error"
	}
	c.operationCounter.With(prometheus.Labels{"operation": operation, "status": status}).Inc()
	c.operationDuration.With(prometheus.Labels{"operation": operation}).Observe(duration.Seconds())
}

// RecordError records err against operation, classified by vfserrors.Kind
// when err carries one.
func (c *Collector) RecordError(operation string, err error) {
	if !c.config.Enabled || err == nil {
		return
	}
	c.errorCounter.With(prometheus.Labels{"operation": operation, "kind": classifyError(err)}).Inc()
}

// SetMountCount publishes the current number of bound Mount Nodes.
func (c *Collector) SetMountCount(n int) {
	if !c.config.Enabled {
		return
	}
	c.mountGauge.Set(float64(n))
}

// SetObserverCount publishes the current number of live Observer Handles.
func (c *Collector) SetObserverCount(n int) {
	if !c.config.Enabled {
		return
	}
	c.observerGauge.Set(float64(n))
}

// SetComponentHealth publishes state for component as a Prometheus gauge
// (State's own iota ordering: healthy < degraded < read-only < unavailable).
func (c *Collector) SetComponentHealth(component string, state health.State) {
	if !c.config.Enabled {
		return
	}
	c.componentHealth.With(prometheus.Labels{"component": component}).Set(float64(state))
}

// GetMetrics returns a snapshot of the internal per-operation counters,
// for the /debug/operations endpoint and for tests.
func (c *Collector) GetMetrics() map[string]*OperationMetrics {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]*OperationMetrics, len(c.operations))
	for k, v := range c.operations {
		cp := *v
		out[k] = &cp
	}
	return out
}

// ResetMetrics clears the internal per-operation counters (Prometheus
// counters/histograms themselves are never reset, matching Prometheus's
// own monotonic-counter convention).
func (c *Collector) ResetMetrics() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.operations = make(map[string]*OperationMetrics)
	c.lastReset = time.Now()
}

func classifyError(err error) string {
	var ve *vfserrors.VFSError
	if stderrors.As(err, &ve) {
		return strings.ToLower(string(ve.Kind))
	}
	return "other"
}

func (c *Collector) updateLoop(ctx context.Context) {
	ticker := time.NewTicker(c.config.UpdateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Mount/observer/component-health gauges are pushed by callers
			// via Set* on every Mount/Unmount/Observe; nothing to poll here.
		}
	}
}

func (c *Collector) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy","service":"vfscore-metrics"}`))
}

func (c *Collector) debugOperationsHandler(w http.ResponseWriter, r *http.Request) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	w.Header().Set("Content-Type", "text/plain")
	writef := func(format string, args ...interface{}) { _, _ = fmt.Fprintf(w, format, args...) }

	writef("VFS Core Operations\n")
	writef("===================\n\n")
	writef("Since: %v\n\n", c.lastReset)

	if len(c.operations) == 0 {
		writef("No operations recorded.\n")
		return
	}

	writef("%-20s %10s %10s %14s\n", "Operation", "Count", "Errors", "Avg Duration")
	writef("%-20s %10s %10s %14s\n", "---------", "-----", "------", "------------")
	for name, op := range c.operations {
		writef("%-20s %10d %10d %14v\n", name, op.Count, op.Errors, op.AvgDuration)
	}
}

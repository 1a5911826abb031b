package metrics

import (
	"context"
	"fmt"
	"testing"
	"time"

	vfserrors "github.com/objectfs/vfscore/pkg/errors"
	"github.com/objectfs/vfscore/pkg/health"
)

func TestNewCollectorDisabledByDefault(t *testing.T) {
	c, err := NewCollector(nil)
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}
	// A disabled collector's Record*/Set* calls must be no-ops, not panics.
	c.RecordOperation("browse", time.Millisecond, true)
	c.RecordError("browse", fmt.Errorf("boom"))
	c.SetMountCount(3)
	c.SetObserverCount(1)
	c.SetComponentHealth("memory", health.StateHealthy)

	if got := c.GetMetrics(); len(got) != 0 {
		t.Errorf("expected no recorded operations while disabled, got %d", len(got))
	}
}

func TestCollectorRecordOperation(t *testing.T) {
	c, err := NewCollector(&Config{Enabled: true, Namespace: "test"})
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}

	c.RecordOperation("browse", 10*time.Millisecond, true)
	c.RecordOperation("browse", 20*time.Millisecond, false)

	metrics := c.GetMetrics()
	m, ok := metrics["browse"]
	if !ok {
		t.Fatalf("expected \"browse\" in metrics, got %v", metrics)
	}
	if m.Count != 2 {
		t.Errorf("Count = %d, want 2", m.Count)
	}
	if m.Errors != 1 {
		t.Errorf("Errors = %d, want 1", m.Errors)
	}
	if m.AvgDuration != 15*time.Millisecond {
		t.Errorf("AvgDuration = %v, want 15ms", m.AvgDuration)
	}
}

func TestCollectorClassifyError(t *testing.T) {
	c, err := NewCollector(&Config{Enabled: true, Namespace: "test"})
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}

	// RecordError must not panic for either a structured VFSError or a
	// plain error; this only exercises the no-panic contract since the
	// Prometheus counter value itself isn't directly observable here
	// without scraping the registry.
	c.RecordError("open", vfserrors.New(vfserrors.KindFileNotFound, "missing"))
	c.RecordError("open", fmt.Errorf("plain failure"))
}

func TestCollectorResetMetrics(t *testing.T) {
	c, err := NewCollector(&Config{Enabled: true, Namespace: "test"})
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}
	c.RecordOperation("move", time.Millisecond, true)
	c.ResetMetrics()

	if got := c.GetMetrics(); len(got) != 0 {
		t.Errorf("expected metrics cleared after ResetMetrics, got %d entries", len(got))
	}
}

func TestCollectorStartStopDisabled(t *testing.T) {
	c, err := NewCollector(&Config{Enabled: false})
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := c.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

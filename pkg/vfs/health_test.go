package vfs

import (
	"context"
	"testing"

	"github.com/objectfs/vfscore/internal/backends/memory"
	"github.com/objectfs/vfscore/internal/circuit"
	"github.com/objectfs/vfscore/pkg/health"
	"github.com/objectfs/vfscore/pkg/retry"
	vfstypes "github.com/objectfs/vfscore/pkg/vfstypes"
)

func memoryComponent(name, mountPath string) Component {
	return Component{
		Backend: memory.New(name),
		Options: vfstypes.Options{Capabilities: vfstypes.CapBrowse | vfstypes.CapGetEntry | vfstypes.CapObserve},
		PathMap: vfstypes.PathMap{MountPath: mountPath, SubPath: ""},
	}
}

func TestVFSComponentHealthRegisteredOnMount(t *testing.T) {
	v := New("test", Config{Breaker: circuit.Config{}, Retry: retry.Config{MaxAttempts: 1}})
	if err := v.Mount(context.Background(), "/data", memoryComponent("memA", "/data")); err != nil {
		t.Fatalf("Mount: %v", err)
	}

	components := v.ComponentHealth()
	if len(components) != 1 {
		t.Fatalf("expected 1 registered component, got %d", len(components))
	}
	for _, ch := range components {
		if ch.State != health.StateHealthy {
			t.Errorf("expected fresh component to be healthy, got %s", ch.State)
		}
	}
	if got := v.OverallHealth(); got != health.StateHealthy {
		t.Errorf("expected overall health healthy, got %s", got)
	}
}

func TestVFSOverallHealthReflectsOpenBreaker(t *testing.T) {
	breakerCfg := circuit.Config{
		MaxRequests: 1,
		ReadyToTrip: func(c circuit.Counts) bool { return c.ConsecutiveFailures >= 1 },
	}
	v := New("test", Config{Breaker: breakerCfg, Retry: retry.Config{MaxAttempts: 1}})
	if err := v.Mount(context.Background(), "/data", memoryComponent("memB", "/data")); err != nil {
		t.Fatalf("Mount: %v", err)
	}

	// Force the Component's breaker open by provoking a Browse failure
	// on a directory the backend doesn't have (GetEntry of a missing path
	// reports no entry rather than an error, so it cannot trip it).
	_, _ = v.Browse(context.Background(), "/data/missing")

	// syncHealth folds the (now open) breaker state into the health
	// tracker once per call; DefaultConfig's ErrorThreshold is 3
	// consecutive errors before a component is reported degraded.
	var got health.State
	for i := 0; i < 3; i++ {
		got = v.OverallHealth()
	}
	if got == health.StateHealthy {
		t.Errorf("expected degraded/unavailable overall health once the breaker trips, got %s", got)
	}
}

func TestVFSMountAndObserverCounts(t *testing.T) {
	v := New("test", Config{Retry: retry.Config{MaxAttempts: 1}})
	if err := v.Mount(context.Background(), "/a", memoryComponent("memC", "/a")); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	if err := v.Mount(context.Background(), "/b", memoryComponent("memD", "/b")); err != nil {
		t.Fatalf("Mount: %v", err)
	}
	if got := v.MountCount(); got != 2 {
		t.Errorf("MountCount() = %d, want 2", got)
	}

	handle, err := v.Observe(context.Background(), "/a/**", Sink{OnNext: func(Event) {}}, nil)
	if err != nil {
		t.Fatalf("Observe: %v", err)
	}
	if got := v.ObserverCount(); got != 1 {
		t.Errorf("ObserverCount() = %d, want 1", got)
	}
	if err := handle.Dispose(); err != nil {
		t.Fatalf("Dispose: %v", err)
	}
	if got := v.ObserverCount(); got != 0 {
		t.Errorf("ObserverCount() after dispose = %d, want 0", got)
	}
}

package status

import (
	"testing"
	"time"

	"github.com/objectfs/vfscore/pkg/health"
)

type fakeSource struct {
	name       string
	mounts     int
	observers  int
	overall    health.State
	components map[string]*health.ComponentHealth
}

func (f fakeSource) Name() string          { return f.name }
func (f fakeSource) MountCount() int       { return f.mounts }
func (f fakeSource) ObserverCount() int    { return f.observers }
func (f fakeSource) OverallHealth() health.State { return f.overall }
func (f fakeSource) ComponentHealth() map[string]*health.ComponentHealth {
	return f.components
}

func TestGetSnapshot(t *testing.T) {
	src := fakeSource{
		name:      "test-vfs",
		mounts:    2,
		observers: 1,
		overall:   health.StateDegraded,
		components: map[string]*health.ComponentHealth{
			"a": {Name: "a", State: health.StateDegraded},
		},
	}

	before := time.Now()
	snap := Get(src)
	after := time.Now()

	if snap.Name != "test-vfs" {
		t.Errorf("Name = %q, want test-vfs", snap.Name)
	}
	if snap.MountCount != 2 {
		t.Errorf("MountCount = %d, want 2", snap.MountCount)
	}
	if snap.ObserverCount != 1 {
		t.Errorf("ObserverCount = %d, want 1", snap.ObserverCount)
	}
	if snap.HealthState != health.StateDegraded {
		t.Errorf("HealthState = %s, want degraded", snap.HealthState)
	}
	if len(snap.ComponentHealth) != 1 {
		t.Errorf("expected 1 component in snapshot, got %d", len(snap.ComponentHealth))
	}
	if snap.Timestamp.Before(before) || snap.Timestamp.After(after) {
		t.Errorf("Timestamp %v not within [%v, %v]", snap.Timestamp, before, after)
	}
	if snap.Healthy() {
		t.Error("expected Healthy() false for a degraded snapshot")
	}
}

func TestSnapshotHealthyWhenAllComponentsHealthy(t *testing.T) {
	src := fakeSource{name: "v", overall: health.StateHealthy}
	snap := Get(src)
	if !snap.Healthy() {
		t.Error("expected Healthy() true when overall state is healthy")
	}
}

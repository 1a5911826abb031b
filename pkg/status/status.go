// Package status reports a point-in-time snapshot of a VFS core: how
// many Mount Nodes and Observer Handles are live, and the health of each
// mounted Component. Grounded on the teacher's pkg/status, trimmed to
// the one piece of it this core has a use for (GetSystemStatus's
// SystemStatus) — the core's operations are all synchronous, so the
// teacher's long-running Operation/Progress/Tracker apparatus (StartOperation,
// UpdateProgress, Subscribe, GetHistory) has nothing here to track.
package status

import (
	"time"

	"github.com/objectfs/vfscore/pkg/health"
)

// Source is the subset of *pkg/vfs.VFS a Snapshot is built from. Taking
// an interface rather than importing pkg/vfs directly keeps this package
// usable against a test double, the same separation the teacher keeps
// between pkg/status and pkg/health via TrackerConfig.HealthTracker.
type Source interface {
	Name() string
	MountCount() int
	ObserverCount() int
	OverallHealth() health.State
	ComponentHealth() map[string]*health.ComponentHealth
}

// Snapshot is the overall status of a VFS core at one instant.
type Snapshot struct {
	Timestamp       time.Time
	Name            string
	MountCount      int
	ObserverCount   int
	HealthState     health.State
	ComponentHealth map[string]*health.ComponentHealth
}

// Get builds a Snapshot of src as of now.
func Get(src Source) *Snapshot {
	return &Snapshot{
		Timestamp:       time.Now(),
		Name:            src.Name(),
		MountCount:      src.MountCount(),
		ObserverCount:   src.ObserverCount(),
		HealthState:     src.OverallHealth(),
		ComponentHealth: src.ComponentHealth(),
	}
}

// Healthy reports whether the snapshot's overall health state is
// StateHealthy; a single degraded, read-only or unavailable component
// makes it false.
func (s *Snapshot) Healthy() bool {
	return s.HealthState == health.StateHealthy
}

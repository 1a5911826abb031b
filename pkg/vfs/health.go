package vfs

import (
	"github.com/objectfs/vfscore/internal/aggregate"
	"github.com/objectfs/vfscore/internal/circuit"
	vfserrors "github.com/objectfs/vfscore/pkg/errors"
	"github.com/objectfs/vfscore/pkg/health"
)

// errBreakerOpen is the synthetic error reported to the health tracker
// when a Component's circuit breaker is open; the breaker already
// discarded whatever backend error tripped it, so this is a generic
// stand-in (spec §4.3's breaker state is the only signal that survives).
var errBreakerOpen = vfserrors.New(vfserrors.KindIoError, "circuit breaker open")

// syncHealth folds each bound Component's circuit breaker state into the
// health tracker, so GetAllComponents/GetOverallHealth reflect live
// breaker state without every call site threading a tracker through
// internal/aggregate (spec §4.3's breaker already carries this signal).
func (v *VFS) syncHealth() {
	v.boundMu.Lock()
	bindings := make([]*aggregate.Binding, 0, len(v.bound))
	for _, b := range v.bound {
		bindings = append(bindings, b)
	}
	v.boundMu.Unlock()

	for _, b := range bindings {
		for _, rt := range b.Components {
			switch rt.BreakerState() {
			case circuit.StateOpen:
				v.health.RecordError(rt.Name(), errBreakerOpen)
			default:
				v.health.RecordSuccess(rt.Name())
			}
			v.metrics.SetComponentHealth(rt.Name(), v.health.GetState(rt.Name()))
		}
	}
}

// ComponentHealth returns the health of every registered Component,
// keyed by its Runtime name, after folding in current breaker state.
func (v *VFS) ComponentHealth() map[string]*health.ComponentHealth {
	v.syncHealth()
	return v.health.GetAllComponents()
}

// OverallHealth returns the worst health state across every registered
// Component, after folding in current breaker state.
func (v *VFS) OverallHealth() health.State {
	v.syncHealth()
	return v.health.GetOverallHealth()
}

// Name returns this VFS's identity, as passed to New/NewNonDisposable.
func (v *VFS) Name() string {
	return v.name
}

// MountCount returns the number of Mount Nodes currently carrying a
// Binding.
func (v *VFS) MountCount() int {
	return len(v.ListMountPoints())
}

// ObserverCount returns the number of live Observer Handles registered
// against this VFS.
func (v *VFS) ObserverCount() int {
	v.observerTree.Lock.RLock()
	defer v.observerTree.Lock.RUnlock()
	return v.observerTree.CountHandles()
}

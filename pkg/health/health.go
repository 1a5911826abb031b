// Package health tracks the health of each mounted Backend (and its
// circuit breaker) so the VFS core can report graceful degradation
// instead of a single pass/fail signal.
//
// Grounded on the teacher's pkg/health.
package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	vfserrors "github.com/objectfs/vfscore/pkg/errors"
)

// State represents the health state of a tracked component.
type State int

const (
	// StateHealthy indicates the component is fully operational.
	StateHealthy State = iota

	// StateDegraded indicates the component is operational but has
	// recently failed operations.
	StateDegraded

	// StateReadOnly indicates the component can only serve reads —
	// its most recent failures look like write/permission errors.
	StateReadOnly

	// StateUnavailable indicates the component should not be called.
	StateUnavailable
)

// String returns the string representation of a health state.
func (s State) String() string {
	switch s {
	case StateHealthy:
		return "healthy"
	case StateDegraded:
		return "degraded"
	case StateReadOnly:
		return "read-only"
	case StateUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// ComponentHealth tracks the health of one registered component (a
// mounted Backend, identified by its mount path or Component name).
type ComponentHealth struct {
	Name              string
	State             State
	LastStateChange   time.Time
	LastHealthCheck   time.Time
	ConsecutiveErrors int
	LastError         error
	LastErrorMessage  string
	Metadata          map[string]interface{}
}

// Tracker tracks the health of multiple components and determines
// overall VFS health from the worst component state.
type Tracker struct {
	mu              sync.RWMutex
	components      map[string]*ComponentHealth
	config          TrackerConfig
	stateCallbacks  map[State][]StateChangeCallback
	healthListeners []HealthListener
}

// TrackerConfig configures health tracking behavior.
type TrackerConfig struct {
	// ErrorThreshold is the number of consecutive errors before marking
	// a component degraded.
	ErrorThreshold int

	// UnavailableThreshold is the number of consecutive errors before
	// marking a component unavailable.
	UnavailableThreshold int

	// HealthCheckInterval is the interval for automatic health checks
	// driven by StartHealthChecks.
	HealthCheckInterval time.Duration
}

// StateChangeCallback is called when a component's health state changes.
type StateChangeCallback func(component string, oldState, newState State, err error)

// HealthListener is notified of all health events.
type HealthListener interface {
	OnStateChange(component string, oldState, newState State, err error)
	OnHealthCheck(component string, healthy bool, err error)
}

// DefaultConfig returns a default tracker configuration.
func DefaultConfig() TrackerConfig {
	return TrackerConfig{
		ErrorThreshold:       3,
		UnavailableThreshold: 10,
		HealthCheckInterval:  30 * time.Second,
	}
}

// NewTracker creates a new health tracker.
func NewTracker(config TrackerConfig) *Tracker {
	return &Tracker{
		components:     make(map[string]*ComponentHealth),
		config:         config,
		stateCallbacks: make(map[State][]StateChangeCallback),
	}
}

// RegisterComponent registers a new component for health tracking —
// called once per mounted Backend, keyed by its Component name.
func (t *Tracker) RegisterComponent(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.components[name]; !exists {
		t.components[name] = &ComponentHealth{
			Name:            name,
			State:           StateHealthy,
			LastStateChange: time.Now(),
			LastHealthCheck: time.Now(),
			Metadata:        make(map[string]interface{}),
		}
	}
}

// RecordSuccess records a successful backend call for component.
func (t *Tracker) RecordSuccess(component string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ch, exists := t.components[component]
	if !exists {
		return
	}

	oldState := ch.State
	ch.LastHealthCheck = time.Now()

	if ch.ConsecutiveErrors > 0 {
		ch.ConsecutiveErrors--
		if ch.ConsecutiveErrors == 0 && ch.State != StateHealthy {
			t.transitionState(ch, StateHealthy)
		}
	}

	for _, listener := range t.healthListeners {
		listener.OnHealthCheck(component, true, nil)
	}
	if oldState != ch.State {
		t.notifyStateChange(component, oldState, ch.State, nil)
	}
}

// RecordError records a failed backend call for component.
func (t *Tracker) RecordError(component string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ch, exists := t.components[component]
	if !exists {
		return
	}

	oldState := ch.State
	ch.LastHealthCheck = time.Now()
	ch.ConsecutiveErrors++
	ch.LastError = err
	if err != nil {
		ch.LastErrorMessage = err.Error()
	}

	var newState State
	switch {
	case ch.ConsecutiveErrors >= t.config.UnavailableThreshold:
		newState = StateUnavailable
	case ch.ConsecutiveErrors >= t.config.ErrorThreshold:
		if isWriteError(err) {
			newState = StateReadOnly
		} else {
			newState = StateDegraded
		}
	default:
		newState = ch.State
	}

	if newState != oldState {
		t.transitionState(ch, newState)
	}

	for _, listener := range t.healthListeners {
		listener.OnHealthCheck(component, false, err)
	}
	if oldState != ch.State {
		t.notifyStateChange(component, oldState, ch.State, err)
	}
}

// GetState returns the current health state of component. An
// unregistered component reports StateUnavailable.
func (t *Tracker) GetState(component string) State {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if ch, exists := t.components[component]; exists {
		return ch.State
	}
	return StateUnavailable
}

// GetComponentHealth returns a copy of component's health record.
func (t *Tracker) GetComponentHealth(component string) (*ComponentHealth, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ch, exists := t.components[component]
	if !exists {
		return nil, fmt.Errorf("component %s not registered", component)
	}
	return ch.copy(), nil
}

// GetAllComponents returns a copy of every registered component's
// health record.
func (t *Tracker) GetAllComponents() map[string]*ComponentHealth {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make(map[string]*ComponentHealth, len(t.components))
	for name, ch := range t.components {
		result[name] = ch.copy()
	}
	return result
}

func (ch *ComponentHealth) copy() *ComponentHealth {
	return &ComponentHealth{
		Name:              ch.Name,
		State:             ch.State,
		LastStateChange:   ch.LastStateChange,
		LastHealthCheck:   ch.LastHealthCheck,
		ConsecutiveErrors: ch.ConsecutiveErrors,
		LastError:         ch.LastError,
		LastErrorMessage:  ch.LastErrorMessage,
		Metadata:          ch.Metadata,
	}
}

// GetOverallHealth returns the worst state across all registered
// components (StateHealthy when none are registered).
func (t *Tracker) GetOverallHealth() State {
	t.mu.RLock()
	defer t.mu.RUnlock()

	overall := StateHealthy
	for _, ch := range t.components {
		if ch.State > overall {
			overall = ch.State
		}
	}
	return overall
}

// IsHealthy reports whether component is in StateHealthy.
func (t *Tracker) IsHealthy(component string) bool {
	return t.GetState(component) == StateHealthy
}

// CanRead reports whether component can serve read operations.
func (t *Tracker) CanRead(component string) bool {
	state := t.GetState(component)
	return state == StateHealthy || state == StateDegraded || state == StateReadOnly
}

// CanWrite reports whether component can serve write operations.
func (t *Tracker) CanWrite(component string) bool {
	state := t.GetState(component)
	return state == StateHealthy || state == StateDegraded
}

// AddStateChangeCallback registers a callback invoked whenever any
// component transitions into state.
func (t *Tracker) AddStateChangeCallback(state State, callback StateChangeCallback) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stateCallbacks[state] = append(t.stateCallbacks[state], callback)
}

// AddHealthListener registers a listener notified of every health
// event across all components.
func (t *Tracker) AddHealthListener(listener HealthListener) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.healthListeners = append(t.healthListeners, listener)
}

// SetComponentMetadata attaches arbitrary metadata to component (e.g.
// mount path, backend kind), surfaced through pkg/status snapshots.
func (t *Tracker) SetComponentMetadata(component, key string, value interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ch, exists := t.components[component]; exists {
		ch.Metadata[key] = value
	}
}

// transitionState transitions ch to newState. Caller must hold t.mu.
func (t *Tracker) transitionState(ch *ComponentHealth, newState State) {
	ch.State = newState
	ch.LastStateChange = time.Now()
	if newState == StateHealthy {
		ch.ConsecutiveErrors = 0
		ch.LastError = nil
		ch.LastErrorMessage = ""
	}
}

func (t *Tracker) notifyStateChange(component string, oldState, newState State, err error) {
	if callbacks, exists := t.stateCallbacks[newState]; exists {
		for _, callback := range callbacks {
			go callback(component, oldState, newState, err)
		}
	}
	for _, listener := range t.healthListeners {
		go listener.OnStateChange(component, oldState, newState, err)
	}
}

// isWriteError reports whether err looks like a write-path failure
// (read operations on the same component would still likely succeed).
func isWriteError(err error) bool {
	return vfserrors.Is(err, vfserrors.KindUnauthorized)
}

// StartHealthChecks runs checkFn against every registered component on
// TrackerConfig.HealthCheckInterval until ctx is canceled.
func (t *Tracker) StartHealthChecks(ctx context.Context, checkFn func(component string) error) {
	ticker := time.NewTicker(t.config.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.performHealthChecks(checkFn)
		}
	}
}

func (t *Tracker) performHealthChecks(checkFn func(component string) error) {
	t.mu.RLock()
	components := make([]string, 0, len(t.components))
	for name := range t.components {
		components = append(components, name)
	}
	t.mu.RUnlock()

	for _, component := range components {
		if err := checkFn(component); err != nil {
			t.RecordError(component, err)
		} else {
			t.RecordSuccess(component)
		}
	}
}

// Package circuit implements a circuit breaker guarding calls the VFS
// core's Aggregating Mount Binding makes into a Component's backend, so a
// failing backend stops being hammered while it recovers.
//
// Grounded on the teacher's internal/circuit breaker.
package circuit

import (
	"sync"
	"time"

	vfserrors "github.com/objectfs/vfscore/pkg/errors"
)

// State is the circuit breaker's current state.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// Config controls breaker behavior.
type Config struct {
	MaxRequests uint32        // requests allowed through while half-open
	Interval    time.Duration // closed-state window after which counts reset
	Timeout     time.Duration // open-state duration before trying half-open
	ReadyToTrip func(Counts) bool
}

// Counts tracks per-window request outcomes.
type Counts struct {
	Requests             uint32
	TotalFailures         uint32
	ConsecutiveFailures   uint32
	ConsecutiveSuccesses  uint32
}

func defaultReadyToTrip(c Counts) bool {
	return c.Requests >= 5 && c.ConsecutiveFailures >= 5
}

// Breaker is a single circuit breaker instance, one per Component.
type Breaker struct {
	name   string
	config Config

	mu     sync.Mutex
	state  State
	counts Counts
	expiry time.Time
}

// New creates a Breaker named name (used in error messages).
func New(name string, config Config) *Breaker {
	if config.MaxRequests == 0 {
		config.MaxRequests = 1
	}
	if config.Interval <= 0 {
		config.Interval = 30 * time.Second
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.ReadyToTrip == nil {
		config.ReadyToTrip = defaultReadyToTrip
	}
	return &Breaker{name: name, config: config, expiry: time.Now().Add(config.Interval)}
}

// State returns the current state, applying any due transitions first.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	state, _ := b.currentState(time.Now())
	return state
}

func (b *Breaker) currentState(now time.Time) (State, time.Time) {
	switch b.state {
	case StateClosed:
		if !b.expiry.IsZero() && !now.Before(b.expiry) {
			b.counts = Counts{}
			b.expiry = now.Add(b.config.Interval)
		}
	case StateOpen:
		if now.After(b.expiry) {
			b.state = StateHalfOpen
			b.counts = Counts{}
		}
	}
	return b.state, b.expiry
}

// Execute runs fn if the breaker allows it, short-circuiting to a
// Canceled-free IoError when open.
func (b *Breaker) Execute(fn func() error) error {
	if err := b.before(); err != nil {
		return err
	}
	err := fn()
	b.after(err)
	return err
}

func (b *Breaker) before() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	state, _ := b.currentState(now)
	if state == StateOpen {
		return vfserrors.New(vfserrors.KindIoError, "circuit breaker open").WithComponent(b.name)
	}
	if state == StateHalfOpen && b.counts.Requests >= b.config.MaxRequests {
		return vfserrors.New(vfserrors.KindIoError, "circuit breaker half-open: too many requests").WithComponent(b.name)
	}
	b.counts.Requests++
	return nil
}

func (b *Breaker) after(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	state, _ := b.currentState(now)

	if err == nil {
		b.counts.ConsecutiveFailures = 0
		b.counts.ConsecutiveSuccesses++
		if state == StateHalfOpen {
			b.state = StateClosed
			b.counts = Counts{}
			b.expiry = now.Add(b.config.Interval)
		}
		return
	}

	b.counts.ConsecutiveSuccesses = 0
	b.counts.ConsecutiveFailures++
	b.counts.TotalFailures++

	switch state {
	case StateClosed:
		if b.config.ReadyToTrip(b.counts) {
			b.state = StateOpen
			b.expiry = now.Add(b.config.Timeout)
		}
	case StateHalfOpen:
		b.state = StateOpen
		b.expiry = now.Add(b.config.Timeout)
	}
}

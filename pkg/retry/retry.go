// Package retry provides retry-with-exponential-backoff for the
// Aggregating Mount Binding's backend calls.
//
// Grounded on the teacher's pkg/retry.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	vfserrors "github.com/objectfs/vfscore/pkg/errors"
)

// Config controls backoff behavior.
type Config struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       bool
	OnRetry      func(attempt int, err error, delay time.Duration)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 50 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// Retryer executes a func with retry-with-backoff.
type Retryer struct {
	config Config
}

// New creates a Retryer, filling in zero-value fields from DefaultConfig.
func New(config Config) *Retryer {
	d := DefaultConfig()
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = d.MaxAttempts
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = d.InitialDelay
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = d.MaxDelay
	}
	if config.Multiplier <= 0 {
		config.Multiplier = d.Multiplier
	}
	return &Retryer{config: config}
}

// Do runs fn, retrying transient failures up to MaxAttempts times. Only
// errors whose VFSError.Retryable is true are retried; every other error
// — including Canceled, which the caller already decided not to retry
// past — is returned on first failure.
func (r *Retryer) Do(ctx context.Context, fn func(context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return vfserrors.New(vfserrors.KindCanceled, "operation canceled").WithCause(ctx.Err())
		default:
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !shouldRetry(err) || attempt == r.config.MaxAttempts {
			return err
		}

		delay := r.delayFor(attempt)
		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, err, delay)
		}

		select {
		case <-ctx.Done():
			return vfserrors.New(vfserrors.KindCanceled, "operation canceled during retry").WithCause(ctx.Err())
		case <-time.After(delay):
		}
	}

	return lastErr
}

func shouldRetry(err error) bool {
	var ve *vfserrors.VFSError
	if v, ok := err.(*vfserrors.VFSError); ok {
		ve = v
	} else {
		return false
	}
	return ve.Retryable
}

func (r *Retryer) delayFor(attempt int) time.Duration {
	delay := float64(r.config.InitialDelay) * math.Pow(r.config.Multiplier, float64(attempt-1))
	if delay > float64(r.config.MaxDelay) {
		delay = float64(r.config.MaxDelay)
	}
	if r.config.Jitter {
		delay = delay * (0.5 + rand.Float64()*0.5)
	}
	return time.Duration(delay)
}

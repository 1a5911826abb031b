package health

import (
	"context"
	"fmt"
	"testing"
	"time"

	vfserrors "github.com/objectfs/vfscore/pkg/errors"
)

func TestTrackerRegisterComponent(t *testing.T) {
	tracker := NewTracker(DefaultConfig())
	tracker.RegisterComponent("s3fs")

	if state := tracker.GetState("s3fs"); state != StateHealthy {
		t.Errorf("Expected initial state to be StateHealthy, got %s", state)
	}
}

func TestTrackerUnregisteredComponentIsUnavailable(t *testing.T) {
	tracker := NewTracker(DefaultConfig())
	if state := tracker.GetState("missing"); state != StateUnavailable {
		t.Errorf("Expected unregistered component to report StateUnavailable, got %s", state)
	}
}

func TestTrackerRecordErrorDegradesAfterThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ErrorThreshold = 2
	tracker := NewTracker(cfg)
	tracker.RegisterComponent("local")

	tracker.RecordError("local", fmt.Errorf("io failure"))
	if state := tracker.GetState("local"); state != StateHealthy {
		t.Errorf("Expected single error to stay healthy, got %s", state)
	}

	tracker.RecordError("local", fmt.Errorf("io failure"))
	if state := tracker.GetState("local"); state != StateDegraded {
		t.Errorf("Expected to degrade after %d errors, got %s", cfg.ErrorThreshold, state)
	}
}

func TestTrackerRecordErrorUnauthorizedGoesReadOnly(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ErrorThreshold = 1
	tracker := NewTracker(cfg)
	tracker.RegisterComponent("httpfs")

	tracker.RecordError("httpfs", vfserrors.New(vfserrors.KindUnauthorized, "denied"))
	if state := tracker.GetState("httpfs"); state != StateReadOnly {
		t.Errorf("Expected unauthorized error to produce StateReadOnly, got %s", state)
	}
	if !tracker.CanRead("httpfs") {
		t.Error("expected read-only component to still allow reads")
	}
	if tracker.CanWrite("httpfs") {
		t.Error("expected read-only component to refuse writes")
	}
}

func TestTrackerRecordErrorUnavailableAfterThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ErrorThreshold = 1
	cfg.UnavailableThreshold = 3
	tracker := NewTracker(cfg)
	tracker.RegisterComponent("memory")

	for i := 0; i < 3; i++ {
		tracker.RecordError("memory", fmt.Errorf("failure"))
	}
	if state := tracker.GetState("memory"); state != StateUnavailable {
		t.Errorf("Expected StateUnavailable after %d errors, got %s", cfg.UnavailableThreshold, state)
	}
	if tracker.CanRead("memory") || tracker.CanWrite("memory") {
		t.Error("expected unavailable component to refuse both reads and writes")
	}
}

func TestTrackerRecordSuccessRecovers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ErrorThreshold = 1
	tracker := NewTracker(cfg)
	tracker.RegisterComponent("embedpkg")

	tracker.RecordError("embedpkg", fmt.Errorf("boom"))
	tracker.RecordSuccess("embedpkg")

	ch, err := tracker.GetComponentHealth("embedpkg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ch.ConsecutiveErrors != 0 {
		t.Errorf("expected ConsecutiveErrors to reset to 0, got %d", ch.ConsecutiveErrors)
	}
	if ch.State != StateHealthy {
		t.Errorf("expected recovery to StateHealthy, got %s", ch.State)
	}
}

func TestTrackerGetOverallHealth(t *testing.T) {
	tracker := NewTracker(DefaultConfig())
	tracker.RegisterComponent("a")
	tracker.RegisterComponent("b")

	if got := tracker.GetOverallHealth(); got != StateHealthy {
		t.Errorf("expected StateHealthy with no errors, got %s", got)
	}

	cfg := DefaultConfig()
	cfg.ErrorThreshold = 1
	tracker = NewTracker(cfg)
	tracker.RegisterComponent("a")
	tracker.RegisterComponent("b")
	tracker.RecordError("b", fmt.Errorf("boom"))

	if got := tracker.GetOverallHealth(); got != StateDegraded {
		t.Errorf("expected overall health to reflect worst component, got %s", got)
	}
}

func TestTrackerStateChangeCallback(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ErrorThreshold = 1
	tracker := NewTracker(cfg)
	tracker.RegisterComponent("a")

	done := make(chan struct{}, 1)
	tracker.AddStateChangeCallback(StateDegraded, func(component string, oldState, newState State, err error) {
		done <- struct{}{}
	})

	tracker.RecordError("a", fmt.Errorf("boom"))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected state change callback to fire")
	}
}

func TestTrackerStartHealthChecks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HealthCheckInterval = 5 * time.Millisecond
	tracker := NewTracker(cfg)
	tracker.RegisterComponent("a")

	ctx, cancel := context.WithCancel(context.Background())
	checked := make(chan struct{}, 1)

	go tracker.StartHealthChecks(ctx, func(component string) error {
		select {
		case checked <- struct{}{}:
		default:
		}
		return nil
	})

	select {
	case <-checked:
	case <-time.After(time.Second):
		t.Fatal("expected a health check to run")
	}
	cancel()
}

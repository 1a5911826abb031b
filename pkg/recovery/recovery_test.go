package recovery

import (
	"errors"
	"testing"

	vfserrors "github.com/objectfs/vfscore/pkg/errors"
)

func TestDoRecoversPanic(t *testing.T) {
	err := Do("memory", func() error {
		panic("boom")
	})
	if !vfserrors.Is(err, vfserrors.KindIoError) {
		t.Fatalf("expected IoError, got %v", err)
	}
}

func TestDoPassesThroughError(t *testing.T) {
	want := errors.New("plain failure")
	err := Do("memory", func() error { return want })
	if err != want {
		t.Fatalf("got %v, want %v", err, want)
	}
}

func TestDoVoidInvokesOnPanic(t *testing.T) {
	var captured error
	DoVoid("sink", func(e error) { captured = e }, func() { panic("sink blew up") })
	if captured == nil {
		t.Fatal("expected onPanic to be invoked")
	}
}

func TestDoVoidNoPanicNoCallback(t *testing.T) {
	called := false
	DoVoid("sink", func(e error) { called = true }, func() {})
	if called {
		t.Error("onPanic should not be invoked without a panic")
	}
}

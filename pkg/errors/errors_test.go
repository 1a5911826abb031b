package errors

import (
	stderrors "errors"
	"testing"
)

func TestNew(t *testing.T) {
	t.Run("sets category from kind", func(t *testing.T) {
		err := New(KindFileNotFound, "missing")
		if err.Category != CategoryNotFound {
			t.Errorf("Category = %v, want %v", err.Category, CategoryNotFound)
		}
	})

	t.Run("retryable defaults", func(t *testing.T) {
		if !New(KindIoError, "boom").Retryable {
			t.Error("IoError should be retryable by default")
		}
		if New(KindInvalidPath, "bad").Retryable {
			t.Error("InvalidPath should not be retryable by default")
		}
	})

	t.Run("timestamp set", func(t *testing.T) {
		if New(KindIoError, "x").Timestamp.IsZero() {
			t.Error("Timestamp not set")
		}
	})
}

func TestVFSErrorChaining(t *testing.T) {
	cause := stderrors.New("underlying")
	err := New(KindIoError, "write failed").
		WithVFS("vfs-1").
		WithPath("a/b.txt").
		WithComponent("memory").
		WithOperation("open").
		WithCause(cause).
		WithContext("attempt", "1")

	if err.VFS != "vfs-1" || err.Path != "a/b.txt" || err.Component != "memory" || err.Operation != "open" {
		t.Fatalf("fields not set: %+v", err)
	}
	if err.Context["attempt"] != "1" {
		t.Errorf("context not set: %+v", err.Context)
	}
	if !stderrors.Is(err, cause) {
		t.Error("errors.Is should unwrap to cause")
	}
	if stderrors.Unwrap(err) != cause {
		t.Error("Unwrap should return cause")
	}
}

func TestIsKind(t *testing.T) {
	err := New(KindDirectoryNotFound, "nope").WithPath("x")
	if !Is(err, KindDirectoryNotFound) {
		t.Error("Is should match same kind")
	}
	if Is(err, KindFileNotFound) {
		t.Error("Is should not match different kind")
	}
	if Is(stderrors.New("plain"), KindFileNotFound) {
		t.Error("Is should not match non-VFSError")
	}
}

func TestNewAggregate(t *testing.T) {
	t.Run("nil on no errors", func(t *testing.T) {
		if NewAggregate("dispose") != nil {
			t.Error("expected nil aggregate for no errors")
		}
	})

	t.Run("passes through single error", func(t *testing.T) {
		single := New(KindIoError, "boom")
		agg := NewAggregate("dispose", single)
		if agg != single {
			t.Error("single-error aggregate should pass through unchanged")
		}
	})

	t.Run("wraps multiple errors", func(t *testing.T) {
		e1 := New(KindIoError, "first")
		e2 := New(KindIoError, "second")
		agg := NewAggregate("dispose", e1, e2, nil)
		if agg.Kind != KindAggregate {
			t.Errorf("Kind = %v, want KindAggregate", agg.Kind)
		}
		if len(agg.Errs) != 2 {
			t.Errorf("Errs len = %d, want 2", len(agg.Errs))
		}
	})
}

func TestErrorString(t *testing.T) {
	err := New(KindFileNotFound, "missing").WithComponent("mem").WithOperation("getEntry").WithPath("a/b")
	s := err.Error()
	if s == "" {
		t.Fatal("Error() returned empty string")
	}
}

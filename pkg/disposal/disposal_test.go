package disposal

import (
	"errors"
	"testing"
)

type countingDisposable struct {
	n *int
}

func (c countingDisposable) Dispose() error {
	*c.n++
	return nil
}

func TestChainDisposesChildren(t *testing.T) {
	c := NewChain()
	n := 0
	c.AddDisposable(countingDisposable{&n})
	c.AddDisposable(countingDisposable{&n})

	if err := c.Dispose(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("n = %d, want 2", n)
	}
	if !c.IsDisposed() {
		t.Error("expected IsDisposed() true")
	}
}

func TestChainIdempotent(t *testing.T) {
	c := NewChain()
	n := 0
	c.AddDisposable(countingDisposable{&n})

	if err := c.Dispose(); err != nil {
		t.Fatal(err)
	}
	if err := c.Dispose(); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("second Dispose re-disposed children: n = %d", n)
	}
}

func TestAddDisposableAfterDisposeDisposesImmediately(t *testing.T) {
	c := NewChain()
	if err := c.Dispose(); err != nil {
		t.Fatal(err)
	}
	n := 0
	c.AddDisposable(countingDisposable{&n})
	if n != 1 {
		t.Errorf("expected immediate dispose, n = %d", n)
	}
}

func TestNonDisposableRemainsUsable(t *testing.T) {
	c := NewNonDisposableChain()
	n := 0
	c.AddDisposable(countingDisposable{&n})

	if err := c.Dispose(); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("n = %d, want 1", n)
	}
	if c.IsDisposed() {
		t.Error("non-disposable chain should never report disposed")
	}

	// remains usable: further children can be added and disposed again.
	c.AddDisposable(countingDisposable{&n})
	if err := c.Dispose(); err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("n = %d, want 2", n)
	}
}

func TestDisposeCollectsAggregateErrors(t *testing.T) {
	c := NewChain()
	c.AddDisposable(DisposableFunc(func() error { return errors.New("one") }))
	c.AddDisposable(DisposableFunc(func() error { return errors.New("two") }))

	err := c.Dispose()
	if err == nil {
		t.Fatal("expected aggregate error")
	}
}

func TestRemoveDetachesWithoutDisposing(t *testing.T) {
	c := NewChain()
	n := 0
	d := countingDisposable{&n}
	c.AddDisposable(d)
	c.Remove(d)

	if err := c.Dispose(); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("removed child should not be disposed, n = %d", n)
	}
}

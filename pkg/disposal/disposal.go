// Package disposal implements the parent/child disposal graph shared by
// every VFS, Mount Binding, Observer Handle, and opened stream (spec
// §4.6). Disposing a parent disposes its registered children; a
// "non-disposable" variant drains its children on Dispose but remains
// usable afterwards, for library-global singletons (spec §2.8, §9).
package disposal

import (
	"sync"

	vfserrors "github.com/objectfs/vfscore/pkg/errors"
)

// Disposable is anything that can be torn down.
type Disposable interface {
	Dispose() error
}

// DisposableFunc adapts a plain func to Disposable.
type DisposableFunc func() error

// Dispose calls f.
func (f DisposableFunc) Dispose() error { return f() }

// Chain is an embeddable disposal node: a disposing flag, a disposed
// flag, a mutex-guarded child list, and an optional non-disposable mode.
type Chain struct {
	mu            sync.Mutex
	disposing     bool
	disposed      bool
	nonDisposable bool
	children      []Disposable
}

// NewChain creates a fresh, live disposal node.
func NewChain() *Chain {
	return &Chain{}
}

// NewNonDisposableChain creates a node that, once Dispose()d, drains its
// children but remains usable (spec §2.8, §4.6).
func NewNonDisposableChain() *Chain {
	return &Chain{nonDisposable: true}
}

// AddDisposable registers x as a child. If this node is already
// disposing or disposed, x is disposed immediately instead (spec §4.6).
// The recheck after recording closes the race where Dispose() runs
// concurrently with AddDisposable.
func (c *Chain) AddDisposable(x Disposable) {
	c.mu.Lock()
	if c.disposing || c.disposed {
		c.mu.Unlock()
		_ = x.Dispose()
		return
	}
	c.children = append(c.children, x)
	racedDispose := c.disposing || c.disposed
	c.mu.Unlock()

	if racedDispose {
		c.removeAndDispose(x)
	}
}

func (c *Chain) removeAndDispose(x Disposable) {
	c.mu.Lock()
	for i, child := range c.children {
		if child == x {
			c.children = append(c.children[:i], c.children[i+1:]...)
			break
		}
	}
	c.mu.Unlock()
	_ = x.Dispose()
}

// Remove detaches x from the child list without disposing it; observers
// use this to auto-remove themselves from their parent's disposable list
// when they complete on their own (spec §4.6).
func (c *Chain) Remove(x Disposable) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, child := range c.children {
		if child == x {
			c.children = append(c.children[:i], c.children[i+1:]...)
			return
		}
	}
}

// IsDisposed reports whether this node has finished disposing (always
// false for a non-disposable node, which never leaves the live state).
func (c *Chain) IsDisposed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disposed
}

// Dispose drains dispose actions and children, collecting exceptions.
// actions are this node's own cleanup steps (e.g. closing a file handle,
// unsubscribing from a backend); they run before children are disposed.
// On a non-disposable node the disposing flag is lowered afterwards and
// the child list is emptied, leaving the node usable for further
// AddDisposable calls (spec §4.6).
func (c *Chain) Dispose(actions ...func() error) error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return nil
	}
	c.disposing = true
	children := c.children
	c.children = nil
	c.mu.Unlock()

	var errs []error
	for _, action := range actions {
		if err := action(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, child := range children {
		if err := child.Dispose(); err != nil {
			errs = append(errs, err)
		}
	}

	c.mu.Lock()
	c.disposing = false
	if c.nonDisposable {
		// Drained, but remains usable.
	} else {
		c.disposed = true
	}
	c.mu.Unlock()

	agg := vfserrors.NewAggregate("dispose", errs...)
	if agg == nil {
		return nil
	}
	return agg
}

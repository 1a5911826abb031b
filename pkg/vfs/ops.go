package vfs

import (
	"context"
	"time"

	"github.com/objectfs/vfscore/internal/aggregate"
	"github.com/objectfs/vfscore/internal/mounttree"
	"github.com/objectfs/vfscore/internal/observertree"
	"github.com/objectfs/vfscore/pkg/errors"
	"github.com/objectfs/vfscore/pkg/pathutil"
)

// instrument times fn under operation name, recording its duration and
// any error with the VFS's metrics collector (spec §4.4 "every public
// operation records a metrics observation"). A disabled collector's
// Record* calls are no-ops, so this runs unconditionally.
func (v *VFS) instrument(operation string, fn func() error) error {
	start := time.Now()
	err := fn()
	v.metrics.RecordOperation(operation, time.Since(start), err == nil)
	if err != nil {
		v.metrics.RecordError(operation, err)
		v.logger.Warn("operation failed", map[string]interface{}{
			"operation": operation,
			"error":     err.Error(),
		})
	}
	return err
}

// aggBindingsAlongPath walks the Mount Tree once, holding the structural
// read lock only for the walk itself, and returns the bound
// aggregate.Binding for each Binding encountered, deepest first (the
// priority order read operations unify in, per spec §4.4's "deeper
// binding first, then shallower"). A path that normalizes to one
// escaping root is rejected before the walk ever starts, so no backend
// is ever consulted for it.
func (v *VFS) aggBindingsAlongPath(path string) (terminal *mounttree.Node, bindings []*aggregate.Binding, foundExact bool, err error) {
	normalized, err := pathutil.Normalize(path)
	if err != nil {
		return nil, nil, false, err
	}

	v.mountTree.Lock.RLock()
	defer v.mountTree.Lock.RUnlock()

	node, mbs, exact := v.mountTree.Walk(normalized)
	out := make([]*aggregate.Binding, 0, len(mbs))
	for i := len(mbs) - 1; i >= 0; i-- {
		if ab := v.bindingFor(mbs[i]); ab != nil {
			out = append(out, ab)
		}
	}
	return node, out, exact, nil
}

func virtualChildren(node *mounttree.Node, path string, foundExact bool) []Entry {
	if !foundExact || node == nil {
		return nil
	}
	out := make([]Entry, 0, len(node.Children))
	for name := range node.Children {
		childPath := name
		if path != "" {
			childPath = path + "/" + name
		}
		out = append(out, Entry{Path: childPath, Name: name, Kind: KindDirectory, Length: -1})
	}
	return out
}

// Browse unifies Browse across every Binding on the root-to-path walk
// plus any virtual (binding-less) child directories at path (spec §4.4
// browse).
func (v *VFS) Browse(ctx context.Context, path string) ([]Entry, error) {
	var result []Entry
	err := v.instrument("browse", func() error {
		node, bindings, foundExact, err := v.aggBindingsAlongPath(path)
		if err != nil {
			return err
		}

		var batches [][]Entry
		var lastErr error
		for _, b := range bindings {
			entries, err := b.Browse(ctx, path)
			if err != nil {
				lastErr = err
				continue
			}
			batches = append(batches, entries)
		}
		if virt := virtualChildren(node, path, foundExact); len(virt) > 0 {
			batches = append(batches, virt)
		}

		if len(batches) == 0 {
			if lastErr != nil {
				return lastErr
			}
			return errors.New(errors.KindDirectoryNotFound, "no binding covers path").
				WithVFS(v.name).WithPath(path).WithOperation("browse")
		}
		result = aggregate.MergeByName(batches)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetEntry unifies GetEntry across every Binding on the path, plus a
// synthetic mount-point Entry if path is itself a virtual directory node
// (spec §4.4 getEntry).
func (v *VFS) GetEntry(ctx context.Context, path string) (*Entry, error) {
	var result *Entry
	err := v.instrument("getEntry", func() error {
		node, bindings, foundExact, err := v.aggBindingsAlongPath(path)
		if err != nil {
			return err
		}

		var found []Entry
		var lastErr error
		for _, b := range bindings {
			e, err := b.GetEntry(ctx, path)
			if err != nil {
				lastErr = err
				continue
			}
			if e != nil {
				found = append(found, *e)
			}
		}

		if len(found) == 0 {
			if foundExact && node != nil && (len(node.Children) > 0 || node.Mount != nil) {
				name := node.Name
				e := Entry{Path: path, Name: name, Kind: KindDirectory, Length: -1}
				result = &e
				return nil
			}
			if lastErr != nil {
				return lastErr
			}
			return errors.New(errors.KindFileNotFound, "no binding covers path").
				WithVFS(v.name).WithPath(path).WithOperation("getEntry")
		}
		unified := aggregate.UnifyEntries(found)
		result = &unified
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// bindingsDeepestFirst is aggBindingsAlongPath without the virtual-child
// computation, for the write-type operations that don't need it.
func (v *VFS) bindingsDeepestFirst(path string) ([]*aggregate.Binding, error) {
	_, bindings, _, err := v.aggBindingsAlongPath(path)
	return bindings, err
}

// Open routes to the first Binding (deepest first) whose Components can
// serve the request (spec §4.4's write-operation routing).
func (v *VFS) Open(ctx context.Context, path string, mode OpenMode, access AccessMode, share ShareMode) (Stream, error) {
	var result Stream
	err := v.instrument("open", func() error {
		bindings, err := v.bindingsDeepestFirst(path)
		if err != nil {
			return err
		}
		var lastErr error
		for _, b := range bindings {
			s, err := b.Open(ctx, path, mode, access, share)
			if err == nil {
				result = s
				return nil
			}
			lastErr = err
			if !tolerableCore(err) {
				return err
			}
		}
		return notFoundCore(lastErr, path, "open")
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CreateDirectory routes to the first capable Binding (spec §4.4).
func (v *VFS) CreateDirectory(ctx context.Context, path string) error {
	return v.instrument("createDirectory", func() error {
		bindings, err := v.bindingsDeepestFirst(path)
		if err != nil {
			return err
		}
		var lastErr error
		for _, b := range bindings {
			err := b.CreateDirectory(ctx, path)
			if err == nil {
				return nil
			}
			lastErr = err
			if !tolerableCore(err) {
				return err
			}
		}
		return notFoundCore(lastErr, path, "createDirectory")
	})
}

// Delete routes to the first Binding able to resolve path (spec §4.4).
func (v *VFS) Delete(ctx context.Context, path string, recursive bool) error {
	return v.instrument("delete", func() error {
		bindings, err := v.bindingsDeepestFirst(path)
		if err != nil {
			return err
		}
		var lastErr error
		for _, b := range bindings {
			err := b.Delete(ctx, path, recursive)
			if err == nil {
				return nil
			}
			lastErr = err
			if !tolerableCore(err) {
				return err
			}
		}
		return notFoundCore(lastErr, path, "delete")
	})
}

// SetAttribute follows Delete's routing discipline (spec §4.4).
func (v *VFS) SetAttribute(ctx context.Context, path string, attr Attr) error {
	return v.instrument("setAttribute", func() error {
		bindings, err := v.bindingsDeepestFirst(path)
		if err != nil {
			return err
		}
		var lastErr error
		for _, b := range bindings {
			err := b.SetAttribute(ctx, path, attr)
			if err == nil {
				return nil
			}
			lastErr = err
			if !tolerableCore(err) {
				return err
			}
		}
		return notFoundCore(lastErr, path, "setAttribute")
	})
}

// Move walks both the src and dst mount paths to their deepest Binding
// and delegates routing to internal/aggregate.Move (spec §4.4 move).
func (v *VFS) Move(ctx context.Context, src, dst string) error {
	return v.instrument("move", func() error {
		srcBindings, err := v.bindingsDeepestFirst(src)
		if err != nil {
			return err
		}
		dstBindings, err := v.bindingsDeepestFirst(dst)
		if err != nil {
			return err
		}
		if len(srcBindings) == 0 {
			return errors.New(errors.KindFileNotFound, "no binding covers src").
				WithVFS(v.name).WithPath(src).WithOperation("move")
		}
		if len(dstBindings) == 0 {
			return errors.New(errors.KindDirectoryNotFound, "no binding covers dst").
				WithVFS(v.name).WithPath(dst).WithOperation("move")
		}
		return aggregate.Move(ctx, srcBindings[0], src, dstBindings[0], dst)
	})
}

func tolerableCore(err error) bool {
	return errors.Is(err, errors.KindFileNotFound) ||
		errors.Is(err, errors.KindDirectoryNotFound) ||
		errors.Is(err, errors.KindNotSupported)
}

func notFoundCore(lastErr error, path, op string) error {
	if lastErr != nil {
		return lastErr
	}
	return errors.New(errors.KindFileNotFound, "no binding covers path").
		WithPath(path).WithOperation(op)
}

// dispatchStructural delivers a mount-synthesis event (Create/Delete) to
// every observer handle whose stem is an ancestor of or equal to the
// event path (spec §4.4's event path rebasing rule applied to
// mount/unmount synthesis directly, with no backend-side translation
// needed since the path is already VFS-absolute).
func (v *VFS) dispatchStructural(e Event) {
	v.observerTree.Lock.RLock()
	handles := observertree.Collect(v.observerTree.Root(), e.Path, observertree.Selector{Ancestors: true, Self: true})
	v.observerTree.Lock.RUnlock()

	for _, h := range handles {
		if h.Matcher.Matches(e.Path) {
			h.Dispatch(e)
		}
	}
}

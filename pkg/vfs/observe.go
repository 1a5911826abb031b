package vfs

import (
	"context"
	"time"

	"github.com/objectfs/vfscore/internal/aggregate"
	"github.com/objectfs/vfscore/internal/mounttree"
	"github.com/objectfs/vfscore/internal/observertree"
	"github.com/objectfs/vfscore/pkg/disposal"
	"github.com/objectfs/vfscore/pkg/pathutil"
)

// Observe registers filter in the Observer Tree and subscribes every
// Component whose mounted subtree intersects it (spec §4.4 observe). The
// returned disposal.Disposable detaches the handle, disposes every
// backend subscription it opened, and prunes now-empty Observer Nodes.
func (v *VFS) Observe(ctx context.Context, filter string, sink Sink, dispatcher Dispatcher) (disposal.Disposable, error) {
	start := time.Now()
	result, err := v.observe(ctx, filter, sink, dispatcher)
	v.metrics.RecordOperation("observe", time.Since(start), err == nil)
	if err != nil {
		v.metrics.RecordError("observe", err)
		return nil, err
	}
	v.metrics.SetObserverCount(v.ObserverCount())
	return disposal.DisposableFunc(func() error {
		err := result.Dispose()
		v.metrics.SetObserverCount(v.ObserverCount())
		return err
	}), nil
}

func (v *VFS) observe(ctx context.Context, filter string, sink Sink, dispatcher Dispatcher) (disposal.Disposable, error) {
	if dispatcher == nil {
		dispatcher = SyncDispatcher{}
	}
	handle, err := observertree.NewHandle(v.name, filter, sink, dispatcher)
	if err != nil {
		return nil, err
	}

	v.observerTree.Lock.Lock()
	v.observerTree.GetOrCreate(handle.Stem, handle)
	v.observerTree.Lock.Unlock()

	// Start is emitted before any backend subscription exists, so no
	// backend event can ever be observed ahead of it (spec §4.4).
	handle.Dispatch(Event{Kind: EventStart, Time: now()})

	v.mountTree.Lock.RLock()
	nodes := mounttree.ListMounts(v.mountTree.Root())
	var bindings []*aggregate.Binding
	for _, n := range nodes {
		mountGlob := n.Path() + "/**"
		if n.Path() == "" {
			mountGlob = "**"
		}
		if _, ok := pathutil.GlobIntersect(mountGlob, filter); !ok {
			continue
		}
		if ab := v.bindingFor(n.Mount); ab != nil {
			bindings = append(bindings, ab)
		}
	}
	v.mountTree.Lock.RUnlock()

	// Each Binding subscribes its own Components directly to this
	// handle's sink, already rebased onto VFS paths, so a later Observe
	// call with a wider or narrower filter on the same mount point opens
	// its own backend subscription rather than reusing (and so
	// under-filtering) one opened for a previous handle.
	for _, ab := range bindings {
		subs, err := ab.Observe(ctx, filter, sink, dispatcher)
		if err != nil {
			v.logger.Warn("observe subscription failed", map[string]interface{}{
				"mount":  ab.MountPath,
				"filter": filter,
				"error":  err.Error(),
			})
			continue
		}
		for _, sub := range subs {
			handle.AddSubscription(disposal.DisposableFunc(sub.Dispose))
		}
	}

	return handle, nil
}

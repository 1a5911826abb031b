// Package vfs's VFS type is the composable virtual filesystem core (spec
// §4.4): it owns the Mount Tree and the Observer Tree, implements the
// public filesystem operations, routes calls to Mount Bindings, unifies
// results across bindings, and synthesizes synthetic create/delete
// events when mount structure changes.
package vfs

import (
	"context"
	"sync"
	"time"

	"github.com/objectfs/vfscore/internal/aggregate"
	"github.com/objectfs/vfscore/internal/circuit"
	"github.com/objectfs/vfscore/internal/metrics"
	"github.com/objectfs/vfscore/internal/mounttree"
	"github.com/objectfs/vfscore/internal/observertree"
	"github.com/objectfs/vfscore/internal/scanner"
	"github.com/objectfs/vfscore/pkg/disposal"
	vfserrors "github.com/objectfs/vfscore/pkg/errors"
	"github.com/objectfs/vfscore/pkg/health"
	"github.com/objectfs/vfscore/pkg/recovery"
	"github.com/objectfs/vfscore/pkg/retry"
	"github.com/objectfs/vfscore/pkg/utils"
)

// Component is a (backend, options, path-map) triple attached to a mount
// point; re-exported from internal/mounttree so callers outside this
// module never need to import an internal package directly.
type Component = mounttree.Component

// Config controls the resilience chain every mounted Component is
// wrapped with (spec §4.3) and, optionally, Prometheus metrics export.
type Config struct {
	Breaker circuit.Config
	Retry   retry.Config
	Metrics metrics.Config
	Health  health.TrackerConfig
}

// VFS is the composable virtual filesystem core.
type VFS struct {
	name   string
	config Config

	mountTree    *mounttree.Tree
	observerTree *observertree.Tree

	boundMu sync.Mutex
	bound   map[*mounttree.Binding]*aggregate.Binding

	health  *health.Tracker
	metrics *metrics.Collector
	logger  *utils.StructuredLogger

	disposal *disposal.Chain
}

// New creates an empty VFS named name. name appears in error/metrics
// reporting and as the VFS identity on every event and error.
func New(name string, config Config) *VFS {
	collector, err := metrics.NewCollector(&config.Metrics)
	if err != nil {
		collector, _ = metrics.NewCollector(&metrics.Config{Enabled: false})
	}
	healthConfig := config.Health
	if healthConfig.ErrorThreshold == 0 {
		healthConfig = health.DefaultConfig()
	}
	logger, _ := utils.NewStructuredLogger(nil)
	logger = logger.WithComponent(name)
	return &VFS{
		name:         name,
		config:       config,
		mountTree:    mounttree.New(),
		observerTree: observertree.New(),
		bound:        make(map[*mounttree.Binding]*aggregate.Binding),
		health:       health.NewTracker(healthConfig),
		metrics:      collector,
		logger:       logger,
		disposal:     disposal.NewChain(),
	}
}

// NewNonDisposable creates a VFS whose Dispose drains its registered
// disposables (open streams, observer handles) but leaves the VFS itself
// usable afterwards (spec §2.8 Non-Disposable Mode, for library-global
// singletons).
func NewNonDisposable(name string, config Config) *VFS {
	v := New(name, config)
	v.disposal = disposal.NewNonDisposableChain()
	return v
}

// Dispose tears down every registered disposable (open streams, observer
// handles) reachable from this VFS.
func (v *VFS) Dispose() error {
	return v.disposal.Dispose()
}

func (v *VFS) bindingFor(mb *mounttree.Binding) *aggregate.Binding {
	v.boundMu.Lock()
	defer v.boundMu.Unlock()
	return v.bound[mb]
}

// buildBinding wraps mb's Components with their resilience chain,
// reusing the Runtime (and so the circuit breaker state) of any
// Component that is Equal to one already bound at this mount path, per
// Mount's "reused" component set (spec §4.4).
func (v *VFS) buildBinding(mb *mounttree.Binding, prior *aggregate.Binding) *aggregate.Binding {
	nb := aggregate.New(v.name, mb, v.config.Breaker, v.config.Retry)
	if prior == nil {
		return nb
	}
	for i, c := range mb.Components {
		for _, old := range prior.Components {
			if old.Component.Equal(c) {
				nb.Components[i] = old
				break
			}
		}
	}
	return nb
}

func diffComponents(old *mounttree.Binding, next []Component) (added, removed []Component) {
	var oldComponents []Component
	if old != nil {
		oldComponents = old.Components
	}
	for _, c := range next {
		found := false
		for _, o := range oldComponents {
			if o.Equal(c) {
				found = true
				break
			}
		}
		if !found {
			added = append(added, c)
		}
	}
	for _, o := range oldComponents {
		found := false
		for _, c := range next {
			if o.Equal(c) {
				found = true
				break
			}
		}
		if !found {
			removed = append(removed, o)
		}
	}
	return added, removed
}

// Mount attaches components to path, replacing whatever Binding (if any)
// was there before (spec §4.4 mount).
func (v *VFS) Mount(ctx context.Context, path string, components ...Component) error {
	err := v.instrument("mount", func() error {
		v.mountTree.Lock.Lock()
		node, _, created := v.mountTree.GetOrCreate(path)
		oldBinding := node.Mount
		prior := v.bindingFor2(oldBinding)

		newBinding := &mounttree.Binding{MountPath: path, Components: components}
		node.Mount = newBinding
		newAgg := v.buildBinding(newBinding, prior)

		v.boundMu.Lock()
		delete(v.bound, oldBinding)
		v.bound[newBinding] = newAgg
		v.boundMu.Unlock()

		for _, rt := range newAgg.Components {
			v.health.RegisterComponent(rt.Name())
		}

		added, removed := diffComponents(oldBinding, components)
		v.mountTree.Lock.Unlock()

		for _, n := range created {
			v.dispatchStructural(Event{Kind: EventCreate, Time: now(), Path: n.Path()})
		}
		for _, c := range added {
			v.synthesizeSubtree(ctx, c, path, EventCreate)
		}
		for _, c := range removed {
			v.synthesizeSubtree(ctx, c, path, EventDelete)
		}
		v.logger.Info("mounted", map[string]interface{}{
			"path":       path,
			"components": len(components),
		})
		return nil
	})
	v.metrics.SetMountCount(v.MountCount())
	return err
}

func (v *VFS) bindingFor2(mb *mounttree.Binding) *aggregate.Binding {
	if mb == nil {
		return nil
	}
	return v.bindingFor(mb)
}

// Unmount removes whatever Binding is at path, pruning now-empty Mount
// Nodes upward (spec §4.4 unmount).
func (v *VFS) Unmount(ctx context.Context, path string) error {
	err := v.instrument("unmount", func() error {
		v.mountTree.Lock.Lock()
		node, _, foundExact := v.mountTree.Walk(path)
		if !foundExact || node.Mount == nil {
			v.mountTree.Lock.Unlock()
			return vfserrors.New(vfserrors.KindDirectoryNotFound, "no binding at path").
				WithVFS(v.name).WithPath(path).WithOperation("unmount")
		}

		oldBinding := node.Mount
		removedComponents := oldBinding.Components
		node.Mount = nil

		v.boundMu.Lock()
		delete(v.bound, oldBinding)
		v.boundMu.Unlock()

		prunedPaths := mounttree.Prune(node)
		v.mountTree.Lock.Unlock()

		for _, c := range removedComponents {
			v.synthesizeSubtree(ctx, c, path, EventDelete)
		}
		for _, p := range prunedPaths {
			v.dispatchStructural(Event{Kind: EventDelete, Time: now(), Path: p})
		}
		v.logger.Info("unmounted", map[string]interface{}{"path": path})
		return nil
	})
	v.metrics.SetMountCount(v.MountCount())
	return err
}

// ListMountPoints returns an Entry for every Mount Node carrying a
// Binding (spec §4.4 listMountPoints).
func (v *VFS) ListMountPoints() []Entry {
	v.mountTree.Lock.RLock()
	defer v.mountTree.Lock.RUnlock()

	nodes := mounttree.ListMounts(v.mountTree.Root())
	out := make([]Entry, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, Entry{Path: n.Path(), Name: n.Name, Kind: KindMountPoint, Length: -1})
	}
	return out
}

// synthesizeSubtree scans c's subtree and emits kind (Create or Delete)
// events for every entry found, rebased onto VFS paths (spec §4.4 "Mount
// event synthesis" using the fileScanner utility).
func (v *VFS) synthesizeSubtree(ctx context.Context, c Component, mountPath string, kind EventKind) {
	sc := scanner.New(c.Backend)
	if _, err := sc.AddGlob("**"); err != nil {
		return
	}
	entries, err := recoverScan(ctx, sc, c.Options.SubPath)
	if err != nil {
		return
	}
	for _, e := range entries {
		vfsPath, err := c.PathMap.Inverse(e.Path)
		if err != nil {
			continue
		}
		v.dispatchStructural(Event{Kind: kind, Time: now(), Path: vfsPath})
	}
}

func recoverScan(ctx context.Context, sc *scanner.Scanner, root string) (entries []Entry, err error) {
	err = recovery.Do("scanner", func() error {
		e, err := sc.Scan(ctx, root)
		entries = e
		return err
	})
	return entries, err
}

// now is the single seam through which the VFS core reads wall-clock
// time, kept separate from time.Now so event timestamps can be swapped
// out in tests that need determinism.
var now = time.Now

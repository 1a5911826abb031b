// Package aggregate implements the Aggregating Mount Binding (spec §4.3):
// at one mount node, composes the ordered Components of a Binding into a
// single logical view, applying priority, path rewriting, and capability
// gating, and wrapping each backend call with recovery, a circuit
// breaker, and retry (spec §4.3 "Component wrapping").
package aggregate

import (
	"context"

	"github.com/objectfs/vfscore/internal/circuit"
	"github.com/objectfs/vfscore/internal/mounttree"
	vfserrors "github.com/objectfs/vfscore/pkg/errors"
	"github.com/objectfs/vfscore/pkg/recovery"
	"github.com/objectfs/vfscore/pkg/retry"
	vfs "github.com/objectfs/vfscore/pkg/vfstypes"
)

// Runtime wraps a single mounttree.Component with its resilience chain.
type Runtime struct {
	mounttree.Component
	name    string
	breaker *circuit.Breaker
	retryer *retry.Retryer
}

// NewRuntime builds the wrapping chain for c. name identifies the
// Component in breaker/error reporting (typically "<vfsName>:<mountPath>#<index>:<backend>").
func NewRuntime(name string, c mounttree.Component, breakerCfg circuit.Config, retryCfg retry.Config) *Runtime {
	return &Runtime{
		Component: c,
		name:      name,
		breaker:   circuit.New(name, breakerCfg),
		retryer:   retry.New(retryCfg),
	}
}

// Name returns the Component's identity, as passed to NewRuntime —
// the same string used to label its circuit breaker.
func (r *Runtime) Name() string {
	return r.name
}

// BreakerState returns this Component's circuit breaker state, for
// callers (pkg/health) that translate breaker state into a health signal
// without threading a health.Tracker through every call site.
func (r *Runtime) BreakerState() circuit.State {
	return r.breaker.State()
}

// call runs fn through recovery -> circuit breaker -> retry, in that
// order innermost-out (spec §4.3): recovery converts a panic to an
// IoError first, so the breaker and retry see a uniform error regardless
// of whether the backend failed cleanly or panicked.
func (r *Runtime) call(ctx context.Context, fn func(context.Context) error) error {
	return r.retryer.Do(ctx, func(ctx context.Context) error {
		return r.breaker.Execute(func() error {
			return recovery.Do(r.Backend.Name(), func() error {
				return fn(ctx)
			})
		})
	})
}

// forward maps a VFS-side path through this Component's PathMap, wrapping
// mapping failures as InvalidPath.
func (r *Runtime) forward(vfsPath string) (string, error) {
	childPath, err := r.PathMap.Forward(vfsPath)
	if err != nil {
		return "", vfserrors.New(vfserrors.KindInvalidPath, "path not under mount").
			WithPath(vfsPath).WithCause(err)
	}
	return childPath, nil
}

// supports reports whether this Component declares the given capability.
func (r *Runtime) supports(cap vfs.Capability) bool {
	return r.Options.Capabilities.Has(cap)
}


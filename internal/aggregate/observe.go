package aggregate

import (
	"context"

	"github.com/objectfs/vfscore/pkg/pathutil"
	vfs "github.com/objectfs/vfscore/pkg/vfstypes"
)

// Observe subscribes to every Component whose options allow observe and
// whose mounted subtree intersects filter (spec §4.3 observe). Each
// Component is asked to observe its rebased child-side filter; the
// returned subscriptions forward backend events wrapped so they arrive
// rebased back onto VFS-side paths, as translate requires.
//
// sink and dispatcher are the caller's original Sink/Dispatcher: backend
// events are translated to VFS paths and re-dispatched to the same sink,
// so a single subscription at the VFS Core level fans out transparently
// across every Component that actually has something to report.
func (b *Binding) Observe(ctx context.Context, filter string, sink vfs.Sink, dispatcher vfs.Dispatcher) ([]vfs.Subscription, error) {
	mountGlob := b.MountPath + "/**"
	if b.MountPath == "" {
		mountGlob = "**"
	}
	intersection, ok := pathutil.GlobIntersect(mountGlob, filter)
	if !ok {
		return nil, nil
	}

	var subs []vfs.Subscription
	for _, rt := range b.Components {
		if !rt.supports(vfs.CapObserve) {
			continue
		}
		childFilter, err := rt.forward(intersection)
		if err != nil {
			continue
		}
		childSink := translatingSink(rt, b.MountPath, sink)

		var sub vfs.Subscription
		err = rt.call(ctx, func(ctx context.Context) error {
			s, err := rt.Backend.Observe(ctx, childFilter, childSink, dispatcher)
			sub = s
			return err
		})
		if err != nil {
			if tolerable(err) {
				continue
			}
			for _, s := range subs {
				s.Dispose()
			}
			return nil, err
		}
		if sub != nil {
			subs = append(subs, sub)
		}
	}
	return subs, nil
}

// translatingSink wraps sink so that backend-reported child paths are
// rebased back to VFS-absolute paths before the caller ever sees them
// (spec §4.4's event path rebasing). An event whose path fails to
// rebase is dropped, per the same section.
func translatingSink(rt *Runtime, mountPath string, sink vfs.Sink) vfs.Sink {
	rebase := func(childPath string) (string, bool) {
		if childPath == "" {
			return mountPath, true
		}
		vfsPath, err := rt.PathMap.Inverse(childPath)
		if err != nil {
			return "", false
		}
		return vfsPath, true
	}

	return vfs.Sink{
		OnNext: func(e vfs.Event) {
			switch e.Kind {
			case vfs.EventRename:
				oldPath, ok1 := rebase(e.OldPath)
				newPath, ok2 := rebase(e.NewPath)
				if !ok1 || !ok2 {
					return
				}
				e.OldPath, e.NewPath = oldPath, newPath
			default:
				if e.Path != "" {
					p, ok := rebase(e.Path)
					if !ok {
						return
					}
					e.Path = p
				}
				if e.ErrPath != "" {
					p, ok := rebase(e.ErrPath)
					if ok {
						e.ErrPath = p
					}
				}
			}
			if sink.OnNext != nil {
				sink.OnNext(e)
			}
		},
		OnError: sink.OnError,
		OnCompleted: sink.OnCompleted,
	}
}

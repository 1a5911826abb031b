package memory

import (
	"context"
	"time"

	"github.com/objectfs/vfscore/pkg/pathutil"
	"github.com/objectfs/vfscore/pkg/vfstypes"
)

type subscription struct {
	backend *Backend
	id      int
	matcher *pathutil.Matcher
	sink    vfstypes.Sink
	dispatcher vfstypes.Dispatcher
}

// Observe subscribes sink to every Create/Change/Delete/Rename this
// in-memory tree emits at a path matching filter.
func (b *Backend) Observe(ctx context.Context, filter string, sink vfstypes.Sink, dispatcher vfstypes.Dispatcher) (vfstypes.Subscription, error) {
	matcher, err := pathutil.CompileGlob(filter)
	if err != nil {
		return nil, err
	}
	if dispatcher == nil {
		dispatcher = vfstypes.SyncDispatcher{}
	}

	b.subsMu.Lock()
	id := b.nextID
	b.nextID++
	sub := &subscription{backend: b, id: id, matcher: matcher, sink: sink, dispatcher: dispatcher}
	b.subs[id] = sub
	b.subsMu.Unlock()

	return sub, nil
}

func (s *subscription) dispatchEvent(e vfstypes.Event) {
	s.dispatcher.Dispatch(func() {
		if s.sink.OnNext != nil {
			s.sink.OnNext(e)
		}
	})
}

// Dispose ends this subscription; no further events are delivered.
func (s *subscription) Dispose() error {
	s.backend.subsMu.Lock()
	delete(s.backend.subs, s.id)
	s.backend.subsMu.Unlock()
	return nil
}

// notify delivers an event of kind to every live subscription whose
// matcher matches the relevant path(s). Called with b.mu already held by
// the mutating operation, so subscription dispatch never races a
// concurrent tree mutation's own notify call.
func (b *Backend) notify(kind vfstypes.EventKind, path, oldPath, newPath string) {
	e := vfstypes.Event{Kind: kind, Time: time.Now(), Path: path, OldPath: oldPath, NewPath: newPath}

	b.subsMu.Lock()
	subs := make([]*subscription, 0, len(b.subs))
	for _, s := range b.subs {
		subs = append(subs, s)
	}
	b.subsMu.Unlock()

	for _, s := range subs {
		matchPath := path
		if kind == vfstypes.EventRename {
			if s.matcher.Matches(oldPath) || s.matcher.Matches(newPath) {
				s.dispatchEvent(e)
			}
			continue
		}
		if s.matcher.Matches(matchPath) {
			s.dispatchEvent(e)
		}
	}
}

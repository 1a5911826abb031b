package local

import (
	"context"

	vfserrors "github.com/objectfs/vfscore/pkg/errors"
	"github.com/objectfs/vfscore/pkg/vfstypes"
)

// Observe is not implemented: this backend carries no filesystem-change
// notification mechanism. Mount it without CapObserve in its Options so
// the VFS Core never routes an Observe call here.
func (b *Backend) Observe(ctx context.Context, filter string, sink vfstypes.Sink, dispatcher vfstypes.Dispatcher) (vfstypes.Subscription, error) {
	return nil, vfserrors.New(vfserrors.KindNotSupported, "local backend does not support observe").
		WithComponent(b.name)
}

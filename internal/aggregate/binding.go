package aggregate

import (
	"context"

	"github.com/objectfs/vfscore/internal/circuit"
	"github.com/objectfs/vfscore/internal/mounttree"
	vfserrors "github.com/objectfs/vfscore/pkg/errors"
	"github.com/objectfs/vfscore/pkg/retry"
	vfs "github.com/objectfs/vfscore/pkg/vfstypes"
)

// Binding is the Aggregating Mount Binding (spec §4.3): the runtime
// behavior attached to one Mount Node's mounttree.Binding. It exposes the
// same operation set as the VFS core itself, scoped to its mount path.
type Binding struct {
	VFSName    string
	MountPath  string
	Components []*Runtime
}

// New wraps a mounttree.Binding's Components with their resilience chain.
// vfsName and the binding's MountPath are used to name each Component's
// breaker and to tag raised errors.
func New(vfsName string, b *mounttree.Binding, breakerCfg circuit.Config, retryCfg retry.Config) *Binding {
	runtimes := make([]*Runtime, len(b.Components))
	for i, c := range b.Components {
		runtimes[i] = NewRuntime(componentName(vfsName, b.MountPath, i, c), c, breakerCfg, retryCfg)
	}
	return &Binding{VFSName: vfsName, MountPath: b.MountPath, Components: runtimes}
}

func componentName(vfsName, mountPath string, index int, c mounttree.Component) string {
	return vfsName + ":" + mountPath + "#" + itoa(index) + ":" + c.Backend.Name()
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	digits := []byte{}
	neg := i < 0
	if neg {
		i = -i
	}
	for i > 0 {
		digits = append([]byte{byte('0' + i%10)}, digits...)
		i /= 10
	}
	if neg {
		digits = append([]byte{'-'}, digits...)
	}
	return string(digits)
}

// tolerable reports whether err is the kind of "supported but the path in
// particular isn't there" failure that the aggregate's search discipline
// tolerates while scanning for the next Component (spec §4.3): a
// not-found of either kind, or a declared-but-per-path NotSupported.
func tolerable(err error) bool {
	return vfserrors.Is(err, vfserrors.KindFileNotFound) ||
		vfserrors.Is(err, vfserrors.KindDirectoryNotFound) ||
		vfserrors.Is(err, vfserrors.KindNotSupported)
}

// Browse unifies browse results across every Component that declares
// CapBrowse (spec §4.3 browse).
func (b *Binding) Browse(ctx context.Context, path string) ([]vfs.Entry, error) {
	var batches [][]vfs.Entry
	var lastErr error
	attempted := false

	for _, rt := range b.Components {
		if !rt.supports(vfs.CapBrowse) {
			continue
		}
		attempted = true
		childPath, err := rt.forward(path)
		if err != nil {
			lastErr = err
			continue
		}
		var entries []vfs.Entry
		err = rt.call(ctx, func(ctx context.Context) error {
			e, err := rt.Backend.Browse(ctx, childPath)
			entries = e
			return err
		})
		if err != nil {
			if tolerable(err) {
				lastErr = err
				continue
			}
			return nil, err
		}
		batches = append(batches, translateEntries(rt, entries))
	}

	if len(batches) == 0 {
		if !attempted {
			return nil, vfserrors.New(vfserrors.KindNotSupported, "no Component supports browse").
				WithPath(path).WithOperation("browse")
		}
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, vfserrors.New(vfserrors.KindDirectoryNotFound, "not found in any Component").
			WithPath(path).WithOperation("browse")
	}
	return mergeByName(batches), nil
}

// GetEntry unifies get-entry results across every Component that
// declares CapGetEntry (spec §4.3 getEntry).
func (b *Binding) GetEntry(ctx context.Context, path string) (*vfs.Entry, error) {
	var found []vfs.Entry
	var lastErr error
	attempted := false

	for _, rt := range b.Components {
		if !rt.supports(vfs.CapGetEntry) {
			continue
		}
		attempted = true
		childPath, err := rt.forward(path)
		if err != nil {
			lastErr = err
			continue
		}
		var entry *vfs.Entry
		err = rt.call(ctx, func(ctx context.Context) error {
			e, err := rt.Backend.GetEntry(ctx, childPath)
			entry = e
			return err
		})
		if err != nil {
			if tolerable(err) {
				lastErr = err
				continue
			}
			return nil, err
		}
		if entry != nil {
			found = append(found, translateEntry(rt, *entry))
		}
	}

	if len(found) == 0 {
		if !attempted {
			return nil, vfserrors.New(vfserrors.KindNotSupported, "no Component supports get-entry").
				WithPath(path).WithOperation("getEntry")
		}
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, vfserrors.New(vfserrors.KindFileNotFound, "not found in any Component").
			WithPath(path).WithOperation("getEntry")
	}
	unified := unifyEntries(found)
	return &unified, nil
}

// Open is a linear scan in priority order: the first Component whose
// options allow the requested access and which does not raise
// not-supported/not-found wins (spec §4.3 open).
func (b *Binding) Open(ctx context.Context, path string, mode vfs.OpenMode, access vfs.AccessMode, share vfs.ShareMode) (vfs.Stream, error) {
	needed := vfs.CapOpenRead
	if access&vfs.AccessWrite != 0 {
		needed = vfs.CapOpenWrite
	}
	var lastErr error
	attempted := false

	for _, rt := range b.Components {
		if !rt.supports(needed) {
			continue
		}
		attempted = true
		childPath, err := rt.forward(path)
		if err != nil {
			lastErr = err
			continue
		}
		var stream vfs.Stream
		err = rt.call(ctx, func(ctx context.Context) error {
			s, err := rt.Backend.Open(ctx, childPath, mode, access, share)
			stream = s
			return err
		})
		if err != nil {
			if tolerable(err) {
				lastErr = err
				continue
			}
			return nil, err
		}
		return stream, nil
	}

	return nil, notFoundOrNotSupported(attempted, lastErr, path, "open")
}

// CreateDirectory uses the first Component whose options allow
// create-directory and does not raise not-supported (spec §4.3
// createDirectory).
func (b *Binding) CreateDirectory(ctx context.Context, path string) error {
	var lastErr error
	attempted := false

	for _, rt := range b.Components {
		if !rt.supports(vfs.CapCreateDirectory) {
			continue
		}
		attempted = true
		childPath, err := rt.forward(path)
		if err != nil {
			lastErr = err
			continue
		}
		err = rt.call(ctx, func(ctx context.Context) error {
			return rt.Backend.CreateDirectory(ctx, childPath)
		})
		if err != nil {
			if vfserrors.Is(err, vfserrors.KindNotSupported) {
				lastErr = err
				continue
			}
			return err
		}
		return nil
	}

	if !attempted {
		return vfserrors.New(vfserrors.KindNotSupported, "no Component supports create-directory").
			WithPath(path).WithOperation("createDirectory")
	}
	if lastErr != nil {
		return lastErr
	}
	return vfserrors.New(vfserrors.KindNotSupported, "no Component accepted create-directory").
		WithPath(path).WithOperation("createDirectory")
}

// Delete uses the first Component that supports delete and to which path
// resolves an existing entry (spec §4.3 delete's routing discipline).
func (b *Binding) Delete(ctx context.Context, path string, recursive bool) error {
	var lastErr error
	attempted := false

	for _, rt := range b.Components {
		if !rt.supports(vfs.CapDelete) {
			continue
		}
		attempted = true
		childPath, err := rt.forward(path)
		if err != nil {
			lastErr = err
			continue
		}
		err = rt.call(ctx, func(ctx context.Context) error {
			return rt.Backend.Delete(ctx, childPath, recursive)
		})
		if err != nil {
			if tolerable(err) {
				lastErr = err
				continue
			}
			return err
		}
		return nil
	}

	return notFoundOrNotSupported(attempted, lastErr, path, "delete")
}

// SetAttribute follows delete's routing discipline (spec §4.3 setAttribute).
func (b *Binding) SetAttribute(ctx context.Context, path string, attr vfs.Attr) error {
	var lastErr error
	attempted := false

	for _, rt := range b.Components {
		if !rt.supports(vfs.CapSetAttribute) {
			continue
		}
		attempted = true
		childPath, err := rt.forward(path)
		if err != nil {
			lastErr = err
			continue
		}
		err = rt.call(ctx, func(ctx context.Context) error {
			return rt.Backend.SetAttribute(ctx, childPath, attr)
		})
		if err != nil {
			if tolerable(err) {
				lastErr = err
				continue
			}
			return err
		}
		return nil
	}

	return notFoundOrNotSupported(attempted, lastErr, path, "setAttribute")
}

func notFoundOrNotSupported(attempted bool, lastErr error, path, op string) error {
	if !attempted {
		return vfserrors.New(vfserrors.KindNotSupported, "no Component supports "+op).
			WithPath(path).WithOperation(op)
	}
	if lastErr != nil {
		return lastErr
	}
	return vfserrors.New(vfserrors.KindFileNotFound, "not found in any Component").
		WithPath(path).WithOperation(op)
}

package aggregate

import (
	"context"
	"io"

	vfserrors "github.com/objectfs/vfscore/pkg/errors"
	vfs "github.com/objectfs/vfscore/pkg/vfstypes"
)

// Move routes a move from srcBinding (which owns src) to dstBinding
// (which owns dst) — the two may be the same Binding, e.g. a rename
// within one mount (spec §4.3 move).
//
// Routing first looks for one unambiguous src Component (mapped src
// exists) and one unambiguous dst Component (mapped dst's parent exists
// and is a directory). If both resolve to the same backend, the move is
// native; otherwise it falls back to copy-then-delete. When routing
// can't settle on a single pair this way, every reasonable
// (src-Component, dst-Component) pair is attempted in priority order
// until one succeeds, stopping early only on a non-tolerable failure.
func Move(ctx context.Context, srcBinding *Binding, src string, dstBinding *Binding, dst string) error {
	srcRt, srcChild, srcErr := locateExisting(ctx, srcBinding, src)
	dstRt, dstChild, dstErr := locateDestination(ctx, dstBinding, dst)

	if srcErr == nil && dstErr == nil {
		return moveViaPair(ctx, srcRt, srcChild, dstRt, dstChild)
	}

	var lastErr error
	for _, s := range srcBinding.Components {
		if !s.supports(vfs.CapMove) {
			continue
		}
		sChild, err := s.forward(src)
		if err != nil {
			lastErr = err
			continue
		}
		for _, d := range dstBinding.Components {
			if !d.supports(vfs.CapMove) {
				continue
			}
			dChild, err := d.forward(dst)
			if err != nil {
				lastErr = err
				continue
			}
			err = moveViaPair(ctx, s, sChild, d, dChild)
			if err == nil {
				return nil
			}
			if tolerable(err) {
				lastErr = err
				continue
			}
			return err
		}
	}

	if lastErr != nil {
		return lastErr
	}
	return vfserrors.New(vfserrors.KindFileNotFound, "no Component pair could route move").
		WithPath(src).WithOperation("move")
}

func moveViaPair(ctx context.Context, srcRt *Runtime, srcChild string, dstRt *Runtime, dstChild string) error {
	if srcRt.Backend == dstRt.Backend {
		return srcRt.call(ctx, func(ctx context.Context) error {
			return srcRt.Backend.Move(ctx, srcChild, dstChild)
		})
	}
	return transfer(ctx, srcRt, srcChild, dstRt, dstChild)
}

// transfer implements the cross-backend fallback: open src for read,
// open dst for create-or-truncate write, copy the bytes, then delete src.
func transfer(ctx context.Context, srcRt *Runtime, srcChild string, dstRt *Runtime, dstChild string) error {
	var in vfs.Stream
	err := srcRt.call(ctx, func(ctx context.Context) error {
		s, err := srcRt.Backend.Open(ctx, srcChild, vfs.ModeOpen, vfs.AccessRead, vfs.ShareRead)
		in = s
		return err
	})
	if err != nil {
		return err
	}
	defer in.Close()

	var out vfs.Stream
	err = dstRt.call(ctx, func(ctx context.Context) error {
		s, err := dstRt.Backend.Open(ctx, dstChild, vfs.ModeOpenOrCreate, vfs.AccessWrite, vfs.ShareNone)
		out = s
		return err
	})
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return vfserrors.New(vfserrors.KindIoError, "transfer copy failed").
			WithPath(srcChild).WithCause(err)
	}
	if err := out.Close(); err != nil {
		return vfserrors.New(vfserrors.KindIoError, "transfer close failed").
			WithPath(dstChild).WithCause(err)
	}

	return srcRt.call(ctx, func(ctx context.Context) error {
		return srcRt.Backend.Delete(ctx, srcChild, false)
	})
}

// locateExisting finds the first Component in priority order whose
// mapped path exists, for move's src-side routing.
func locateExisting(ctx context.Context, b *Binding, path string) (*Runtime, string, error) {
	var lastErr error
	for _, rt := range b.Components {
		if !rt.supports(vfs.CapMove) {
			continue
		}
		childPath, err := rt.forward(path)
		if err != nil {
			lastErr = err
			continue
		}
		err = rt.call(ctx, func(ctx context.Context) error {
			_, err := rt.Backend.GetEntry(ctx, childPath)
			return err
		})
		if err == nil {
			return rt, childPath, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = vfserrors.New(vfserrors.KindFileNotFound, "no Component supports move").WithPath(path)
	}
	return nil, "", lastErr
}

// locateDestination finds the first Component in priority order whose
// mapped dst's parent exists and is a directory, for move's dst-side
// routing.
func locateDestination(ctx context.Context, b *Binding, path string) (*Runtime, string, error) {
	parent, _ := splitParent(path)
	var lastErr error
	for _, rt := range b.Components {
		if !rt.supports(vfs.CapMove) {
			continue
		}
		childPath, err := rt.forward(path)
		if err != nil {
			lastErr = err
			continue
		}
		childParent, err := rt.forward(parent)
		if err != nil {
			lastErr = err
			continue
		}
		var entry *vfs.Entry
		err = rt.call(ctx, func(ctx context.Context) error {
			e, err := rt.Backend.GetEntry(ctx, childParent)
			entry = e
			return err
		})
		if err != nil {
			lastErr = err
			continue
		}
		if entry.Kind != vfs.KindDirectory && entry.Kind != vfs.KindFileAndDirectory {
			lastErr = vfserrors.New(vfserrors.KindDirectoryNotFound, "destination parent is not a directory").
				WithPath(parent)
			continue
		}
		return rt, childPath, nil
	}
	if lastErr == nil {
		lastErr = vfserrors.New(vfserrors.KindDirectoryNotFound, "no Component supports move destination").WithPath(path)
	}
	return nil, "", lastErr
}

func splitParent(path string) (string, string) {
	idx := -1
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			idx = i
			break
		}
	}
	if idx < 0 {
		return "", path
	}
	return path[:idx], path[idx+1:]
}

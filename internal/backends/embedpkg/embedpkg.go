// Package embedpkg implements a read-only Backend over a Go embed.FS:
// the "embedded package" backend spec.md names as a concrete example of
// an out-of-scope backend, supported here as a fifth capability point
// that a caller can mount when it wants assets baked into the binary
// (documentation, default configuration, a bundled UI) addressable
// through the same VFS namespace as everything else.
package embedpkg

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"sort"

	vfserrors "github.com/objectfs/vfscore/pkg/errors"
	"github.com/objectfs/vfscore/pkg/vfstypes"
)

// Backend roots a VFS subtree at an fs.FS (typically an embed.FS).
type Backend struct {
	name string
	fsys fs.FS
}

// New creates a read-only Backend over fsys.
func New(name string, fsys fs.FS) *Backend {
	return &Backend{name: name, fsys: fsys}
}

func (b *Backend) Name() string { return b.name }

func fsPath(path string) string {
	if path == "" {
		return "."
	}
	return path
}

func translateFsErr(err error, path string) error {
	if errors.Is(err, fs.ErrNotExist) {
		return vfserrors.New(vfserrors.KindFileNotFound, "no such file").WithPath(path).WithCause(err)
	}
	return vfserrors.New(vfserrors.KindIoError, "embedded filesystem read failed").WithPath(path).WithCause(err)
}

// Browse lists the immediate children of a directory.
func (b *Backend) Browse(ctx context.Context, path string) ([]vfstypes.Entry, error) {
	entries, err := fs.ReadDir(b.fsys, fsPath(path))
	if err != nil {
		return nil, translateFsErr(err, path)
	}

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	sort.Strings(names)

	out := make([]vfstypes.Entry, 0, len(names))
	for _, name := range names {
		childPath := name
		if path != "" {
			childPath = path + "/" + name
		}
		info, err := fs.Stat(b.fsys, fsPath(childPath))
		if err != nil {
			continue
		}
		out = append(out, toEntry(childPath, info))
	}
	return out, nil
}

func toEntry(path string, info fs.FileInfo) vfstypes.Entry {
	kind := vfstypes.KindFile
	length := info.Size()
	if info.IsDir() {
		kind = vfstypes.KindDirectory
		length = -1
	}
	return vfstypes.Entry{
		Path:         path,
		Name:         info.Name(),
		Kind:         kind,
		Length:       length,
		LastModified: info.ModTime(),
		Attributes:   vfstypes.AttrReadOnly,
		HasAttrs:     true,
	}
}

// GetEntry returns metadata for path, or nil if it does not exist.
func (b *Backend) GetEntry(ctx context.Context, path string) (*vfstypes.Entry, error) {
	info, err := fs.Stat(b.fsys, fsPath(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, translateFsErr(err, path)
	}
	e := toEntry(path, info)
	return &e, nil
}

// Open supports read access only: an access that requests Write is
// rejected with NotSupported. mode is not consulted.
func (b *Backend) Open(ctx context.Context, path string, mode vfstypes.OpenMode, access vfstypes.AccessMode, share vfstypes.ShareMode) (vfstypes.Stream, error) {
	if access.Has(vfstypes.AccessWrite) {
		return nil, vfserrors.New(vfserrors.KindNotSupported, "embedded backend is read-only").WithPath(path)
	}
	f, err := b.fsys.Open(fsPath(path))
	if err != nil {
		return nil, translateFsErr(err, path)
	}
	return &readStream{f: f}, nil
}

// CreateDirectory is not supported: the backend is read-only.
func (b *Backend) CreateDirectory(ctx context.Context, path string) error {
	return vfserrors.New(vfserrors.KindNotSupported, "embedded backend is read-only").WithPath(path)
}

// Delete is not supported: the backend is read-only.
func (b *Backend) Delete(ctx context.Context, path string, recursive bool) error {
	return vfserrors.New(vfserrors.KindNotSupported, "embedded backend is read-only").WithPath(path)
}

// Move is not supported: the backend is read-only.
func (b *Backend) Move(ctx context.Context, src, dst string) error {
	return vfserrors.New(vfserrors.KindNotSupported, "embedded backend is read-only").WithPath(src)
}

// SetAttribute is not supported: the backend is read-only.
func (b *Backend) SetAttribute(ctx context.Context, path string, attr vfstypes.Attr) error {
	return vfserrors.New(vfserrors.KindNotSupported, "embedded backend is read-only").WithPath(path)
}

// Observe is not supported: an embed.FS never changes at runtime.
func (b *Backend) Observe(ctx context.Context, filter string, sink vfstypes.Sink, dispatcher vfstypes.Dispatcher) (vfstypes.Subscription, error) {
	return nil, vfserrors.New(vfserrors.KindNotSupported, "embedded backend does not change at runtime").WithComponent(b.name)
}

type readStream struct {
	f fs.File
}

func (s *readStream) Read(p []byte) (int, error) { return s.f.Read(p) }

func (s *readStream) Write(p []byte) (int, error) {
	return 0, vfserrors.New(vfserrors.KindNotSupported, "embedded backend is read-only")
}

func (s *readStream) Seek(offset int64, whence int) (int64, error) {
	if seeker, ok := s.f.(io.Seeker); ok {
		return seeker.Seek(offset, whence)
	}
	return 0, vfserrors.New(vfserrors.KindNotSupported, "underlying file does not support seek")
}

func (s *readStream) Close() error { return s.f.Close() }

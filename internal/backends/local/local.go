// Package local implements a Backend rooted at a directory on the local
// disk. Every VFS path, including the root "", resolves under the
// directory passed to New, so a Backend constructed with root "/" maps ""
// to "/". There is no Windows drive-letter handling: root "" does not
// list drive entries, and a path beginning with a drive identifier is
// resolved under the root like any other path. A path that would escape
// the root is rejected with PathEscape.
package local

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	vfserrors "github.com/objectfs/vfscore/pkg/errors"
	"github.com/objectfs/vfscore/pkg/pathutil"
	"github.com/objectfs/vfscore/pkg/vfstypes"
)

// Backend roots a VFS subtree at a directory on local disk.
type Backend struct {
	name string
	root string
}

// New creates a Backend rooted at root, which must already exist.
func New(name, root string) (*Backend, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, vfserrors.New(vfserrors.KindInvalidPath, "cannot resolve root").WithPath(root).WithCause(err)
	}
	return &Backend{name: name, root: abs}, nil
}

func (b *Backend) Name() string { return b.name }

// resolve maps a VFS-relative path onto a native filesystem path under
// b.root, rejecting any path that escapes it.
func (b *Backend) resolve(path string) (string, error) {
	segs := pathutil.Split(path)
	native := filepath.Join(append([]string{b.root}, segs...)...)
	rel, err := filepath.Rel(b.root, native)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", vfserrors.New(vfserrors.KindPathEscape, "path escapes backend root").WithPath(path)
	}
	return native, nil
}

func translateOSErr(err error, path string) error {
	if os.IsNotExist(err) {
		return vfserrors.New(vfserrors.KindFileNotFound, "no such file or directory").WithPath(path).WithCause(err)
	}
	if os.IsPermission(err) {
		return vfserrors.New(vfserrors.KindUnauthorized, "permission denied").WithPath(path).WithCause(err)
	}
	if os.IsExist(err) {
		return vfserrors.New(vfserrors.KindAlreadyExists, "already exists").WithPath(path).WithCause(err)
	}
	return vfserrors.New(vfserrors.KindIoError, "local disk operation failed").WithPath(path).WithCause(err)
}

func toEntry(vfsPath, native string, info os.FileInfo) vfstypes.Entry {
	kind := vfstypes.KindFile
	length := info.Size()
	if info.IsDir() {
		kind = vfstypes.KindDirectory
		length = -1
	}
	attrs := vfstypes.Attr(0)
	if info.Mode()&0o222 == 0 {
		attrs |= vfstypes.AttrReadOnly
	}
	if strings.HasPrefix(info.Name(), ".") {
		attrs |= vfstypes.AttrHidden
	}
	return vfstypes.Entry{
		Path:         vfsPath,
		Name:         info.Name(),
		Kind:         kind,
		Length:       length,
		LastModified: info.ModTime(),
		LastAccess:   info.ModTime(),
		Attributes:   attrs,
		HasAttrs:     attrs != 0,
		PhysicalPath: native,
	}
}

// Browse lists the immediate children of a directory.
func (b *Backend) Browse(ctx context.Context, path string) ([]vfstypes.Entry, error) {
	native, err := b.resolve(path)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(native)
	if err != nil {
		return nil, translateOSErr(err, path)
	}

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	sort.Strings(names)

	out := make([]vfstypes.Entry, 0, len(names))
	for _, name := range names {
		childNative := filepath.Join(native, name)
		info, err := os.Lstat(childNative)
		if err != nil {
			continue
		}
		childPath := name
		if path != "" {
			childPath = path + "/" + name
		}
		out = append(out, toEntry(childPath, childNative, info))
	}
	return out, nil
}

// GetEntry returns metadata for path, or nil if it does not exist.
func (b *Backend) GetEntry(ctx context.Context, path string) (*vfstypes.Entry, error) {
	native, err := b.resolve(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Lstat(native)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, translateOSErr(err, path)
	}
	e := toEntry(path, native, info)
	return &e, nil
}

func openFlags(mode vfstypes.OpenMode, access vfstypes.AccessMode) (int, error) {
	var flags int
	switch access {
	case vfstypes.AccessRead:
		flags = os.O_RDONLY
	case vfstypes.AccessWrite:
		flags = os.O_WRONLY
	case vfstypes.AccessReadWrite:
		flags = os.O_RDWR
	default:
		return 0, vfserrors.New(vfserrors.KindInvalidPath, "no access mode requested")
	}

	switch mode {
	case vfstypes.ModeOpen:
	case vfstypes.ModeCreate:
		flags |= os.O_CREATE
	case vfstypes.ModeCreateNew:
		flags |= os.O_CREATE | os.O_EXCL
	case vfstypes.ModeOpenOrCreate:
		flags |= os.O_CREATE
	case vfstypes.ModeTruncate:
		flags |= os.O_CREATE | os.O_TRUNC
	case vfstypes.ModeAppend:
		flags |= os.O_CREATE | os.O_APPEND
	}
	return flags, nil
}

// Open opens path, creating it per mode when requested.
func (b *Backend) Open(ctx context.Context, path string, mode vfstypes.OpenMode, access vfstypes.AccessMode, share vfstypes.ShareMode) (vfstypes.Stream, error) {
	native, err := b.resolve(path)
	if err != nil {
		return nil, err
	}
	flags, err := openFlags(mode, access)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(native, flags, 0o644)
	if err != nil {
		return nil, translateOSErr(err, path)
	}
	return &stream{f: f, path: path}, nil
}

// CreateDirectory creates path, including any missing intermediate
// segments.
func (b *Backend) CreateDirectory(ctx context.Context, path string) error {
	native, err := b.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(native, 0o755); err != nil {
		return translateOSErr(err, path)
	}
	return nil
}

// Delete removes path. recursive permits removing a non-empty directory.
func (b *Backend) Delete(ctx context.Context, path string, recursive bool) error {
	native, err := b.resolve(path)
	if err != nil {
		return err
	}
	if recursive {
		if err := os.RemoveAll(native); err != nil {
			return translateOSErr(err, path)
		}
		return nil
	}
	if err := os.Remove(native); err != nil {
		return translateOSErr(err, path)
	}
	return nil
}

// Move relocates src to dst within the local filesystem.
func (b *Backend) Move(ctx context.Context, src, dst string) error {
	srcNative, err := b.resolve(src)
	if err != nil {
		return err
	}
	dstNative, err := b.resolve(dst)
	if err != nil {
		return err
	}
	if err := os.Rename(srcNative, dstNative); err != nil {
		return translateOSErr(err, src)
	}
	return nil
}

// SetAttribute applies the subset of attr the local filesystem can
// express: AttrReadOnly toggles the write-permission bits.
func (b *Backend) SetAttribute(ctx context.Context, path string, attr vfstypes.Attr) error {
	native, err := b.resolve(path)
	if err != nil {
		return err
	}
	info, err := os.Stat(native)
	if err != nil {
		return translateOSErr(err, path)
	}
	mode := info.Mode()
	if attr&vfstypes.AttrReadOnly != 0 {
		mode &^= 0o222
	} else {
		mode |= 0o200
	}
	if err := os.Chmod(native, mode); err != nil {
		return translateOSErr(err, path)
	}
	return nil
}

type stream struct {
	f    *os.File
	path string
}

func (s *stream) Read(p []byte) (int, error)                  { return s.f.Read(p) }
func (s *stream) Write(p []byte) (int, error)                 { return s.f.Write(p) }
func (s *stream) Seek(offset int64, whence int) (int64, error) { return s.f.Seek(offset, whence) }
func (s *stream) Close() error {
	if err := s.f.Close(); err != nil {
		return translateOSErr(err, s.path)
	}
	return nil
}

var _ io.ReadWriteSeeker = (*stream)(nil)

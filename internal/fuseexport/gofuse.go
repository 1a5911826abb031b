//go:build !cgofuse
// +build !cgofuse

package fuseexport

import (
	"context"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"syscall"

	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	vfserrors "github.com/objectfs/vfscore/pkg/errors"
	"github.com/objectfs/vfscore/pkg/vfs"
)

// goFuseExporter exports a *vfs.VFS through go-fuse/v2, the binding used
// on Linux and macOS (the teacher's default, non-cgofuse path).
type goFuseExporter struct {
	vfsCore *vfs.VFS
	config  *Config

	mu      sync.Mutex
	server  *fuse.Server
	mounted bool

	lookups, opens, reads, writes, bytesRead, bytesWritten, errors atomic.Int64
}

// NewExporter creates the platform Exporter for this build (go-fuse).
func NewExporter(vfsCore *vfs.VFS, config *Config) Exporter {
	if config == nil {
		config = DefaultConfig("")
	}
	return &goFuseExporter{vfsCore: vfsCore, config: config}
}

func (e *goFuseExporter) Mount() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.mounted {
		return vfserrors.New(vfserrors.KindAlreadyExists, "already mounted").WithPath(e.config.MountPoint)
	}

	root := &directoryNode{exp: e, path: ""}
	attrTimeout := e.config.AttrCacheTTL
	entryTimeout := e.config.AttrCacheTTL
	opts := &gofuse.Options{
		MountOptions: fuse.MountOptions{
			FsName:     e.config.Options.FSName,
			Name:       e.config.Options.Subtype,
			Debug:      e.config.Options.Debug,
			AllowOther: e.config.Options.AllowOther,
			MaxWrite:   int(e.config.Options.MaxWrite),
		},
		AttrTimeout:     &attrTimeout,
		EntryTimeout:    &entryTimeout,
		NullPermissions: !e.config.Options.DefaultPerms,
	}
	if e.config.ReadOnly {
		opts.Options = append(opts.Options, "ro")
	}

	server, err := gofuse.Mount(e.config.MountPoint, root, opts)
	if err != nil {
		return vfserrors.New(vfserrors.KindIoError, "fuse mount failed").WithPath(e.config.MountPoint).WithCause(err)
	}
	e.server = server
	e.mounted = true

	go func() {
		e.server.Wait()
		e.mu.Lock()
		e.mounted = false
		e.mu.Unlock()
	}()
	return nil
}

func (e *goFuseExporter) Unmount() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.mounted || e.server == nil {
		return vfserrors.New(vfserrors.KindDirectoryNotFound, "not mounted").WithPath(e.config.MountPoint)
	}
	if err := e.server.Unmount(); err != nil {
		return vfserrors.New(vfserrors.KindIoError, "fuse unmount failed").WithPath(e.config.MountPoint).WithCause(err)
	}
	e.mounted = false
	e.server = nil
	return nil
}

func (e *goFuseExporter) IsMounted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mounted
}

func (e *goFuseExporter) Stats() Stats {
	return Stats{
		Lookups:      e.lookups.Load(),
		Opens:        e.opens.Load(),
		Reads:        e.reads.Load(),
		Writes:       e.writes.Load(),
		BytesRead:    e.bytesRead.Load(),
		BytesWritten: e.bytesWritten.Load(),
		Errors:       e.errors.Load(),
	}
}

func translateErrno(err error) syscall.Errno {
	switch {
	case vfserrors.Is(err, vfserrors.KindFileNotFound), vfserrors.Is(err, vfserrors.KindDirectoryNotFound):
		return syscall.ENOENT
	case vfserrors.Is(err, vfserrors.KindAlreadyExists):
		return syscall.EEXIST
	case vfserrors.Is(err, vfserrors.KindUnauthorized):
		return syscall.EACCES
	case vfserrors.Is(err, vfserrors.KindNotSupported):
		return syscall.ENOSYS
	case vfserrors.Is(err, vfserrors.KindPathEscape), vfserrors.Is(err, vfserrors.KindInvalidPath):
		return syscall.EINVAL
	default:
		return syscall.EIO
	}
}

func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}

func translateOpenFlags(flags uint32) (vfs.OpenMode, vfs.AccessMode) {
	access := vfs.AccessRead
	switch {
	case flags&syscall.O_RDWR != 0:
		access = vfs.AccessReadWrite
	case flags&syscall.O_WRONLY != 0:
		access = vfs.AccessWrite
	}

	mode := vfs.ModeOpen
	switch {
	case flags&syscall.O_CREAT != 0 && flags&syscall.O_EXCL != 0:
		mode = vfs.ModeCreateNew
	case flags&syscall.O_TRUNC != 0:
		mode = vfs.ModeTruncate
	case flags&syscall.O_APPEND != 0:
		mode = vfs.ModeAppend
	case flags&syscall.O_CREAT != 0:
		mode = vfs.ModeOpenOrCreate
	}
	return mode, access
}

func fillAttrFromEntry(out *fuse.Attr, e *vfs.Entry, perms Permissions) {
	if e.Kind == vfs.KindDirectory || e.Kind == vfs.KindMountPoint {
		out.Mode = syscall.S_IFDIR | perms.DirMode
		out.Nlink = 2
	} else {
		out.Mode = syscall.S_IFREG | perms.FileMode
		out.Nlink = 1
		out.Size = safeInt64ToUint64(e.Length)
	}
	out.Uid = perms.UID
	out.Gid = perms.GID
	mtime := uint64(e.LastModified.Unix())
	out.Mtime = mtime
	out.Atime = mtime
	out.Ctime = mtime
}

func safeInt64ToUint64(i int64) uint64 {
	if i < 0 {
		return 0
	}
	return uint64(i)
}

// directoryNode represents any VFS path whose kind has not yet been
// disambiguated into a file; lookups resolve the real kind per child.
type directoryNode struct {
	gofuse.Inode
	exp  *goFuseExporter
	path string
}

var (
	_ gofuse.NodeLookuper  = (*directoryNode)(nil)
	_ gofuse.NodeReaddirer = (*directoryNode)(nil)
	_ gofuse.NodeMkdirer   = (*directoryNode)(nil)
	_ gofuse.NodeCreater   = (*directoryNode)(nil)
	_ gofuse.NodeUnlinker  = (*directoryNode)(nil)
	_ gofuse.NodeRmdirer   = (*directoryNode)(nil)
	_ gofuse.NodeRenamer   = (*directoryNode)(nil)
	_ gofuse.NodeGetattrer = (*directoryNode)(nil)
)

func (n *directoryNode) Getattr(ctx context.Context, fh gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = syscall.S_IFDIR | n.exp.config.Permissions.DirMode
	out.Nlink = 2
	return 0
}

func (n *directoryNode) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	n.exp.lookups.Add(1)
	childPath := joinPath(n.path, name)

	entry, err := n.exp.vfsCore.GetEntry(ctx, childPath)
	if err != nil {
		n.exp.errors.Add(1)
		return nil, translateErrno(err)
	}
	if entry == nil {
		return nil, syscall.ENOENT
	}

	fillAttrFromEntry(&out.Attr, entry, n.exp.config.Permissions)
	if entry.Kind == vfs.KindDirectory || entry.Kind == vfs.KindMountPoint {
		return n.NewInode(ctx, &directoryNode{exp: n.exp, path: childPath}, gofuse.StableAttr{Mode: syscall.S_IFDIR}), 0
	}
	return n.NewInode(ctx, &fileNode{exp: n.exp, path: childPath}, gofuse.StableAttr{Mode: syscall.S_IFREG}), 0
}

func (n *directoryNode) Readdir(ctx context.Context) (gofuse.DirStream, syscall.Errno) {
	entries, err := n.exp.vfsCore.Browse(ctx, n.path)
	if err != nil {
		n.exp.errors.Add(1)
		return nil, translateErrno(err)
	}
	out := make([]fuse.DirEntry, 0, len(entries))
	for _, e := range entries {
		mode := uint32(syscall.S_IFREG)
		if e.Kind == vfs.KindDirectory || e.Kind == vfs.KindMountPoint {
			mode = syscall.S_IFDIR
		}
		out = append(out, fuse.DirEntry{Name: e.Name, Mode: mode})
	}
	return gofuse.NewListDirStream(out), 0
}

func (n *directoryNode) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	if n.exp.config.ReadOnly {
		return nil, syscall.EROFS
	}
	childPath := joinPath(n.path, name)
	if err := n.exp.vfsCore.CreateDirectory(ctx, childPath); err != nil {
		n.exp.errors.Add(1)
		return nil, translateErrno(err)
	}
	return n.NewInode(ctx, &directoryNode{exp: n.exp, path: childPath}, gofuse.StableAttr{Mode: syscall.S_IFDIR}), 0
}

func (n *directoryNode) Create(ctx context.Context, name string, flags uint32, mode uint32, out *fuse.EntryOut) (*gofuse.Inode, gofuse.FileHandle, uint32, syscall.Errno) {
	if n.exp.config.ReadOnly {
		return nil, nil, 0, syscall.EROFS
	}
	childPath := joinPath(n.path, name)

	stream, err := n.exp.vfsCore.Open(ctx, childPath, vfs.ModeCreateNew, vfs.AccessReadWrite, vfs.ShareNone)
	if err != nil {
		n.exp.errors.Add(1)
		return nil, nil, 0, translateErrno(err)
	}
	n.exp.opens.Add(1)

	node := n.NewInode(ctx, &fileNode{exp: n.exp, path: childPath}, gofuse.StableAttr{Mode: syscall.S_IFREG})
	return node, &fileHandle{exp: n.exp, path: childPath, stream: stream}, 0, 0
}

func (n *directoryNode) Unlink(ctx context.Context, name string) syscall.Errno {
	if n.exp.config.ReadOnly {
		return syscall.EROFS
	}
	if err := n.exp.vfsCore.Delete(ctx, joinPath(n.path, name), false); err != nil {
		n.exp.errors.Add(1)
		return translateErrno(err)
	}
	return 0
}

func (n *directoryNode) Rmdir(ctx context.Context, name string) syscall.Errno {
	if n.exp.config.ReadOnly {
		return syscall.EROFS
	}
	if err := n.exp.vfsCore.Delete(ctx, joinPath(n.path, name), true); err != nil {
		n.exp.errors.Add(1)
		return translateErrno(err)
	}
	return 0
}

func (n *directoryNode) Rename(ctx context.Context, name string, newParent gofuse.InodeEmbedder, newName string, flags uint32) syscall.Errno {
	if n.exp.config.ReadOnly {
		return syscall.EROFS
	}
	destDir, ok := newParent.(*directoryNode)
	if !ok {
		return syscall.EINVAL
	}
	src := joinPath(n.path, name)
	dst := joinPath(destDir.path, newName)
	if err := n.exp.vfsCore.Move(ctx, src, dst); err != nil {
		n.exp.errors.Add(1)
		return translateErrno(err)
	}
	return 0
}

// fileNode represents a VFS path known to be a file.
type fileNode struct {
	gofuse.Inode
	exp  *goFuseExporter
	path string
}

var (
	_ gofuse.NodeOpener    = (*fileNode)(nil)
	_ gofuse.NodeGetattrer = (*fileNode)(nil)
	_ gofuse.NodeSetattrer = (*fileNode)(nil)
)

func (f *fileNode) Getattr(ctx context.Context, fh gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	entry, err := f.exp.vfsCore.GetEntry(ctx, f.path)
	if err != nil {
		f.exp.errors.Add(1)
		return translateErrno(err)
	}
	if entry == nil {
		return syscall.ENOENT
	}
	fillAttrFromEntry(&out.Attr, entry, f.exp.config.Permissions)
	return 0
}

func (f *fileNode) Setattr(ctx context.Context, fh gofuse.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	if mode, ok := in.GetMode(); ok && mode&0222 == 0 {
		if err := f.exp.vfsCore.SetAttribute(ctx, f.path, vfs.AttrReadOnly); err != nil {
			f.exp.errors.Add(1)
			return translateErrno(err)
		}
	}
	return f.Getattr(ctx, fh, out)
}

func (f *fileNode) Open(ctx context.Context, flags uint32) (gofuse.FileHandle, uint32, syscall.Errno) {
	if f.exp.config.ReadOnly && flags&(syscall.O_WRONLY|syscall.O_RDWR) != 0 {
		return nil, 0, syscall.EROFS
	}
	f.exp.opens.Add(1)

	mode, access := translateOpenFlags(flags)
	stream, err := f.exp.vfsCore.Open(ctx, f.path, mode, access, vfs.ShareReadWrite)
	if err != nil {
		f.exp.errors.Add(1)
		return nil, 0, translateErrno(err)
	}
	return &fileHandle{exp: f.exp, path: f.path, stream: stream}, 0, 0
}

// fileHandle adapts a vfs.Stream (Read/Write/Seek/Close) to go-fuse's
// offset-addressed FileHandle operations; a handle serves one open call
// at a time so the mutex only guards the seek-then-access sequence.
type fileHandle struct {
	exp    *goFuseExporter
	path   string
	mu     sync.Mutex
	stream vfs.Stream
}

var (
	_ gofuse.FileReader   = (*fileHandle)(nil)
	_ gofuse.FileWriter   = (*fileHandle)(nil)
	_ gofuse.FileFlusher  = (*fileHandle)(nil)
	_ gofuse.FileReleaser = (*fileHandle)(nil)
)

func (h *fileHandle) Read(ctx context.Context, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, err := h.stream.Seek(off, 0); err != nil {
		h.exp.errors.Add(1)
		return nil, translateErrno(err)
	}
	n, err := io.ReadFull(h.stream, dest)
	if err != nil && n == 0 {
		return fuse.ReadResultData(dest[:0]), 0
	}
	h.exp.reads.Add(1)
	h.exp.bytesRead.Add(int64(n))
	return fuse.ReadResultData(dest[:n]), 0
}

func (h *fileHandle) Write(ctx context.Context, data []byte, off int64) (uint32, syscall.Errno) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, err := h.stream.Seek(off, 0); err != nil {
		h.exp.errors.Add(1)
		return 0, translateErrno(err)
	}
	n, err := h.stream.Write(data)
	if err != nil {
		h.exp.errors.Add(1)
		return 0, translateErrno(err)
	}
	h.exp.writes.Add(1)
	h.exp.bytesWritten.Add(int64(n))
	return uint32(n), 0
}

func (h *fileHandle) Flush(ctx context.Context) syscall.Errno { return 0 }

func (h *fileHandle) Release(ctx context.Context) syscall.Errno {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.stream.Close(); err != nil {
		log.Printf("fuseexport: close %s: %v", h.path, err)
		return translateErrno(err)
	}
	return 0
}

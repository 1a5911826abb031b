//go:build cgofuse
// +build cgofuse

package fuseexport

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	winfuse "github.com/winfsp/cgofuse/fuse"

	vfserrors "github.com/objectfs/vfscore/pkg/errors"
	"github.com/objectfs/vfscore/pkg/vfs"
)

// cgoFuseExporter exports a *vfs.VFS through winfsp/cgofuse, the binding
// used on Windows (and as a portable fallback on Linux/macOS) where
// go-fuse's kernel-module assumptions don't hold.
type cgoFuseExporter struct {
	winfuse.FileSystemBase

	vfsCore *vfs.VFS
	config  *Config

	mu      sync.Mutex
	host    *winfuse.FileSystemHost
	mounted bool

	nextHandle uint64
	openMu     sync.Mutex
	open       map[uint64]*cgoOpenFile

	lookups, opens, reads, writes, bytesRead, bytesWritten, errs atomic.Int64
}

type cgoOpenFile struct {
	path   string
	stream vfs.Stream
	mu     sync.Mutex
}

// NewExporter creates the platform Exporter for this build (cgofuse).
func NewExporter(vfsCore *vfs.VFS, config *Config) Exporter {
	if config == nil {
		config = DefaultConfig("")
	}
	return &cgoFuseExporter{
		vfsCore: vfsCore,
		config:  config,
		open:    make(map[uint64]*cgoOpenFile),
	}
}

func (e *cgoFuseExporter) Mount() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.mounted {
		return vfserrors.New(vfserrors.KindAlreadyExists, "already mounted").WithPath(e.config.MountPoint)
	}

	e.host = winfuse.NewFileSystemHost(e)
	opts := []string{"-o", "fsname=" + e.config.Options.FSName}
	if e.config.Options.Subtype != "" {
		opts = append(opts, "-o", "subtype="+e.config.Options.Subtype)
	}
	if e.config.ReadOnly {
		opts = append(opts, "-o", "ro")
	}

	go e.host.Mount(e.config.MountPoint, opts)
	e.mounted = true
	return nil
}

func (e *cgoFuseExporter) Unmount() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.mounted || e.host == nil {
		return vfserrors.New(vfserrors.KindDirectoryNotFound, "not mounted").WithPath(e.config.MountPoint)
	}
	if !e.host.Unmount() {
		return vfserrors.New(vfserrors.KindIoError, "cgofuse unmount failed").WithPath(e.config.MountPoint)
	}
	e.mounted = false
	return nil
}

func (e *cgoFuseExporter) IsMounted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mounted
}

func (e *cgoFuseExporter) Stats() Stats {
	return Stats{
		Lookups:      e.lookups.Load(),
		Opens:        e.opens.Load(),
		Reads:        e.reads.Load(),
		Writes:       e.writes.Load(),
		BytesRead:    e.bytesRead.Load(),
		BytesWritten: e.bytesWritten.Load(),
		Errors:       e.errs.Load(),
	}
}

func cgoErrno(err error) int {
	switch {
	case vfserrors.Is(err, vfserrors.KindFileNotFound), vfserrors.Is(err, vfserrors.KindDirectoryNotFound):
		return -winfuse.ENOENT
	case vfserrors.Is(err, vfserrors.KindAlreadyExists):
		return -winfuse.EEXIST
	case vfserrors.Is(err, vfserrors.KindUnauthorized):
		return -winfuse.EACCES
	case vfserrors.Is(err, vfserrors.KindNotSupported):
		return -winfuse.ENOSYS
	default:
		return -winfuse.EIO
	}
}

func cgoKey(path string) string { return strings.TrimPrefix(path, "/") }

func (e *cgoFuseExporter) fillStat(stat *winfuse.Stat_t, entry *vfs.Entry) {
	if entry.Kind == vfs.KindDirectory || entry.Kind == vfs.KindMountPoint {
		stat.Mode = winfuse.S_IFDIR | e.config.Permissions.DirMode
		stat.Nlink = 2
		return
	}
	stat.Mode = winfuse.S_IFREG | e.config.Permissions.FileMode
	stat.Nlink = 1
	stat.Size = entry.Length
	stat.Mtim.Sec = entry.LastModified.Unix()
}

// Getattr implements winfuse.FileSystemInterface.
func (e *cgoFuseExporter) Getattr(path string, stat *winfuse.Stat_t, fh uint64) int {
	if path == "/" {
		stat.Mode = winfuse.S_IFDIR | e.config.Permissions.DirMode
		stat.Nlink = 2
		return 0
	}
	e.lookups.Add(1)
	ctx := context.Background()
	entry, err := e.vfsCore.GetEntry(ctx, cgoKey(path))
	if err != nil {
		e.errs.Add(1)
		return cgoErrno(err)
	}
	if entry == nil {
		return -winfuse.ENOENT
	}
	e.fillStat(stat, entry)
	return 0
}

// Open implements winfuse.FileSystemInterface.
func (e *cgoFuseExporter) Open(path string, flags int) (int, uint64) {
	ctx := context.Background()
	access := vfs.AccessRead
	if flags&winfuse.O_WRONLY != 0 || flags&winfuse.O_RDWR != 0 {
		access = vfs.AccessReadWrite
	}
	stream, err := e.vfsCore.Open(ctx, cgoKey(path), vfs.ModeOpen, access, vfs.ShareReadWrite)
	if err != nil {
		e.errs.Add(1)
		return cgoErrno(err), ^uint64(0)
	}
	e.opens.Add(1)

	e.openMu.Lock()
	handle := e.nextHandle
	e.nextHandle++
	e.open[handle] = &cgoOpenFile{path: cgoKey(path), stream: stream}
	e.openMu.Unlock()
	return 0, handle
}

// Create implements winfuse.FileSystemInterface.
func (e *cgoFuseExporter) Create(path string, flags int, mode uint32) (int, uint64) {
	if e.config.ReadOnly {
		return -winfuse.EROFS, ^uint64(0)
	}
	ctx := context.Background()
	stream, err := e.vfsCore.Open(ctx, cgoKey(path), vfs.ModeCreateNew, vfs.AccessReadWrite, vfs.ShareNone)
	if err != nil {
		e.errs.Add(1)
		return cgoErrno(err), ^uint64(0)
	}
	e.opens.Add(1)

	e.openMu.Lock()
	handle := e.nextHandle
	e.nextHandle++
	e.open[handle] = &cgoOpenFile{path: cgoKey(path), stream: stream}
	e.openMu.Unlock()
	return 0, handle
}

// Read implements winfuse.FileSystemInterface.
func (e *cgoFuseExporter) Read(path string, buff []byte, ofst int64, fh uint64) int {
	e.openMu.Lock()
	f := e.open[fh]
	e.openMu.Unlock()
	if f == nil {
		return -winfuse.EBADF
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, err := f.stream.Seek(ofst, 0); err != nil {
		e.errs.Add(1)
		return cgoErrno(err)
	}
	n, err := f.stream.Read(buff)
	if err != nil && n == 0 {
		return 0
	}
	e.reads.Add(1)
	e.bytesRead.Add(int64(n))
	return n
}

// Write implements winfuse.FileSystemInterface.
func (e *cgoFuseExporter) Write(path string, buff []byte, ofst int64, fh uint64) int {
	if e.config.ReadOnly {
		return -winfuse.EROFS
	}
	e.openMu.Lock()
	f := e.open[fh]
	e.openMu.Unlock()
	if f == nil {
		return -winfuse.EBADF
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, err := f.stream.Seek(ofst, 0); err != nil {
		e.errs.Add(1)
		return cgoErrno(err)
	}
	n, err := f.stream.Write(buff)
	if err != nil {
		e.errs.Add(1)
		return cgoErrno(err)
	}
	e.writes.Add(1)
	e.bytesWritten.Add(int64(len(buff)))
	return n
}

// Release implements winfuse.FileSystemInterface.
func (e *cgoFuseExporter) Release(path string, fh uint64) int {
	e.openMu.Lock()
	f := e.open[fh]
	delete(e.open, fh)
	e.openMu.Unlock()
	if f == nil {
		return 0
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.stream.Close(); err != nil {
		return cgoErrno(err)
	}
	return 0
}

// Mkdir implements winfuse.FileSystemInterface.
func (e *cgoFuseExporter) Mkdir(path string, mode uint32) int {
	if e.config.ReadOnly {
		return -winfuse.EROFS
	}
	if err := e.vfsCore.CreateDirectory(context.Background(), cgoKey(path)); err != nil {
		e.errs.Add(1)
		return cgoErrno(err)
	}
	return 0
}

// Unlink implements winfuse.FileSystemInterface.
func (e *cgoFuseExporter) Unlink(path string) int {
	if e.config.ReadOnly {
		return -winfuse.EROFS
	}
	if err := e.vfsCore.Delete(context.Background(), cgoKey(path), false); err != nil {
		e.errs.Add(1)
		return cgoErrno(err)
	}
	return 0
}

// Rmdir implements winfuse.FileSystemInterface.
func (e *cgoFuseExporter) Rmdir(path string) int {
	if e.config.ReadOnly {
		return -winfuse.EROFS
	}
	if err := e.vfsCore.Delete(context.Background(), cgoKey(path), true); err != nil {
		e.errs.Add(1)
		return cgoErrno(err)
	}
	return 0
}

// Rename implements winfuse.FileSystemInterface.
func (e *cgoFuseExporter) Rename(oldpath, newpath string) int {
	if e.config.ReadOnly {
		return -winfuse.EROFS
	}
	if err := e.vfsCore.Move(context.Background(), cgoKey(oldpath), cgoKey(newpath)); err != nil {
		e.errs.Add(1)
		return cgoErrno(err)
	}
	return 0
}

// Readdir implements winfuse.FileSystemInterface.
func (e *cgoFuseExporter) Readdir(path string, fill func(name string, stat *winfuse.Stat_t, ofst int64) bool, ofst int64, fh uint64) int {
	fill(".", nil, 0)
	fill("..", nil, 0)

	entries, err := e.vfsCore.Browse(context.Background(), cgoKey(path))
	if err != nil {
		e.errs.Add(1)
		return cgoErrno(err)
	}
	for _, ent := range entries {
		stat := &winfuse.Stat_t{}
		e.fillStat(stat, &ent)
		if !fill(ent.Name, stat, 0) {
			break
		}
	}
	return 0
}

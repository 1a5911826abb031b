// Package memory implements an in-memory Backend: a tree of entries held
// entirely in process memory, with no persistence. It is the reference
// backend the VFS Core's own test scenarios mount, and a convenient
// fixture for exercising every Backend operation without touching disk
// or network.
package memory

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	vfserrors "github.com/objectfs/vfscore/pkg/errors"
	"github.com/objectfs/vfscore/pkg/pathutil"
	"github.com/objectfs/vfscore/pkg/vfstypes"
)

type node struct {
	kind     vfstypes.EntryKind
	data     []byte
	attrs    vfstypes.Attr
	hasAttrs bool
	modified time.Time
	children map[string]*node
}

func newDir() *node {
	return &node{kind: vfstypes.KindDirectory, children: make(map[string]*node), modified: time.Now()}
}

// Backend is an in-memory filesystem tree. The zero value is not usable;
// construct with New.
type Backend struct {
	name string

	mu   sync.RWMutex
	root *node

	subsMu sync.Mutex
	subs   map[int]*subscription
	nextID int
}

// New creates an empty in-memory Backend named name.
func New(name string) *Backend {
	return &Backend{
		name: name,
		root: newDir(),
		subs: make(map[int]*subscription),
	}
}

// Name identifies the backend for error/metrics reporting.
func (b *Backend) Name() string { return b.name }

func (b *Backend) walk(path string) (*node, error) {
	segs := pathutil.Split(path)
	cur := b.root
	for _, seg := range segs {
		if cur.children == nil {
			return nil, vfserrors.New(vfserrors.KindFileNotFound, "not a directory").WithPath(path)
		}
		next, ok := cur.children[seg]
		if !ok {
			return nil, vfserrors.New(vfserrors.KindFileNotFound, "no such entry").WithPath(path)
		}
		cur = next
	}
	return cur, nil
}

func entryName(path string) string {
	segs := pathutil.Split(path)
	if len(segs) == 0 {
		return ""
	}
	return segs[len(segs)-1]
}

func toEntry(path string, n *node) vfstypes.Entry {
	length := int64(-1)
	if n.kind == vfstypes.KindFile {
		length = int64(len(n.data))
	}
	return vfstypes.Entry{
		Path:         path,
		Name:         entryName(path),
		Kind:         n.kind,
		Length:       length,
		LastModified: n.modified,
		LastAccess:   n.modified,
		Attributes:   n.attrs,
		HasAttrs:     n.hasAttrs,
		PhysicalPath: path,
	}
}

// Browse lists the immediate children of a directory entry.
func (b *Backend) Browse(ctx context.Context, path string) ([]vfstypes.Entry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n, err := b.walk(path)
	if err != nil {
		return nil, err
	}
	if n.kind != vfstypes.KindDirectory {
		return nil, vfserrors.New(vfserrors.KindDirectoryNotFound, "not a directory").WithPath(path)
	}

	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]vfstypes.Entry, 0, len(names))
	for _, name := range names {
		childPath := name
		if path != "" {
			childPath = path + "/" + name
		}
		out = append(out, toEntry(childPath, n.children[name]))
	}
	return out, nil
}

// GetEntry returns metadata for path, or nil if it does not exist.
func (b *Backend) GetEntry(ctx context.Context, path string) (*vfstypes.Entry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n, err := b.walk(path)
	if err != nil {
		if path == "" {
			e := toEntry("", b.root)
			return &e, nil
		}
		return nil, nil
	}
	e := toEntry(path, n)
	return &e, nil
}

func (b *Backend) parentAndName(path string) (*node, string, error) {
	segs := pathutil.Split(path)
	if len(segs) == 0 {
		return nil, "", vfserrors.New(vfserrors.KindInvalidPath, "root has no parent").WithPath(path)
	}
	parent, err := b.walk(pathutil.Join(segs[:len(segs)-1]))
	if err != nil {
		return nil, "", err
	}
	if parent.kind != vfstypes.KindDirectory {
		return nil, "", vfserrors.New(vfserrors.KindDirectoryNotFound, "parent is not a directory").WithPath(path)
	}
	return parent, segs[len(segs)-1], nil
}

// Open opens path for reading or writing, creating it per mode when it
// does not exist.
func (b *Backend) Open(ctx context.Context, path string, mode vfstypes.OpenMode, access vfstypes.AccessMode, share vfstypes.ShareMode) (vfstypes.Stream, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n, err := b.walk(path)
	exists := err == nil

	switch mode {
	case vfstypes.ModeOpen:
		if !exists {
			return nil, vfserrors.New(vfserrors.KindFileNotFound, "no such file").WithPath(path)
		}
	case vfstypes.ModeCreateNew:
		if exists {
			return nil, vfserrors.New(vfserrors.KindAlreadyExists, "file exists").WithPath(path)
		}
	case vfstypes.ModeCreate, vfstypes.ModeOpenOrCreate, vfstypes.ModeTruncate, vfstypes.ModeAppend:
		// handled below
	}

	if !exists {
		parent, name, perr := b.parentAndName(path)
		if perr != nil {
			return nil, perr
		}
		n = &node{kind: vfstypes.KindFile, modified: time.Now()}
		parent.children[name] = n
		b.notify(vfstypes.EventCreate, path, "", "")
	} else if n.kind != vfstypes.KindFile {
		return nil, vfserrors.New(vfserrors.KindInvalidPath, "is a directory").WithPath(path)
	}

	if mode == vfstypes.ModeTruncate || (mode == vfstypes.ModeCreate && exists) {
		n.data = nil
	}

	initial := append([]byte(nil), n.data...)
	appendMode := mode == vfstypes.ModeAppend

	return &stream{backend: b, path: path, node: n, access: access, buf: initial, appendMode: appendMode}, nil
}

// CreateDirectory creates path as a directory, including any missing
// intermediate segments.
func (b *Backend) CreateDirectory(ctx context.Context, path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	segs := pathutil.Split(path)
	cur := b.root
	built := ""
	for _, seg := range segs {
		if cur.children == nil {
			return vfserrors.New(vfserrors.KindDirectoryNotFound, "not a directory").WithPath(path)
		}
		next, ok := cur.children[seg]
		built = strings.TrimPrefix(built+"/"+seg, "/")
		if !ok {
			next = newDir()
			cur.children[seg] = next
			b.notify(vfstypes.EventCreate, built, "", "")
		} else if next.kind != vfstypes.KindDirectory {
			return vfserrors.New(vfserrors.KindAlreadyExists, "path component is a file").WithPath(path)
		}
		cur = next
	}
	return nil
}

// Delete removes path. recursive permits removing a non-empty directory.
func (b *Backend) Delete(ctx context.Context, path string, recursive bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	n, err := b.walk(path)
	if err != nil {
		return err
	}
	if n.kind == vfstypes.KindDirectory && len(n.children) > 0 && !recursive {
		return vfserrors.New(vfserrors.KindInvalidPath, "directory not empty").WithPath(path)
	}

	parent, name, perr := b.parentAndName(path)
	if perr != nil {
		return perr
	}
	delete(parent.children, name)
	b.notify(vfstypes.EventDelete, path, "", "")
	return nil
}

// Move relocates src to dst within this backend's tree.
func (b *Backend) Move(ctx context.Context, src, dst string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	n, err := b.walk(src)
	if err != nil {
		return err
	}
	srcParent, srcName, perr := b.parentAndName(src)
	if perr != nil {
		return perr
	}
	dstParent, dstName, perr := b.parentAndName(dst)
	if perr != nil {
		return perr
	}
	if _, exists := dstParent.children[dstName]; exists {
		return vfserrors.New(vfserrors.KindAlreadyExists, "destination exists").WithPath(dst)
	}

	delete(srcParent.children, srcName)
	dstParent.children[dstName] = n
	b.notify(vfstypes.EventRename, "", src, dst)
	return nil
}

// SetAttribute overwrites path's extended attribute bitmask.
func (b *Backend) SetAttribute(ctx context.Context, path string, attr vfstypes.Attr) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	n, err := b.walk(path)
	if err != nil {
		return err
	}
	n.attrs = attr
	n.hasAttrs = true
	b.notify(vfstypes.EventChange, path, "", "")
	return nil
}

// stream is the vfstypes.Stream returned by Open.
type stream struct {
	backend    *Backend
	path       string
	node       *node
	access     vfstypes.AccessMode
	buf        []byte
	pos        int
	appendMode bool
}

func (s *stream) Read(p []byte) (int, error) {
	if !s.access.Has(vfstypes.AccessRead) {
		return 0, vfserrors.New(vfserrors.KindNotSupported, "stream not opened for read").WithPath(s.path)
	}
	if s.pos >= len(s.buf) {
		return 0, io.EOF
	}
	n := copy(p, s.buf[s.pos:])
	s.pos += n
	return n, nil
}

func (s *stream) Write(p []byte) (int, error) {
	if !s.access.Has(vfstypes.AccessWrite) {
		return 0, vfserrors.New(vfserrors.KindNotSupported, "stream not opened for write").WithPath(s.path)
	}
	if s.appendMode {
		s.buf = append(s.buf, p...)
		s.pos = len(s.buf)
		return len(p), nil
	}
	end := s.pos + len(p)
	if end > len(s.buf) {
		grown := make([]byte, end)
		copy(grown, s.buf)
		s.buf = grown
	}
	copy(s.buf[s.pos:end], p)
	s.pos = end
	return len(p), nil
}

func (s *stream) Seek(offset int64, whence int) (int64, error) {
	var base int
	switch whence {
	case 0:
		base = 0
	case 1:
		base = s.pos
	case 2:
		base = len(s.buf)
	}
	newPos := base + int(offset)
	if newPos < 0 {
		return 0, vfserrors.New(vfserrors.KindInvalidPath, "negative seek position").WithPath(s.path)
	}
	s.pos = newPos
	return int64(newPos), nil
}

func (s *stream) Close() error {
	if s.access.Has(vfstypes.AccessWrite) {
		s.backend.mu.Lock()
		s.node.data = s.buf
		s.node.modified = time.Now()
		s.backend.notify(vfstypes.EventChange, s.path, "", "")
		s.backend.mu.Unlock()
	}
	return nil
}


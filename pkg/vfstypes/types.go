// Package vfstypes holds the value types and contracts shared by the VFS
// core (pkg/vfs) and its internal implementation packages
// (internal/mounttree, internal/observertree, internal/scanner,
// internal/aggregate): entries, events, the Backend contract, and
// path-mapping. Splitting these out of pkg/vfs itself (rather than
// having the internal packages import pkg/vfs directly) avoids an
// import cycle, since pkg/vfs's VFS core itself depends on
// internal/aggregate.
//
// Grounded on the teacher's own pkg/types package, which exists for
// exactly this reason: a shared value-type/interface package sitting
// below both pkg/ and internal/ consumers.
package vfstypes

import "time"

// EntryKind is the kind of filesystem object an Entry represents.
type EntryKind uint8

const (
	KindFile EntryKind = iota
	KindDirectory
	KindDrive
	KindMountPoint
	KindFileAndDirectory
)

func (k EntryKind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDirectory:
		return "directory"
	case KindDrive:
		return "drive"
	case KindMountPoint:
		return "mount-point"
	case KindFileAndDirectory:
		return "file-and-directory"
	default:
		return "unknown"
	}
}

// Attr is a bitset of extended file attributes an Entry may carry.
type Attr uint32

const (
	AttrReadOnly Attr = 1 << iota
	AttrHidden
	AttrSystem
	AttrArchive
	AttrSymlink
)

// Entry is an immutable snapshot of file or directory metadata (spec §3).
// Stale entries never self-invalidate: callers re-query for fresh state.
type Entry struct {
	Path         string
	Name         string
	Kind         EntryKind
	Length       int64 // -1 for non-files
	LastModified time.Time
	LastAccess   time.Time
	Attributes   Attr
	HasAttrs     bool
	PhysicalPath string
	// BackendMeta carries backend-specific metadata (e.g. an S3 ETag or
	// storage tier) without the core depending on any concrete backend's
	// types.
	BackendMeta map[string]string
}

// EventKind identifies which variant of Event a value holds (spec §3).
type EventKind uint8

const (
	EventStart EventKind = iota
	EventCreate
	EventChange
	EventDelete
	EventRename
	EventError
)

// Event is the sum type of notifications delivered to an Observer Handle.
type Event struct {
	Kind    EventKind
	Time    time.Time
	Path    string // Create, Change, Delete
	OldPath string // Rename
	NewPath string // Rename
	Err     error  // Error
	ErrPath string // Error, optional
}

// Sink is the push target an Observer Handle forwards events to: a
// triple of callbacks, matching the spec's "no inheritance from a
// source-ecosystem interface" guidance (§9).
type Sink struct {
	OnNext      func(Event)
	OnError     func(error)
	OnCompleted func()
}

// Dispatcher decides how an event reaches its Sink: synchronously
// (default, the zero value) or on another goroutine/queue.
type Dispatcher interface {
	Dispatch(func())
}

// SyncDispatcher runs the callback inline. It is the default dispatcher
// when Observe is called without one (spec §3's "defaults to
// synchronous").
type SyncDispatcher struct{}

// Dispatch runs fn immediately on the calling goroutine.
func (SyncDispatcher) Dispatch(fn func()) { fn() }

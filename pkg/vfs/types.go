// Package vfs is the public surface of the composable virtual filesystem
// core: entry/event value types, the Backend contract, and the VFS type
// itself (spec §2, §3, §4.4, §6).
//
// The value types themselves live in pkg/vfstypes, a lower-level package
// with no dependency on internal/aggregate; pkg/vfs re-exports them here
// by alias so nothing outside this module ever needs to know vfstypes
// exists. See pkg/vfstypes's doc comment for why the split exists.
package vfs

import "github.com/objectfs/vfscore/pkg/vfstypes"

type (
	EntryKind  = vfstypes.EntryKind
	Attr       = vfstypes.Attr
	Entry      = vfstypes.Entry
	EventKind  = vfstypes.EventKind
	Event      = vfstypes.Event
	Sink       = vfstypes.Sink
	Dispatcher = vfstypes.Dispatcher
)

const (
	KindFile             = vfstypes.KindFile
	KindDirectory        = vfstypes.KindDirectory
	KindDrive            = vfstypes.KindDrive
	KindMountPoint       = vfstypes.KindMountPoint
	KindFileAndDirectory = vfstypes.KindFileAndDirectory

	AttrReadOnly = vfstypes.AttrReadOnly
	AttrHidden   = vfstypes.AttrHidden
	AttrSystem   = vfstypes.AttrSystem
	AttrArchive  = vfstypes.AttrArchive
	AttrSymlink  = vfstypes.AttrSymlink

	EventStart  = vfstypes.EventStart
	EventCreate = vfstypes.EventCreate
	EventChange = vfstypes.EventChange
	EventDelete = vfstypes.EventDelete
	EventRename = vfstypes.EventRename
	EventError  = vfstypes.EventError
)

// SyncDispatcher runs the callback inline. It is the default dispatcher
// when Observe is called without one (spec §3's "defaults to
// synchronous").
type SyncDispatcher = vfstypes.SyncDispatcher

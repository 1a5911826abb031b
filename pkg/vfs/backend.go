package vfs

import "github.com/objectfs/vfscore/pkg/vfstypes"

type (
	OpenMode     = vfstypes.OpenMode
	AccessMode   = vfstypes.AccessMode
	ShareMode    = vfstypes.ShareMode
	Capability   = vfstypes.Capability
	Options      = vfstypes.Options
	Stream       = vfstypes.Stream
	Subscription = vfstypes.Subscription
	Backend      = vfstypes.Backend
)

const (
	ModeOpen         = vfstypes.ModeOpen
	ModeCreate       = vfstypes.ModeCreate
	ModeCreateNew    = vfstypes.ModeCreateNew
	ModeOpenOrCreate = vfstypes.ModeOpenOrCreate
	ModeTruncate     = vfstypes.ModeTruncate
	ModeAppend       = vfstypes.ModeAppend

	AccessRead      = vfstypes.AccessRead
	AccessWrite     = vfstypes.AccessWrite
	AccessReadWrite = vfstypes.AccessReadWrite

	ShareNone      = vfstypes.ShareNone
	ShareRead      = vfstypes.ShareRead
	ShareReadWrite = vfstypes.ShareReadWrite

	CapBrowse          = vfstypes.CapBrowse
	CapGetEntry        = vfstypes.CapGetEntry
	CapOpenRead        = vfstypes.CapOpenRead
	CapOpenWrite       = vfstypes.CapOpenWrite
	CapCreateDirectory = vfstypes.CapCreateDirectory
	CapDelete          = vfstypes.CapDelete
	CapMove            = vfstypes.CapMove
	CapSetAttribute    = vfstypes.CapSetAttribute
	CapObserve         = vfstypes.CapObserve
)

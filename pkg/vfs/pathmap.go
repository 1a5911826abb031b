package vfs

import "github.com/objectfs/vfscore/pkg/vfstypes"

// PathMap is the bijection between a VFS subtree and a backend subtree
// that a Component carries (spec §3).
type PathMap = vfstypes.PathMap

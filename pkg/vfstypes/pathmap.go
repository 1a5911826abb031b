package vfstypes

import "github.com/objectfs/vfscore/pkg/pathutil"

// PathMap is the bijection between a VFS subtree and a backend subtree
// that a Component carries (spec §3). The common case — and the only one
// this repository implements — is a prepend/strip of a sub-path prefix.
type PathMap struct {
	// MountPath is the VFS-side root of the mapped subtree.
	MountPath string
	// SubPath is the backend-side root of the mapped subtree.
	SubPath string
}

// Forward maps a VFS path under MountPath to the equivalent backend path
// under SubPath.
func (m PathMap) Forward(vfsPath string) (string, error) {
	return pathutil.Rebase(m.MountPath, m.SubPath, vfsPath)
}

// Inverse maps a backend path under SubPath back to the equivalent VFS
// path under MountPath.
func (m PathMap) Inverse(backendPath string) (string, error) {
	return pathutil.Rebase(m.SubPath, m.MountPath, backendPath)
}

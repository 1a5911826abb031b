// Package fuseexport mounts a live vfs.VFS as a real OS-level filesystem.
//
// Two implementations share the Exporter interface: a go-fuse/v2-based
// one (the default, used on Linux and macOS) and a cgofuse-based one
// (built with the cgofuse tag, for Windows via WinFsp). Both translate
// VFS-core operations (Browse, GetEntry, Open, CreateDirectory, Delete,
// Move, SetAttribute) into the calls their respective FUSE binding
// expects, the way the teacher splits its go-fuse and cgofuse
// filesystem adapters behind a build tag rather than an internal
// interface switch.
package fuseexport

package aggregate

import vfs "github.com/objectfs/vfscore/pkg/vfstypes"

// translateEntry rebases e's backend-local Path back onto the VFS
// namespace via rt's PathMap, and recomputes Name from the rebased path
// so callers never see a Component's internal path shape.
func translateEntry(rt *Runtime, e vfs.Entry) vfs.Entry {
	vfsPath, err := rt.PathMap.Inverse(e.Path)
	if err != nil {
		return e
	}
	e.Path = vfsPath
	if idx := lastSlash(vfsPath); idx >= 0 {
		e.Name = vfsPath[idx+1:]
	} else {
		e.Name = vfsPath
	}
	return e
}

func translateEntries(rt *Runtime, entries []vfs.Entry) []vfs.Entry {
	out := make([]vfs.Entry, len(entries))
	for i, e := range entries {
		out[i] = translateEntry(rt, e)
	}
	return out
}

func lastSlash(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '/' {
			return i
		}
	}
	return -1
}

// UnifyEntries merges entries describing the same logical path reported
// by two or more Components (or, at the VFS Core layer, two or more
// Bindings), in priority order (entries[0] is from the highest-priority
// source). This is the "pair decorator" of the entry unification
// algorithm: scalar fields fall back down the priority order, and a kind
// collision (one side reports a file, another a directory at the same
// path) yields KindFileAndDirectory.
func UnifyEntries(entries []vfs.Entry) vfs.Entry {
	return unifyEntries(entries)
}

func unifyEntries(entries []vfs.Entry) vfs.Entry {
	if len(entries) == 1 {
		return entries[0]
	}

	out := entries[0]
	mixedKind := false
	for _, e := range entries[1:] {
		if e.Kind != out.Kind {
			mixedKind = true
		}
		if out.Length < 0 && e.Length >= 0 {
			out.Length = e.Length
		}
		if out.LastModified.IsZero() && !e.LastModified.IsZero() {
			out.LastModified = e.LastModified
		}
		if out.LastAccess.IsZero() && !e.LastAccess.IsZero() {
			out.LastAccess = e.LastAccess
		}
		if !out.HasAttrs && e.HasAttrs {
			out.Attributes = e.Attributes
			out.HasAttrs = true
		}
		if out.PhysicalPath == "" && e.PhysicalPath != "" {
			out.PhysicalPath = e.PhysicalPath
		}
		if len(e.BackendMeta) > 0 {
			if out.BackendMeta == nil {
				out.BackendMeta = make(map[string]string, len(e.BackendMeta))
			}
			for k, v := range e.BackendMeta {
				if _, exists := out.BackendMeta[k]; !exists {
					out.BackendMeta[k] = v
				}
			}
		}
	}
	if mixedKind {
		out.Kind = vfs.KindFileAndDirectory
	}
	return out
}

// MergeByName folds a priority-ordered sequence of entry batches (highest
// priority first) into a single name-unified set, applying UnifyEntries
// on collision. Used both within a Binding (across Components) and at
// the VFS Core (across Bindings along a path), per the shared
// unification rule both layers document.
func MergeByName(batches [][]vfs.Entry) []vfs.Entry {
	return mergeByName(batches)
}

func mergeByName(batches [][]vfs.Entry) []vfs.Entry {
	order := make([]string, 0)
	byName := make(map[string][]vfs.Entry)
	for _, batch := range batches {
		for _, e := range batch {
			if _, seen := byName[e.Name]; !seen {
				order = append(order, e.Name)
			}
			byName[e.Name] = append(byName[e.Name], e)
		}
	}
	out := make([]vfs.Entry, 0, len(order))
	for _, name := range order {
		out = append(out, unifyEntries(byName[name]))
	}
	return out
}

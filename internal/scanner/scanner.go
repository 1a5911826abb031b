// Package scanner implements the fileScanner utility spec §4.4 names for
// mount-event synthesis: given a backend and a glob, recursively browse
// to find every descendant Entry matching the glob.
package scanner

import (
	"context"

	"github.com/objectfs/vfscore/pkg/pathutil"
	vfs "github.com/objectfs/vfscore/pkg/vfstypes"
)

// Scanner recursively walks a single backend looking for entries matching
// one or more added globs.
type Scanner struct {
	backend vfs.Backend
	globs   []*pathutil.Matcher
}

// New creates a Scanner over backend.
func New(backend vfs.Backend) *Scanner {
	return &Scanner{backend: backend}
}

// AddGlob compiles and adds pattern to the set of globs this Scanner
// reports matches for.
func (s *Scanner) AddGlob(pattern string) (*Scanner, error) {
	m, err := pathutil.CompileGlob(pattern)
	if err != nil {
		return nil, err
	}
	s.globs = append(s.globs, m)
	return s, nil
}

// Scan walks the backend from root, depth-first, returning every Entry
// whose path matches at least one added glob.
func (s *Scanner) Scan(ctx context.Context, root string) ([]vfs.Entry, error) {
	var out []vfs.Entry
	if err := s.walk(ctx, root, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Scanner) walk(ctx context.Context, path string, out *[]vfs.Entry) error {
	entries, err := s.backend.Browse(ctx, path)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if s.matches(e.Path) {
			*out = append(*out, e)
		}
		if e.Kind == vfs.KindDirectory || e.Kind == vfs.KindFileAndDirectory {
			if err := s.walk(ctx, e.Path, out); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Scanner) matches(path string) bool {
	for _, m := range s.globs {
		if m.Matches(path) {
			return true
		}
	}
	return false
}

// Package pathutil implements the VFS path engine: segment splitting,
// "."/".." normalization, cross-mount rebasing, and glob compilation,
// intersection, and stem extraction (spec §4.1).
//
// The VFS namespace always uses "/" as separator and "" as root. No
// third-party glob library is used here: the teacher's own stack reaches
// for the standard library on plain path handling too, so this is the one
// package in the repository that stays on stdlib by design (see
// DESIGN.md).
package pathutil

import (
	"regexp"
	"strings"

	vfserrors "github.com/objectfs/vfscore/pkg/errors"
)

// Split returns the non-empty segments of path, in order. Leading,
// trailing, and repeated "/" are ignored.
func Split(path string) []string {
	if path == "" {
		return nil
	}
	raw := strings.Split(path, "/")
	segments := make([]string, 0, len(raw))
	for _, s := range raw {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}

// Join reassembles segments into a canonical VFS path.
func Join(segments []string) string {
	return strings.Join(segments, "/")
}

// Normalize resolves "." and ".." segments relative to root. A path that
// would escape above root yields a DirectoryNotFound error, per spec §4.1.
func Normalize(path string) (string, error) {
	segments := Split(path)
	out := make([]string, 0, len(segments))
	for _, seg := range segments {
		switch seg {
		case ".":
			continue
		case "..":
			if len(out) == 0 {
				return "", vfserrors.New(vfserrors.KindDirectoryNotFound,
					"path escapes root").WithPath(path)
			}
			out = out[:len(out)-1]
		default:
			out = append(out, seg)
		}
	}
	return Join(out), nil
}

// Rebase translates a path rooted under fromBase into the equivalent path
// rooted under toBase. It fails with InvalidPath if path is not under
// fromBase.
func Rebase(fromBase, toBase, path string) (string, error) {
	fromSegs := Split(fromBase)
	pathSegs := Split(path)

	if len(pathSegs) < len(fromSegs) {
		return "", vfserrors.New(vfserrors.KindInvalidPath,
			"path is not under fromBase").WithPath(path).WithContext("fromBase", fromBase)
	}
	for i, seg := range fromSegs {
		if pathSegs[i] != seg {
			return "", vfserrors.New(vfserrors.KindInvalidPath,
				"path is not under fromBase").WithPath(path).WithContext("fromBase", fromBase)
		}
	}

	rest := pathSegs[len(fromSegs):]
	toSegs := Split(toBase)
	combined := make([]string, 0, len(toSegs)+len(rest))
	combined = append(combined, toSegs...)
	combined = append(combined, rest...)
	return Join(combined), nil
}

// IsAncestorOrSelf reports whether ancestor is a path prefix of (or equal
// to) path, segment-wise.
func IsAncestorOrSelf(ancestor, path string) bool {
	aSegs := Split(ancestor)
	pSegs := Split(path)
	if len(aSegs) > len(pSegs) {
		return false
	}
	for i, seg := range aSegs {
		if pSegs[i] != seg {
			return false
		}
	}
	return true
}

// Matcher tests whether a normalized VFS path matches a compiled glob.
type Matcher struct {
	pattern  string
	acceptAll bool
	re       *regexp.Regexp
}

// Matches reports whether path matches the compiled pattern.
func (m *Matcher) Matches(path string) bool {
	if m.acceptAll {
		return true
	}
	return m.re.MatchString(path)
}

// String returns the original glob pattern.
func (m *Matcher) String() string { return m.pattern }

// CompileGlob compiles a glob pattern into a Matcher. Syntax: "?" matches
// one non-separator character, "*" matches any run of non-separator
// characters within one segment, "**" matches any characters including
// "/".
func CompileGlob(pattern string) (*Matcher, error) {
	if pattern == "**" {
		return &Matcher{pattern: pattern, acceptAll: true}, nil
	}

	var b strings.Builder
	b.WriteString("^")
	runes := []rune(pattern)
	for i := 0; i < len(runes); i++ {
		switch {
		case i+1 < len(runes) && runes[i] == '*' && runes[i+1] == '*':
			b.WriteString(".*")
			i++
		case runes[i] == '*':
			b.WriteString("[^/]*")
		case runes[i] == '?':
			b.WriteString("[^/]")
		default:
			b.WriteString(regexp.QuoteMeta(string(runes[i])))
		}
	}
	b.WriteString("$")

	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, vfserrors.New(vfserrors.KindInvalidPath, "invalid glob pattern").
			WithPath(pattern).WithCause(err)
	}
	return &Matcher{pattern: pattern, re: re}, nil
}

// GlobStem returns the longest wildcard-free path prefix of pattern: the
// prefix up to (but not including) the segment containing the first "?",
// "*", or "**".
func GlobStem(pattern string) string {
	segments := Split(pattern)
	stem := make([]string, 0, len(segments))
	for _, seg := range segments {
		if strings.ContainsAny(seg, "*?") {
			break
		}
		stem = append(stem, seg)
	}
	return Join(stem)
}

// GlobIntersect returns a glob whose match set is the intersection of a
// and b's match sets, or ("", false) if the intersection is provably
// empty. Because "*"/"**" segments can overlap with literal segments in
// ways a simple string merge cannot always resolve precisely, this
// implementation is exact for the common cases the VFS core needs
// (literal vs. literal, literal vs. wildcard segment, "**" vs. anything)
// and conservatively returns the more specific (non-"**") pattern when
// both sides carry independent wildcards in the same segment, which is
// never incorrect for the caller's use (computing whether a Component's
// mount subtree overlaps an observer filter) since over-approximating the
// intersection only risks an extra, harmless subscription probe.
func GlobIntersect(a, b string) (string, bool) {
	if a == "**" {
		return b, true
	}
	if b == "**" {
		return a, true
	}

	aSegs := Split(a)
	bSegs := Split(b)

	// A trailing "**" segment absorbs all remaining segments on the other side.
	aStar := len(aSegs) > 0 && aSegs[len(aSegs)-1] == "**"
	bStar := len(bSegs) > 0 && bSegs[len(bSegs)-1] == "**"

	maxLen := len(aSegs)
	if len(bSegs) > maxLen {
		maxLen = len(bSegs)
	}

	out := make([]string, 0, maxLen)
	for i := 0; i < maxLen; i++ {
		var as, bs string
		aOut := i >= len(aSegs)
		bOut := i >= len(bSegs)

		if aOut && !aStar {
			return "", false
		}
		if bOut && !bStar {
			return "", false
		}
		if aOut && aStar {
			out = append(out, bSegs[i:]...)
			break
		}
		if bOut && bStar {
			out = append(out, aSegs[i:]...)
			break
		}

		as, bs = aSegs[i], bSegs[i]
		if as == "**" {
			out = append(out, bSegs[i:]...)
			break
		}
		if bs == "**" {
			out = append(out, aSegs[i:]...)
			break
		}

		switch {
		case as == bs:
			out = append(out, as)
		case as == "*" || as == "?":
			out = append(out, bs)
		case bs == "*" || bs == "?":
			out = append(out, as)
		default:
			aWild := strings.ContainsAny(as, "*?")
			bWild := strings.ContainsAny(bs, "*?")
			if aWild && bWild {
				out = append(out, as)
				continue
			}
			if !aWild && !bWild {
				return "", false
			}
			pat, lit := as, bs
			if bWild {
				pat, lit = bs, as
			}
			if m, err := CompileGlob(pat); err != nil || !m.Matches(lit) {
				return "", false
			}
			out = append(out, lit)
		}
	}

	return Join(out), true
}

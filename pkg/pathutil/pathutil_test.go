package pathutil

import "testing"

func TestSplitJoin(t *testing.T) {
	cases := []struct {
		path string
		want []string
	}{
		{"", nil},
		{"/", nil},
		{"a/b", []string{"a", "b"}},
		{"/a/b/", []string{"a", "b"}},
		{"a//b", []string{"a", "b"}},
	}
	for _, c := range cases {
		got := Split(c.path)
		if len(got) != len(c.want) {
			t.Fatalf("Split(%q) = %v, want %v", c.path, got, c.want)
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Fatalf("Split(%q) = %v, want %v", c.path, got, c.want)
			}
		}
	}
}

func TestNormalize(t *testing.T) {
	t.Run("resolves dot and dotdot", func(t *testing.T) {
		got, err := Normalize("a/./b/../c")
		if err != nil {
			t.Fatal(err)
		}
		if got != "a/c" {
			t.Errorf("got %q, want %q", got, "a/c")
		}
	})

	t.Run("escaping root fails", func(t *testing.T) {
		_, err := Normalize("a/../../b")
		if err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		first, err := Normalize("a/./b/../c")
		if err != nil {
			t.Fatal(err)
		}
		second, err := Normalize(first)
		if err != nil {
			t.Fatal(err)
		}
		if first != second {
			t.Errorf("not idempotent: %q != %q", first, second)
		}
	})
}

func TestRebase(t *testing.T) {
	t.Run("basic rebase", func(t *testing.T) {
		got, err := Rebase("a/b", "x/y", "a/b/c/d.txt")
		if err != nil {
			t.Fatal(err)
		}
		if got != "x/y/c/d.txt" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("round trip", func(t *testing.T) {
		p := "a/b/c/d.txt"
		mid, err := Rebase("a/b", "x/y", p)
		if err != nil {
			t.Fatal(err)
		}
		back, err := Rebase("x/y", "a/b", mid)
		if err != nil {
			t.Fatal(err)
		}
		if back != p {
			t.Errorf("round trip failed: got %q want %q", back, p)
		}
	})

	t.Run("not under base fails", func(t *testing.T) {
		_, err := Rebase("a/b", "x/y", "z/q")
		if err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestCompileGlob(t *testing.T) {
	cases := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"**", "anything/at/all", true},
		{"a/*.txt", "a/b.txt", true},
		{"a/*.txt", "a/b/c.txt", false},
		{"a/**", "a/b/c.txt", true},
		{"a/?.txt", "a/b.txt", true},
		{"a/?.txt", "a/bb.txt", false},
	}
	for _, c := range cases {
		m, err := CompileGlob(c.pattern)
		if err != nil {
			t.Fatalf("CompileGlob(%q): %v", c.pattern, err)
		}
		if got := m.Matches(c.path); got != c.want {
			t.Errorf("CompileGlob(%q).Matches(%q) = %v, want %v", c.pattern, c.path, got, c.want)
		}
	}
}

func TestGlobStem(t *testing.T) {
	cases := []struct{ pattern, want string }{
		{"**", ""},
		{"a/b/**", "a/b"},
		{"a/b/*.txt", "a/b"},
		{"a/b/c.txt", "a/b/c.txt"},
		{"a/?/c", "a"},
	}
	for _, c := range cases {
		if got := GlobStem(c.pattern); got != c.want {
			t.Errorf("GlobStem(%q) = %q, want %q", c.pattern, got, c.want)
		}
	}
}

func TestGlobIntersect(t *testing.T) {
	t.Run("disjoint literals", func(t *testing.T) {
		_, ok := GlobIntersect("a/b", "a/c")
		if ok {
			t.Error("expected empty intersection")
		}
	})

	t.Run("commutative", func(t *testing.T) {
		r1, ok1 := GlobIntersect("a/*", "a/b")
		r2, ok2 := GlobIntersect("a/b", "a/*")
		if ok1 != ok2 || r1 != r2 {
			t.Errorf("not commutative: (%q,%v) vs (%q,%v)", r1, ok1, r2, ok2)
		}
	})

	t.Run("star absorbs", func(t *testing.T) {
		r, ok := GlobIntersect("a/**", "a/b/c")
		if !ok || r != "a/b/c" {
			t.Errorf("got (%q,%v)", r, ok)
		}
	})

	t.Run("accept-all", func(t *testing.T) {
		r, ok := GlobIntersect("**", "a/b")
		if !ok || r != "a/b" {
			t.Errorf("got (%q,%v)", r, ok)
		}
	})
}

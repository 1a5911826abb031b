package mounttree

import "testing"

func TestWalkCreatesNothing(t *testing.T) {
	tree := New()
	terminal, bindings, exact := tree.Walk("a/b/c")
	if exact {
		t.Error("expected foundExact false on empty tree")
	}
	if terminal != tree.Root() {
		t.Error("expected terminal == root when nothing exists")
	}
	if len(bindings) != 0 {
		t.Error("expected no bindings")
	}
}

func TestGetOrCreateThenWalk(t *testing.T) {
	tree := New()
	node, _, created := tree.GetOrCreate("a/b")
	if len(created) != 2 {
		t.Fatalf("expected 2 created nodes, got %d", len(created))
	}
	if node.Path() != "a/b" {
		t.Errorf("Path() = %q, want a/b", node.Path())
	}

	node.Mount = &Binding{MountPath: "a/b"}

	terminal, bindings, exact := tree.Walk("a/b")
	if !exact {
		t.Error("expected foundExact true")
	}
	if terminal != node {
		t.Error("expected terminal == node")
	}
	if len(bindings) != 1 {
		t.Fatalf("expected 1 binding, got %d", len(bindings))
	}
}

func TestWalkAccumulatesShadowingBindings(t *testing.T) {
	tree := New()
	shallow, _, _ := tree.GetOrCreate("a")
	shallow.Mount = &Binding{MountPath: "a"}
	deep, _, _ := tree.GetOrCreate("a/b")
	deep.Mount = &Binding{MountPath: "a/b"}

	_, bindings, exact := tree.Walk("a/b/c.txt")
	if exact {
		t.Error("expected foundExact false: a/b/c.txt has no node")
	}
	if len(bindings) != 2 {
		t.Fatalf("expected 2 bindings (shallow then deep), got %d", len(bindings))
	}
	if bindings[0] != shallow.Mount || bindings[1] != deep.Mount {
		t.Error("expected bindings in root-to-leaf order")
	}
}

func TestPrunePropagatesUpward(t *testing.T) {
	tree := New()
	leaf, _, _ := tree.GetOrCreate("a/b/c")
	leaf.Mount = &Binding{MountPath: "a/b/c"}

	// Clearing the binding and pruning should remove a/b/c, a/b, and a.
	leaf.Mount = nil
	removed := Prune(leaf)

	if len(removed) != 3 {
		t.Fatalf("expected 3 nodes pruned, got %d: %v", len(removed), removed)
	}
	if _, _, exact := tree.Walk("a"); exact {
		t.Error("expected entire branch pruned")
	}
}

func TestPruneStopsAtLiveAncestor(t *testing.T) {
	tree := New()
	mid, _, _ := tree.GetOrCreate("a/b")
	mid.Mount = &Binding{MountPath: "a/b"}
	leaf, _, _ := tree.GetOrCreate("a/b/c")
	leaf.Mount = nil // never bound

	removed := Prune(leaf)
	if len(removed) != 1 || removed[0] != "a/b/c" {
		t.Fatalf("expected only a/b/c pruned, got %v", removed)
	}
	if _, _, exact := tree.Walk("a/b"); !exact {
		t.Error("a/b should survive since it still carries a Binding")
	}
}

func TestListMounts(t *testing.T) {
	tree := New()
	n1, _, _ := tree.GetOrCreate("a")
	n1.Mount = &Binding{MountPath: "a"}
	n2, _, _ := tree.GetOrCreate("a/b/c")
	n2.Mount = &Binding{MountPath: "a/b/c"}

	mounts := ListMounts(tree.Root())
	if len(mounts) != 2 {
		t.Fatalf("expected 2 mounts, got %d", len(mounts))
	}
}

// Package mounttree implements the Mount Tree (spec §3, §4.2): a tree of
// virtual directories keyed by path segments, where any node may carry a
// Mount Binding — an ordered list of Components (backend + options +
// path-map).
//
// Grounded on the teacher's composition pattern in internal/adapter, and
// on the other_examples worldiety-vfs MountableFileSystem's
// virtualDir/namedEntry/Resolve walk and aghassemi-go.ref mounttable.go's
// node-tree-with-mount-points shape.
package mounttree

import (
	"sync"

	"github.com/objectfs/vfscore/pkg/pathutil"
	vfs "github.com/objectfs/vfscore/pkg/vfstypes"
)

// Component is a single (backend, options, path-map) triple within a
// Binding. Index within Binding.Components determines priority: index 0
// is highest priority (spec §3).
type Component struct {
	Backend vfs.Backend
	Options vfs.Options
	PathMap vfs.PathMap
}

// Equal reports whether two Components refer to the same backend+options,
// used by Mount to compute added/removed/reused sets.
func (c Component) Equal(o Component) bool {
	return c.Backend == o.Backend &&
		c.Options.Capabilities == o.Options.Capabilities &&
		c.Options.SubPath == o.Options.SubPath &&
		c.PathMap == o.PathMap
}

// Binding is the set of Components attached to one Mount Node (spec §3).
type Binding struct {
	MountPath  string
	Components []Component
}

// Node is a Mount Node: one path segment in the tree (spec §3). Parent is
// a weak (non-owning) back-reference; Children is owned strongly.
type Node struct {
	Name         string
	Parent       *Node
	Children     map[string]*Node
	Mount        *Binding
	LastModified int64
	LastAccess   int64
}

func newNode(name string, parent *Node) *Node {
	return &Node{Name: name, Parent: parent, Children: make(map[string]*Node)}
}

// Path reconstructs this node's full VFS path by walking to the root.
func (n *Node) Path() string {
	if n.Parent == nil {
		return ""
	}
	segments := []string{}
	for cur := n; cur.Parent != nil; cur = cur.Parent {
		segments = append([]string{cur.Name}, segments...)
	}
	return pathutil.Join(segments)
}

// Tree is the Mount Tree: a root Node plus the structural reader/writer
// lock guarding it (spec §4.2, §5's structuralLock). Callers acquire the
// lock explicitly around Walk/GetOrCreate/Prune so they can release it
// before calling into any backend, per spec §5.
type Tree struct {
	Lock sync.RWMutex
	root *Node
}

// New creates an empty Mount Tree.
func New() *Tree {
	return &Tree{root: newNode("", nil)}
}

// Root returns the root Mount Node.
func (t *Tree) Root() *Node { return t.root }

// Walk traverses from root along path, without creating missing nodes.
// It returns the terminal node reached (the deepest existing ancestor if
// the full path doesn't exist), every Binding encountered along the way
// (shallowest first), and whether the full path resolved to an existing
// node (spec §4.2).
func (t *Tree) Walk(path string) (terminal *Node, bindings []*Binding, foundExact bool) {
	cur := t.root
	if cur.Mount != nil {
		bindings = append(bindings, cur.Mount)
	}
	segments := pathutil.Split(path)
	for _, seg := range segments {
		next, ok := cur.Children[seg]
		if !ok {
			return cur, bindings, false
		}
		cur = next
		if cur.Mount != nil {
			bindings = append(bindings, cur.Mount)
		}
	}
	return cur, bindings, true
}

// GetOrCreate is like Walk but creates missing nodes along the way,
// returning the newly created nodes (for mount-event synthesis, spec
// §4.4) in addition to Walk's usual results.
func (t *Tree) GetOrCreate(path string) (terminal *Node, bindings []*Binding, created []*Node) {
	cur := t.root
	if cur.Mount != nil {
		bindings = append(bindings, cur.Mount)
	}
	for _, seg := range pathutil.Split(path) {
		next, ok := cur.Children[seg]
		if !ok {
			next = newNode(seg, cur)
			cur.Children[seg] = next
			created = append(created, next)
		}
		cur = next
		if cur.Mount != nil {
			bindings = append(bindings, cur.Mount)
		}
	}
	return cur, bindings, created
}

// Prune removes node and any now-empty ancestors: nodes with no children,
// no Binding, and a parent (the root is never pruned). Returns the paths
// of every node removed, deepest first, for Delete-event synthesis (spec
// §4.4's "directory pruning" algorithm).
func Prune(node *Node) []string {
	var removed []string
	cur := node
	for cur != nil && cur.Parent != nil && cur.Mount == nil && len(cur.Children) == 0 {
		removed = append(removed, cur.Path())
		parent := cur.Parent
		delete(parent.Children, cur.Name)
		cur = parent
	}
	return removed
}

// ListMounts returns every Node in the tree that carries a Binding (spec
// §4.4 ListMountPoints).
func ListMounts(root *Node) []*Node {
	var out []*Node
	var walk func(*Node)
	walk = func(n *Node) {
		if n.Mount != nil {
			out = append(out, n)
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(root)
	return out
}

// Package observertree implements the Observer Tree (spec §3, §4.5): a
// second tree, independent of the Mount Tree and keyed on each
// observer's glob stem, so that "collect observers whose path prefix is
// an ancestor/equal/descendant of X" is efficient and observers can be
// placed before their corresponding mount exists.
package observertree

import (
	"sync"

	"github.com/objectfs/vfscore/pkg/disposal"
	"github.com/objectfs/vfscore/pkg/pathutil"
	vfs "github.com/objectfs/vfscore/pkg/vfstypes"
)

// Handle is an active subscription (spec §3). Subscriptions holds the
// disposables obtained from backends so they can be torn down together.
type Handle struct {
	VFS        string
	Filter     string
	Stem       string
	Matcher    *pathutil.Matcher
	Sink       vfs.Sink
	Dispatcher vfs.Dispatcher

	mu            sync.Mutex
	node          *Node
	subscriptions *disposal.Chain
	completed     bool
}

// NewHandle compiles filter and prepares a Handle ready for insertion
// into the tree at GlobStem(filter).
func NewHandle(vfsName, filter string, sink vfs.Sink, dispatcher vfs.Dispatcher) (*Handle, error) {
	matcher, err := pathutil.CompileGlob(filter)
	if err != nil {
		return nil, err
	}
	if dispatcher == nil {
		dispatcher = vfs.SyncDispatcher{}
	}
	return &Handle{
		VFS:           vfsName,
		Filter:        filter,
		Stem:          pathutil.GlobStem(filter),
		Matcher:       matcher,
		Sink:          sink,
		Dispatcher:    dispatcher,
		subscriptions: disposal.NewChain(),
	}, nil
}

// AddSubscription records a backend subscription to be disposed when this
// Handle is disposed.
func (h *Handle) AddSubscription(s disposal.Disposable) {
	h.subscriptions.AddDisposable(s)
}

// Dispatch delivers e through the Handle's Dispatcher unless the Handle
// has already completed.
func (h *Handle) Dispatch(e vfs.Event) {
	h.mu.Lock()
	done := h.completed
	h.mu.Unlock()
	if done {
		return
	}
	h.Dispatcher.Dispatch(func() {
		h.mu.Lock()
		done := h.completed
		h.mu.Unlock()
		if done {
			return
		}
		h.Sink.OnNext(e)
	})
}

// Dispose detaches the Handle from its Observer Node, disposes every
// child subscription, and prunes now-empty Observer Nodes up the tree
// (spec §4.4's Observe disposal contract). After Dispose, no further
// events are delivered.
func (h *Handle) Dispose() error {
	h.mu.Lock()
	if h.completed {
		h.mu.Unlock()
		return nil
	}
	h.completed = true
	node := h.node
	h.mu.Unlock()

	err := h.subscriptions.Dispose()

	if node != nil {
		node.removeHandle(h)
	}
	if h.Sink.OnCompleted != nil {
		h.Sink.OnCompleted()
	}
	return err
}

// Node is an Observer Node: one glob-stem segment in the tree (spec §3).
type Node struct {
	Name     string
	Parent   *Node
	Children map[string]*Node

	mu        sync.Mutex
	observers map[*Handle]struct{}
	tree      *Tree
}

func newNode(name string, parent *Node, tree *Tree) *Node {
	return &Node{Name: name, Parent: parent, Children: make(map[string]*Node), observers: make(map[*Handle]struct{}), tree: tree}
}

// Path reconstructs this node's full stem path.
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

func (n *Node) addHandle(h *Handle) {
	n.mu.Lock()
	n.observers[h] = struct{}{}
	n.mu.Unlock()
}

func (n *Node) removeHandle(h *Handle) {
	n.mu.Lock()
	delete(n.observers, h)
	empty := len(n.observers) == 0
	n.mu.Unlock()
	if empty {
		n.tree.prune(n)
	}
}

func (n *Node) handles() []*Handle {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]*Handle, 0, len(n.observers))
	for h := range n.observers {
		out = append(out, h)
	}
	return out
}

// Tree is the Observer Tree: a root Node plus the reader/writer lock
// guarding structural mutation (spec §5's observerLock).
type Tree struct {
	Lock sync.RWMutex
	root *Node
}

// New creates an empty Observer Tree.
func New() *Tree {
	t := &Tree{}
	t.root = newNode("", nil, t)
	return t
}

// Root returns the root Observer Node.
func (t *Tree) Root() *Node { return t.root }

// GetOrCreate traverses to (creating as needed) the node for stem and, if
// handle is non-nil, atomically inserts it there (spec §4.5).
func (t *Tree) GetOrCreate(stem string, handle *Handle) *Node {
	cur := t.root
	for _, seg := range pathutil.Split(stem) {
		next, ok := cur.Children[seg]
		if !ok {
			next = newNode(seg, cur, t)
			cur.Children[seg] = next
		}
		cur = next
	}
	if handle != nil {
		handle.mu.Lock()
		handle.node = cur
		handle.mu.Unlock()
		cur.addHandle(handle)
	}
	return cur
}

// Locate traverses as far as possible toward path, returning the last
// matched node and whether path was fully consumed (spec §4.5).
func (t *Tree) Locate(path string) (node *Node, exact bool) {
	cur := t.root
	segments := pathutil.Split(path)
	for _, seg := range segments {
		next, ok := cur.Children[seg]
		if !ok {
			return cur, false
		}
		cur = next
	}
	return cur, true
}

// Selector picks which tree positions relative to path Collect visits.
type Selector struct {
	Ancestors   bool
	Self        bool
	Descendants bool
}

// Collect walks the tree relative to path and returns every Handle at the
// positions selected by sel (spec §4.5). Ancestors+Self is used for
// mount/unmount synthesis; Ancestors+Self+Descendants for subtree content
// changes.
func Collect(root *Node, path string, sel Selector) []*Handle {
	var out []*Handle
	segments := pathutil.Split(path)

	// path nodes[0..len-1] is the walk from root to the deepest existing
	// node on the path to `path`; the last entry is "self" only if the
	// full path was reached (foundExact), every earlier entry is an
	// ancestor.
	nodes := []*Node{root}
	cur := root
	foundExact := true
	for _, seg := range segments {
		next, ok := cur.Children[seg]
		if !ok {
			foundExact = false
			break
		}
		cur = next
		nodes = append(nodes, cur)
	}

	lastIdx := len(nodes) - 1
	for i, n := range nodes {
		isSelf := foundExact && i == lastIdx
		switch {
		case isSelf && sel.Self:
			out = append(out, n.handles()...)
		case !isSelf && sel.Ancestors:
			out = append(out, n.handles()...)
		}
	}

	if sel.Descendants && foundExact {
		out = append(out, collectDescendants(cur)...)
	}
	return out
}

// CountHandles returns the number of distinct Observer Handles registered
// anywhere in the tree, for status reporting.
func (t *Tree) CountHandles() int {
	return countHandles(t.root)
}

func countHandles(n *Node) int {
	count := len(n.handles())
	for _, c := range n.Children {
		count += countHandles(c)
	}
	return count
}

func collectDescendants(n *Node) []*Handle {
	var out []*Handle
	for _, c := range n.Children {
		out = append(out, c.handles()...)
		out = append(out, collectDescendants(c)...)
	}
	return out
}

func (t *Tree) prune(n *Node) {
	cur := n
	for cur != nil && cur.Parent != nil {
		cur.mu.Lock()
		empty := len(cur.observers) == 0 && len(cur.Children) == 0
		cur.mu.Unlock()
		if !empty {
			return
		}
		parent := cur.Parent
		delete(parent.Children, cur.Name)
		cur = parent
	}
}

package vfs

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/objectfs/vfscore/internal/backends/memory"
	"github.com/objectfs/vfscore/pkg/retry"
	vfstypes "github.com/objectfs/vfscore/pkg/vfstypes"
)

func fullComponent(backendName, mountPath string) Component {
	return Component{
		Backend: memory.New(backendName),
		Options: vfstypes.Options{Capabilities: vfstypes.CapBrowse | vfstypes.CapGetEntry |
			vfstypes.CapOpenRead | vfstypes.CapOpenWrite | vfstypes.CapCreateDirectory |
			vfstypes.CapDelete | vfstypes.CapMove | vfstypes.CapSetAttribute | vfstypes.CapObserve},
		PathMap: vfstypes.PathMap{MountPath: mountPath, SubPath: ""},
	}
}

func writeFile(t *testing.T, ctx context.Context, v *VFS, path, content string) {
	t.Helper()
	s, err := v.Open(ctx, path, ModeCreate, vfstypes.AccessWrite, vfstypes.ShareNone)
	require.NoError(t, err)
	_, err = s.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func readFile(t *testing.T, ctx context.Context, v *VFS, path string) string {
	t.Helper()
	s, err := v.Open(ctx, path, ModeOpen, vfstypes.AccessRead, vfstypes.ShareNone)
	require.NoError(t, err)
	data, err := io.ReadAll(readerFunc(s.Read))
	require.NoError(t, err)
	require.NoError(t, s.Close())
	return string(data)
}

type readerFunc func([]byte) (int, error)

func (f readerFunc) Read(p []byte) (int, error) { return f(p) }

func newTestVFS() *VFS {
	return New("test", Config{Retry: retry.Config{MaxAttempts: 1}})
}

// S1: an empty VFS's root browse returns an empty collection, never an
// error.
func TestScenarioS1EmptyBrowse(t *testing.T) {
	v := newTestVFS()
	entries, err := v.Browse(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// S2: mounting a memory backend at a nested path exposes every
// intermediate virtual directory, and the mounted backend's own
// contents at the deepest level.
func TestScenarioS2MountAndBrowse(t *testing.T) {
	ctx := context.Background()
	v := newTestVFS()

	mem := fullComponent("mem", "a/b")
	require.NoError(t, v.Mount(ctx, "a/b", mem))

	writeFile(t, ctx, v, "a/b/x.txt", "")
	writeFile(t, ctx, v, "a/b/y.txt", "")

	root, err := v.Browse(ctx, "")
	require.NoError(t, err)
	require.Len(t, root, 1)
	assert.Equal(t, "a", root[0].Name)
	assert.Equal(t, KindDirectory, root[0].Kind)

	a, err := v.Browse(ctx, "a")
	require.NoError(t, err)
	require.Len(t, a, 1)
	assert.Equal(t, "b", a[0].Name)

	ab, err := v.Browse(ctx, "a/b")
	require.NoError(t, err)
	require.Len(t, ab, 2)
	names := []string{ab[0].Name, ab[1].Name}
	assert.Contains(t, names, "x.txt")
	assert.Contains(t, names, "y.txt")
}

// S3: two Components overlaid at the same mount path unify into one
// Browse result, with the higher-priority (index 0) Component's
// attributes surviving on a name both share.
func TestScenarioS3OverlayUnification(t *testing.T) {
	ctx := context.Background()
	v := newTestVFS()

	m1 := fullComponent("m1", "z")
	m2 := fullComponent("m2", "z")
	require.NoError(t, v.Mount(ctx, "z", m1, m2))

	writeFile(t, ctx, v, "z/f1", "")
	writeFile(t, ctx, v, "z/common", "from-m1")
	require.NoError(t, v.SetAttribute(ctx, "z/common", AttrReadOnly))

	// m2's copy of "common" exists independently on its own backend and
	// carries no attributes, so the priority-0 (m1) attributes must win.
	s, err := m2.Backend.Open(ctx, "common", vfstypes.ModeCreate, vfstypes.AccessWrite, vfstypes.ShareNone)
	require.NoError(t, err)
	require.NoError(t, s.Close())
	s2, err := m2.Backend.Open(ctx, "f2", vfstypes.ModeCreate, vfstypes.AccessWrite, vfstypes.ShareNone)
	require.NoError(t, err)
	require.NoError(t, s2.Close())

	entries, err := v.Browse(ctx, "z")
	require.NoError(t, err)
	require.Len(t, entries, 3)

	byName := make(map[string]Entry, len(entries))
	for _, e := range entries {
		byName[e.Name] = e
	}
	assert.Contains(t, byName, "f1")
	assert.Contains(t, byName, "f2")
	require.Contains(t, byName, "common")
	assert.True(t, byName["common"].HasAttrs)
	assert.Equal(t, AttrReadOnly, byName["common"].Attributes)
}

// S4: mounting into a VFS already being observed emits Start followed by
// a Create event for the mount point itself and one per existing entry.
func TestScenarioS4ObserverSynthesisOnMount(t *testing.T) {
	ctx := context.Background()
	v := newTestVFS()

	var events []Event
	handle, err := v.Observe(ctx, "**", Sink{OnNext: func(e Event) { events = append(events, e) }}, nil)
	require.NoError(t, err)
	defer handle.Dispose()

	preSeeded := fullComponent("mem2", "p")
	require.NoError(t, preSeeded.Backend.CreateDirectory(ctx, ""))
	s, err := preSeeded.Backend.Open(ctx, "a.txt", vfstypes.ModeCreate, vfstypes.AccessWrite, vfstypes.ShareNone)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	require.NoError(t, v.Mount(ctx, "p", preSeeded))

	require.GreaterOrEqual(t, len(events), 3)
	assert.Equal(t, EventStart, events[0].Kind)

	var sawCreateP, sawCreateFile bool
	for _, e := range events[1:] {
		if e.Kind == EventCreate && e.Path == "p" {
			sawCreateP = true
		}
		if e.Kind == EventCreate && e.Path == "p/a.txt" {
			sawCreateFile = true
		}
	}
	assert.True(t, sawCreateP, "expected a Create(\"p\") event")
	assert.True(t, sawCreateFile, "expected a Create(\"p/a.txt\") event")
}

// S5: unmounting a previously mounted, observed path emits matching
// Delete events for each synthesized entry and the mount point.
func TestScenarioS5UnmountCleanup(t *testing.T) {
	ctx := context.Background()
	v := newTestVFS()

	var events []Event
	handle, err := v.Observe(ctx, "**", Sink{OnNext: func(e Event) { events = append(events, e) }}, nil)
	require.NoError(t, err)
	defer handle.Dispose()

	mem := fullComponent("mem", "p")
	s, err := mem.Backend.Open(ctx, "a.txt", vfstypes.ModeCreate, vfstypes.AccessWrite, vfstypes.ShareNone)
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, v.Mount(ctx, "p", mem))

	events = nil
	require.NoError(t, v.Unmount(ctx, "p"))

	var sawDeleteFile, sawDeleteP bool
	for _, e := range events {
		if e.Kind == EventDelete && e.Path == "p/a.txt" {
			sawDeleteFile = true
		}
		if e.Kind == EventDelete && e.Path == "p" {
			sawDeleteP = true
		}
	}
	assert.True(t, sawDeleteFile, "expected a Delete(\"p/a.txt\") event")
	assert.True(t, sawDeleteP, "expected a Delete(\"p\") event")
}

// S6: moving a file between two Components on different backends falls
// back to copy-then-delete, preserving content but not requiring the
// source backend to retain the entry.
func TestScenarioS6CrossBackendMoveFallback(t *testing.T) {
	ctx := context.Background()
	v := newTestVFS()

	m1 := fullComponent("m1", "a")
	m2 := fullComponent("m2", "b")
	require.NoError(t, v.Mount(ctx, "a", m1))
	require.NoError(t, v.Mount(ctx, "b", m2))

	writeFile(t, ctx, v, "a/file", "payload")

	require.NoError(t, v.Move(ctx, "a/file", "b/file"))

	srcEntry, err := m1.Backend.GetEntry(ctx, "file")
	require.NoError(t, err)
	assert.Nil(t, srcEntry)

	dstEntry, err := m2.Backend.GetEntry(ctx, "file")
	require.NoError(t, err)
	require.NotNil(t, dstEntry)

	content := readFile(t, ctx, v, "b/file")
	assert.Equal(t, "payload", content)
}

// mount-then-unmount on previously empty state restores the Mount Tree
// to empty and fires a balanced set of Create/Delete events.
func TestMountUnmountRestoresEmptyState(t *testing.T) {
	ctx := context.Background()
	v := newTestVFS()

	var events []Event
	handle, err := v.Observe(ctx, "**", Sink{OnNext: func(e Event) { events = append(events, e) }}, nil)
	require.NoError(t, err)
	defer handle.Dispose()

	mem := fullComponent("mem", "p")
	require.NoError(t, v.Mount(ctx, "p", mem))
	require.NoError(t, v.Unmount(ctx, "p"))

	creates, deletes := 0, 0
	for _, e := range events {
		switch e.Kind {
		case EventCreate:
			creates++
		case EventDelete:
			deletes++
		}
	}
	assert.Equal(t, creates, deletes, "expected a balanced set of Create/Delete events")

	entries, err := v.Browse(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, entries, "Mount Tree should be pruned back to empty")
}

// Disposal is idempotent: disposing an Observer Handle twice has the
// same externally observable effect as disposing it once.
func TestObserverHandleDisposalIdempotent(t *testing.T) {
	ctx := context.Background()
	v := newTestVFS()

	handle, err := v.Observe(ctx, "**", Sink{OnNext: func(Event) {}}, nil)
	require.NoError(t, err)

	require.NoError(t, handle.Dispose())
	require.NoError(t, handle.Dispose())
	assert.Equal(t, 0, v.ObserverCount())
}

// open with an unsupported (mode, access) combination raises
// NotSupported rather than silently degrading.
func TestOpenUnsupportedCombinationRaisesNotSupported(t *testing.T) {
	ctx := context.Background()
	v := newTestVFS()

	readOnly := Component{
		Backend: memory.New("ro"),
		Options: vfstypes.Options{Capabilities: vfstypes.CapBrowse | vfstypes.CapGetEntry | vfstypes.CapOpenRead},
		PathMap: vfstypes.PathMap{MountPath: "ro", SubPath: ""},
	}
	require.NoError(t, v.Mount(ctx, "ro", readOnly))

	_, err := v.Open(ctx, "ro/file", ModeCreate, vfstypes.AccessWrite, vfstypes.ShareNone)
	require.Error(t, err)
}

// Walk with a ".." that escapes root raises NotFound without ever
// reaching a backend.
func TestWalkEscapingRootRaisesNotFound(t *testing.T) {
	ctx := context.Background()
	v := newTestVFS()

	_, err := v.GetEntry(ctx, "../escape")
	require.Error(t, err)
}

// A second, wider Observe on the same Component must not be starved by
// the backend subscription an earlier, narrower Observe already opened:
// each handle gets events for its own filter regardless of call order.
func TestObserveSecondWiderFilterSeesOwnEvents(t *testing.T) {
	ctx := context.Background()
	v := newTestVFS()

	mem := fullComponent("mem", "a")
	require.NoError(t, v.Mount(ctx, "a", mem))

	var narrow, wide []Event
	h1, err := v.Observe(ctx, "a/sub/**", Sink{OnNext: func(e Event) { narrow = append(narrow, e) }}, nil)
	require.NoError(t, err)
	defer h1.Dispose()

	h2, err := v.Observe(ctx, "a/**", Sink{OnNext: func(e Event) { wide = append(wide, e) }}, nil)
	require.NoError(t, err)
	defer h2.Dispose()

	writeFile(t, ctx, v, "a/other.txt", "x")

	var wideSawOther bool
	for _, e := range wide {
		if e.Kind == EventCreate && e.Path == "a/other.txt" {
			wideSawOther = true
		}
	}
	assert.True(t, wideSawOther, "wider observer must see a mutation outside the narrower observer's filter")

	for _, e := range narrow {
		assert.NotEqual(t, "a/other.txt", e.Path, "narrower observer must not see a path outside its own filter")
	}
}

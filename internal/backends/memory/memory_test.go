package memory

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vfserrors "github.com/objectfs/vfscore/pkg/errors"
	"github.com/objectfs/vfscore/pkg/vfstypes"
)

func TestCreateDirectoryAndBrowse(t *testing.T) {
	b := New("mem")
	ctx := context.Background()

	require.NoError(t, b.CreateDirectory(ctx, "a/b/c"))

	entries, err := b.Browse(ctx, "a/b")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "c", entries[0].Name)
	assert.Equal(t, vfstypes.KindDirectory, entries[0].Kind)
}

func TestOpenWriteReadRoundTrip(t *testing.T) {
	b := New("mem")
	ctx := context.Background()

	s, err := b.Open(ctx, "file.txt", vfstypes.ModeCreate, vfstypes.AccessWrite, vfstypes.ShareNone)
	require.NoError(t, err)
	_, err = s.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s2, err := b.Open(ctx, "file.txt", vfstypes.ModeOpen, vfstypes.AccessRead, vfstypes.ShareNone)
	require.NoError(t, err)
	data, err := io.ReadAll(readerFunc(s2.Read))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	require.NoError(t, s2.Close())

	entry, err := b.GetEntry(ctx, "file.txt")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, int64(5), entry.Length)
}

func TestOpenCreateNewFailsWhenExists(t *testing.T) {
	b := New("mem")
	ctx := context.Background()

	s, err := b.Open(ctx, "f", vfstypes.ModeCreate, vfstypes.AccessWrite, vfstypes.ShareNone)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = b.Open(ctx, "f", vfstypes.ModeCreateNew, vfstypes.AccessWrite, vfstypes.ShareNone)
	require.Error(t, err)
	assert.True(t, vfserrors.Is(err, vfserrors.KindAlreadyExists))
}

func TestDeleteNonEmptyDirectoryRequiresRecursive(t *testing.T) {
	b := New("mem")
	ctx := context.Background()

	require.NoError(t, b.CreateDirectory(ctx, "dir/child"))

	err := b.Delete(ctx, "dir", false)
	require.Error(t, err)

	require.NoError(t, b.Delete(ctx, "dir", true))
	_, err = b.GetEntry(ctx, "dir")
	require.NoError(t, err)
	entry, err := b.GetEntry(ctx, "dir")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestMoveRelocatesEntry(t *testing.T) {
	b := New("mem")
	ctx := context.Background()

	s, err := b.Open(ctx, "src.txt", vfstypes.ModeCreate, vfstypes.AccessWrite, vfstypes.ShareNone)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	require.NoError(t, b.Move(ctx, "src.txt", "dst.txt"))

	entry, err := b.GetEntry(ctx, "src.txt")
	require.NoError(t, err)
	assert.Nil(t, entry)

	entry, err = b.GetEntry(ctx, "dst.txt")
	require.NoError(t, err)
	require.NotNil(t, entry)
}

func TestObserveReceivesCreateEvent(t *testing.T) {
	b := New("mem")
	ctx := context.Background()

	var got []vfstypes.Event
	sink := vfstypes.Sink{OnNext: func(e vfstypes.Event) { got = append(got, e) }}

	sub, err := b.Observe(ctx, "**", sink, nil)
	require.NoError(t, err)
	defer sub.Dispose()

	require.NoError(t, b.CreateDirectory(ctx, "newdir"))

	require.Len(t, got, 1)
	assert.Equal(t, vfstypes.EventCreate, got[0].Kind)
	assert.Equal(t, "newdir", got[0].Path)
}

func TestSetAttributePersists(t *testing.T) {
	b := New("mem")
	ctx := context.Background()

	s, err := b.Open(ctx, "f", vfstypes.ModeCreate, vfstypes.AccessWrite, vfstypes.ShareNone)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	require.NoError(t, b.SetAttribute(ctx, "f", vfstypes.AttrReadOnly))

	entry, err := b.GetEntry(ctx, "f")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.True(t, entry.HasAttrs)
	assert.Equal(t, vfstypes.AttrReadOnly, entry.Attributes)
}

type readerFunc func(p []byte) (int, error)

func (f readerFunc) Read(p []byte) (int, error) { return f(p) }

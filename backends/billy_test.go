package backends

import (
	"context"
	"io"
	"io/fs"
	"sort"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMem(t *testing.T) *Billy {
	t.Helper()
	return NewBilly(memfs.New())
}

func writeMem(t *testing.T, b *Billy, path, content string) {
	t.Helper()
	w, err := b.OpenWrite(context.Background(), path, false)
	require.NoError(t, err)
	_, err = w.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())
}

func readMem(t *testing.T, b *Billy, path string) string {
	t.Helper()
	rc, err := b.OpenRead(context.Background(), path)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(data)
}

func TestBilly_MissingPathChecks(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	b := newMem(t)

	exists, err := b.Exists(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, exists)

	isDir, err := b.IsDir(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, isDir)

	isFile, err := b.IsFile(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, isFile)
}

func TestBilly_FileRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	b := newMem(t)

	writeMem(t, b, "dir/a.txt", "hello")
	assert.Equal(t, "hello", readMem(t, b, "dir/a.txt"))

	info, err := b.Stat(ctx, "dir/a.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(5), info.Size)

	isFile, err := b.IsFile(ctx, "dir/a.txt")
	require.NoError(t, err)
	assert.True(t, isFile)

	isDir, err := b.IsDir(ctx, "dir")
	require.NoError(t, err)
	assert.True(t, isDir)
}

func TestBilly_AppendWrite(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	b := newMem(t)
	writeMem(t, b, "log", "one")

	w, err := b.OpenWrite(ctx, "log", true)
	require.NoError(t, err)
	_, err = w.Write([]byte("two"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	assert.Equal(t, "onetwo", readMem(t, b, "log"))
}

func TestBilly_Mkdir(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	b := newMem(t)

	require.NoError(t, b.Mkdir(ctx, "top"))

	// Missing parent rejected
	err := b.Mkdir(ctx, "a/b")
	assert.ErrorIs(t, err, fs.ErrNotExist)

	// Existing path rejected
	err = b.Mkdir(ctx, "top")
	assert.ErrorIs(t, err, fs.ErrExist)

	require.NoError(t, b.MkdirAll(ctx, "a/b/c", true))
	err = b.MkdirAll(ctx, "a/b/c", false)
	assert.ErrorIs(t, err, fs.ErrExist)
}

func TestBilly_Rmdir(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	b := newMem(t)
	require.NoError(t, b.MkdirAll(ctx, "d/sub", true))
	writeMem(t, b, "d/f", "x")

	err := b.Rmdir(ctx, "d")
	assert.Error(t, err, "rmdir on a non-empty directory must fail")

	err = b.Rmdir(ctx, "d/f")
	assert.Error(t, err, "rmdir on a file must fail")

	require.NoError(t, b.Rmdir(ctx, "d/sub"))
}

func TestBilly_RemoveAll(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	b := newMem(t)
	writeMem(t, b, "tree/x", "1")
	writeMem(t, b, "tree/sub/y", "2")
	writeMem(t, b, "tree/sub/deep/z", "3")

	require.NoError(t, b.RemoveAll(ctx, "tree"))

	exists, err := b.Exists(ctx, "tree")
	require.NoError(t, err)
	assert.False(t, exists)

	assert.NoError(t, b.RemoveAll(ctx, "tree"), "removing a missing tree is not an error")
}

func TestBilly_RenameAndCopy(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	b := newMem(t)
	writeMem(t, b, "a", "content")

	require.NoError(t, b.Rename(ctx, "a", "b"))
	exists, err := b.Exists(ctx, "a")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, b.Copy(ctx, "b", "c"))
	assert.Equal(t, "content", readMem(t, b, "b"))
	assert.Equal(t, "content", readMem(t, b, "c"))
}

func TestBilly_List(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	b := newMem(t)
	writeMem(t, b, "d/a", "1")
	writeMem(t, b, "d/b", "2")
	writeMem(t, b, "d/sub/c", "3")

	names, err := b.List(ctx, "d")
	require.NoError(t, err)
	sort.Strings(names)
	assert.Equal(t, []string{"a", "b", "sub"}, names)
}

func TestBilly_Find(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	b := newMem(t)
	writeMem(t, b, "tree/x", "1")
	writeMem(t, b, "tree/sub/y", "2")

	files, err := b.Find(ctx, "tree")
	require.NoError(t, err)
	sort.Strings(files)
	assert.Equal(t, []string{"tree/sub/y", "tree/x"}, files)
}

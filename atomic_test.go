package fsbridge_test

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/walkerlab/fsbridge"
	"github.com/walkerlab/fsbridge/backends"
	"github.com/walkerlab/fsbridge/internal/mocks"
)

func newMemBackend() fsbridge.Backend {
	return backends.NewBilly(memfs.New())
}

func readAll(t *testing.T, b fsbridge.Backend, path string) string {
	t.Helper()
	rc, err := b.OpenRead(context.Background(), path)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(data)
}

func writeFile(t *testing.T, b fsbridge.Backend, path, content string) {
	t.Helper()
	w, err := b.OpenWrite(context.Background(), path, false)
	require.NoError(t, err)
	_, err = w.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())
}

func TestAtomicFile_CommitMakesContentVisible(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	b := newMemBackend()

	a, err := fsbridge.NewAtomicFile(ctx, b, "results/a.txt", fsbridge.AtomicOptions{})
	require.NoError(t, err)

	_, err = a.Write([]byte("hello"))
	require.NoError(t, err)

	// Nothing visible at the target until commit
	exists, err := b.Exists(ctx, "results/a.txt")
	require.NoError(t, err)
	assert.False(t, exists, "target must not exist before Close")

	require.NoError(t, a.Close(ctx))

	assert.Equal(t, "hello", readAll(t, b, "results/a.txt"))

	// Temp object is gone after commit
	exists, err = b.Exists(ctx, "results/.a.txt.tmp")
	require.NoError(t, err)
	assert.False(t, exists, "temp object must be renamed away")
}

func TestAtomicFile_ReplacesExistingTarget(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	b := newMemBackend()
	writeFile(t, b, "a.txt", "old content")

	a, err := fsbridge.NewAtomicFile(ctx, b, "a.txt", fsbridge.AtomicOptions{})
	require.NoError(t, err)
	_, err = a.Write([]byte("new"))
	require.NoError(t, err)
	require.NoError(t, a.Close(ctx))

	assert.Equal(t, "new", readAll(t, b, "a.txt"))
}

func TestAtomicFile_DiscardLeavesTargetUntouched(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	b := newMemBackend()
	writeFile(t, b, "a.txt", "original")

	a, err := fsbridge.NewAtomicFile(ctx, b, "a.txt", fsbridge.AtomicOptions{})
	require.NoError(t, err)
	_, err = a.Write([]byte("half-written garbage"))
	require.NoError(t, err)
	require.NoError(t, a.Discard(ctx))

	assert.Equal(t, "original", readAll(t, b, "a.txt"), "discard must not touch the target")

	exists, err := b.Exists(ctx, ".a.txt.tmp")
	require.NoError(t, err)
	assert.False(t, exists, "discard must remove the temp object")
}

func TestAtomicFile_TerminalStatesAreIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	b := newMemBackend()

	a, err := fsbridge.NewAtomicFile(ctx, b, "a.txt", fsbridge.AtomicOptions{})
	require.NoError(t, err)
	_, err = a.Write([]byte("x"))
	require.NoError(t, err)

	require.NoError(t, a.Close(ctx))
	assert.NoError(t, a.Close(ctx), "second Close is a no-op")
	assert.NoError(t, a.Discard(ctx), "Discard after Close is a no-op")
	assert.Equal(t, "x", readAll(t, b, "a.txt"), "later calls must not undo the commit")

	_, err = a.Write([]byte("y"))
	assert.ErrorIs(t, err, fs.ErrClosed, "writes after a terminal call must fail")
}

func TestAtomicFile_CustomTempNaming(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	b := newMemBackend()

	a, err := fsbridge.NewAtomicFile(ctx, b, "d/a.txt", fsbridge.AtomicOptions{
		TempPrefix: "_",
		TempSuffix: ".part",
	})
	require.NoError(t, err)
	_, err = a.Write([]byte("x"))
	require.NoError(t, err)

	exists, err := b.Exists(ctx, "d/_a.txt.part")
	require.NoError(t, err)
	assert.True(t, exists, "temp object must use the configured naming")

	require.NoError(t, a.Close(ctx))
}

func TestAtomicFile_EmptyTargetRejected(t *testing.T) {
	t.Parallel()

	_, err := fsbridge.NewAtomicFile(context.Background(), newMemBackend(), "", fsbridge.AtomicOptions{})
	assert.Error(t, err)
}

type nopWriteCloser struct{ closeErr error }

func (nopWriteCloser) Write(p []byte) (int, error) { return len(p), nil }
func (w nopWriteCloser) Close() error              { return w.closeErr }

func TestAtomicFile_CommitFailureReturnsCommitError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	renameErr := errors.New("backend unavailable")

	b := &mocks.MockBackend{}
	b.On("OpenWrite", mock.Anything, ".a.txt.tmp", false).Return(nopWriteCloser{}, nil)
	b.On("Exists", mock.Anything, "a.txt").Return(false, nil)
	b.On("Rename", mock.Anything, ".a.txt.tmp", "a.txt").Return(renameErr)
	b.On("Remove", mock.Anything, ".a.txt.tmp").Return(nil)

	a, err := fsbridge.NewAtomicFile(ctx, b, "a.txt", fsbridge.AtomicOptions{})
	require.NoError(t, err)
	_, err = a.Write([]byte("x"))
	require.NoError(t, err)

	err = a.Close(ctx)
	require.Error(t, err)

	var ce *fsbridge.CommitError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "a.txt", ce.Target)
	assert.Equal(t, ".a.txt.tmp", ce.Temp)
	assert.ErrorIs(t, err, renameErr, "commit error must unwrap to the cause")

	// Temp cleanup was attempted
	b.AssertCalled(t, "Remove", mock.Anything, ".a.txt.tmp")
}

func TestAtomicFile_DiscardSwallowsCleanupFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	b := &mocks.MockBackend{}
	b.On("OpenWrite", mock.Anything, ".a.txt.tmp", false).Return(nopWriteCloser{}, nil)
	b.On("Remove", mock.Anything, ".a.txt.tmp").Return(errors.New("remove failed"))

	a, err := fsbridge.NewAtomicFile(ctx, b, "a.txt", fsbridge.AtomicOptions{})
	require.NoError(t, err)
	_, err = a.Write([]byte("x"))
	require.NoError(t, err)

	assert.NoError(t, a.Discard(ctx), "temp cleanup failures never surface from Discard")
	b.AssertCalled(t, "Remove", mock.Anything, ".a.txt.tmp")
}

func TestAtomicFile_StreamCloseFailureCleansUpTemp(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	closeErr := errors.New("flush failed")

	b := &mocks.MockBackend{}
	b.On("OpenWrite", mock.Anything, ".a.txt.tmp", false).Return(nopWriteCloser{closeErr: closeErr}, nil)
	b.On("Remove", mock.Anything, ".a.txt.tmp").Return(nil)

	a, err := fsbridge.NewAtomicFile(ctx, b, "a.txt", fsbridge.AtomicOptions{})
	require.NoError(t, err)

	err = a.Close(ctx)
	assert.ErrorIs(t, err, closeErr)
	b.AssertCalled(t, "Remove", mock.Anything, ".a.txt.tmp")
	b.AssertNotCalled(t, "Rename", mock.Anything, mock.Anything, mock.Anything)
}

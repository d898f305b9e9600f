package fsbridge_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walkerlab/fsbridge"
)

func newTextSession(t *testing.T, b fsbridge.Backend, target string, opts fsbridge.TextOptions) *fsbridge.TextFile {
	t.Helper()
	session, err := fsbridge.NewAtomicFile(context.Background(), b, target, fsbridge.AtomicOptions{})
	require.NoError(t, err)
	tf, err := fsbridge.NewTextFile(session, opts)
	require.NoError(t, err)
	return tf
}

func TestTextFile_PassThroughUTF8(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	b := newMemBackend()

	tf := newTextSession(t, b, "a.txt", fsbridge.TextOptions{})
	_, err := tf.WriteString("héllo\n")
	require.NoError(t, err)
	require.NoError(t, tf.Close(ctx))

	assert.Equal(t, "héllo\n", readAll(t, b, "a.txt"))
}

func TestTextFile_Latin1Encoding(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	b := newMemBackend()

	tf, err := fsbridge.NewAtomicTextFile(ctx, b, "a.txt", fsbridge.AtomicOptions{}, fsbridge.TextOptions{Encoding: "ISO-8859-1"})
	require.NoError(t, err)
	_, err = tf.WriteString("héllo")
	require.NoError(t, err)
	require.NoError(t, tf.Close(ctx))

	got := readAll(t, b, "a.txt")
	assert.Equal(t, []byte{'h', 0xE9, 'l', 'l', 'o'}, []byte(got), "é must encode to a single latin-1 byte")
}

func TestTextFile_UnsupportedRuneFailsWithoutReplacement(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	b := newMemBackend()

	tf := newTextSession(t, b, "a.txt", fsbridge.TextOptions{Encoding: "ISO-8859-1"})
	_, err := tf.WriteString("snowman: ☃")
	if err == nil {
		err = tf.Close(ctx)
	}
	assert.Error(t, err, "unencodable rune must fail the write or the flush")

	_ = tf.Discard(ctx)
	exists, serr := b.Exists(ctx, "a.txt")
	require.NoError(t, serr)
	assert.False(t, exists, "nothing may commit after an encoding failure")
}

func TestTextFile_ReplaceUnsupported(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	b := newMemBackend()

	tf := newTextSession(t, b, "a.txt", fsbridge.TextOptions{
		Encoding:           "ISO-8859-1",
		ReplaceUnsupported: true,
	})
	_, err := tf.WriteString("x☃y")
	require.NoError(t, err)
	require.NoError(t, tf.Close(ctx))

	got := readAll(t, b, "a.txt")
	assert.Len(t, got, 3, "replacement must keep one byte per rune")
	assert.Equal(t, byte('x'), got[0])
	assert.Equal(t, byte('y'), got[2])
}

func TestTextFile_NewlineTranslation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	b := newMemBackend()

	tf := newTextSession(t, b, "a.txt", fsbridge.TextOptions{Newline: "\r\n"})
	_, err := tf.WriteString("one\ntwo\n")
	require.NoError(t, err)
	require.NoError(t, tf.Close(ctx))

	assert.Equal(t, "one\r\ntwo\r\n", readAll(t, b, "a.txt"))
}

func TestTextFile_NewlineTranslationBeforeEncoding(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	b := newMemBackend()

	tf := newTextSession(t, b, "a.txt", fsbridge.TextOptions{
		Encoding: "ISO-8859-1",
		Newline:  "\r\n",
	})
	_, err := tf.WriteString("é\n")
	require.NoError(t, err)
	require.NoError(t, tf.Close(ctx))

	assert.Equal(t, []byte{0xE9, '\r', '\n'}, []byte(readAll(t, b, "a.txt")))
}

func TestTextFile_UnknownEncoding(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	b := newMemBackend()

	session, err := fsbridge.NewAtomicFile(ctx, b, "a.txt", fsbridge.AtomicOptions{})
	require.NoError(t, err)
	defer session.Discard(ctx)

	_, err = fsbridge.NewTextFile(session, fsbridge.TextOptions{Encoding: "no-such-charset"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no-such-charset")
}

func TestTextFile_DiscardLeavesTargetAbsent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	b := newMemBackend()

	tf := newTextSession(t, b, "a.txt", fsbridge.TextOptions{Encoding: "UTF-8"})
	_, err := tf.WriteString("partial")
	require.NoError(t, err)
	require.NoError(t, tf.Discard(ctx))

	exists, err := b.Exists(ctx, "a.txt")
	require.NoError(t, err)
	assert.False(t, exists)
}

package gzipi

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "data.txt")

	store := LocalStore{}
	assert.False(t, store.Exists(ctx, path))

	w, err := store.OpenWrite(ctx, path)
	require.NoError(t, err)
	_, err = w.Write([]byte("0123456789"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	assert.True(t, store.Exists(ctx, path))

	size, err := store.Size(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, int64(10), size)

	full, err := store.OpenRead(ctx, path, nil)
	require.NoError(t, err)
	b, err := io.ReadAll(full)
	require.NoError(t, err)
	require.NoError(t, full.Close())
	assert.Equal(t, "0123456789", string(b))

	ranged, err := store.OpenRead(ctx, path, &ByteRange{Start: 3, End: 5})
	require.NoError(t, err)
	b, err = io.ReadAll(ranged)
	require.NoError(t, err)
	require.NoError(t, ranged.Close())
	assert.Equal(t, "345", string(b))
}

func TestLocalStoreMissingFile(t *testing.T) {
	ctx := context.Background()
	store := LocalStore{}
	_, err := store.Size(ctx, "/nonexistent/path/gzipi-test")
	assert.ErrorIs(t, err, ErrIO)
}

func TestResolveStore(t *testing.T) {
	_, isLocal := ResolveStore("/tmp/foo").(LocalStore)
	assert.True(t, isLocal)

	_, isS3 := ResolveStore("s3://bucket/key").(*S3Store)
	assert.True(t, isS3)
}

func TestReaderAtStoreReadsRanges(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "idx.txt")
	require.NoError(t, os.WriteFile(path, []byte("abcdefghij"), 0o644))

	ra := &readerAtStore{ctx: ctx, store: LocalStore{}, path: path, size: 10}
	buf := make([]byte, 4)
	n, err := ra.ReadAt(buf, 2)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, "cdef", string(buf))

	n, err = ra.ReadAt(buf, 8)
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "ij", string(buf[:n]))
}

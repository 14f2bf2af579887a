package gzipi

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireSortBinary(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sort"); err != nil {
		t.Skip("sort(1) not available on this system")
	}
}

func TestSortIndexPlainFile(t *testing.T) {
	requireSortBinary(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "index.txt")
	unsorted := "zzz.com|0|1|0|1\naaa.com|1|1|0|1\nmmm.com|2|1|0|1\n"
	require.NoError(t, os.WriteFile(path, []byte(unsorted), 0o644))

	cfg := NewConfig()
	require.NoError(t, SortIndex(cfg, path))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "aaa.com|1|1|0|1\nmmm.com|2|1|0|1\nzzz.com|0|1|0|1\n", string(got))
}

func TestSortIndexCompressedFile(t *testing.T) {
	requireSortBinary(t)
	if _, err := exec.LookPath("gzip"); err != nil {
		t.Skip("gzip(1) not available on this system")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "index.txt.gz")

	unsorted := "zzz.com|0|1|0|1\naaa.com|1|1|0|1\n"
	fw := OpenWriter(KindGzip)
	_, err := fw.Write([]byte(unsorted))
	require.NoError(t, err)
	require.NoError(t, fw.Close())
	require.NoError(t, os.WriteFile(path, fw.Bytes(), 0o644))

	cfg := NewConfig()
	require.NoError(t, SortIndex(cfg, path))

	compressed, err := os.ReadFile(path)
	require.NoError(t, err)
	decoded, err := DecompressFrame(compressed, KindGzip)
	require.NoError(t, err)
	assert.Equal(t, "aaa.com|1|1|0|1\nzzz.com|0|1|0|1\n", string(decoded))
}

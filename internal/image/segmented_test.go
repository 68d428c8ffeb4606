package image

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeSegments(t *testing.T, dir, base string, chunks ...[]byte) string {
	t.Helper()
	var first string
	for i, chunk := range chunks {
		name := filepath.Join(dir, base+"."+[]string{"001", "002", "003"}[i])
		require.NoError(t, os.WriteFile(name, chunk, 0644))
		if i == 0 {
			first = name
		}
	}
	return first
}

func TestOpen_SegmentedImage(t *testing.T) {
	dir := t.TempDir()
	a := make([]byte, 100)
	b := make([]byte, 100)
	for i := range a {
		a[i] = byte(i)
	}
	for i := range b {
		b[i] = byte(200 + i)
	}
	path := writeSegments(t, dir, "disk.dd", a, b)

	src, err := Open(path)
	require.NoError(t, err)
	defer src.Close()

	require.Equal(t, int64(200), src.Length())

	buf := make([]byte, 20)
	n, err := src.ReadAt(buf, 90)
	require.NoError(t, err)
	require.Equal(t, 20, n)
	require.Equal(t, append(a[90:100], b[0:10]...), buf)
}

func TestOpen_SegmentedImage_ShortReadPastEnd(t *testing.T) {
	dir := t.TempDir()
	path := writeSegments(t, dir, "small.dd", make([]byte, 32), make([]byte, 32))

	src, err := Open(path)
	require.NoError(t, err)
	defer src.Close()

	buf := make([]byte, 16)
	n, err := src.ReadAt(buf, 60)
	require.Equal(t, 4, n)
	require.Error(t, err)
}

func TestOpen_SingleFileNotTreatedAsSegmented(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "disk.dd")
	require.NoError(t, os.WriteFile(path, make([]byte, 64), 0644))

	src, err := Open(path)
	require.NoError(t, err)
	defer src.Close()
	require.Equal(t, int64(64), src.Length())
}

package image

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ostafen/ntfstriage/internal/record"
)

func TestOpen_RawImage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "disk.dd")
	data := make([]byte, 4096)
	for i := range data {
		data[i] = byte(i)
	}
	require.NoError(t, os.WriteFile(path, data, 0644))

	src, err := Open(path)
	require.NoError(t, err)
	defer src.Close()

	require.Equal(t, int64(len(data)), src.Length())

	buf := make([]byte, 16)
	n, err := src.ReadAt(buf, 100)
	require.NoError(t, err)
	require.Equal(t, 16, n)
	require.Equal(t, data[100:116], buf)
}

func TestOpen_E01Unsupported(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "image.e01")
	data := append([]byte{'E', 'V', 'F', 0x09, 0x0D, 0x0A, 0xFF, 0x00}, make([]byte, 512)...)
	require.NoError(t, os.WriteFile(path, data, 0644))

	_, err := Open(path)
	require.Error(t, err)

	var kindErr *record.Error
	require.ErrorAs(t, err, &kindErr)
	require.Equal(t, record.KindUnsupportedImageFormat, kindErr.Kind)
}

func TestOpen_ShortReadPastEnd(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "small.dd")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0644))

	src, err := Open(path)
	require.NoError(t, err)
	defer src.Close()

	buf := make([]byte, 16)
	n, err := src.ReadAt(buf, 0)
	require.Equal(t, 5, n)
	require.Error(t, err)
}

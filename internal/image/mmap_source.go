//go:build !windows

package image

import (
	"io"

	"github.com/ostafen/ntfstriage/internal/mmap"
)

// mmapSource backs a raw image through a memory-mapped file region: the OS
// page cache serves repeat reads over the same clusters (common across the
// build-only indexing pass and the real decode pass) without a read(2)
// syscall each time.
type mmapSource struct {
	m *mmap.MmapFile
}

// OpenMmap memory-maps the whole file at path and wraps it as a Source.
// Intended for large local raw/DD images; offers no benefit over Open for
// E01 containers or block devices, since mmap requires a plain, fully
// addressable regular file.
func OpenMmap(path string) (Source, error) {
	m, err := mmap.NewMmapFile(path)
	if err != nil {
		return nil, err
	}
	return &mmapSource{m: m}, nil
}

func (s *mmapSource) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(s.m.Data)) {
		return 0, io.EOF
	}
	n := copy(p, s.m.Data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (s *mmapSource) Close() error {
	return s.m.Close()
}

func (s *mmapSource) Length() int64 {
	return int64(s.m.FileSize)
}

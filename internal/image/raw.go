package image

import (
	"fmt"
	"io"
	"os"

	"github.com/ostafen/ntfstriage/internal/fs"
)

// DefaultSectorSize is assumed for regular image files and for devices whose
// geometry cannot be queried.
const DefaultSectorSize = 512

// rawSource backs a raw/DD image, whether a plain file or a block device.
// Device geometry is queried on platforms that support it (see raw_linux.go
// and internal/fs/windows.go); elsewhere it falls back to stat/seek.
type rawSource struct {
	f          fs.File
	length     int64
	sectorSize int64
	isDevice   bool
}

func newRawSource(path string) (*rawSource, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %q: %w", path, err)
	}

	src := &rawSource{f: f, sectorSize: DefaultSectorSize}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat %q: %w", path, err)
	}
	src.isDevice = info.Mode()&os.ModeDevice != 0

	if size, sectorSize, ok := deviceGeometry(f); ok {
		src.length = size
		if sectorSize > 0 {
			src.sectorSize = sectorSize
		}
		return src, nil
	}

	if size := info.Size(); size > 0 {
		src.length = size
		return src, nil
	}

	// Block device reporting a zero size from Stat(): fall back to seeking
	// to the end, mirroring the teacher's own non-Linux device path.
	if seeker, ok := f.(io.Seeker); ok {
		end, err := seeker.Seek(0, io.SeekEnd)
		if err == nil && end > 0 {
			seeker.Seek(0, io.SeekStart)
			src.length = end
			return src, nil
		}
	}

	f.Close()
	return nil, fmt.Errorf("could not determine size of %q", path)
}

func (s *rawSource) ReadAt(p []byte, off int64) (int, error) {
	return s.f.ReadAt(p, off)
}

func (s *rawSource) Close() error {
	return s.f.Close()
}

func (s *rawSource) Length() int64 {
	return s.length
}

func (s *rawSource) SectorSize() int64 {
	return s.sectorSize
}

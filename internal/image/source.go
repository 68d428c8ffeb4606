// Package image provides the uniform seekable byte source the rest of the
// pipeline reads a disk image through, whether it is a raw/DD capture or an
// EnCase E01/EWF container.
package image

import (
	"fmt"
	"io"

	"github.com/ostafen/ntfstriage/internal/record"
)

// Source is a logical random-access byte source over a disk image. Reads
// past the end of the source return fewer bytes than requested together
// with io.EOF, as io.ReaderAt does; callers treat a short read as
// end-of-stream unless a structural minimum was not met.
type Source interface {
	io.ReaderAt
	io.Closer
	// Length returns the total size in bytes, or -1 if unknown (a stream).
	Length() int64
}

// Open inspects the first bytes of path and returns the appropriate Source
// implementation. E01/EWF containers are detected by signature and always
// fail with a KindUnsupportedImageFormat error, since this repository does
// not carry an EWF-decoding dependency (see DESIGN.md). A path that is one
// chunk of a numbered split image (disk.dd.001, disk.dd.002, ...) is
// transparently stitched back into one Source across all of its siblings.
func Open(path string) (Source, error) {
	if src, ok, err := openSegmented(path); err != nil {
		return nil, record.NewError(record.KindIoError, "open segmented image", err)
	} else if ok {
		return src, nil
	}

	probe, err := newRawSource(path)
	if err != nil {
		return nil, record.NewError(record.KindIoError, "open image", err)
	}

	var header [8]byte
	n, _ := probe.ReadAt(header[:], 0)
	if n >= len(evfSignature) && header == evfSignature {
		probe.Close()
		return nil, record.NewError(record.KindUnsupportedImageFormat,
			fmt.Sprintf("E01/EWF container %q requires a dedicated EWF library, which is not wired into this build", path), nil)
	}
	return probe, nil
}

package image

import (
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/ostafen/ntfstriage/pkg/reader"
)

// segmentSuffix matches the numeric split suffix dd/split and EnCase-style
// raw acquisition tools append to each chunk of a multi-file image, e.g.
// "disk.dd.001", "disk.001".
var segmentSuffix = regexp.MustCompile(`\.(\d{3,})$`)

// discoverSegments returns the ordered sibling segment paths sharing path's
// base name and numeric suffix width, or just path itself if it doesn't look
// like part of a split image or no siblings are found.
func discoverSegments(path string) ([]string, error) {
	loc := segmentSuffix.FindStringIndex(path)
	if loc == nil {
		return []string{path}, nil
	}
	width := loc[1] - loc[0] - 1 // exclude the dot
	prefix := filepath.Base(path[:loc[0]])

	dir := filepath.Dir(path)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var segs []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasPrefix(name, prefix+".") {
			continue
		}
		numStr := name[len(prefix)+1:]
		if len(numStr) != width {
			continue
		}
		if _, err := strconv.Atoi(numStr); err != nil {
			continue
		}
		segs = append(segs, filepath.Join(dir, name))
	}

	if len(segs) < 2 {
		return []string{path}, nil
	}
	sort.Strings(segs)
	return segs, nil
}

// segmentedSource concatenates a split raw image's chunk files into a single
// random-access Source through reader.MultiReadSeeker. MultiReadSeeker keeps
// one current-position cursor, so ReadAt (which must be safe for concurrent
// callers) serializes seek-then-read behind mtx.
type segmentedSource struct {
	mtx   sync.Mutex
	mrs   *reader.MultiReadSeeker
	files []*os.File
	size  int64
}

func openSegmented(path string) (Source, bool, error) {
	paths, err := discoverSegments(path)
	if err != nil {
		return nil, false, err
	}
	if len(paths) < 2 {
		return nil, false, nil
	}

	files := make([]*os.File, 0, len(paths))
	readers := make([]io.ReadSeeker, 0, len(paths))
	sizes := make([]int64, 0, len(paths))
	closeAll := func() {
		for _, f := range files {
			f.Close()
		}
	}

	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			closeAll()
			return nil, true, err
		}
		info, err := f.Stat()
		if err != nil {
			f.Close()
			closeAll()
			return nil, true, err
		}
		files = append(files, f)
		readers = append(readers, f)
		sizes = append(sizes, info.Size())
	}

	var total int64
	for _, s := range sizes {
		total += s
	}

	return &segmentedSource{
		mrs:   reader.NewMultiReadSeeker(readers, sizes),
		files: files,
		size:  total,
	}, true, nil
}

func (s *segmentedSource) ReadAt(p []byte, off int64) (int, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, err := s.mrs.Seek(off, io.SeekStart); err != nil {
		return 0, err
	}
	// MultiReadSeeker.Read already loops across segment boundaries until p is
	// full or every segment is exhausted, so one call has ReadAt semantics.
	return s.mrs.Read(p)
}

func (s *segmentedSource) Close() error {
	var firstErr error
	for _, f := range s.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *segmentedSource) Length() int64 {
	return s.size
}

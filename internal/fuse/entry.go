package fuse

import "io"

// FileEntry is one file exposed through a RecoverFS mount: a name plus the
// random-access reader backing its content. Content is materialized NTFS
// artifact bytes (see internal/pipeline.Pipeline.MaterializeArtifacts),
// not a flat byte range into the original disk image.
type FileEntry struct {
	Name string
	Data io.ReaderAt
	Size uint64
}

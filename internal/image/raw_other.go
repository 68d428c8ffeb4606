//go:build !linux
// +build !linux

package image

import "github.com/ostafen/ntfstriage/internal/fs"

// deviceGeometry has no generic cross-platform ioctl equivalent outside
// Linux; Windows gets its geometry from internal/fs.WindowsDiskFile.Stat()
// instead (see internal/fs/windows.go), so this always defers to the
// os.FileInfo/Seek fallback in newRawSource.
func deviceGeometry(f fs.File) (size int64, sectorSize int64, ok bool) {
	return 0, 0, false
}

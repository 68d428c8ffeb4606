//go:build !linux
// +build !linux

package fuse

import (
	"fmt"
)

func Mount(mountpoint string, entries map[string]FileEntry) error {
	return fmt.Errorf("FUSE mount is only supported on Linux")
}

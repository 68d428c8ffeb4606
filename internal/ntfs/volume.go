package ntfs

import (
	"fmt"
	"io"

	"github.com/ostafen/ntfstriage/internal/disk"
	"github.com/ostafen/ntfstriage/internal/image"
)

// Volume binds a parsed NTFS boot sector to the backing image, translating
// cluster-addressed reads into absolute image offsets.
type Volume struct {
	Source       image.Source
	VolumeOffset int64
	Boot         *disk.NtfsBootSector
	ClusterSize  uint32
	MftEntrySize uint32
	IdxEntrySize uint32
}

// OpenVolume reads and validates the NTFS boot sector at volumeOffset within
// src, returning a Volume ready for cluster-addressed reads.
func OpenVolume(src image.Source, volumeOffset int64) (*Volume, error) {
	buf := make([]byte, disk.NtfsBootSectorSize)
	if _, err := src.ReadAt(buf, volumeOffset); err != nil && err != io.EOF {
		return nil, fmt.Errorf("ntfs: reading boot sector at %d: %w", volumeOffset, err)
	}

	boot, err := disk.ParseNtfsBootSector(buf)
	if err != nil {
		return nil, fmt.Errorf("ntfs: parsing boot sector: %w", err)
	}

	return &Volume{
		Source:       src,
		VolumeOffset: volumeOffset,
		Boot:         boot,
		ClusterSize:  boot.ClusterSize(),
		MftEntrySize: boot.MftRecordSize(),
		IdxEntrySize: boot.IndexRecordSize(),
	}, nil
}

// ReadCluster reads count clusters starting at logical cluster number lcn,
// translating to the absolute image offset volume_offset + lcn*cluster_size.
func (v *Volume) ReadCluster(lcn uint64, count uint64) ([]byte, error) {
	offset := v.VolumeOffset + int64(lcn)*int64(v.ClusterSize)
	length := int64(count) * int64(v.ClusterSize)
	buf := make([]byte, length)
	n, err := v.Source.ReadAt(buf, offset)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("ntfs: reading %d clusters at lcn %d: %w", count, lcn, err)
	}
	return buf[:n], nil
}

// ReadAt reads length bytes at an absolute volume-relative byte offset.
func (v *Volume) ReadAt(offset int64, length int64) ([]byte, error) {
	buf := make([]byte, length)
	n, err := v.Source.ReadAt(buf, v.VolumeOffset+offset)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("ntfs: reading %d bytes at volume offset %d: %w", length, offset, err)
	}
	return buf[:n], nil
}

// ReadRuns reads the logical byte stream described by a list of absolute
// cluster runs (as produced by AbsoluteRuns), zero-filling sparse runs, and
// returns at most maxBytes of the concatenated stream (0 means unlimited).
func (v *Volume) ReadRuns(runs []AbsoluteRun, maxBytes int64) ([]byte, error) {
	var out []byte
	for _, r := range runs {
		runBytes := int64(r.Length) * int64(v.ClusterSize)
		if maxBytes > 0 {
			remaining := maxBytes - int64(len(out))
			if remaining <= 0 {
				break
			}
			if runBytes > remaining {
				runBytes = remaining
			}
		}

		if r.Sparse {
			out = append(out, make([]byte, runBytes)...)
			continue
		}

		clusters := (runBytes + int64(v.ClusterSize) - 1) / int64(v.ClusterSize)
		data, err := v.ReadCluster(r.LCN, uint64(clusters))
		if err != nil {
			return nil, err
		}
		if int64(len(data)) > runBytes {
			data = data[:runBytes]
		}
		out = append(out, data...)
	}
	return out, nil
}

package disk

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// NtfsBootSectorSize is the fixed size of an NTFS volume boot record.
const NtfsBootSectorSize = 512

// ntfsOemID is the signature an NTFS boot sector carries at offset 3.
const ntfsOemID = "NTFS    "

// NtfsBootSector maps the on-disk NTFS boot sector (BIOS Parameter Block
// plus NTFS extension fields). Multi-byte fields are read with binary.Read.
type NtfsBootSector struct {
	JumpInstruction      [3]byte
	OemID                [8]byte
	BytesPerSector       uint16
	SectorsPerCluster    uint8
	Reserved1            [7]byte
	MediaDescriptor      uint8
	Reserved2            [2]byte
	SectorsPerTrack      uint16
	NumberOfHeads        uint16
	HiddenSectors        uint32
	Reserved3            uint32
	Reserved4            uint32
	TotalSectors         uint64
	MftClusterLCN        uint64
	MftMirrClusterLCN    uint64
	ClustersPerMftRecord int8
	Reserved5            [3]byte
	ClustersPerIndexRec  int8
	Reserved6            [3]byte
	VolumeSerialNumber   uint64
	Checksum             uint32
	BootCode             [426]byte
	Marker               uint16
}

// ParseNtfsBootSector decodes a 512-byte sector into an NtfsBootSector and
// validates the boot signature and "NTFS    " OEM ID.
func ParseNtfsBootSector(data []byte) (*NtfsBootSector, error) {
	if len(data) != NtfsBootSectorSize {
		return nil, fmt.Errorf("input data slice size mismatch: expected %d bytes, got %d bytes",
			NtfsBootSectorSize, len(data))
	}

	var bs NtfsBootSector
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &bs); err != nil {
		return nil, fmt.Errorf("error reading into NtfsBootSector with binary.Read: %w", err)
	}

	if bs.Marker != 0xAA55 {
		return nil, fmt.Errorf("invalid boot sector marker: expected 0xAA55, got 0x%04X", bs.Marker)
	}
	if string(bs.OemID[:]) != ntfsOemID {
		return nil, fmt.Errorf("not an NTFS boot sector: OEM ID %q", bs.OemID[:])
	}
	return &bs, nil
}

// ClusterSize returns bytes_per_sector * sectors_per_cluster.
func (bs *NtfsBootSector) ClusterSize() uint32 {
	return uint32(bs.BytesPerSector) * uint32(bs.SectorsPerCluster)
}

// MftRecordSize interprets the signed clusters-per-record byte: a
// non-negative value is "clusters per record"; a negative value -k means
// the record size is 1<<k bytes (see SPEC_FULL.md §3).
func (bs *NtfsBootSector) MftRecordSize() uint32 {
	return signedSizeToBytes(bs.ClustersPerMftRecord, bs.ClusterSize())
}

// IndexRecordSize interprets clusters_per_index_record the same way as
// MftRecordSize.
func (bs *NtfsBootSector) IndexRecordSize() uint32 {
	return signedSizeToBytes(bs.ClustersPerIndexRec, bs.ClusterSize())
}

func signedSizeToBytes(b int8, clusterSize uint32) uint32 {
	if b >= 0 {
		return uint32(b) * clusterSize
	}
	return 1 << uint(-b)
}

// IsNTFS reports whether the first sector of a partition begins with the
// "NTFS    " signature at byte offset 3, per the partition-identification
// rule in SPEC_FULL.md §4.2.
func IsNTFS(firstSector []byte) bool {
	return len(firstSector) >= 11 && string(firstSector[3:11]) == ntfsOemID
}

package disk

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
)

const (
	gptHeaderLBA      = 1
	gptSignature      = "EFI PART"
	gptHeaderSize     = 92
	gptEntrySizeLimit = 1024 // sanity bound on a maliciously large entry_size field
)

// GPTHeader mirrors the on-disk GUID Partition Table header at LBA 1.
type GPTHeader struct {
	Signature                [8]byte
	Revision                 [4]byte
	HeaderSize               [4]byte
	HeaderCRC32              [4]byte
	Reserved                 [4]byte
	MyLBA                    [8]byte
	AlternateLBA             [8]byte
	FirstUsableLBA           [8]byte
	LastUsableLBA            [8]byte
	DiskGUID                 [16]byte
	PartitionEntryLBA        [8]byte
	NumberOfPartitionEntries [4]byte
	SizeOfPartitionEntry     [4]byte
	PartitionEntryArrayCRC32 [4]byte
}

// EntryArrayLBA returns the starting LBA of the partition entry array.
func (h *GPTHeader) EntryArrayLBA() uint64 {
	return binary.LittleEndian.Uint64(h.PartitionEntryLBA[:])
}

// NumberOfEntries returns the number of entries in the partition entry array.
func (h *GPTHeader) NumberOfEntries() uint32 {
	return binary.LittleEndian.Uint32(h.NumberOfPartitionEntries[:])
}

// EntrySize returns the size in bytes of a single partition entry.
func (h *GPTHeader) EntrySize() uint32 {
	return binary.LittleEndian.Uint32(h.SizeOfPartitionEntry[:])
}

// GPTPartitionEntry is one 128-byte (by default) entry in the GPT partition
// entry array.
type GPTPartitionEntry struct {
	TypeGUID    uuid.UUID
	UniqueGUID  uuid.UUID
	StartingLBA uint64
	EndingLBA   uint64
	Attributes  uint64
}

// ParseGPTHeader parses a 512-byte (or larger) sector-0-aligned slice read
// from LBA 1 into a GPTHeader, validating the "EFI PART" signature.
func ParseGPTHeader(data []byte) (*GPTHeader, error) {
	if len(data) < gptHeaderSize {
		return nil, fmt.Errorf("GPT header data too short: %d bytes", len(data))
	}

	var h GPTHeader
	copy(h.Signature[:], data[0:8])
	copy(h.Revision[:], data[8:12])
	copy(h.HeaderSize[:], data[12:16])
	copy(h.HeaderCRC32[:], data[16:20])
	copy(h.Reserved[:], data[20:24])
	copy(h.MyLBA[:], data[24:32])
	copy(h.AlternateLBA[:], data[32:40])
	copy(h.FirstUsableLBA[:], data[40:48])
	copy(h.LastUsableLBA[:], data[48:56])
	copy(h.DiskGUID[:], data[56:72])
	copy(h.PartitionEntryLBA[:], data[72:80])
	copy(h.NumberOfPartitionEntries[:], data[80:84])
	copy(h.SizeOfPartitionEntry[:], data[84:88])
	copy(h.PartitionEntryArrayCRC32[:], data[88:92])

	if string(h.Signature[:]) != gptSignature {
		return nil, fmt.Errorf("invalid GPT signature: %q", h.Signature[:])
	}
	return &h, nil
}

// ParseGPTEntry decodes one partition entry from data, which must hold at
// least the 128-byte standard entry layout; entries whose type GUID is
// all-zero are unused slots and should be skipped by the caller.
func ParseGPTEntry(data []byte) (GPTPartitionEntry, error) {
	if len(data) < 128 {
		return GPTPartitionEntry{}, fmt.Errorf("GPT partition entry data too short: %d bytes", len(data))
	}

	typeGUID, err := uuid.FromBytes(leGUIDToBE(data[0:16]))
	if err != nil {
		return GPTPartitionEntry{}, fmt.Errorf("invalid type GUID: %w", err)
	}
	uniqueGUID, err := uuid.FromBytes(leGUIDToBE(data[16:32]))
	if err != nil {
		return GPTPartitionEntry{}, fmt.Errorf("invalid unique GUID: %w", err)
	}

	return GPTPartitionEntry{
		TypeGUID:    typeGUID,
		UniqueGUID:  uniqueGUID,
		StartingLBA: binary.LittleEndian.Uint64(data[32:40]),
		EndingLBA:   binary.LittleEndian.Uint64(data[40:48]),
		Attributes:  binary.LittleEndian.Uint64(data[48:56]),
	}, nil
}

// IsUnused reports whether a GPT partition entry's type GUID is the
// all-zero sentinel marking an unused slot.
func (e GPTPartitionEntry) IsUnused() bool {
	return e.TypeGUID == uuid.Nil
}

// leGUIDToBE rearranges a 16-byte Microsoft-style mixed-endian GUID (the
// first three fields little-endian, the last two big-endian) into the
// big-endian byte order uuid.FromBytes expects.
func leGUIDToBE(b []byte) []byte {
	out := make([]byte, 16)
	out[0], out[1], out[2], out[3] = b[3], b[2], b[1], b[0]
	out[4], out[5] = b[5], b[4]
	out[6], out[7] = b[7], b[6]
	copy(out[8:], b[8:16])
	return out
}

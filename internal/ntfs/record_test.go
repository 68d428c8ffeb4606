package ntfs_test

import (
	"encoding/binary"
	"testing"

	"github.com/ostafen/ntfstriage/internal/ntfs"
	"github.com/stretchr/testify/require"
)

// buildMftRecord assembles a minimal 1024-byte MFT record with a 2-sector
// fixup array (512-byte sectors) and a single resident $STANDARD_INFORMATION
// attribute followed by the terminator, mirroring the on-disk layout
// described in SPEC_FULL.md §4.4.
func buildMftRecord(entrySeq uint16, flags uint16) []byte {
	const recordSize = 1024
	b := make([]byte, recordSize)
	copy(b[0:4], "FILE")
	binary.LittleEndian.PutUint16(b[0x04:0x06], 0x30) // update sequence offset
	binary.LittleEndian.PutUint16(b[0x06:0x08], 3)    // 1 USN + 2 sector pairs
	binary.LittleEndian.PutUint16(b[0x10:0x12], entrySeq)
	binary.LittleEndian.PutUint16(b[0x12:0x14], 1) // hard link count
	binary.LittleEndian.PutUint16(b[0x14:0x16], 0x38) // first attribute offset
	binary.LittleEndian.PutUint16(b[0x16:0x18], flags)
	binary.LittleEndian.PutUint32(b[0x18:0x1C], 400) // actual size
	binary.LittleEndian.PutUint32(b[0x1C:0x20], recordSize)

	usn := []byte{0x01, 0x00}
	copy(b[0x30:0x32], usn)
	copy(b[0x32:0x34], []byte{0xAB, 0xCD}) // sector 0 replacement
	copy(b[0x34:0x36], []byte{0xEF, 0x12}) // sector 1 replacement

	copy(b[510:512], usn)
	copy(b[1022:1024], usn)

	attrOffset := 0x38
	binary.LittleEndian.PutUint32(b[attrOffset:attrOffset+4], 0x10) // $STANDARD_INFORMATION
	binary.LittleEndian.PutUint32(b[attrOffset+4:attrOffset+8], 32) // record length
	b[attrOffset+8] = 0x00                                          // resident
	b[attrOffset+9] = 0                                             // name length
	binary.LittleEndian.PutUint16(b[attrOffset+0x0A:attrOffset+0x0C], 0)
	binary.LittleEndian.PutUint16(b[attrOffset+0x0E:attrOffset+0x10], 0) // attribute id
	binary.LittleEndian.PutUint32(b[attrOffset+0x10:attrOffset+0x14], 8) // data length
	binary.LittleEndian.PutUint16(b[attrOffset+0x14:attrOffset+0x16], 24) // data offset
	copy(b[attrOffset+24:attrOffset+32], []byte{1, 2, 3, 4, 5, 6, 7, 8})

	terminatorOffset := attrOffset + 32
	binary.LittleEndian.PutUint32(b[terminatorOffset:terminatorOffset+4], 0xFFFFFFFF)

	return b
}

func TestParseRecord(t *testing.T) {
	b := buildMftRecord(5, uint16(ntfs.RecordFlagInUse))

	r, err := ntfs.ParseRecord(b, 42)
	require.NoError(t, err)
	require.Equal(t, uint64(42), r.EntryNumber)
	require.Equal(t, uint16(5), r.SequenceNumber)
	require.True(t, r.InUse())
	require.False(t, r.IsDirectory())
	require.True(t, r.IsBaseRecord())

	require.Len(t, r.Attributes, 1)
	require.Equal(t, ntfs.AttributeTypeStandardInformation, r.Attributes[0].Type)
	require.True(t, r.Attributes[0].Resident)
	require.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, r.Attributes[0].Data)

	// The fixup bytes at the sector-end slots must have been restored.
	require.Equal(t, byte(0xAB), b[510])
	require.Equal(t, byte(0xCD), b[511])
	require.Equal(t, byte(0xEF), b[1022])
	require.Equal(t, byte(0x12), b[1023])
}

func TestParseRecord_BadSignature(t *testing.T) {
	b := buildMftRecord(5, 1)
	copy(b[0:4], "XXXX")

	_, err := ntfs.ParseRecord(b, 0)
	require.Error(t, err)
}

func TestParseRecord_FixupMismatchIsTorn(t *testing.T) {
	b := buildMftRecord(5, 1)
	b[511] = 0xFF // corrupt the sector-0 check bytes

	_, err := ntfs.ParseRecord(b, 0)
	require.Error(t, err)
}

func TestFindAttributes_NoMatch(t *testing.T) {
	b := buildMftRecord(5, 1)
	r, err := ntfs.ParseRecord(b, 0)
	require.NoError(t, err)

	require.Empty(t, r.FindAttributes(ntfs.AttributeTypeFileName))
}

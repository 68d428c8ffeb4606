package ntfs_test

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/ostafen/ntfstriage/internal/image"
	"github.com/ostafen/ntfstriage/internal/ntfs"
	"github.com/stretchr/testify/require"
)

// buildMftRecordHeader writes the common FILE record header plus a 2-sector
// fixup array (matching a 1024-byte, 512-byte-sector record) into a 1024
// byte buffer, leaving the caller to place attribute bytes from offset
// 0x38 (firstAttrOffset) onward.
func buildMftRecordHeader(entrySeq uint16, flags uint16) []byte {
	b := make([]byte, 1024)
	copy(b[0:4], "FILE")
	binary.LittleEndian.PutUint16(b[0x04:0x06], 0x30)
	binary.LittleEndian.PutUint16(b[0x06:0x08], 3)
	binary.LittleEndian.PutUint16(b[0x10:0x12], entrySeq)
	binary.LittleEndian.PutUint16(b[0x12:0x14], 1)
	binary.LittleEndian.PutUint16(b[0x14:0x16], 0x38)
	binary.LittleEndian.PutUint16(b[0x16:0x18], flags)
	binary.LittleEndian.PutUint32(b[0x18:0x1C], 400)
	binary.LittleEndian.PutUint32(b[0x1C:0x20], 1024)

	usn := []byte{0x01, 0x00}
	copy(b[0x30:0x32], usn)
	copy(b[510:512], usn)
	copy(b[1022:1024], usn)
	return b
}

// buildMftRecord0 builds the $MFT's own record, describing its full extent
// as a single non-resident $DATA run starting at LCN mftLCN and spanning
// clusterCount clusters.
func buildMftRecord0(mftLCN uint64, clusterCount uint64, clusterSize uint32) []byte {
	b := buildMftRecordHeader(1, uint16(ntfs.RecordFlagInUse))

	attrOffset := 0x38
	actualSize := clusterCount * uint64(clusterSize)

	binary.LittleEndian.PutUint32(b[attrOffset+0x00:attrOffset+0x04], 0x80) // $DATA
	binary.LittleEndian.PutUint32(b[attrOffset+0x04:attrOffset+0x08], 68)   // record length
	b[attrOffset+0x08] = 1                                                 // non-resident
	b[attrOffset+0x09] = 0
	binary.LittleEndian.PutUint16(b[attrOffset+0x20:attrOffset+0x22], 0x40) // data run offset
	binary.LittleEndian.PutUint64(b[attrOffset+0x28:attrOffset+0x30], actualSize)
	binary.LittleEndian.PutUint64(b[attrOffset+0x30:attrOffset+0x38], actualSize)

	runOff := attrOffset + 0x40
	b[runOff+0] = 0x11 // 1-byte length, 1-byte offset
	b[runOff+1] = byte(clusterCount)
	b[runOff+2] = byte(mftLCN)
	b[runOff+3] = 0x00 // terminator

	terminatorOffset := attrOffset + 68
	binary.LittleEndian.PutUint32(b[terminatorOffset:terminatorOffset+4], 0xFFFFFFFF)
	return b
}

// buildPlainMftRecord builds an ordinary MFT record carrying a single
// resident $STANDARD_INFORMATION attribute, used as a non-zero entry read
// back through the MftReader.
func buildPlainMftRecord(entrySeq uint16) []byte {
	b := buildMftRecordHeader(entrySeq, uint16(ntfs.RecordFlagInUse))

	attrOffset := 0x38
	binary.LittleEndian.PutUint32(b[attrOffset:attrOffset+4], 0x10)
	binary.LittleEndian.PutUint32(b[attrOffset+4:attrOffset+8], 32)
	b[attrOffset+8] = 0x00
	b[attrOffset+9] = 0
	binary.LittleEndian.PutUint32(b[attrOffset+0x10:attrOffset+0x14], 8)
	binary.LittleEndian.PutUint16(b[attrOffset+0x14:attrOffset+0x16], 24)
	copy(b[attrOffset+24:attrOffset+32], []byte{9, 9, 9, 9, 9, 9, 9, 9})

	terminatorOffset := attrOffset + 32
	binary.LittleEndian.PutUint32(b[terminatorOffset:terminatorOffset+4], 0xFFFFFFFF)
	return b
}

func buildNtfsBootSectorForReader(t *testing.T) []byte {
	t.Helper()
	data := make([]byte, 512)
	copy(data[3:11], "NTFS    ")
	binary.LittleEndian.PutUint16(data[11:13], 512)
	data[13] = 1 // sectors per cluster -> cluster size 512
	binary.LittleEndian.PutUint64(data[0x28:0x30], 16)
	binary.LittleEndian.PutUint64(data[0x30:0x38], 2) // mft cluster lcn
	data[0x40] = 2                                    // clusters per mft record -> 1024-byte records
	data[0x44] = 1
	binary.LittleEndian.PutUint16(data[510:512], 0xAA55)
	return data
}

func TestMftReader_BootstrapAndReadEntry(t *testing.T) {
	const clusterSize = 512
	image8 := make([]byte, 16*clusterSize) // 8 clusters for the MFT starting at LCN 2

	copy(image8[0:512], buildNtfsBootSectorForReader(t))
	copy(image8[2*clusterSize:], buildMftRecord0(2, 8, clusterSize))
	// MFT entry 1 lives at logical MFT offset 1024, i.e. 2 clusters into
	// the MFT's single data run starting at LCN 2 -> absolute LCN 4.
	copy(image8[4*clusterSize:], buildPlainMftRecord(7))

	dir := t.TempDir()
	path := filepath.Join(dir, "vol.dd")
	require.NoError(t, os.WriteFile(path, image8, 0644))

	src, err := image.Open(path)
	require.NoError(t, err)
	defer src.Close()

	vol, err := ntfs.OpenVolume(src, 0)
	require.NoError(t, err)
	require.Equal(t, uint32(512), vol.ClusterSize)
	require.Equal(t, uint32(1024), vol.MftEntrySize)

	reader, err := ntfs.NewMftReader(vol)
	require.NoError(t, err)

	entry1, err := reader.ReadEntry(1)
	require.NoError(t, err)
	require.Equal(t, uint64(1), entry1.EntryNumber)
	require.Equal(t, uint16(7), entry1.SequenceNumber)
	require.True(t, entry1.InUse())
	require.Len(t, entry1.Attributes, 1)
	require.Equal(t, ntfs.AttributeTypeStandardInformation, entry1.Attributes[0].Type)
}

func TestMftReader_ReadEntry_BeyondExtent(t *testing.T) {
	const clusterSize = 512
	image8 := make([]byte, 16*clusterSize)
	copy(image8[0:512], buildNtfsBootSectorForReader(t))
	copy(image8[2*clusterSize:], buildMftRecord0(2, 8, clusterSize))

	dir := t.TempDir()
	path := filepath.Join(dir, "vol.dd")
	require.NoError(t, os.WriteFile(path, image8, 0644))

	src, err := image.Open(path)
	require.NoError(t, err)
	defer src.Close()

	vol, err := ntfs.OpenVolume(src, 0)
	require.NoError(t, err)

	reader, err := ntfs.NewMftReader(vol)
	require.NoError(t, err)

	_, err = reader.ReadEntry(1000)
	require.Error(t, err)
}

package ntfs_test

import (
	"encoding/binary"
	"testing"

	"github.com/ostafen/ntfstriage/internal/ntfs"
	"github.com/stretchr/testify/require"
)

// buildDecodableRecord builds an in-use file record with $STANDARD_INFORMATION,
// two $FILE_NAME attributes (DOS and Win32, to exercise namespace selection),
// and a resident $DATA attribute.
func buildDecodableRecord(t *testing.T) []byte {
	t.Helper()
	b := buildMftRecordHeader(3, uint16(ntfs.RecordFlagInUse))

	offset := 0x38

	// $STANDARD_INFORMATION: 4 FILETIMEs + attr flags, 48 bytes total value.
	siValue := make([]byte, 48)
	binary.LittleEndian.PutUint64(siValue[0:8], 132223200000000000)  // created
	binary.LittleEndian.PutUint64(siValue[8:16], 132223200000000001) // modified
	binary.LittleEndian.PutUint32(siValue[32:36], 0x20)              // archive bit
	offset = writeResidentAttribute(b, offset, 0x10, siValue)

	// $FILE_NAME (DOS namespace) — should lose to the Win32 name below.
	offset = writeResidentAttribute(b, offset, 0x30, buildFileNameValue(5, 2, "DOSNAME~1"))

	// $FILE_NAME (Win32 namespace) — should win selection.
	offset = writeResidentAttribute(b, offset, 0x30, buildFileNameValue(5, 1, "real-name.txt"))

	// resident $DATA
	offset = writeResidentAttribute(b, offset, 0x80, []byte("hello"))

	binary.LittleEndian.PutUint32(b[offset:offset+4], 0xFFFFFFFF)
	return b
}

func buildFileNameValue(parentEntry uint64, namespace uint8, name string) []byte {
	nameUTF16 := encodeUTF16LE(name)
	value := make([]byte, 66+len(nameUTF16))
	putFileReference(value[0:8], ntfs.FileReference{EntryNumber: parentEntry, SequenceNumber: 1})
	value[64] = byte(len(name))
	value[65] = namespace
	copy(value[66:], nameUTF16)
	return value
}

// writeResidentAttribute writes one resident attribute (24-byte header,
// no name) at offset and returns the offset of the next attribute.
func writeResidentAttribute(b []byte, offset int, attrType uint32, value []byte) int {
	recordLength := 24 + len(value)
	for recordLength%8 != 0 {
		recordLength++
	}
	binary.LittleEndian.PutUint32(b[offset:offset+4], attrType)
	binary.LittleEndian.PutUint32(b[offset+4:offset+8], uint32(recordLength))
	b[offset+8] = 0x00
	b[offset+9] = 0
	binary.LittleEndian.PutUint32(b[offset+0x10:offset+0x14], uint32(len(value)))
	binary.LittleEndian.PutUint16(b[offset+0x14:offset+0x16], 24)
	copy(b[offset+24:offset+24+len(value)], value)
	return offset + recordLength
}

func TestDecoder_NamespaceSelectionAndFields(t *testing.T) {
	b := buildDecodableRecord(t)
	rec, err := ntfs.ParseRecord(b, 10)
	require.NoError(t, err)

	out := ntfs.NewDecoder(nil).DecodeFromRecord(rec)
	require.False(t, out.Corrupt)
	require.Equal(t, "real-name.txt", out.FileName)
	require.Equal(t, uint64(5), out.ParentEntryNumber)
	require.True(t, out.InUse)
	require.False(t, out.IsDirectory)
	require.Equal(t, uint64(5), out.DataSize)
	require.True(t, out.IsResident)
}

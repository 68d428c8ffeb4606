package ntfs_test

import (
	"encoding/binary"
	"testing"

	"github.com/ostafen/ntfstriage/internal/ntfs"
	"github.com/stretchr/testify/require"
)

// buildIndexRootEntry encodes one non-last $INDEX_ROOT entry referencing
// childRef with the given name, sized to fit exactly (no subnode).
func buildIndexRootEntry(childRef ntfs.FileReference, name string) []byte {
	nameUTF16 := encodeUTF16LE(name)
	streamLen := 66 + len(nameUTF16)
	entryLen := 0x10 + streamLen

	b := make([]byte, entryLen)
	putFileReference(b[0x00:0x08], childRef)
	binary.LittleEndian.PutUint16(b[0x08:0x0A], uint16(entryLen))
	binary.LittleEndian.PutUint16(b[0x0A:0x0C], uint16(streamLen))
	b[0x0C] = 0 // no subnode, not last

	stream := b[0x10:]
	// parent ref (unused by the walker) left zero
	stream[64] = byte(len(name))
	stream[65] = byte(ntfs.NamespaceWin32)
	copy(stream[66:], nameUTF16)
	return b
}

func buildIndexRootLastEntry() []byte {
	b := make([]byte, 0x10)
	binary.LittleEndian.PutUint16(b[0x08:0x0A], 0x10)
	b[0x0C] = 0x02 // last entry
	return b
}

func putFileReference(b []byte, ref ntfs.FileReference) {
	var entry [8]byte
	binary.LittleEndian.PutUint64(entry[:], ref.EntryNumber)
	copy(b[:6], entry[:6])
	binary.LittleEndian.PutUint16(b[6:8], ref.SequenceNumber)
}

func encodeUTF16LE(s string) []byte {
	out := make([]byte, 0, len(s)*2)
	for _, r := range s {
		out = append(out, byte(r), 0)
	}
	return out
}

func buildIndexRootAttributeValue(entries ...[]byte) []byte {
	var body []byte
	for _, e := range entries {
		body = append(body, e...)
	}

	const headerSize = 0x10 + 16 // root header (16) + index header (16)
	value := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(value[0x00:0x04], 0x30) // indexed by $FILE_NAME
	// index header at 0x10, entries start right after it
	binary.LittleEndian.PutUint32(value[0x10:0x14], 16) // first entry offset
	binary.LittleEndian.PutUint32(value[0x14:0x18], uint32(16+len(body)))
	binary.LittleEndian.PutUint32(value[0x18:0x1C], uint32(16+len(body)))
	value[0x1C] = 0

	return append(value, body...)
}

func buildDirRecordWithIndexRoot(indexValue []byte) *ntfs.Record {
	b := buildMftRecordHeader(1, uint16(ntfs.RecordFlagInUse|ntfs.RecordFlagIsDirectory))

	attrOffset := 0x38
	recordLength := 24 + len(indexValue)
	// pad to 8-byte alignment as real attributes do; not required by our parser but kept for texture
	for recordLength%8 != 0 {
		recordLength++
	}

	binary.LittleEndian.PutUint32(b[attrOffset:attrOffset+4], 0x90) // $INDEX_ROOT
	binary.LittleEndian.PutUint32(b[attrOffset+4:attrOffset+8], uint32(recordLength))
	b[attrOffset+8] = 0x00
	b[attrOffset+9] = 0
	binary.LittleEndian.PutUint32(b[attrOffset+0x10:attrOffset+0x14], uint32(len(indexValue)))
	binary.LittleEndian.PutUint16(b[attrOffset+0x14:attrOffset+0x16], 24)
	copy(b[attrOffset+24:attrOffset+24+len(indexValue)], indexValue)

	terminatorOffset := attrOffset + recordLength
	binary.LittleEndian.PutUint32(b[terminatorOffset:terminatorOffset+4], 0xFFFFFFFF)

	rec, err := ntfs.ParseRecord(b, 5)
	if err != nil {
		panic(err)
	}
	return rec
}

func TestDirectoryIndex_FindByName_RootOnly(t *testing.T) {
	target := ntfs.FileReference{EntryNumber: 40, SequenceNumber: 3}
	entries := append(buildIndexRootEntry(target, "$Extend"), buildIndexRootLastEntry()...)
	indexValue := buildIndexRootAttributeValue(entries)

	dirRecord := buildDirRecordWithIndexRoot(indexValue)

	di, err := ntfs.NewDirectoryIndex(nil, nil, dirRecord)
	require.NoError(t, err)

	ref, ok, err := di.FindByName("$Extend")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, target, ref)

	_, ok, err = di.FindByName("$NoSuch")
	require.NoError(t, err)
	require.False(t, ok)
}

package disk_test

import (
	"encoding/binary"
	"testing"

	"github.com/google/uuid"
	"github.com/ostafen/ntfstriage/internal/disk"
	"github.com/stretchr/testify/require"
)

func buildGPTHeader(numEntries, entrySize uint32, entryLBA uint64) []byte {
	data := make([]byte, 92)
	copy(data[0:8], "EFI PART")
	binary.LittleEndian.PutUint64(data[72:80], entryLBA)
	binary.LittleEndian.PutUint32(data[80:84], numEntries)
	binary.LittleEndian.PutUint32(data[84:88], entrySize)
	return data
}

func TestParseGPTHeader(t *testing.T) {
	data := buildGPTHeader(128, 128, 2)

	h, err := disk.ParseGPTHeader(data)
	require.NoError(t, err)

	require.Equal(t, uint64(2), h.EntryArrayLBA())
	require.Equal(t, uint32(128), h.NumberOfEntries())
	require.Equal(t, uint32(128), h.EntrySize())
}

func TestParseGPTHeader_BadSignature(t *testing.T) {
	data := buildGPTHeader(128, 128, 2)
	copy(data[0:8], "XXXXXXXX")

	_, err := disk.ParseGPTHeader(data)
	require.Error(t, err)
}

func TestParseGPTEntry_RoundTripsGUID(t *testing.T) {
	typeGUID := uuid.MustParse("ebd0a0a2-b9e5-4433-87c0-68b6b72699c7") // Microsoft basic data
	uniqueGUID := uuid.New()

	data := make([]byte, 128)
	copy(data[0:16], leGUIDBytes(typeGUID))
	copy(data[16:32], leGUIDBytes(uniqueGUID))
	binary.LittleEndian.PutUint64(data[32:40], 2048)
	binary.LittleEndian.PutUint64(data[40:48], 4095)

	entry, err := disk.ParseGPTEntry(data)
	require.NoError(t, err)
	require.Equal(t, typeGUID, entry.TypeGUID)
	require.Equal(t, uniqueGUID, entry.UniqueGUID)
	require.Equal(t, uint64(2048), entry.StartingLBA)
	require.Equal(t, uint64(4095), entry.EndingLBA)
	require.False(t, entry.IsUnused())
}

func TestParseGPTEntry_Unused(t *testing.T) {
	data := make([]byte, 128)

	entry, err := disk.ParseGPTEntry(data)
	require.NoError(t, err)
	require.True(t, entry.IsUnused())
}

// leGUIDBytes re-encodes a uuid.UUID's RFC-4122 big-endian bytes into the
// on-disk Microsoft mixed-endian layout ParseGPTEntry expects, mirroring
// leGUIDToBE's inverse.
func leGUIDBytes(u uuid.UUID) []byte {
	b := u[:]
	out := make([]byte, 16)
	out[0], out[1], out[2], out[3] = b[3], b[2], b[1], b[0]
	out[4], out[5] = b[5], b[4]
	out[6], out[7] = b[7], b[6]
	copy(out[8:], b[8:16])
	return out
}

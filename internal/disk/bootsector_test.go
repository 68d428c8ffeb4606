package disk_test

import (
	"encoding/binary"
	"testing"

	"github.com/ostafen/ntfstriage/internal/disk"
	"github.com/stretchr/testify/require"
)

func buildNtfsBootSector(bytesPerSector uint16, sectorsPerCluster uint8, clustersPerMftRecord, clustersPerIndexRec int8) []byte {
	data := make([]byte, disk.NtfsBootSectorSize)
	copy(data[3:11], "NTFS    ")
	binary.LittleEndian.PutUint16(data[11:13], bytesPerSector)
	data[13] = sectorsPerCluster
	binary.LittleEndian.PutUint64(data[0x28:0x30], 1000000)
	binary.LittleEndian.PutUint64(data[0x30:0x38], 4)
	data[0x40] = byte(clustersPerMftRecord)
	data[0x44] = byte(clustersPerIndexRec)
	binary.LittleEndian.PutUint16(data[510:512], 0xAA55)
	return data
}

func TestParseNtfsBootSector(t *testing.T) {
	data := buildNtfsBootSector(512, 8, -10, 1)

	bs, err := disk.ParseNtfsBootSector(data)
	require.NoError(t, err)

	require.Equal(t, uint16(512), bs.BytesPerSector)
	require.Equal(t, uint8(8), bs.SectorsPerCluster)
	require.Equal(t, uint32(4096), bs.ClusterSize())
	require.Equal(t, uint64(4), bs.MftClusterLCN)

	require.Equal(t, uint32(1024), bs.MftRecordSize())
	require.Equal(t, uint32(4096), bs.IndexRecordSize())
}

func TestParseNtfsBootSector_PositiveClusterCounts(t *testing.T) {
	data := buildNtfsBootSector(512, 2, 2, 4)

	bs, err := disk.ParseNtfsBootSector(data)
	require.NoError(t, err)

	require.Equal(t, uint32(2048), bs.MftRecordSize())
	require.Equal(t, uint32(4096), bs.IndexRecordSize())
}

func TestParseNtfsBootSector_BadSize(t *testing.T) {
	_, err := disk.ParseNtfsBootSector(make([]byte, 100))
	require.Error(t, err)
}

func TestParseNtfsBootSector_BadMarker(t *testing.T) {
	data := buildNtfsBootSector(512, 8, -10, 1)
	data[510], data[511] = 0, 0

	_, err := disk.ParseNtfsBootSector(data)
	require.Error(t, err)
}

func TestParseNtfsBootSector_BadOemID(t *testing.T) {
	data := buildNtfsBootSector(512, 8, -10, 1)
	copy(data[3:11], "FAT32   ")

	_, err := disk.ParseNtfsBootSector(data)
	require.Error(t, err)
}

func TestIsNTFS(t *testing.T) {
	sector := make([]byte, 512)
	copy(sector[3:11], "NTFS    ")
	require.True(t, disk.IsNTFS(sector))

	other := make([]byte, 512)
	copy(other[3:11], "FAT32   ")
	require.False(t, disk.IsNTFS(other))

	require.False(t, disk.IsNTFS(sector[:5]))
}

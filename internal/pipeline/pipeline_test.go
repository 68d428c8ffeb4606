package pipeline_test

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"

	"github.com/ostafen/ntfstriage/internal/pipeline"
	"github.com/stretchr/testify/require"
)

// fakeSource is a minimal image.Source backed by an in-memory byte slice.
type fakeSource struct {
	*bytes.Reader
}

func newFakeSource(b []byte) *fakeSource {
	return &fakeSource{Reader: bytes.NewReader(b)}
}

func (f *fakeSource) Close() error     { return nil }
func (f *fakeSource) Length() int64    { return f.Reader.Size() }

func TestGenSessionID_MatchesTimestampFormat(t *testing.T) {
	id := pipeline.GenSessionID()
	_, err := time.Parse("20060102_150405", id)
	require.NoError(t, err)
}

func TestFormatDurationHMS(t *testing.T) {
	require.Equal(t, "00:00:05", pipeline.FormatDurationHMS(5*time.Second))
	require.Equal(t, "01:02:03", pipeline.FormatDurationHMS(time.Hour+2*time.Minute+3*time.Second))
	require.Contains(t, pipeline.FormatDurationHMS(250*time.Millisecond), "s")
}

func writeNtfsBootSector(buf []byte, bytesPerSector uint16, sectorsPerCluster uint8) {
	copy(buf[3:11], "NTFS    ")
	binary.LittleEndian.PutUint16(buf[11:13], bytesPerSector)
	buf[13] = sectorsPerCluster
	binary.LittleEndian.PutUint16(buf[510:512], 0xAA55)
}

func buildMBRImage(partitionType byte, startLBA, totalSectors uint32, ntfsAtStart bool) []byte {
	const diskSectors = 64
	img := make([]byte, diskSectors*512)

	entryOff := 0x1BE
	img[entryOff] = 0x00
	img[entryOff+4] = partitionType
	binary.LittleEndian.PutUint32(img[entryOff+8:entryOff+12], startLBA)
	binary.LittleEndian.PutUint32(img[entryOff+12:entryOff+16], totalSectors)
	binary.LittleEndian.PutUint16(img[0x1FE:0x200], 0xAA55)

	if ntfsAtStart {
		writeNtfsBootSector(img[startLBA*512:startLBA*512+512], 512, 8)
	}
	return img
}

func TestDiscoverPartitions_MBRFindsNTFSPartition(t *testing.T) {
	const ntfsType = 0x07 // PartitionTypeNTFSHPFSexFATQNX
	img := buildMBRImage(ntfsType, 2, 10, true)

	parts, err := pipeline.DiscoverPartitions(newFakeSource(img))
	require.NoError(t, err)
	require.Len(t, parts, 1)
	require.True(t, parts[0].IsNTFS)
	require.Equal(t, uint64(2*512), parts[0].StartOffsetByte)
	require.Equal(t, uint64(10*512), parts[0].LengthByte)
}

func TestDiscoverPartitions_NoTableFallsBackToFullDisk(t *testing.T) {
	img := make([]byte, 64*512)
	writeNtfsBootSector(img[0:512], 512, 8)

	parts, err := pipeline.DiscoverPartitions(newFakeSource(img))
	require.NoError(t, err)
	require.Len(t, parts, 1)
	require.Equal(t, uint64(0), parts[0].StartOffsetByte)
	require.True(t, parts[0].IsNTFS)
}

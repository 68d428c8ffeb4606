package ntfs_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ostafen/ntfstriage/internal/image"
	"github.com/ostafen/ntfstriage/internal/ntfs"
	"github.com/stretchr/testify/require"
)

func buildSyntheticVolume(t *testing.T, clusters int, clusterSize int) *ntfs.Volume {
	t.Helper()
	data := make([]byte, clusters*clusterSize)
	copy(data[0:512], buildNtfsBootSectorForReader(t))

	dir := t.TempDir()
	path := filepath.Join(dir, "vol.dd")
	require.NoError(t, os.WriteFile(path, data, 0644))

	src, err := image.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { src.Close() })

	vol, err := ntfs.OpenVolume(src, 0)
	require.NoError(t, err)
	return vol
}

func TestArtifactExtractor_ExtractNonResidentWithSparse(t *testing.T) {
	const clusterSize = 512
	data := make([]byte, 8*clusterSize)
	copy(data[0:512], buildNtfsBootSectorForReader(t))
	for i := range clusterSize {
		data[5*clusterSize+i] = 0xAB
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "vol.dd")
	require.NoError(t, os.WriteFile(path, data, 0644))

	src, err := image.Open(path)
	require.NoError(t, err)
	defer src.Close()

	vol, err := ntfs.OpenVolume(src, 0)
	require.NoError(t, err)

	x := ntfs.NewArtifactExtractor(nil, vol)

	spec := ntfs.ArtifactSpec{
		Name: "$UsnJrnl:$J",
		Runs: []ntfs.AbsoluteRun{
			{Sparse: true, Length: 2},
			{LCN: 5, Length: 1},
		},
		Size: 3 * clusterSize,
	}

	var buf bytes.Buffer
	result, err := x.Extract(spec, &buf)
	require.NoError(t, err)
	require.Equal(t, int64(3*clusterSize), result.BytesWritten)
	require.Equal(t, int64(2*clusterSize), result.SparseBytes)
	require.Equal(t, 2, result.RunCount)

	out := buf.Bytes()
	require.True(t, bytes.Equal(out[:2*clusterSize], make([]byte, 2*clusterSize)))
	require.True(t, bytes.Equal(out[2*clusterSize:3*clusterSize], bytes.Repeat([]byte{0xAB}, clusterSize)))
}

func TestArtifactExtractor_ExtractResident(t *testing.T) {
	vol := buildSyntheticVolume(t, 4, 512)
	x := ntfs.NewArtifactExtractor(nil, vol)

	spec := ntfs.ArtifactSpec{Name: "$LogFile", Resident: true, ResidentData: []byte("restart-area")}

	var buf bytes.Buffer
	result, err := x.Extract(spec, &buf)
	require.NoError(t, err)
	require.Equal(t, int64(len("restart-area")), result.BytesWritten)
	require.Equal(t, "restart-area", buf.String())
}

func TestWriteManifest(t *testing.T) {
	var buf bytes.Buffer
	err := ntfs.WriteManifest(&buf, ntfs.Manifest{
		ImagePath:      "/evidence/disk.dd",
		PartitionIndex: 1,
		ToolVersion:    "test-version",
		StartedAt:      time.Unix(0, 0),
		FinishedAt:     time.Unix(60, 0),
		Artifacts: []ntfs.ArtifactManifestEntry{
			{Name: "$MFT", EntryNumber: 0, SizeBytes: 4096, RunCount: 1},
			{Name: "$UsnJrnl:$J", EntryNumber: 42, SizeBytes: 1 << 20, RunCount: 2, SparseBytes: 1 << 19},
		},
	})
	require.NoError(t, err)

	xmlOut := buf.String()
	require.True(t, strings.Contains(xmlOut, "$MFT"))
	require.True(t, strings.Contains(xmlOut, "$UsnJrnl:$J"))
	require.True(t, strings.Contains(xmlOut, "/evidence/disk.dd"))
}

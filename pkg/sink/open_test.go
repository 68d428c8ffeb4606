package sink_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ostafen/ntfstriage/pkg/sink"
	"github.com/stretchr/testify/require"
)

func TestOpen_CSVWritesAndClosesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mft.csv")

	s, err := sink.Open(sink.FormatCSV, path)
	require.NoError(t, err)

	require.NoError(t, s.WriteMft(sampleMft()))
	require.NoError(t, s.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "notepad.exe")
}

func TestOpen_JSONWritesAndClosesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usn.json")

	s, err := sink.Open(sink.FormatJSON, path)
	require.NoError(t, err)

	require.NoError(t, s.WriteUsn(sampleUsn()))
	require.NoError(t, s.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotEmpty(t, data)
}

func TestOpen_UnknownFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.bin")

	_, err := sink.Open(sink.Format("xml"), path)
	require.Error(t, err)
}

func TestOpen_CSVBadPath(t *testing.T) {
	_, err := sink.Open(sink.FormatCSV, filepath.Join(t.TempDir(), "missing-dir", "mft.csv"))
	require.Error(t, err)
}

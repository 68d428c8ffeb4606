package sink_test

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/ostafen/ntfstriage/internal/record"
	"github.com/ostafen/ntfstriage/pkg/sink"
	"github.com/stretchr/testify/require"
)

func sampleMft() record.MftRecord {
	return record.MftRecord{
		EntryNumber:       41,
		SequenceNumber:    3,
		InUse:             true,
		IsDirectory:       false,
		FileName:          "notepad.exe",
		ParentEntryNumber: 5,
		FullPath:          `\Windows\notepad.exe`,
	}
}

func sampleUsn() record.UsnRecord {
	return record.UsnRecord{
		FileReference: record.FileReference{EntryNumber: 41, SequenceNum: 3},
		Usn:           100,
		Event:         record.EventDataOverwrite,
		FileName:      "notepad.exe",
		FullPath:      `\Windows\notepad.exe`,
	}
}

func TestCSVSink_WritesBOMHeaderAndRow(t *testing.T) {
	var buf bytes.Buffer
	s := sink.NewCSVSink(&buf)
	require.NoError(t, s.WriteMft(sampleMft()))
	require.NoError(t, s.Close())

	out := buf.Bytes()
	require.True(t, bytes.HasPrefix(out, []byte{0xEF, 0xBB, 0xBF}))

	r := csv.NewReader(bytes.NewReader(out[3:]))
	rows, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2) // header + 1 data row
	require.Equal(t, "entry_number", rows[0][0])
	require.Equal(t, "41", rows[1][0])
	require.Equal(t, "notepad.exe", rows[1][4])
}

func TestCSVSink_EmptySinkWritesNothing(t *testing.T) {
	var buf bytes.Buffer
	s := sink.NewCSVSink(&buf)
	require.NoError(t, s.Close())
	require.Empty(t, buf.Bytes())
}

func TestJSONSink_WritesSingleArray(t *testing.T) {
	var buf bytes.Buffer
	s := sink.NewJSONSink(&buf)
	require.NoError(t, s.WriteUsn(sampleUsn()))
	require.NoError(t, s.WriteUsn(sampleUsn()))
	require.NoError(t, s.Close())

	var rows []map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
	require.Len(t, rows, 2)
	require.Equal(t, "100", rows[0]["usn"])
	require.Equal(t, "DATA_OVERWRITE", rows[0]["event"])
}

func TestJSONSink_EmptySinkWritesEmptyArray(t *testing.T) {
	var buf bytes.Buffer
	s := sink.NewJSONSink(&buf)
	require.NoError(t, s.Close())

	var rows []map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
	require.Empty(t, rows)
}

func TestSQLiteSink_WritesMftAndUsnTables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.sqlite")
	s, err := sink.NewSQLiteSink(path)
	require.NoError(t, err)

	require.NoError(t, s.WriteMft(sampleMft()))
	require.NoError(t, s.WriteUsn(sampleUsn()))
	require.NoError(t, s.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}

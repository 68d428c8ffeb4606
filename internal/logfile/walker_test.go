package logfile_test

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/ostafen/ntfstriage/internal/logfile"
	"github.com/stretchr/testify/require"
)

// buildRestartPage assembles a full 4096-byte RSTR page with an 8-sector
// fixup array (512-byte sectors), system/log page sizes, and a restart area
// holding current_lsn, mirroring the layout buildMftRecord uses for MFT
// records but sized to match the full page ParseRestartPage fixes up.
func buildRestartPage(systemPageSize, logPageSize uint32, currentLsn uint64) []byte {
	const pageSize = 4096
	const sectorCount = pageSize / 512
	b := make([]byte, pageSize)
	copy(b[0:4], "RSTR")
	binary.LittleEndian.PutUint16(b[4:6], 0x28)            // update sequence offset
	binary.LittleEndian.PutUint16(b[6:8], 1+sectorCount)   // 1 USN + sectorCount pairs

	binary.LittleEndian.PutUint32(b[16:20], systemPageSize)
	binary.LittleEndian.PutUint32(b[20:24], logPageSize)
	binary.LittleEndian.PutUint16(b[24:26], 64) // restart_area_offset

	binary.LittleEndian.PutUint64(b[64:72], currentLsn)

	usn := []byte{0x01, 0x00}
	copy(b[0x28:0x2A], usn)
	for i := 0; i < sectorCount; i++ {
		repl := []byte{byte(0xA0 + i), byte(i)}
		copy(b[0x2A+i*2:0x2C+i*2], repl)
		copy(b[(i+1)*512-2:(i+1)*512], usn)
	}

	return b
}

// buildRecordPage assembles a minimal RCRD page of the given size with a
// fixup array covering pageSize/512 sectors.
func buildRecordPage(pageSize int, lastLsn uint64, pageCount, pagePosition uint16) []byte {
	b := make([]byte, pageSize)
	copy(b[0:4], "RCRD")
	sectorCount := pageSize / 512
	binary.LittleEndian.PutUint16(b[4:6], 0x28)
	binary.LittleEndian.PutUint16(b[6:8], uint16(1+sectorCount))

	binary.LittleEndian.PutUint64(b[8:16], lastLsn)
	binary.LittleEndian.PutUint32(b[16:20], 0) // flags
	binary.LittleEndian.PutUint16(b[20:22], pageCount)
	binary.LittleEndian.PutUint16(b[22:24], pagePosition)
	binary.LittleEndian.PutUint16(b[24:26], 0x28) // next_record_offset

	usn := []byte{0x02, 0x00}
	copy(b[0x28:0x2A], usn)
	for i := 0; i < sectorCount; i++ {
		repl := []byte{byte(0xC0 + i), byte(i)}
		copy(b[0x2A+i*2:0x2C+i*2], repl)
		copy(b[(i+1)*512-2:(i+1)*512], usn)
	}
	return b
}

func TestWalker_ParseRestartPageDecodesFields(t *testing.T) {
	restart := buildRestartPage(4096, 4096, 12345)
	buf := append(restart, make([]byte, 2*4096)...)

	w := logfile.NewWalker(bytes.NewReader(buf), int64(len(buf)))
	page, err := w.ParseRestartPage()
	require.NoError(t, err)
	require.Equal(t, "RSTR", page.Signature)
	require.Equal(t, uint32(4096), page.SystemPageSize)
	require.Equal(t, uint32(4096), page.LogPageSize)
	require.Equal(t, uint64(12345), page.CurrentLsn)
}

func TestWalker_WalksRecordPagesSequentially(t *testing.T) {
	restartPage := buildRestartPage(4096, 4096, 1)
	primaryAndBackup := append(append([]byte{}, restartPage...), restartPage...)

	rec1 := buildRecordPage(4096, 100, 1, 0)
	rec2 := buildRecordPage(4096, 200, 1, 1)

	buf := append(primaryAndBackup, rec1...)
	buf = append(buf, rec2...)

	w := logfile.NewWalker(bytes.NewReader(buf), int64(len(buf)))
	_, err := w.ParseRestartPage()
	require.NoError(t, err)

	first, err := w.Next()
	require.NoError(t, err)
	require.Equal(t, "RCRD", first.Signature)
	require.Equal(t, uint64(100), first.LastLsnOrFileOffset)
	require.Equal(t, uint16(0), first.PagePosition)
	require.False(t, first.Corrupt)

	second, err := w.Next()
	require.NoError(t, err)
	require.Equal(t, uint64(200), second.LastLsnOrFileOffset)
	require.Equal(t, uint16(1), second.PagePosition)

	_, err = w.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestWalker_SkipsAllZeroPage(t *testing.T) {
	restartPage := buildRestartPage(4096, 4096, 1)
	primaryAndBackup := append(append([]byte{}, restartPage...), restartPage...)

	zeroPage := make([]byte, 4096)
	rec := buildRecordPage(4096, 500, 1, 0)

	buf := append(primaryAndBackup, zeroPage...)
	buf = append(buf, rec...)

	w := logfile.NewWalker(bytes.NewReader(buf), int64(len(buf)))
	_, err := w.ParseRestartPage()
	require.NoError(t, err)

	got, err := w.Next()
	require.NoError(t, err)
	require.Equal(t, uint64(500), got.LastLsnOrFileOffset)
}

func TestWalker_BadSignatureReportsCorrupt(t *testing.T) {
	restartPage := buildRestartPage(4096, 4096, 1)
	primaryAndBackup := append(append([]byte{}, restartPage...), restartPage...)

	garbage := make([]byte, 4096)
	copy(garbage[0:4], "XXXX")

	buf := append(primaryAndBackup, garbage...)

	w := logfile.NewWalker(bytes.NewReader(buf), int64(len(buf)))
	_, err := w.ParseRestartPage()
	require.NoError(t, err)

	got, err := w.Next()
	require.NoError(t, err)
	require.True(t, got.Corrupt)
}

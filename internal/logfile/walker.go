// Package logfile walks the reconstructed $LogFile stream's page structure.
//
// This is deliberately shallow: it parses the restart area and then walks
// "RCRD" record pages sequentially, reporting their headers (sequence, LSN
// range, page position) as a record stream. It does not decode individual
// log records' redo/undo operation codes — see SPEC_FULL.md §4.9/§9.
package logfile

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ostafen/ntfstriage/internal/ntfs"
	"github.com/ostafen/ntfstriage/internal/record"
)

const (
	restartSignature = "RSTR"
	recordSignature  = "RCRD"

	// defaultPageSize is used until the restart area's own system_page_size
	// field is known.
	defaultPageSize = 4096

	// restartPageCount is the number of leading pages ($LogFile's primary
	// and backup restart pages) that precede the record area.
	restartPageCount = 2
)

// Walker streams $LogFile page structure from src, an already-reconstructed
// (or directly volume-backed) view of the $LogFile data stream of size
// bytes.
type Walker struct {
	src  io.ReaderAt
	size int64

	pageSize int64
	cursor   int64
	pageNum  uint64
}

// NewWalker builds a Walker over src. Call ParseRestartPage before Next so
// the record-area page size is known; Next falls back to defaultPageSize
// otherwise.
func NewWalker(src io.ReaderAt, size int64) *Walker {
	return &Walker{src: src, size: size, pageSize: defaultPageSize, cursor: restartPageCount * defaultPageSize}
}

// PageSize returns the record-area page size Next walks with: defaultPageSize
// until ParseRestartPage has run, the decoded system/log page size after.
func (w *Walker) PageSize() int64 {
	return w.pageSize
}

// ParseRestartPage reads and decodes the restart area at offset 0, applying
// the same fixup mechanism used for MFT and INDX records (the restart page
// carries the identical "update sequence" multi-sector header). It also
// sets the record-area page size and starting cursor from the decoded
// log_page_size (system_page_size when log_page_size is zero), so a
// subsequent Next walks pages of the correct size.
func (w *Walker) ParseRestartPage() (record.LogFileRestartPage, error) {
	buf := make([]byte, defaultPageSize)
	n, err := w.src.ReadAt(buf, 0)
	if n < 32 {
		if err != nil && err != io.EOF {
			return record.LogFileRestartPage{}, fmt.Errorf("logfile: reading restart page: %w", err)
		}
		return record.LogFileRestartPage{}, fmt.Errorf("logfile: restart page too short: %d bytes", n)
	}
	buf = buf[:n]

	if string(buf[0:4]) != restartSignature {
		return record.LogFileRestartPage{}, record.NewError(record.KindBadRunList, "missing RSTR signature", nil)
	}

	usOffset := int(binary.LittleEndian.Uint16(buf[4:6]))
	usSize := int(binary.LittleEndian.Uint16(buf[6:8]))
	if err := ntfs.ApplyFixUp(buf, usOffset, usSize); err != nil {
		return record.LogFileRestartPage{}, fmt.Errorf("logfile: restart page: %w", err)
	}

	systemPageSize := binary.LittleEndian.Uint32(buf[16:20])
	logPageSize := binary.LittleEndian.Uint32(buf[20:24])
	restartAreaOffset := binary.LittleEndian.Uint16(buf[24:26])

	var currentLsn uint64
	if end := int(restartAreaOffset) + 8; end <= len(buf) {
		currentLsn = binary.LittleEndian.Uint64(buf[restartAreaOffset:end])
	}

	if logPageSize > 0 {
		w.pageSize = int64(logPageSize)
	} else if systemPageSize > 0 {
		w.pageSize = int64(systemPageSize)
	}
	w.cursor = restartPageCount * w.pageSize

	return record.LogFileRestartPage{
		Signature:         restartSignature,
		SystemPageSize:    systemPageSize,
		LogPageSize:       logPageSize,
		RestartAreaOffset: restartAreaOffset,
		CurrentLsn:        currentLsn,
	}, nil
}

// Next decodes and returns the next record-area page header, advancing the
// cursor by one page. It returns io.EOF once the cursor reaches the end of
// the stream. A page that is entirely zero (an unused pre-allocated slot)
// is skipped silently; a page with a non-"RCRD" signature that isn't all
// zero is returned with Corrupt set rather than aborting the walk.
func (w *Walker) Next() (record.LogFileRecordPageHeader, error) {
	for {
		if w.cursor >= w.size {
			return record.LogFileRecordPageHeader{}, io.EOF
		}

		buf := make([]byte, w.pageSize)
		n, err := w.src.ReadAt(buf, w.cursor)
		if n < int(w.pageSize) {
			if err == io.EOF || err == nil {
				return record.LogFileRecordPageHeader{}, io.EOF
			}
			return record.LogFileRecordPageHeader{}, fmt.Errorf("logfile: reading page at %d: %w", w.cursor, err)
		}

		pageNum := w.pageNum
		w.pageNum++
		w.cursor += w.pageSize

		if isZero(buf) {
			continue
		}

		if string(buf[0:4]) != recordSignature {
			return record.LogFileRecordPageHeader{
				PageNumber: pageNum,
				Corrupt:    true,
				Note:       fmt.Sprintf("expected RCRD signature, found %x", buf[0:4]),
			}, nil
		}

		usOffset := int(binary.LittleEndian.Uint16(buf[4:6]))
		usSize := int(binary.LittleEndian.Uint16(buf[6:8]))
		if err := ntfs.ApplyFixUp(buf, usOffset, usSize); err != nil {
			return record.LogFileRecordPageHeader{
				PageNumber: pageNum,
				Corrupt:    true,
				Note:       err.Error(),
			}, nil
		}

		return record.LogFileRecordPageHeader{
			Signature:          recordSignature,
			LastLsnOrFileOffset: binary.LittleEndian.Uint64(buf[8:16]),
			Flags:               binary.LittleEndian.Uint32(buf[16:20]),
			PageCount:           binary.LittleEndian.Uint16(buf[20:22]),
			PagePosition:        binary.LittleEndian.Uint16(buf[22:24]),
			NextRecordOffset:    binary.LittleEndian.Uint16(buf[24:26]),
			PageNumber:          pageNum,
		}, nil
	}
}

func isZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}

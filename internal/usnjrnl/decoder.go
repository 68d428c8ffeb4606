// Package usnjrnl decodes the NTFS change journal ($UsnJrnl:$J) into a
// stream of analyst-facing USN records.
package usnjrnl

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ostafen/ntfstriage/internal/record"
	"github.com/ostafen/ntfstriage/pkg/reader"
)

const (
	// minRecordLength is the smallest plausible v2 header: everything up
	// to and including FileNameOffset, with a zero-length name.
	minRecordLength = 60
	// maxRecordLength bounds a single record to guard against a corrupt
	// record_length field sending the decoder off reading garbage.
	maxRecordLength = 1 << 20
	// defaultSkipGranule is how far the cursor advances through a sparse
	// hole when no cluster size is known.
	defaultSkipGranule = 4096
	// decodeBufferSize sizes the BufferedReadSeeker window over $J: the
	// stream is walked strictly forward, so a read-ahead buffer turns the
	// two ReadAt calls Next makes per record into one underlying read per
	// buffer window instead of one per record.
	decodeBufferSize = 64 * 1024
)

// RawRecord is one decoded $J record before reason-flag expansion: the
// header fields plus the embedded name, shared by every row ExpandRecord
// produces from it.
type RawRecord struct {
	RecordLength    uint32
	MajorVersion    uint16
	MinorVersion    uint16
	FileReference   record.FileReference
	ParentReference record.FileReference
	Usn             uint64
	Timestamp       record.Timestamp
	ReasonFlags     uint32
	SourceInfoFlags uint32
	SecurityId      uint32
	FileAttrFlags   uint32
	FileName        string
}

// Decoder streams $J records from src, an already-reconstructed (or
// directly volume-backed) view of the $UsnJrnl:$J data stream of size
// bytes.
type Decoder struct {
	src         *reader.BufferedReadSeeker
	size        int64
	skipGranule int64
	cursor      int64

	// CorruptionCount counts records rejected as corrupt (record_length
	// out of bounds, or a header too short for its own major_version).
	CorruptionCount int
	// SparseSkipped accumulates the bytes skipped over sparse (all-zero
	// record_length) holes in the stream.
	SparseSkipped int64
}

// NewDecoder builds a Decoder over src. clusterSize, when positive, is used
// as the skip granule when crossing a sparse hole (§5's "aligned chunks of
// at most one cluster" reading discipline); otherwise defaultSkipGranule is
// used.
func NewDecoder(src io.ReaderAt, size int64, clusterSize int64) *Decoder {
	granule := int64(defaultSkipGranule)
	if clusterSize > 0 {
		granule = clusterSize
	}
	section := io.NewSectionReader(src, 0, size)
	return &Decoder{
		src:         reader.NewBufferedReadSeeker(section, decodeBufferSize),
		size:        size,
		skipGranule: granule,
	}
}

// Next decodes and returns the next record, advancing the cursor past it.
// It returns io.EOF once the cursor reaches the end of the stream.
func (d *Decoder) Next() (*RawRecord, error) {
	for {
		if d.cursor >= d.size {
			return nil, io.EOF
		}

		if _, err := d.src.Seek(d.cursor, io.SeekStart); err != nil {
			return nil, fmt.Errorf("usnjrnl: seeking to %d: %w", d.cursor, err)
		}

		var lenBuf [4]byte
		n, err := io.ReadFull(d.src, lenBuf[:])
		if n < 4 {
			if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
				return nil, fmt.Errorf("usnjrnl: reading record_length at %d: %w", d.cursor, err)
			}
			return nil, io.EOF
		}

		recordLength := binary.LittleEndian.Uint32(lenBuf[:])
		if recordLength == 0 {
			d.cursor += d.skipGranule
			d.SparseSkipped += d.skipGranule
			continue
		}
		if recordLength < minRecordLength || recordLength > maxRecordLength {
			d.CorruptionCount++
			d.cursor += 8
			continue
		}

		if _, err := d.src.Seek(d.cursor, io.SeekStart); err != nil {
			return nil, fmt.Errorf("usnjrnl: seeking to %d: %w", d.cursor, err)
		}
		buf := make([]byte, recordLength)
		n, err = io.ReadFull(d.src, buf)
		if n < int(recordLength) {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				// Trailing partial record at end of stream: nothing more
				// to decode.
				return nil, io.EOF
			}
			return nil, fmt.Errorf("usnjrnl: reading record at %d: %w", d.cursor, err)
		}

		raw, decErr := decodeRecord(buf)
		if decErr != nil {
			d.CorruptionCount++
			d.cursor += 8
			continue
		}

		d.cursor += int64(align8(recordLength))
		return raw, nil
	}
}

func align8(n uint32) uint32 {
	return (n + 7) &^ 7
}

func decodeRecord(buf []byte) (*RawRecord, error) {
	if len(buf) < 8 {
		return nil, fmt.Errorf("usnjrnl: record too short for a version header: %d bytes", len(buf))
	}
	major := binary.LittleEndian.Uint16(buf[4:6])
	minor := binary.LittleEndian.Uint16(buf[6:8])

	switch major {
	case 2:
		return decodeV2(buf, minor)
	case 3:
		return decodeV3OrV4(buf, 3, minor)
	case 4:
		return decodeV3OrV4(buf, 4, minor)
	default:
		return nil, fmt.Errorf("usnjrnl: unsupported major_version %d", major)
	}
}

// decodeV2 parses a USN_RECORD_V2: 8-byte file references (6-byte entry +
// 2-byte sequence), then the common trailing fields and embedded name.
func decodeV2(buf []byte, minor uint16) (*RawRecord, error) {
	if len(buf) < minRecordLength {
		return nil, fmt.Errorf("usnjrnl: v2 record too short: %d bytes", len(buf))
	}
	nameLen := int(binary.LittleEndian.Uint16(buf[56:58]))
	nameOff := int(binary.LittleEndian.Uint16(buf[58:60]))
	name, err := sliceName(buf, nameOff, nameLen)
	if err != nil {
		return nil, err
	}

	return &RawRecord{
		RecordLength:    binary.LittleEndian.Uint32(buf[0:4]),
		MajorVersion:    2,
		MinorVersion:    minor,
		FileReference:   parseFileReference(buf[8:16]),
		ParentReference: parseFileReference(buf[16:24]),
		Usn:             binary.LittleEndian.Uint64(buf[24:32]),
		Timestamp:       record.Timestamp{Filetime: binary.LittleEndian.Uint64(buf[32:40])},
		ReasonFlags:     binary.LittleEndian.Uint32(buf[40:44]),
		SourceInfoFlags: binary.LittleEndian.Uint32(buf[44:48]),
		SecurityId:      binary.LittleEndian.Uint32(buf[48:52]),
		FileAttrFlags:   binary.LittleEndian.Uint32(buf[52:56]),
		FileName:        name,
	}, nil
}

// decodeV3OrV4 parses the v3/v4 shared 76-byte header: 16-byte file
// references in place of v2's 8-byte ones. v4's trailing bytes are an
// extent list rather than a name; per §4.7 event emission only needs the
// header fields, so v4 records are returned with an empty FileName.
//
// The 128-bit v3/v4 references don't carry the classic 48-bit-entry +
// 16-bit-sequence split; this decoder keeps only their low 8 bytes
// (interpreted the same way as a v2 reference) so the result still fits
// record.FileReference, trading full 128-bit fidelity for a uniform output
// shape across versions.
func decodeV3OrV4(buf []byte, version int, minor uint16) (*RawRecord, error) {
	const headerSize = 76
	if len(buf) < headerSize {
		return nil, fmt.Errorf("usnjrnl: v%d record too short: %d bytes", version, len(buf))
	}

	out := &RawRecord{
		RecordLength:    binary.LittleEndian.Uint32(buf[0:4]),
		MajorVersion:    uint16(version),
		MinorVersion:    minor,
		FileReference:   parseFileReference(buf[8:16]),
		ParentReference: parseFileReference(buf[24:32]),
		Usn:             binary.LittleEndian.Uint64(buf[40:48]),
		Timestamp:       record.Timestamp{Filetime: binary.LittleEndian.Uint64(buf[48:56])},
		ReasonFlags:     binary.LittleEndian.Uint32(buf[56:60]),
		SourceInfoFlags: binary.LittleEndian.Uint32(buf[60:64]),
		SecurityId:      binary.LittleEndian.Uint32(buf[64:68]),
		FileAttrFlags:   binary.LittleEndian.Uint32(buf[68:72]),
	}

	if version == 3 {
		nameLen := int(binary.LittleEndian.Uint16(buf[72:74]))
		nameOff := int(binary.LittleEndian.Uint16(buf[74:76]))
		name, err := sliceName(buf, nameOff, nameLen)
		if err != nil {
			return nil, err
		}
		out.FileName = name
	}

	return out, nil
}

func sliceName(buf []byte, offset, length int) (string, error) {
	if length == 0 {
		return "", nil
	}
	end := offset + length
	if offset < 0 || end > len(buf) {
		return "", fmt.Errorf("usnjrnl: name extends past record (offset %d, len %d, record %d)", offset, length, len(buf))
	}
	return decodeUTF16LE(buf[offset:end]), nil
}

// parseFileReference reads the first 8 bytes of b as a classic NTFS file
// reference (6-byte entry number, 2-byte sequence number). For 16-byte
// (v3/v4) references, only these low 8 bytes are used; see decodeV3OrV4.
func parseFileReference(b []byte) record.FileReference {
	var entry [8]byte
	copy(entry[:6], b[:6])
	return record.FileReference{
		EntryNumber: binary.LittleEndian.Uint64(entry[:]),
		SequenceNum: binary.LittleEndian.Uint16(b[6:8]),
	}
}

// ExpandRecord explodes raw into one record.UsnRecord per set reason-flag
// bit, in reasonEventOrder, sharing every other field. A record with no
// recognized reason bit produces a single row with an empty Event rather
// than being dropped.
func ExpandRecord(raw *RawRecord) []record.UsnRecord {
	events := Events(raw.ReasonFlags)
	if len(events) == 0 {
		events = []record.UsnEventName{""}
	}

	rows := make([]record.UsnRecord, 0, len(events))
	for _, ev := range events {
		rows = append(rows, record.UsnRecord{
			RecordLength:    raw.RecordLength,
			MajorVersion:    raw.MajorVersion,
			MinorVersion:    raw.MinorVersion,
			FileReference:   raw.FileReference,
			ParentReference: raw.ParentReference,
			Usn:             raw.Usn,
			Timestamp:       raw.Timestamp,
			ReasonFlags:     raw.ReasonFlags,
			Event:           ev,
			SourceInfoFlags: raw.SourceInfoFlags,
			SecurityId:      raw.SecurityId,
			FileAttrFlags:   raw.FileAttrFlags,
			FileName:        raw.FileName,
		})
	}
	return rows
}

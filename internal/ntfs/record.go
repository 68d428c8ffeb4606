package ntfs

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

var recordSignature = []byte{'F', 'I', 'L', 'E'}

// RecordFlag is the bit mask at MFT record header offset 0x16.
type RecordFlag uint16

const (
	RecordFlagInUse       RecordFlag = 0x0001
	RecordFlagIsDirectory RecordFlag = 0x0002
)

// Is reports whether f contains all bits of c.
func (f RecordFlag) Is(c RecordFlag) bool {
	return f&c == c
}

// FileReference packs an MFT entry number with the sequence number of the
// record slot at the time the reference was recorded, so a stale reference
// to a reused entry can be detected by sequence mismatch.
type FileReference struct {
	EntryNumber    uint64
	SequenceNumber uint16
}

// ParseFileReference decodes an 8-byte on-disk file reference: the low 48
// bits are the entry number, the high 16 bits are the sequence number.
func ParseFileReference(b []byte) (FileReference, error) {
	if len(b) != 8 {
		return FileReference{}, fmt.Errorf("ntfs: file reference must be 8 bytes, got %d", len(b))
	}
	var entry [8]byte
	copy(entry[:6], b[:6])
	return FileReference{
		EntryNumber:    binary.LittleEndian.Uint64(entry[:]),
		SequenceNumber: binary.LittleEndian.Uint16(b[6:8]),
	}, nil
}

// Record is a parsed MFT entry: the header fields plus the flat list of
// attributes found directly in the record body. It does not include
// attributes found in $ATTRIBUTE_LIST extension records — see reader.go.
type Record struct {
	EntryNumber           uint64
	SequenceNumber        uint16
	BaseRecordReference   FileReference
	LogFileSequenceNumber uint64
	HardLinkCount         uint16
	Flags                 RecordFlag
	ActualSize            uint32
	AllocatedSize         uint32
	NextAttributeID       uint16
	Attributes            []Attribute
}

// InUse reports whether the record's RecordFlagInUse bit is set.
func (r *Record) InUse() bool {
	return r.Flags.Is(RecordFlagInUse)
}

// IsDirectory reports whether the record's RecordFlagIsDirectory bit is set.
func (r *Record) IsDirectory() bool {
	return r.Flags.Is(RecordFlagIsDirectory)
}

// IsBaseRecord reports whether this record is a base MFT record (as
// opposed to an extension record referenced from another record's
// $ATTRIBUTE_LIST). A base record's BaseRecordReference entry number is 0.
func (r *Record) IsBaseRecord() bool {
	return r.BaseRecordReference.EntryNumber == 0
}

// FindAttributes returns every attribute of the given type in this
// record's own attribute list (not following $ATTRIBUTE_LIST extensions).
func (r *Record) FindAttributes(t AttributeType) []Attribute {
	var out []Attribute
	for _, a := range r.Attributes {
		if a.Type == t {
			out = append(out, a)
		}
	}
	return out
}

// ParseRecord decodes one MFT entry, applying the fixup (update sequence)
// array to raw in place before parsing attributes, and validates the "FILE"
// signature. entryNumber is the position of this slot within the MFT and
// becomes the returned Record's EntryNumber.
func ParseRecord(raw []byte, entryNumber uint64) (*Record, error) {
	if len(raw) < 48 {
		return nil, fmt.Errorf("ntfs: MFT record too short: %d bytes", len(raw))
	}
	if !bytes.Equal(raw[:4], recordSignature) {
		return nil, fmt.Errorf("ntfs: invalid MFT record signature: %x", raw[:4])
	}

	updateSequenceOffset := int(binary.LittleEndian.Uint16(raw[0x04:0x06]))
	updateSequenceSize := int(binary.LittleEndian.Uint16(raw[0x06:0x08]))

	b := raw
	if err := ApplyFixUp(b, updateSequenceOffset, updateSequenceSize); err != nil {
		return nil, fmt.Errorf("ntfs: entry %d: %w", entryNumber, err)
	}

	firstAttrOffset := int(binary.LittleEndian.Uint16(b[0x14:0x16]))
	if firstAttrOffset < 0x30 || firstAttrOffset >= len(b) {
		return nil, fmt.Errorf("ntfs: entry %d: invalid first attribute offset %d", entryNumber, firstAttrOffset)
	}

	baseRef, err := ParseFileReference(b[0x20:0x28])
	if err != nil {
		return nil, fmt.Errorf("ntfs: entry %d: base record reference: %w", entryNumber, err)
	}

	attrs, err := ParseAttributes(b[firstAttrOffset:])
	if err != nil {
		return nil, fmt.Errorf("ntfs: entry %d: %w", entryNumber, err)
	}

	return &Record{
		EntryNumber:           entryNumber,
		SequenceNumber:        binary.LittleEndian.Uint16(b[0x10:0x12]),
		BaseRecordReference:   baseRef,
		LogFileSequenceNumber: binary.LittleEndian.Uint64(b[0x08:0x10]),
		HardLinkCount:         binary.LittleEndian.Uint16(b[0x12:0x14]),
		Flags:                 RecordFlag(binary.LittleEndian.Uint16(b[0x16:0x18])),
		ActualSize:            binary.LittleEndian.Uint32(b[0x18:0x1C]),
		AllocatedSize:         binary.LittleEndian.Uint32(b[0x1C:0x20]),
		NextAttributeID:       binary.LittleEndian.Uint16(b[0x28:0x2A]),
		Attributes:            attrs,
	}, nil
}

// ApplyFixUp validates and replaces a record's per-sector "update sequence"
// bytes in place. The update sequence array lives at updateSequenceOffset:
// its first 2 bytes are the expected value that the last 2 bytes of every
// sector in the record must carry before replacement (a mismatch means the
// record was only partially written, i.e. torn); the remaining 2-byte pairs
// are the real bytes to restore into those sector-end slots.
func ApplyFixUp(b []byte, updateSequenceOffset, updateSequenceSize int) error {
	if updateSequenceSize == 0 {
		return nil
	}
	arrayLen := updateSequenceSize * 2
	if updateSequenceOffset < 0 || updateSequenceOffset+arrayLen > len(b) {
		return fmt.Errorf("update sequence array out of bounds (offset %d, size %d, record %d)",
			updateSequenceOffset, arrayLen, len(b))
	}

	updateSequence := b[updateSequenceOffset : updateSequenceOffset+arrayLen]
	usn := updateSequence[:2]
	replacements := updateSequence[2:]

	sectorCount := len(replacements) / 2
	if sectorCount == 0 {
		return nil
	}
	sectorSize := len(b) / sectorCount

	for i := 1; i <= sectorCount; i++ {
		checkOffset := sectorSize*i - 2
		if !bytes.Equal(usn, b[checkOffset:checkOffset+2]) {
			return fmt.Errorf("update sequence mismatch at sector %d (offset %d): record is torn", i-1, checkOffset)
		}
	}
	for i := 0; i < sectorCount; i++ {
		offset := sectorSize*(i+1) - 2
		copy(b[offset:offset+2], replacements[i*2:i*2+2])
	}
	return nil
}

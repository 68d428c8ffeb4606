// Package ntfs parses the on-disk structures of an NTFS volume: MFT
// records and their attributes, data runs, the directory index, and the
// artifacts built on top of them ($LogFile, $UsnJrnl:$J).
package ntfs

import (
	"encoding/binary"
	"fmt"
)

// AttributeType identifies the kind of data an attribute carries.
type AttributeType uint32

// Known attribute type codes. Values not listed here still parse; Decoder
// treats them as opaque.
const (
	AttributeTypeStandardInformation AttributeType = 0x10
	AttributeTypeAttributeList       AttributeType = 0x20
	AttributeTypeFileName            AttributeType = 0x30
	AttributeTypeObjectID            AttributeType = 0x40
	AttributeTypeSecurityDescriptor  AttributeType = 0x50
	AttributeTypeVolumeName          AttributeType = 0x60
	AttributeTypeVolumeInformation   AttributeType = 0x70
	AttributeTypeData                AttributeType = 0x80
	AttributeTypeIndexRoot           AttributeType = 0x90
	AttributeTypeIndexAllocation     AttributeType = 0xA0
	AttributeTypeBitmap              AttributeType = 0xB0
	AttributeTypeReparsePoint        AttributeType = 0xC0
	AttributeTypeEAInformation       AttributeType = 0xD0
	AttributeTypeEA                  AttributeType = 0xE0
	AttributeTypePropertySet         AttributeType = 0xF0
	AttributeTypeLoggedUtilityStream AttributeType = 0x100
	AttributeTypeTerminator          AttributeType = 0xFFFFFFFF
)

// Name returns the canonical $-prefixed NTFS attribute name.
func (t AttributeType) Name() string {
	switch t {
	case AttributeTypeStandardInformation:
		return "$STANDARD_INFORMATION"
	case AttributeTypeAttributeList:
		return "$ATTRIBUTE_LIST"
	case AttributeTypeFileName:
		return "$FILE_NAME"
	case AttributeTypeObjectID:
		return "$OBJECT_ID"
	case AttributeTypeSecurityDescriptor:
		return "$SECURITY_DESCRIPTOR"
	case AttributeTypeVolumeName:
		return "$VOLUME_NAME"
	case AttributeTypeVolumeInformation:
		return "$VOLUME_INFORMATION"
	case AttributeTypeData:
		return "$DATA"
	case AttributeTypeIndexRoot:
		return "$INDEX_ROOT"
	case AttributeTypeIndexAllocation:
		return "$INDEX_ALLOCATION"
	case AttributeTypeBitmap:
		return "$BITMAP"
	case AttributeTypeReparsePoint:
		return "$REPARSE_POINT"
	case AttributeTypeEAInformation:
		return "$EA_INFORMATION"
	case AttributeTypeEA:
		return "$EA"
	case AttributeTypePropertySet:
		return "$PROPERTY_SET"
	case AttributeTypeLoggedUtilityStream:
		return "$LOGGED_UTILITY_STREAM"
	}
	return "unknown"
}

// AttributeFlags is the bit mask at attribute header offset 0x0C.
type AttributeFlags uint16

const (
	AttributeFlagCompressed AttributeFlags = 0x0001
	AttributeFlagEncrypted  AttributeFlags = 0x4000
	AttributeFlagSparse     AttributeFlags = 0x8000
)

// Is reports whether f contains all bits of c.
func (f AttributeFlags) Is(c AttributeFlags) bool {
	return f&c == c
}

// Attribute is one parsed attribute header plus its raw value bytes. For a
// resident attribute Data is the value itself; for a non-resident
// attribute Data is the encoded data-run stream (see ParseDataRuns).
type Attribute struct {
	Type          AttributeType
	Resident      bool
	Name          string
	Flags         AttributeFlags
	AttributeID   int
	AllocatedSize uint64
	ActualSize    uint64
	StartVCN      uint64
	LastVCN       uint64
	Data          []byte
}

// ParseAttributes walks a concatenated run of attribute records (as found
// immediately after an MFT record header, or inside an $ATTRIBUTE_LIST
// extension record body) until the 0xFFFFFFFF terminator or the input is
// exhausted.
func ParseAttributes(b []byte) ([]Attribute, error) {
	var attrs []Attribute
	for len(b) > 0 {
		if len(b) < 4 {
			return nil, fmt.Errorf("ntfs: attribute header truncated: %d bytes left", len(b))
		}
		attrType := binary.LittleEndian.Uint32(b[0:4])
		if attrType == uint32(AttributeTypeTerminator) {
			break
		}
		if len(b) < 8 {
			return nil, fmt.Errorf("ntfs: cannot read attribute record length: %d bytes left", len(b))
		}
		recordLength := binary.LittleEndian.Uint32(b[4:8])
		if recordLength < 8 || uint64(recordLength) > uint64(len(b)) {
			return nil, fmt.Errorf("ntfs: attribute record length %d invalid for %d remaining bytes", recordLength, len(b))
		}

		attr, err := ParseAttribute(b[:recordLength])
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, attr)
		b = b[recordLength:]
	}
	return attrs, nil
}

// ParseAttribute decodes a single attribute header and its value. b must
// span exactly one attribute record (header + value), as delimited by the
// record's own RecordLength field.
func ParseAttribute(b []byte) (Attribute, error) {
	if len(b) < 24 {
		return Attribute{}, fmt.Errorf("ntfs: attribute record too short: %d bytes", len(b))
	}

	nameLength := int(b[0x09])
	nameOffset := int(binary.LittleEndian.Uint16(b[0x0A:0x0C]))

	var name string
	if nameLength > 0 {
		end := nameOffset + nameLength*2
		if end > len(b) {
			return Attribute{}, fmt.Errorf("ntfs: attribute name extends past record (offset %d, len %d, record %d)", nameOffset, nameLength, len(b))
		}
		name = decodeUTF16LE(b[nameOffset:end])
	}

	resident := b[0x08] == 0x00
	attr := Attribute{
		Type:        AttributeType(binary.LittleEndian.Uint32(b[0x00:0x04])),
		Resident:    resident,
		Name:        name,
		Flags:       AttributeFlags(binary.LittleEndian.Uint16(b[0x0C:0x0E])),
		AttributeID: int(binary.LittleEndian.Uint16(b[0x0E:0x10])),
	}

	if resident {
		if len(b) < 0x18 {
			return Attribute{}, fmt.Errorf("ntfs: resident attribute header too short: %d bytes", len(b))
		}
		dataLength := binary.LittleEndian.Uint32(b[0x10:0x14])
		dataOffset := int(binary.LittleEndian.Uint16(b[0x14:0x16]))
		end := dataOffset + int(dataLength)
		if end > len(b) {
			return Attribute{}, fmt.Errorf("ntfs: resident attribute value extends past record (offset %d, len %d, record %d)", dataOffset, dataLength, len(b))
		}
		attr.ActualSize = uint64(dataLength)
		attr.AllocatedSize = uint64(dataLength)
		attr.Data = append([]byte(nil), b[dataOffset:end]...)
		return attr, nil
	}

	if len(b) < 0x40 {
		return Attribute{}, fmt.Errorf("ntfs: non-resident attribute header too short: %d bytes", len(b))
	}
	attr.StartVCN = binary.LittleEndian.Uint64(b[0x10:0x18])
	attr.LastVCN = binary.LittleEndian.Uint64(b[0x18:0x20])
	dataRunOffset := int(binary.LittleEndian.Uint16(b[0x20:0x22]))
	attr.AllocatedSize = binary.LittleEndian.Uint64(b[0x28:0x30])
	attr.ActualSize = binary.LittleEndian.Uint64(b[0x30:0x38])
	if dataRunOffset > len(b) {
		return Attribute{}, fmt.Errorf("ntfs: data run offset %d past record end %d", dataRunOffset, len(b))
	}
	attr.Data = append([]byte(nil), b[dataRunOffset:]...)
	return attr, nil
}

// DataRun is one entry of a non-resident attribute's mapping pairs array,
// after decoding: OffsetLCN is relative to the previous run's LCN (the
// first run's offset is relative to volume start), LengthClusters is
// absolute.
type DataRun struct {
	OffsetLCN      int64
	LengthClusters uint64
	Sparse         bool
}

// ParseDataRuns decodes the mapping pairs array of a non-resident
// attribute. Each run header byte packs the byte-length of the following
// length field in its low nibble and the byte-length of the following
// (signed) offset field in its high nibble; a zero header byte or
// exhausted input ends the stream. A run with a zero-length offset field
// is sparse (no LCN allocated) and OffsetLCN is left at 0 with Sparse set.
func ParseDataRuns(b []byte) ([]DataRun, error) {
	var runs []DataRun
	for len(b) > 0 {
		header := b[0]
		if header == 0 {
			break
		}
		lengthSize := int(header & 0x0F)
		offsetSize := int(header >> 4)
		need := 1 + lengthSize + offsetSize
		if need > len(b) {
			return nil, fmt.Errorf("ntfs: data run header needs %d bytes, %d available", need, len(b))
		}

		lengthBytes := b[1 : 1+lengthSize]
		length := binary.LittleEndian.Uint64(padUnsigned(lengthBytes, 8))

		run := DataRun{LengthClusters: length}
		if offsetSize == 0 {
			run.Sparse = true
		} else {
			offsetBytes := b[1+lengthSize : 1+lengthSize+offsetSize]
			run.OffsetLCN = int64(binary.LittleEndian.Uint64(padSigned(offsetBytes, 8)))
		}
		runs = append(runs, run)
		b = b[need:]
	}
	return runs, nil
}

// AbsoluteRuns resolves a list of relative DataRuns (as produced by
// ParseDataRuns) into absolute LCN runs: each run's LCN is the running sum
// of all preceding offsets. Sparse runs keep LCN 0 and are left marked.
type AbsoluteRun struct {
	LCN    uint64
	Length uint64
	Sparse bool
}

func AbsoluteRuns(runs []DataRun) []AbsoluteRun {
	out := make([]AbsoluteRun, len(runs))
	var lcn int64
	for i, r := range runs {
		if r.Sparse {
			out[i] = AbsoluteRun{Length: r.LengthClusters, Sparse: true}
			continue
		}
		lcn += r.OffsetLCN
		out[i] = AbsoluteRun{LCN: uint64(lcn), Length: r.LengthClusters}
	}
	return out
}

// padUnsigned right-pads a little-endian byte slice to length bytes with
// zeroes, matching the unsigned (length field) interpretation of a
// mapping-pair component.
func padUnsigned(data []byte, length int) []byte {
	out := make([]byte, length)
	copy(out, data)
	return out
}

// padSigned right-pads a little-endian byte slice to length bytes,
// sign-extending with 0xFF when the component's most significant bit is
// set, matching the signed (offset field) interpretation of a mapping-pair
// component.
func padSigned(data []byte, length int) []byte {
	out := make([]byte, length)
	copy(out, data)
	if len(data) > 0 && len(data) < length && data[len(data)-1]&0x80 != 0 {
		for i := len(data); i < length; i++ {
			out[i] = 0xFF
		}
	}
	return out
}

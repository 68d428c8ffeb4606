package ntfs

import (
	"encoding/binary"
	"fmt"

	"github.com/ostafen/ntfstriage/internal/record"
)

// standardInformation is the decoded $STANDARD_INFORMATION value.
type standardInformation struct {
	Times     record.FileTimes
	AttrFlags uint32
}

// fileName is the decoded $FILE_NAME value.
type fileName struct {
	ParentReference FileReference
	Times           record.FileTimes
	AllocatedSize   uint64
	RealSize        uint64
	Flags           uint32
	Namespace       Namespace
	Name            string
}

// namespacePriority ranks FILE_NAME namespaces for selection when a record
// carries more than one: Win32&DOS first, then Win32, then POSIX, then DOS.
func namespacePriority(n Namespace) int {
	switch n {
	case NamespaceWin32AndDos:
		return 0
	case NamespaceWin32:
		return 1
	case NamespacePosix:
		return 2
	case NamespaceDos:
		return 3
	default:
		return 4
	}
}

func decodeStandardInformation(data []byte) (standardInformation, error) {
	if len(data) < 48 {
		return standardInformation{}, fmt.Errorf("$STANDARD_INFORMATION value too short: %d bytes", len(data))
	}
	return standardInformation{
		Times: record.FileTimes{
			Created:     record.Timestamp{Filetime: binary.LittleEndian.Uint64(data[0:8])},
			Modified:    record.Timestamp{Filetime: binary.LittleEndian.Uint64(data[8:16])},
			MftModified: record.Timestamp{Filetime: binary.LittleEndian.Uint64(data[16:24])},
			Accessed:    record.Timestamp{Filetime: binary.LittleEndian.Uint64(data[24:32])},
		},
		AttrFlags: binary.LittleEndian.Uint32(data[32:36]),
	}, nil
}

func decodeFileName(data []byte) (fileName, error) {
	if len(data) < 66 {
		return fileName{}, fmt.Errorf("$FILE_NAME value too short: %d bytes", len(data))
	}
	parentRef, err := ParseFileReference(data[0:8])
	if err != nil {
		return fileName{}, err
	}

	nameLen := int(data[64])
	nameType := Namespace(data[65])
	nameEnd := 66 + nameLen*2
	if nameEnd > len(data) {
		return fileName{}, fmt.Errorf("$FILE_NAME name extends past value (offset 66, len %d, value %d)", nameLen, len(data))
	}

	return fileName{
		ParentReference: parentRef,
		Times: record.FileTimes{
			Created:     record.Timestamp{Filetime: binary.LittleEndian.Uint64(data[8:16])},
			Modified:    record.Timestamp{Filetime: binary.LittleEndian.Uint64(data[16:24])},
			MftModified: record.Timestamp{Filetime: binary.LittleEndian.Uint64(data[24:32])},
			Accessed:    record.Timestamp{Filetime: binary.LittleEndian.Uint64(data[32:40])},
		},
		AllocatedSize: binary.LittleEndian.Uint64(data[40:48]),
		RealSize:      binary.LittleEndian.Uint64(data[48:56]),
		Flags:         binary.LittleEndian.Uint32(data[56:60]),
		Namespace:     nameType,
		Name:          decodeUTF16LE(data[66:nameEnd]),
	}, nil
}

// Decoder turns raw ntfs.Record values (as produced by MftReader) into the
// analyst-facing record.MftRecord shape, using a small type-code-keyed
// dispatch table rather than runtime type assertions over attribute data.
type Decoder struct {
	reader *MftReader
}

// NewDecoder builds a Decoder reading entries through reader.
func NewDecoder(reader *MftReader) *Decoder {
	return &Decoder{reader: reader}
}

// DecodeEntry reads and decodes a single MFT entry. It does not populate
// FullPath; see PathResolver for the second pass.
func (d *Decoder) DecodeEntry(entryNumber uint64) (*record.MftRecord, error) {
	rec, err := d.reader.ReadEntry(entryNumber)
	if err != nil {
		return d.corruptRecord(entryNumber, err), nil
	}
	return d.decode(rec), nil
}

// DecodeFromRecord decodes an already-parsed ntfs.Record, skipping the
// reader round trip. Exposed for attribute-list-resolved records obtained
// some other way (and for tests).
func (d *Decoder) DecodeFromRecord(rec *Record) *record.MftRecord {
	return d.decode(rec)
}

func (d *Decoder) corruptRecord(entryNumber uint64, cause error) *record.MftRecord {
	return &record.MftRecord{
		EntryNumber: entryNumber,
		Corrupt:     true,
		Note:        cause.Error(),
	}
}

func (d *Decoder) decode(rec *Record) *record.MftRecord {
	out := &record.MftRecord{
		EntryNumber:    rec.EntryNumber,
		SequenceNumber: rec.SequenceNumber,
		InUse:          rec.InUse(),
		IsDirectory:    rec.IsDirectory(),
	}

	var bestName *fileName
	for _, attr := range rec.Attributes {
		switch attr.Type {
		case AttributeTypeStandardInformation:
			si, err := decodeStandardInformation(attr.Data)
			if err != nil {
				out.Corrupt = true
				out.Note = appendNote(out.Note, err.Error())
				continue
			}
			out.SiTimes = si.Times
			out.FileAttrFlags = si.AttrFlags

		case AttributeTypeFileName:
			fn, err := decodeFileName(attr.Data)
			if err != nil {
				out.Corrupt = true
				out.Note = appendNote(out.Note, err.Error())
				continue
			}
			if bestName == nil || namespacePriority(fn.Namespace) < namespacePriority(bestName.Namespace) {
				cp := fn
				bestName = &cp
			}

		case AttributeTypeData:
			if attr.Name != "" {
				continue // named stream; skipped, not the primary size
			}
			if attr.Resident {
				out.DataSize = attr.ActualSize
				out.IsResident = true
			} else {
				out.DataSize = attr.ActualSize
				out.IsResident = false
			}
		}
	}

	if bestName != nil {
		out.FileName = bestName.Name
		out.ParentEntryNumber = bestName.ParentReference.EntryNumber
		out.ParentSequenceNum = bestName.ParentReference.SequenceNumber
		out.FnTimes = bestName.Times
	}

	return out
}

func appendNote(existing, add string) string {
	if existing == "" {
		return add
	}
	return existing + "; " + add
}

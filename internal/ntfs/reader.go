package ntfs

import (
	"encoding/binary"
	"fmt"

	"github.com/ostafen/ntfstriage/internal/record"
)

const (
	// RootDirectoryEntry is the well-known MFT entry number of the volume's
	// $ROOT directory.
	RootDirectoryEntry = 5
	// maxAttributeListFanOut bounds how many extension records a single
	// base record's $ATTRIBUTE_LIST may pull in, guarding against a
	// corrupt or adversarial cycle of self-referencing records.
	maxAttributeListFanOut = 256
)

// MftReader reads arbitrary MFT entries by record number, bootstrapping
// from MFT record 0's own $DATA runs and following $ATTRIBUTE_LIST
// extension records transparently.
type MftReader struct {
	vol      *Volume
	mftRuns  []AbsoluteRun
	mftBytes int64
}

// NewMftReader bootstraps an MftReader: it reads the entry at the boot
// sector's mft_cluster_lcn as MFT record 0 (itself contiguous at that
// location by construction), then re-reads the full $MFT by following that
// record's own $DATA attribute data runs, since the MFT is frequently
// fragmented beyond its first entry.
func NewMftReader(vol *Volume) (*MftReader, error) {
	bootstrapOffset := int64(vol.Boot.MftClusterLCN) * int64(vol.ClusterSize)
	raw, err := vol.ReadAt(bootstrapOffset, int64(vol.MftEntrySize))
	if err != nil {
		return nil, fmt.Errorf("ntfs: reading bootstrap MFT record 0: %w", err)
	}

	rec, err := ParseRecord(raw, 0)
	if err != nil {
		return nil, fmt.Errorf("ntfs: parsing bootstrap MFT record 0: %w", err)
	}

	dataAttrs := rec.FindAttributes(AttributeTypeData)
	var dataAttr *Attribute
	for i := range dataAttrs {
		if dataAttrs[i].Name == "" {
			dataAttr = &dataAttrs[i]
			break
		}
	}
	if dataAttr == nil {
		return nil, record.NewError(record.KindCorruptRecord, "MFT record 0 has no unnamed $DATA attribute", nil)
	}
	if dataAttr.Resident {
		return nil, record.NewError(record.KindCorruptRecord, "MFT record 0's $DATA attribute must be non-resident", nil)
	}

	runs, err := ParseDataRuns(dataAttr.Data)
	if err != nil {
		return nil, fmt.Errorf("ntfs: parsing MFT $DATA runs: %w", err)
	}

	return &MftReader{
		vol:      vol,
		mftRuns:  AbsoluteRuns(runs),
		mftBytes: int64(dataAttr.ActualSize),
	}, nil
}

// MftRuns returns the absolute cluster runs backing the whole $MFT, as
// resolved from MFT record 0's own $DATA attribute at bootstrap time. Used
// by ArtifactExtractor to reconstruct the $MFT artifact byte-for-byte.
func (r *MftReader) MftRuns() []AbsoluteRun {
	return r.mftRuns
}

// MftSize returns the $MFT's actual (real) size in bytes.
func (r *MftReader) MftSize() int64 {
	return r.mftBytes
}

// ReadEntryBytes returns the raw (pre-fixup) bytes of MFT entry n.
func (r *MftReader) ReadEntryBytes(n uint64) ([]byte, error) {
	entrySize := int64(r.vol.MftEntrySize)
	offset := int64(n) * entrySize
	if offset+entrySize > r.mftBytes {
		return nil, record.NewError(record.KindCorruptRecord, fmt.Sprintf("entry %d beyond end of $MFT (%d bytes)", n, r.mftBytes), nil)
	}

	data, err := readRunRange(r.vol, r.mftRuns, offset, entrySize)
	if err != nil {
		return nil, fmt.Errorf("ntfs: reading entry %d: %w", n, err)
	}
	if int64(len(data)) < entrySize {
		return nil, record.NewError(record.KindCorruptRecord, fmt.Sprintf("entry %d short read: got %d of %d bytes", n, len(data), entrySize), nil)
	}
	return data, nil
}

// ReadEntry reads and parses MFT entry n, following any $ATTRIBUTE_LIST
// extension records so that the returned Record's Attributes slice is the
// full logical attribute list, not just what fits in the base record.
func (r *MftReader) ReadEntry(n uint64) (*Record, error) {
	raw, err := r.ReadEntryBytes(n)
	if err != nil {
		return nil, err
	}

	rec, err := ParseRecord(raw, n)
	if err != nil {
		return nil, err
	}

	if err := r.resolveAttributeList(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// resolveAttributeList, if rec carries an $ATTRIBUTE_LIST, reads every
// referenced extension record and appends its attributes onto rec's own
// Attributes, in the order the list entries appear. A visited set keyed by
// (entry#, seq#) prevents cycles, and fan-out is capped at
// maxAttributeListFanOut extension records.
func (r *MftReader) resolveAttributeList(rec *Record) error {
	listAttrs := rec.FindAttributes(AttributeTypeAttributeList)
	if len(listAttrs) == 0 {
		return nil
	}

	listData, err := r.materializeAttributeListData(rec, listAttrs[0])
	if err != nil {
		return fmt.Errorf("ntfs: entry %d: materializing $ATTRIBUTE_LIST: %w", rec.EntryNumber, err)
	}

	entries, err := parseAttributeListEntries(listData)
	if err != nil {
		return fmt.Errorf("ntfs: entry %d: parsing $ATTRIBUTE_LIST entries: %w", rec.EntryNumber, err)
	}

	visited := map[FileReference]bool{{EntryNumber: rec.EntryNumber, SequenceNumber: rec.SequenceNumber}: true}
	fetched := map[uint64]*Record{rec.EntryNumber: rec}

	for i, e := range entries {
		if i >= maxAttributeListFanOut {
			break
		}
		if e.Reference.EntryNumber == rec.EntryNumber {
			continue // attribute already present in the base record
		}
		if visited[e.Reference] {
			continue
		}
		visited[e.Reference] = true

		ext, ok := fetched[e.Reference.EntryNumber]
		if !ok {
			extRaw, err := r.ReadEntryBytes(e.Reference.EntryNumber)
			if err != nil {
				continue // extension record unreadable; skip, base record stays usable
			}
			ext, err = ParseRecord(extRaw, e.Reference.EntryNumber)
			if err != nil {
				continue
			}
			fetched[e.Reference.EntryNumber] = ext
		}
		if ext.SequenceNumber != e.Reference.SequenceNumber {
			continue // stale reference into a reused entry
		}
		rec.Attributes = append(rec.Attributes, ext.Attributes...)
	}
	return nil
}

// materializeAttributeListData returns the $ATTRIBUTE_LIST attribute's
// value bytes, reading through data runs if the attribute is non-resident.
func (r *MftReader) materializeAttributeListData(rec *Record, attr Attribute) ([]byte, error) {
	if attr.Resident {
		return attr.Data, nil
	}
	runs, err := ParseDataRuns(attr.Data)
	if err != nil {
		return nil, err
	}
	return r.vol.ReadRuns(AbsoluteRuns(runs), int64(attr.ActualSize))
}

// attributeListEntry is one entry of a parsed $ATTRIBUTE_LIST.
type attributeListEntry struct {
	Type      AttributeType
	Reference FileReference
}

// parseAttributeListEntries decodes the variable-length entry array of an
// $ATTRIBUTE_LIST attribute's value.
func parseAttributeListEntries(b []byte) ([]attributeListEntry, error) {
	var entries []attributeListEntry
	for len(b) > 0 {
		if len(b) < 26 {
			break
		}
		recordLength := int(binary.LittleEndian.Uint16(b[0x06:0x08]))
		if recordLength < 26 || recordLength > len(b) {
			return nil, fmt.Errorf("attribute list entry length %d invalid for %d remaining bytes", recordLength, len(b))
		}
		ref, err := ParseFileReference(b[0x10:0x18])
		if err != nil {
			return nil, err
		}
		entries = append(entries, attributeListEntry{
			Type:      AttributeType(binary.LittleEndian.Uint32(b[0x00:0x04])),
			Reference: ref,
		})
		b = b[recordLength:]
	}
	return entries, nil
}

func readRunRange(vol *Volume, runs []AbsoluteRun, offset, length int64) ([]byte, error) {
	clusterSize := int64(vol.ClusterSize)
	var out []byte
	var pos int64
	for _, r := range runs {
		runBytes := int64(r.Length) * clusterSize
		runStart, runEnd := pos, pos+runBytes
		pos = runEnd

		segStart := max64(offset, runStart)
		segEnd := min64(offset+length, runEnd)
		if segStart >= segEnd {
			continue
		}

		if r.Sparse {
			out = append(out, make([]byte, segEnd-segStart)...)
			continue
		}

		clusterOffsetWithinRun := (segStart - runStart) / clusterSize
		byteOffsetWithinCluster := (segStart - runStart) % clusterSize
		clustersNeeded := (byteOffsetWithinCluster+(segEnd-segStart)+clusterSize-1) / clusterSize

		data, err := vol.ReadCluster(r.LCN+uint64(clusterOffsetWithinRun), uint64(clustersNeeded))
		if err != nil {
			return nil, err
		}
		lo := byteOffsetWithinCluster
		hi := lo + (segEnd - segStart)
		if hi > int64(len(data)) {
			hi = int64(len(data))
		}
		if lo > hi {
			lo = hi
		}
		out = append(out, data[lo:hi]...)

		if int64(len(out)) >= length {
			break
		}
	}
	return out, nil
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

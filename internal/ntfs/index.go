package ntfs

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Namespace is the NTFS file-name namespace a $FILE_NAME (or directory
// index entry) value was recorded under.
type Namespace uint8

const (
	NamespacePosix       Namespace = 0
	NamespaceWin32       Namespace = 1
	NamespaceDos         Namespace = 2
	NamespaceWin32AndDos Namespace = 3
)

// DirectoryIndexEntry is one decoded entry of a directory's $INDEX_ROOT or
// $INDEX_ALLOCATION B-tree node.
type DirectoryIndexEntry struct {
	FileName  string
	Namespace Namespace
	Reference FileReference
	IsSubnode bool
	VCN       uint64
	IsLast    bool
}

const (
	indexEntryFlagSubnode = 0x01
	indexEntryFlagLast    = 0x02
)

// parseIndexEntries decodes a run of directory index entries starting at
// the beginning of b (the caller has already skipped to the index header's
// FirstEntryOffset).
func parseIndexEntries(b []byte) ([]DirectoryIndexEntry, error) {
	var entries []DirectoryIndexEntry
	for len(b) >= 16 {
		entryLength := int(binary.LittleEndian.Uint16(b[0x08:0x0A]))
		if entryLength < 16 || entryLength > len(b) {
			return nil, fmt.Errorf("index entry length %d invalid for %d remaining bytes", entryLength, len(b))
		}
		flags := b[0x0C]

		entry := DirectoryIndexEntry{
			IsSubnode: flags&indexEntryFlagSubnode != 0,
			IsLast:    flags&indexEntryFlagLast != 0,
		}

		ref, err := ParseFileReference(b[0x00:0x08])
		if err != nil {
			return nil, err
		}
		entry.Reference = ref

		streamLength := int(binary.LittleEndian.Uint16(b[0x0A:0x0C]))
		if !entry.IsLast && streamLength >= 66 {
			stream := b[0x10 : 0x10+streamLength]
			nameLen := int(stream[64])
			nameType := Namespace(stream[65])
			nameEnd := 66 + nameLen*2
			if nameEnd <= len(stream) {
				entry.FileName = decodeUTF16LE(stream[66:nameEnd])
				entry.Namespace = nameType
			}
		}

		if entry.IsSubnode {
			entry.VCN = binary.LittleEndian.Uint64(b[entryLength-8 : entryLength])
		}

		entries = append(entries, entry)
		b = b[entryLength:]
	}
	return entries, nil
}

// indexHeader is the common {FirstEntryOffset, TotalEntrySize, AllocatedSize,
// Flags} structure embedded in both $INDEX_ROOT and each INDX record.
type indexHeader struct {
	FirstEntryOffset uint32
	TotalEntrySize   uint32
	AllocatedSize    uint32
	Flags            uint8
}

func parseIndexHeader(b []byte) (indexHeader, error) {
	if len(b) < 16 {
		return indexHeader{}, fmt.Errorf("index header too short: %d bytes", len(b))
	}
	return indexHeader{
		FirstEntryOffset: binary.LittleEndian.Uint32(b[0x00:0x04]),
		TotalEntrySize:   binary.LittleEndian.Uint32(b[0x04:0x08]),
		AllocatedSize:    binary.LittleEndian.Uint32(b[0x08:0x0C]),
		Flags:            b[0x0C],
	}, nil
}

// DirectoryIndex walks a single directory's $INDEX_ROOT and (if present)
// $INDEX_ALLOCATION to find a child entry by name.
type DirectoryIndex struct {
	reader *MftReader
	vol    *Volume
	root   []byte
	alloc  *Attribute // may be nil if the directory fits entirely in $INDEX_ROOT
}

// NewDirectoryIndex builds a DirectoryIndex over dirRecord's $INDEX_ROOT
// (and $INDEX_ALLOCATION, if present) attributes.
func NewDirectoryIndex(reader *MftReader, vol *Volume, dirRecord *Record) (*DirectoryIndex, error) {
	rootAttrs := dirRecord.FindAttributes(AttributeTypeIndexRoot)
	if len(rootAttrs) == 0 {
		return nil, fmt.Errorf("ntfs: entry %d has no $INDEX_ROOT attribute", dirRecord.EntryNumber)
	}

	di := &DirectoryIndex{reader: reader, vol: vol, root: rootAttrs[0].Data}

	allocAttrs := dirRecord.FindAttributes(AttributeTypeIndexAllocation)
	if len(allocAttrs) > 0 {
		di.alloc = &allocAttrs[0]
	}
	return di, nil
}

// FindByName looks up a child by case-insensitive name comparison
// (approximating the $UpCase collation NTFS actually uses), returning its
// MFT file reference. It checks $INDEX_ROOT first, then follows subnode
// VCNs into $INDEX_ALLOCATION as needed.
func (di *DirectoryIndex) FindByName(name string) (FileReference, bool, error) {
	if len(di.root) < 16 {
		return FileReference{}, false, fmt.Errorf("ntfs: $INDEX_ROOT value too short: %d bytes", len(di.root))
	}
	hdr, err := parseIndexHeader(di.root[0x10:])
	if err != nil {
		return FileReference{}, false, err
	}
	entries, err := parseIndexEntries(di.root[0x10+hdr.FirstEntryOffset:])
	if err != nil {
		return FileReference{}, false, err
	}

	return di.search(entries, name, 0)
}

// search scans entries for an exact (case-insensitive) name match, falling
// into subnodes (via $INDEX_ALLOCATION) in sorted-tree order when present.
// depth guards against a corrupt/cyclic B-tree.
func (di *DirectoryIndex) search(entries []DirectoryIndexEntry, name string, depth int) (FileReference, bool, error) {
	const maxDepth = 32
	if depth > maxDepth {
		return FileReference{}, false, fmt.Errorf("ntfs: directory index traversal exceeded depth %d", maxDepth)
	}

	target := strings.ToUpper(name)
	for _, e := range entries {
		if !e.IsLast && strings.ToUpper(e.FileName) == target {
			return e.Reference, true, nil
		}
		if e.IsSubnode {
			childEntries, err := di.readAllocationNode(e.VCN)
			if err != nil {
				return FileReference{}, false, err
			}
			if ref, ok, err := di.search(childEntries, name, depth+1); ok || err != nil {
				return ref, ok, err
			}
		}
		if e.IsLast {
			break
		}
	}
	return FileReference{}, false, nil
}

// readAllocationNode reads and fixes up the INDX record at the given VCN
// within $INDEX_ALLOCATION, returning its decoded entries.
func (di *DirectoryIndex) readAllocationNode(vcn uint64) ([]DirectoryIndexEntry, error) {
	if di.alloc == nil {
		return nil, fmt.Errorf("ntfs: subnode reference but no $INDEX_ALLOCATION attribute")
	}
	runs, err := ParseDataRuns(di.alloc.Data)
	if err != nil {
		return nil, err
	}
	absRuns := AbsoluteRuns(runs)

	recordSize := int64(di.vol.IdxEntrySize)
	offset := int64(vcn) * int64(di.vol.ClusterSize)

	raw, err := readRunRange(di.vol, absRuns, offset, recordSize)
	if err != nil {
		return nil, fmt.Errorf("ntfs: reading INDX record at vcn %d: %w", vcn, err)
	}
	if int64(len(raw)) < recordSize {
		return nil, fmt.Errorf("ntfs: short INDX record at vcn %d: got %d of %d bytes", vcn, len(raw), recordSize)
	}

	if len(raw) < 0x18 || string(raw[0:4]) != "INDX" {
		return nil, fmt.Errorf("ntfs: invalid INDX signature at vcn %d", vcn)
	}
	usOffset := int(binary.LittleEndian.Uint16(raw[0x04:0x06]))
	usSize := int(binary.LittleEndian.Uint16(raw[0x06:0x08]))
	if err := ApplyFixUp(raw, usOffset, usSize); err != nil {
		return nil, fmt.Errorf("ntfs: INDX record at vcn %d: %w", vcn, err)
	}

	hdr, err := parseIndexHeader(raw[0x18:])
	if err != nil {
		return nil, err
	}
	return parseIndexEntries(raw[0x18+hdr.FirstEntryOffset:])
}

// ResolveSystemFile walks from $ROOT (entry 5) through a sequence of
// well-known system file names, one path component per argument (e.g.
// "$Extend", "$UsnJrnl"), and returns the final entry's file reference.
func ResolveSystemFile(reader *MftReader, vol *Volume, names ...string) (FileReference, error) {
	ref := FileReference{EntryNumber: RootDirectoryEntry}
	for _, name := range names {
		dirRecord, err := reader.ReadEntry(ref.EntryNumber)
		if err != nil {
			return FileReference{}, fmt.Errorf("ntfs: reading directory entry %d: %w", ref.EntryNumber, err)
		}
		idx, err := NewDirectoryIndex(reader, vol, dirRecord)
		if err != nil {
			return FileReference{}, err
		}
		found, ok, err := idx.FindByName(name)
		if err != nil {
			return FileReference{}, err
		}
		if !ok {
			return FileReference{}, fmt.Errorf("ntfs: %q not found under entry %d", name, ref.EntryNumber)
		}
		ref = found
	}
	return ref, nil
}

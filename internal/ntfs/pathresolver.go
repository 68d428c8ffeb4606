package ntfs

import (
	"strings"

	"github.com/ostafen/ntfstriage/internal/record"
)

const maxPathDepth = 1024

// pathCacheEntry is what PathResolver retains per MFT entry: just enough to
// walk the parent chain without holding the full decoded record in memory.
type pathCacheEntry struct {
	Name              string
	ParentEntryNumber uint64
	ParentSequenceNum uint16
	SequenceNumber    uint16
	IsDirectory       bool
}

// PathResolver builds an entry# → (name, parent_ref) cache from decoded MFT
// records during the MFT pass, then answers full-path lookups for both the
// MFT pass itself (include_path) and the later USN pass.
//
// The cache is the only unbounded structure in the pipeline, sized to the
// number of MFT entries; it is populated once and never mutated after the
// MFT pass completes.
type PathResolver struct {
	cache map[uint64]pathCacheEntry
}

// NewPathResolver returns an empty resolver ready to be fed via Index.
func NewPathResolver() *PathResolver {
	return &PathResolver{cache: make(map[uint64]pathCacheEntry)}
}

// Index records one decoded MFT record's name and parent reference in the
// cache. Called once per entry during the MFT pass, in any order.
func (r *PathResolver) Index(rec *record.MftRecord) {
	if rec.Corrupt || rec.FileName == "" {
		return
	}
	r.cache[rec.EntryNumber] = pathCacheEntry{
		Name:              rec.FileName,
		ParentEntryNumber: rec.ParentEntryNumber,
		ParentSequenceNum: rec.ParentSequenceNum,
		SequenceNumber:    rec.SequenceNumber,
		IsDirectory:       rec.IsDirectory,
	}
}

// Resolve builds the full path for entryNumber, given the sequence number
// the caller observed it under (e.g. a USN record's file reference). This
// is the StaleParent resolution for the top-level lookup: if the cached
// entry's sequence number doesn't match what the caller expected, the entry
// slot has since been reused for a different file, and Resolve returns
// ("", false, false) rather than silently building a path against the new
// occupant — the caller falls back to the bare name it already has.
//
// Once the top-level entry checks out, climbing further up the parent
// chain applies the separate orphan rule from §4.6: a stale ancestor (its
// cached sequence number no longer matches the reference the child
// recorded) still contributes a path, prefixed with "<orphan>", since by
// that point the leaf entry itself is known-good and a best-effort path is
// more useful than none.
//
// If the parent chain loops back on an entry already visited, climbing
// stops immediately and the third return value is true: a cyclic chain
// can't be trusted to describe a real directory nesting, so the path
// collapses to "<cycle>/" plus entryNumber's own name rather than the
// (meaningless) partial chain climbed so far.
func (r *PathResolver) Resolve(entryNumber uint64, sequenceNumber uint16) (path string, ok bool, cycle bool) {
	entry, ok := r.cache[entryNumber]
	if !ok {
		return "", false, false
	}
	if entry.SequenceNumber != sequenceNumber {
		return "", false, false
	}

	segments := []string{entry.Name}
	visited := map[uint64]bool{entryNumber: true}
	orphaned := false

	cur := entry
	for cur.ParentEntryNumber != RootDirectoryEntry && cur.ParentEntryNumber != 0 {
		if len(visited) > maxPathDepth {
			break
		}
		if visited[cur.ParentEntryNumber] {
			// PathCycle: the chain loops back on itself. Report just the
			// entry's own name under a "<cycle>" marker instead of the
			// partial chain, so a cycle can never be mistaken for a real
			// path.
			return "<cycle>/" + entry.Name, true, true
		}

		parent, ok := r.cache[cur.ParentEntryNumber]
		if !ok {
			break
		}
		if parent.SequenceNumber != cur.ParentSequenceNum {
			// Stale ancestor: its slot was reused since this child recorded
			// the reference. Still contributes a segment, but the whole
			// path is marked orphaned and climbing stops here.
			orphaned = true
			visited[cur.ParentEntryNumber] = true
			segments = append(segments, parent.Name)
			break
		}

		visited[cur.ParentEntryNumber] = true
		segments = append(segments, parent.Name)
		cur = parent
	}

	reversed := make([]string, len(segments))
	for i, s := range segments {
		reversed[len(segments)-1-i] = s
	}
	path = "\\" + strings.Join(reversed, "\\")
	if orphaned {
		path = "<orphan>" + path
	}
	return path, true, false
}

// ResolveRecord is a convenience wrapper that fills in rec.FullPath from the
// resolver's cache, using rec's own (entry, sequence) as the lookup key. A
// detected path cycle also appends a record.KindPathCycle note, so a
// cycle-truncated path never looks indistinguishable from a real one.
func (r *PathResolver) ResolveRecord(rec *record.MftRecord) {
	if rec.Corrupt {
		return
	}
	path, ok, cycle := r.Resolve(rec.EntryNumber, rec.SequenceNumber)
	if !ok {
		return
	}
	rec.FullPath = path
	if cycle {
		rec.Note = appendNote(rec.Note, record.KindPathCycle.String())
	}
}

package ntfs

import (
	"fmt"
	"io"
	"strings"

	"github.com/ostafen/ntfstriage/internal/record"
)

// extendDirectoryName is the well-known child of $ROOT that holds
// $UsnJrnl, $ObjId, $Quota and $Reparse on an NTFS volume.
const extendDirectoryName = "$Extend"

// ArtifactSpec describes one of the three system artifacts ArtifactExtractor
// knows how to reconstruct: where its bytes live, and whether they are
// inline (resident) or reached through data runs (non-resident).
type ArtifactSpec struct {
	Name         string
	EntryNumber  uint64
	Resident     bool
	ResidentData []byte
	Runs         []AbsoluteRun
	Size         int64
}

// ArtifactExtractor reconstitutes the full byte streams of $MFT, $LogFile
// and $UsnJrnl:$J by walking their data runs, the way MftReader already
// does for arbitrary MFT entries — it simply targets the three
// well-known system files instead of an analyst-chosen entry number.
type ArtifactExtractor struct {
	reader *MftReader
	vol    *Volume
}

// NewArtifactExtractor builds an extractor over an already-bootstrapped
// MftReader and the volume it reads from.
func NewArtifactExtractor(reader *MftReader, vol *Volume) *ArtifactExtractor {
	return &ArtifactExtractor{reader: reader, vol: vol}
}

// LocateMFT returns the $MFT artifact spec. Its runs are already known from
// MftReader's own bootstrap, so no directory lookup is needed.
func (x *ArtifactExtractor) LocateMFT() (ArtifactSpec, error) {
	return ArtifactSpec{
		Name:        "$MFT",
		EntryNumber: 0,
		Runs:        x.reader.MftRuns(),
		Size:        x.reader.MftSize(),
	}, nil
}

// LocateLogFile resolves $ROOT\$LogFile and returns its unnamed $DATA spec.
func (x *ArtifactExtractor) LocateLogFile() (ArtifactSpec, error) {
	ref, err := ResolveSystemFile(x.reader, x.vol, "$LogFile")
	if err != nil {
		return ArtifactSpec{}, fmt.Errorf("ntfs: locating $LogFile: %w", err)
	}
	return x.unnamedDataSpec("$LogFile", ref, "")
}

// LocateUsnJrnl resolves $ROOT\$Extend\$UsnJrnl and returns the $DATA
// attribute named "$J" (compared case-insensitively, per the NTFS
// $UpCase-collation convention the spec calls for).
func (x *ArtifactExtractor) LocateUsnJrnl() (ArtifactSpec, error) {
	ref, err := ResolveSystemFile(x.reader, x.vol, extendDirectoryName, "$UsnJrnl")
	if err != nil {
		return ArtifactSpec{}, fmt.Errorf("ntfs: locating $Extend\\$UsnJrnl: %w", err)
	}
	return x.unnamedDataSpec("$UsnJrnl:$J", ref, "$J")
}

// unnamedDataSpec reads entry ref.EntryNumber and returns the spec for its
// $DATA attribute matching streamName (case-insensitively); an empty
// streamName matches the unnamed (primary) $DATA stream.
func (x *ArtifactExtractor) unnamedDataSpec(artifactName string, ref FileReference, streamName string) (ArtifactSpec, error) {
	rec, err := x.reader.ReadEntry(ref.EntryNumber)
	if err != nil {
		return ArtifactSpec{}, fmt.Errorf("ntfs: reading entry %d for %s: %w", ref.EntryNumber, artifactName, err)
	}
	if rec.SequenceNumber != ref.SequenceNumber {
		return ArtifactSpec{}, record.NewError(record.KindStaleParent, fmt.Sprintf("%s: entry %d sequence mismatch (expected %d, found %d)", artifactName, ref.EntryNumber, ref.SequenceNumber, rec.SequenceNumber), nil)
	}

	var match *Attribute
	for _, attr := range rec.FindAttributes(AttributeTypeData) {
		if strings.EqualFold(attr.Name, streamName) {
			a := attr
			match = &a
			break
		}
	}
	if match == nil {
		return ArtifactSpec{}, fmt.Errorf("ntfs: entry %d has no $DATA stream named %q for %s", ref.EntryNumber, streamName, artifactName)
	}

	spec := ArtifactSpec{
		Name:        artifactName,
		EntryNumber: ref.EntryNumber,
		Size:        int64(match.ActualSize),
	}
	if match.Resident {
		spec.Resident = true
		spec.ResidentData = match.Data
		return spec, nil
	}

	runs, err := ParseDataRuns(match.Data)
	if err != nil {
		return ArtifactSpec{}, fmt.Errorf("ntfs: parsing %s data runs: %w", artifactName, err)
	}
	spec.Runs = AbsoluteRuns(runs)
	return spec, nil
}

// ExtractionResult summarizes one artifact extraction: bytes actually
// written (including sparse zero-fill) and how much of that was sparse.
type ExtractionResult struct {
	BytesWritten int64
	SparseBytes  int64
	RunCount     int
}

// Extract streams spec's bytes to w, zero-filling sparse runs in place so
// that downstream byte offsets (crucial for $UsnJrnl:$J, which typically
// begins with a very large sparse region) line up with their on-disk
// positions.
func (x *ArtifactExtractor) Extract(spec ArtifactSpec, w io.Writer) (ExtractionResult, error) {
	if spec.Resident {
		n, err := w.Write(spec.ResidentData)
		return ExtractionResult{BytesWritten: int64(n)}, err
	}

	result := ExtractionResult{RunCount: len(spec.Runs)}
	clusterSize := int64(x.vol.ClusterSize)
	remaining := spec.Size

	zero := make([]byte, clusterSize)

	for _, run := range spec.Runs {
		if remaining <= 0 {
			break
		}
		runBytes := int64(run.Length) * clusterSize
		if runBytes > remaining {
			runBytes = remaining
		}

		if run.Sparse {
			n, err := writeZeros(w, zero, runBytes)
			result.BytesWritten += n
			result.SparseBytes += n
			remaining -= n
			if err != nil {
				return result, fmt.Errorf("ntfs: writing sparse region for %s: %w", spec.Name, err)
			}
			continue
		}

		clustersToRead := (runBytes + clusterSize - 1) / clusterSize
		data, err := x.vol.ReadCluster(run.LCN, uint64(clustersToRead))
		if err != nil {
			return result, fmt.Errorf("ntfs: reading cluster run for %s: %w", spec.Name, err)
		}
		if int64(len(data)) > runBytes {
			data = data[:runBytes]
		}
		n, err := w.Write(data)
		result.BytesWritten += int64(n)
		remaining -= int64(n)
		if err != nil {
			return result, fmt.Errorf("ntfs: writing %s: %w", spec.Name, err)
		}
	}

	return result, nil
}

// writeZeros writes n zero bytes to w using buf as scratch space (reused
// across calls to avoid allocating a buffer as large as the sparse region).
func writeZeros(w io.Writer, buf []byte, n int64) (int64, error) {
	var written int64
	for written < n {
		chunk := int64(len(buf))
		if remaining := n - written; remaining < chunk {
			chunk = remaining
		}
		wn, err := w.Write(buf[:chunk])
		written += int64(wn)
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

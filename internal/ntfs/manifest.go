package ntfs

import (
	"io"
	"time"

	"github.com/ostafen/ntfstriage/pkg/dfxml"
)

// ArtifactManifestEntry is one row of an ExtractionManifest, describing a
// single reconstructed artifact.
type ArtifactManifestEntry struct {
	Name        string
	EntryNumber uint64
	SizeBytes   uint64
	RunCount    int
	SparseBytes uint64
}

// NewArtifactManifestEntry summarizes one completed extraction.
func NewArtifactManifestEntry(spec ArtifactSpec, result ExtractionResult) ArtifactManifestEntry {
	return ArtifactManifestEntry{
		Name:        spec.Name,
		EntryNumber: spec.EntryNumber,
		SizeBytes:   uint64(result.BytesWritten),
		RunCount:    result.RunCount,
		SparseBytes: uint64(result.SparseBytes),
	}
}

// Manifest is what `extract`/`extract_analyze` write alongside the
// reconstructed artifacts, in the style of the carve-report writer this
// repository's DFXML package was originally built for, scoped down to the
// three named NTFS system artifacts instead of arbitrary carved files.
type Manifest struct {
	ImagePath      string
	PartitionIndex int
	ToolVersion    string
	StartedAt      time.Time
	FinishedAt     time.Time
	Artifacts      []ArtifactManifestEntry
}

// WriteManifest renders m as a DFXML document to w.
func WriteManifest(w io.Writer, m Manifest) error {
	writer := dfxml.NewDFXMLWriter(w)

	err := writer.WriteHeader(dfxml.DFXMLHeader{
		XmlOutput: dfxml.XmlOutputVersion,
		Metadata:  dfxml.DefaultMetadata,
		Creator: dfxml.Creator{
			Package:              "ntfstriage",
			Version:              m.ToolVersion,
			ExecutionEnvironment: dfxml.GetExecEnv(),
		},
		Source: dfxml.Source{
			ImageFilename:  m.ImagePath,
			PartitionIndex: m.PartitionIndex,
			StartedAt:      m.StartedAt.UTC().Format(time.RFC3339),
			FinishedAt:     m.FinishedAt.UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return err
	}

	for _, a := range m.Artifacts {
		if err := writer.WriteArtifactObject(dfxml.ArtifactObject{
			Name:        a.Name,
			EntryNumber: a.EntryNumber,
			SizeBytes:   a.SizeBytes,
			RunCount:    a.RunCount,
			SparseBytes: a.SparseBytes,
		}); err != nil {
			return err
		}
	}

	return writer.Close()
}

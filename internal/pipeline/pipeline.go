// Package pipeline orchestrates the extract/parse/analyze operations over
// a disk image: opening the image source, locating the NTFS partition,
// bootstrapping the MFT reader, and driving decoded records to a
// pkg/sink.RecordSink while reporting progress — the same session/
// logger/progress wiring shape the carving pipeline this tool grew out of
// used for its own scan loop, retargeted at MFT/USN/LogFile decoding
// instead of file-signature carving.
package pipeline

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ostafen/ntfstriage/internal/disk"
	"github.com/ostafen/ntfstriage/internal/env"
	"github.com/ostafen/ntfstriage/internal/image"
	"github.com/ostafen/ntfstriage/internal/logfile"
	"github.com/ostafen/ntfstriage/internal/logger"
	"github.com/ostafen/ntfstriage/internal/ntfs"
	"github.com/ostafen/ntfstriage/internal/progress"
	"github.com/ostafen/ntfstriage/internal/record"
	"github.com/ostafen/ntfstriage/internal/usnjrnl"
	"github.com/ostafen/ntfstriage/pkg/sink"
	osutil "github.com/ostafen/ntfstriage/pkg/util/os"
)

// GenSessionID returns a timestamp-based identifier for one pipeline run,
// suitable for naming a session's log file or output directory.
func GenSessionID() string {
	return time.Now().Format("20060102_150405")
}

// FormatDurationHMS renders d as "HH:MM:SS", or a fractional-seconds form
// for sub-second durations.
func FormatDurationHMS(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
	total := int64(d.Seconds())
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// Options configures a single pipeline run.
type Options struct {
	ImagePath string
	// PartitionIndex selects which discovered partition to open; -1 (the
	// zero Options value's default once set by the caller) auto-selects
	// the first NTFS partition found, falling back to a lone partition of
	// any type for a raw single-volume capture.
	PartitionIndex int
	// IncludePath requests full-path resolution on parse_mft output.
	// analyze always resolves paths regardless of this flag.
	IncludePath bool
	// UseMmap opens ImagePath through a memory-mapped Source instead of
	// read(2)-backed reads. Only meaningful for a local raw/DD image file;
	// ignored implicitly for anything image.OpenMmap can't map (falls back
	// to image.Open's error, which the caller sees directly).
	UseMmap   bool
	SessionID string
	Sink      sink.RecordSink
	Progress  progress.Reporter
	Logger    *logger.Logger
}

func (o *Options) setDefaults() {
	if o.Progress == nil {
		o.Progress = progress.NoOp
	}
	if o.Logger == nil {
		o.Logger = logger.New(io.Discard, logger.InfoLevel)
	}
	if o.SessionID == "" {
		o.SessionID = GenSessionID()
	}
}

// Stats summarizes one completed operation.
type Stats struct {
	SessionID      string
	RecordsDecoded int
	CorruptRecords int
	Duration       time.Duration
}

// Pipeline binds an opened image, its selected NTFS volume, and the
// decoding components every operation shares.
type Pipeline struct {
	opts      Options
	src       image.Source
	partition disk.Partition
	vol       *ntfs.Volume
	mftReader *ntfs.MftReader
	decoder   *ntfs.Decoder
	extractor *ntfs.ArtifactExtractor
}

// Open opens the image at opts.ImagePath, locates its NTFS partition, and
// bootstraps the MFT reader that every operation reads through. The
// returned Pipeline's Close must be called once the caller is done with it.
func Open(opts Options) (*Pipeline, error) {
	opts.setDefaults()

	var src image.Source
	var err error
	if opts.UseMmap {
		src, err = image.OpenMmap(opts.ImagePath)
	} else {
		src, err = image.Open(opts.ImagePath)
	}
	if err != nil {
		return nil, err
	}

	partitions, err := DiscoverPartitions(src)
	if err != nil {
		src.Close()
		return nil, err
	}

	part, err := selectPartition(partitions, opts.PartitionIndex)
	if err != nil {
		src.Close()
		return nil, err
	}
	opts.Logger.Infof("session %s: selected partition %d at byte offset %d (%d bytes)",
		opts.SessionID, part.Index, part.StartOffsetByte, part.LengthByte)

	vol, err := ntfs.OpenVolume(src, int64(part.StartOffsetByte))
	if err != nil {
		src.Close()
		return nil, err
	}

	mftReader, err := ntfs.NewMftReader(vol)
	if err != nil {
		src.Close()
		return nil, err
	}

	return &Pipeline{
		opts:      opts,
		src:       src,
		partition: part,
		vol:       vol,
		mftReader: mftReader,
		decoder:   ntfs.NewDecoder(mftReader),
		extractor: ntfs.NewArtifactExtractor(mftReader, vol),
	}, nil
}

// Close releases the underlying image source.
func (p *Pipeline) Close() error {
	return p.src.Close()
}

// Partition returns the partition this pipeline opened the volume from.
func (p *Pipeline) Partition() disk.Partition {
	return p.partition
}

func (p *Pipeline) mftEntryCount() uint64 {
	return uint64(p.mftReader.MftSize()) / uint64(p.vol.MftEntrySize)
}

// ParseMFT decodes every MFT entry and writes it to opts.Sink. When
// opts.IncludePath is set, it first runs a build-only pass over the whole
// MFT to populate a PathResolver (every parent reference must be known
// before any full path can be resolved), then a second pass that decodes
// entries again and resolves their FullPath before emitting them.
func (p *Pipeline) ParseMFT(ctx context.Context) (Stats, error) {
	start := time.Now()
	total := p.mftEntryCount()
	stats := Stats{SessionID: p.opts.SessionID}

	var resolver *ntfs.PathResolver
	if p.opts.IncludePath {
		resolver = ntfs.NewPathResolver()
		if err := p.indexAllEntries(ctx, resolver, total); err != nil {
			return stats, err
		}
	}

	p.opts.Logger.Infof("session %s: parse_mft: decoding %d entries", p.opts.SessionID, total)
	p.opts.Progress.Begin(int64(total) * int64(p.vol.MftEntrySize))
	for n := uint64(0); n < total; n++ {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		rec, _ := p.decoder.DecodeEntry(n)
		if resolver != nil {
			resolver.ResolveRecord(rec)
		}
		if rec.Corrupt {
			stats.CorruptRecords++
		}
		if err := p.opts.Sink.WriteMft(*rec); err != nil {
			return stats, fmt.Errorf("pipeline: writing MFT entry %d: %w", n, err)
		}
		stats.RecordsDecoded++
		p.opts.Progress.Advance(int64(p.vol.MftEntrySize), true)
	}
	p.opts.Progress.End()

	stats.Duration = time.Since(start)
	return stats, nil
}

// indexAllEntries decodes every MFT entry and indexes it into resolver,
// discarding the decoded record once indexed. This is the build-only pass
// ParseMFT's IncludePath and Analyze both need before any path can be
// resolved.
func (p *Pipeline) indexAllEntries(ctx context.Context, resolver *ntfs.PathResolver, total uint64) error {
	for n := uint64(0); n < total; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec, _ := p.decoder.DecodeEntry(n)
		resolver.Index(rec)
	}
	return nil
}

// materializeArtifact extracts spec's full byte stream into memory. Used
// by the single-shot parse_usnjrnl/parse_logfile/analyze operations, which
// need random access (io.ReaderAt) over the reconstructed stream rather
// than the one-shot sequential write Extract's normal callers perform.
func (p *Pipeline) materializeArtifact(spec ntfs.ArtifactSpec) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := p.extractor.Extract(spec, &buf); err != nil {
		return nil, fmt.Errorf("pipeline: materializing %s: %w", spec.Name, err)
	}
	return buf.Bytes(), nil
}

// MaterializeArtifacts reconstructs $MFT, $LogFile and $UsnJrnl:$J entirely
// in memory, keyed by artifact name. The mount command uses this to expose
// the three system artifacts as browsable files without a separate extract
// step to disk first.
func (p *Pipeline) MaterializeArtifacts() (map[string][]byte, error) {
	specs, err := p.artifactSpecs()
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(specs))
	for _, spec := range specs {
		data, err := p.materializeArtifact(spec)
		if err != nil {
			return nil, err
		}
		out[spec.Name] = data
	}
	return out, nil
}

// ParseUsnJrnl decodes $UsnJrnl:$J and writes each expanded event row to
// opts.Sink. FullPath is left empty; see Analyze for path-correlated USN
// output.
func (p *Pipeline) ParseUsnJrnl(ctx context.Context) (Stats, error) {
	return p.decodeUsnJrnl(ctx, nil)
}

// Analyze decodes $UsnJrnl:$J the same way ParseUsnJrnl does, but first
// indexes the whole MFT into a PathResolver and resolves each USN event's
// FullPath from it before writing to opts.Sink.
func (p *Pipeline) Analyze(ctx context.Context) (Stats, error) {
	resolver := ntfs.NewPathResolver()
	if err := p.indexAllEntries(ctx, resolver, p.mftEntryCount()); err != nil {
		return Stats{SessionID: p.opts.SessionID}, err
	}
	return p.decodeUsnJrnl(ctx, resolver)
}

func (p *Pipeline) decodeUsnJrnl(ctx context.Context, resolver *ntfs.PathResolver) (Stats, error) {
	start := time.Now()
	stats := Stats{SessionID: p.opts.SessionID}

	spec, err := p.extractor.LocateUsnJrnl()
	if err != nil {
		return stats, err
	}
	data, err := p.materializeArtifact(spec)
	if err != nil {
		return stats, err
	}

	dec := usnjrnl.NewDecoder(bytes.NewReader(data), int64(len(data)), int64(p.vol.ClusterSize))
	p.opts.Logger.Infof("session %s: decoding $UsnJrnl:$J (%d bytes)", p.opts.SessionID, len(data))
	p.opts.Progress.Begin(int64(len(data)))

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		raw, err := dec.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("pipeline: decoding $UsnJrnl:$J: %w", err)
		}

		for _, row := range usnjrnl.ExpandRecord(raw) {
			if resolver != nil {
				if path, ok, cycle := resolver.Resolve(row.FileReference.EntryNumber, row.FileReference.SequenceNum); ok {
					row.FullPath = path
					if cycle {
						if row.Note == "" {
							row.Note = record.KindPathCycle.String()
						} else {
							row.Note += "; " + record.KindPathCycle.String()
						}
					}
				}
			}
			if err := p.opts.Sink.WriteUsn(row); err != nil {
				return stats, fmt.Errorf("pipeline: writing USN record: %w", err)
			}
			stats.RecordsDecoded++
		}
		p.opts.Progress.Advance(int64(raw.RecordLength), true)
	}
	p.opts.Progress.End()

	stats.CorruptRecords = dec.CorruptionCount
	stats.Duration = time.Since(start)
	if dec.SparseSkipped > 0 {
		p.opts.Logger.Infof("session %s: skipped %d sparse bytes in $UsnJrnl:$J", p.opts.SessionID, dec.SparseSkipped)
	}
	return stats, nil
}

// ParseLogFile decodes $LogFile's restart area and record-area page
// headers, writing each page header to opts.Sink.
func (p *Pipeline) ParseLogFile(ctx context.Context) (Stats, error) {
	start := time.Now()
	stats := Stats{SessionID: p.opts.SessionID}

	spec, err := p.extractor.LocateLogFile()
	if err != nil {
		return stats, err
	}
	data, err := p.materializeArtifact(spec)
	if err != nil {
		return stats, err
	}

	w := logfile.NewWalker(bytes.NewReader(data), int64(len(data)))
	if _, err := w.ParseRestartPage(); err != nil {
		return stats, fmt.Errorf("pipeline: parsing $LogFile restart area: %w", err)
	}

	p.opts.Logger.Infof("session %s: walking $LogFile record area (%d bytes)", p.opts.SessionID, len(data))
	p.opts.Progress.Begin(int64(len(data)))
	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		page, err := w.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("pipeline: walking $LogFile: %w", err)
		}
		if page.Corrupt {
			stats.CorruptRecords++
		}
		if err := p.opts.Sink.WriteLogFile(page); err != nil {
			return stats, fmt.Errorf("pipeline: writing $LogFile page: %w", err)
		}
		stats.RecordsDecoded++
		p.opts.Progress.Advance(w.PageSize(), true)
	}
	p.opts.Progress.End()

	stats.Duration = time.Since(start)
	return stats, nil
}

// Extract reconstructs $MFT, $LogFile and $UsnJrnl:$J into outDir and
// writes a DFXML manifest describing each artifact alongside them, in the
// style of the carve-report writer this repository's dfxml package was
// originally built for.
func (p *Pipeline) Extract(ctx context.Context, outDir string) (Stats, error) {
	start := time.Now()
	stats := Stats{SessionID: p.opts.SessionID}

	if _, err := osutil.EnsureDir(outDir, false); err != nil {
		return stats, fmt.Errorf("pipeline: preparing output directory %q: %w", outDir, err)
	}

	specs, err := p.artifactSpecs()
	if err != nil {
		return stats, err
	}

	manifest := ntfs.Manifest{
		ImagePath:      p.opts.ImagePath,
		PartitionIndex: p.partition.Index,
		ToolVersion:    env.ToolVersion(),
		StartedAt:      start,
	}

	for _, spec := range specs {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		result, err := p.extractOne(outDir, spec)
		if err != nil {
			return stats, err
		}
		p.opts.Logger.Infof("session %s: extracted %s (%d bytes, %d sparse)",
			p.opts.SessionID, spec.Name, result.BytesWritten, result.SparseBytes)

		manifest.Artifacts = append(manifest.Artifacts, ntfs.NewArtifactManifestEntry(spec, result))
		stats.RecordsDecoded++
		p.opts.Progress.Advance(result.BytesWritten, true)
	}

	manifest.FinishedAt = time.Now()
	manifestFile, err := os.Create(filepath.Join(outDir, "manifest.xml"))
	if err != nil {
		return stats, fmt.Errorf("pipeline: creating manifest: %w", err)
	}
	defer manifestFile.Close()
	if err := ntfs.WriteManifest(manifestFile, manifest); err != nil {
		return stats, fmt.Errorf("pipeline: writing manifest: %w", err)
	}

	stats.Duration = time.Since(start)
	return stats, nil
}

func (p *Pipeline) extractOne(outDir string, spec ntfs.ArtifactSpec) (ntfs.ExtractionResult, error) {
	f, err := os.Create(filepath.Join(outDir, artifactFileName(spec.Name)))
	if err != nil {
		return ntfs.ExtractionResult{}, fmt.Errorf("pipeline: creating artifact file for %s: %w", spec.Name, err)
	}
	defer f.Close()

	bw := bufio.NewWriterSize(f, 1024*1024)
	result, err := p.extractor.Extract(spec, bw)
	if err != nil {
		return result, fmt.Errorf("pipeline: extracting %s: %w", spec.Name, err)
	}
	if err := bw.Flush(); err != nil {
		return result, fmt.Errorf("pipeline: flushing %s: %w", spec.Name, err)
	}
	return result, nil
}

func (p *Pipeline) artifactSpecs() ([]ntfs.ArtifactSpec, error) {
	mft, err := p.extractor.LocateMFT()
	if err != nil {
		return nil, err
	}
	logFile, err := p.extractor.LocateLogFile()
	if err != nil {
		return nil, err
	}
	usnJrnl, err := p.extractor.LocateUsnJrnl()
	if err != nil {
		return nil, err
	}
	return []ntfs.ArtifactSpec{mft, logFile, usnJrnl}, nil
}

func artifactFileName(name string) string {
	switch name {
	case "$MFT":
		return "MFT.bin"
	case "$LogFile":
		return "LogFile.bin"
	case "$UsnJrnl:$J":
		return "UsnJrnl_J.bin"
	default:
		return strings.Trim(name, "$:") + ".bin"
	}
}

// ExtractAnalyze reconstructs the three system artifacts into outDir (as
// Extract does) and, in the same run, decodes the path-correlated USN
// stream to opts.Sink (as Analyze does), combining both operations' stats.
func (p *Pipeline) ExtractAnalyze(ctx context.Context, outDir string) (Stats, error) {
	start := time.Now()

	extractStats, err := p.Extract(ctx, outDir)
	if err != nil {
		return extractStats, err
	}

	analyzeStats, err := p.Analyze(ctx)
	if err != nil {
		return extractStats, err
	}

	return Stats{
		SessionID:      p.opts.SessionID,
		RecordsDecoded: extractStats.RecordsDecoded + analyzeStats.RecordsDecoded,
		CorruptRecords: extractStats.CorruptRecords + analyzeStats.CorruptRecords,
		Duration:       time.Since(start),
	}, nil
}

// DiscoverPartitions inspects src for an MBR or GPT partition table and
// returns every partition found. A source with neither table recognized is
// reported as a single partition spanning the whole source, the way a raw
// single-volume NTFS capture (no partition table at all) is commonly made.
func DiscoverPartitions(src image.Source) ([]disk.Partition, error) {
	var sector [disk.NtfsBootSectorSize]byte
	if _, err := src.ReadAt(sector[:], 0); err != nil && err != io.EOF {
		return nil, fmt.Errorf("pipeline: reading sector 0: %w", err)
	}

	if mbr, err := disk.ParseMBR(sector[:]); err == nil {
		if mbr.PartitionEntries[0].PartitionType == disk.PartitionTypeGPT {
			if parts, err := discoverGPTPartitions(src); err == nil {
				return parts, nil
			}
		} else if parts := mbrPartitions(src, mbr); len(parts) > 0 {
			return parts, nil
		}
	}

	return []disk.Partition{fullDiskPartition(src)}, nil
}

func fullDiskPartition(src image.Source) disk.Partition {
	return disk.Partition{
		Index:           0,
		StartOffsetByte: 0,
		LengthByte:      uint64(src.Length()),
		IsNTFS:          probeNTFS(src, 0),
	}
}

func mbrPartitions(src image.Source, mbr *disk.MBR) []disk.Partition {
	var out []disk.Partition
	for i, e := range mbr.PartitionEntries {
		if e.PartitionType == disk.PartitionTypeEmpty {
			continue
		}
		length := uint64(e.ReadTotalSectors()) * disk.DefaultBlocksize
		if length == 0 {
			continue
		}
		offset := uint64(e.ReadStartLBA()) * disk.DefaultBlocksize
		out = append(out, disk.Partition{
			Index:           i,
			StartOffsetByte: offset,
			LengthByte:      length,
			TypeTag:         disk.TypeTag(e.PartitionType),
			IsNTFS:          e.PartitionType == disk.PartitionTypeNTFSHPFSexFATQNX && probeNTFS(src, int64(offset)),
		})
	}
	return out
}

// discoverGPTPartitions reads the GPT header at LBA 1 and its partition
// entry array, skipping unused entries.
func discoverGPTPartitions(src image.Source) ([]disk.Partition, error) {
	var headerBuf [512]byte
	if _, err := src.ReadAt(headerBuf[:], disk.DefaultBlocksize); err != nil && err != io.EOF {
		return nil, fmt.Errorf("pipeline: reading GPT header: %w", err)
	}
	hdr, err := disk.ParseGPTHeader(headerBuf[:])
	if err != nil {
		return nil, fmt.Errorf("pipeline: parsing GPT header: %w", err)
	}

	entrySize := hdr.EntrySize()
	if entrySize == 0 || entrySize > 1024 {
		return nil, fmt.Errorf("pipeline: implausible GPT partition entry size %d", entrySize)
	}

	var out []disk.Partition
	arrayOffset := int64(hdr.EntryArrayLBA()) * disk.DefaultBlocksize
	for i := uint32(0); i < hdr.NumberOfEntries(); i++ {
		buf := make([]byte, entrySize)
		if _, err := src.ReadAt(buf, arrayOffset+int64(i)*int64(entrySize)); err != nil && err != io.EOF {
			break
		}
		entry, err := disk.ParseGPTEntry(buf)
		if err != nil || entry.IsUnused() {
			continue
		}
		offset := entry.StartingLBA * disk.DefaultBlocksize
		length := (entry.EndingLBA - entry.StartingLBA + 1) * disk.DefaultBlocksize
		out = append(out, disk.Partition{
			Index:           int(i),
			StartOffsetByte: offset,
			LengthByte:      length,
			IsNTFS:          probeNTFS(src, int64(offset)),
		})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("pipeline: GPT header parsed but no used partition entries found")
	}
	return out, nil
}

func probeNTFS(src image.Source, offset int64) bool {
	var sector [512]byte
	if _, err := src.ReadAt(sector[:], offset); err != nil && err != io.EOF {
		return false
	}
	return disk.IsNTFS(sector[:])
}

// selectPartition picks the partition the pipeline should open: the one at
// index if index is non-negative, otherwise the first NTFS-flagged
// partition, falling back to a lone partition of any type (a raw capture
// with no recognizable NTFS boot sector signature at its start, which
// still deserves an attempt rather than an outright failure).
func selectPartition(parts []disk.Partition, index int) (disk.Partition, error) {
	if index >= 0 {
		for _, p := range parts {
			if p.Index == index {
				return p, nil
			}
		}
		return disk.Partition{}, record.NewError(record.KindNoNtfsPartition, fmt.Sprintf("no partition with index %d", index), nil)
	}
	for _, p := range parts {
		if p.IsNTFS {
			return p, nil
		}
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return disk.Partition{}, record.KindError(record.KindNoNtfsPartition)
}

// Package sink implements the three boundary record-sink formats the
// pipeline can write decoded records to: CSV, JSON, and SQLite.
package sink

import (
	"fmt"

	"github.com/ostafen/ntfstriage/internal/record"
)

// Format names one of the three supported sink encodings.
type Format string

const (
	FormatCSV    Format = "csv"
	FormatJSON   Format = "json"
	FormatSQLite Format = "sqlite"
)

// RecordSink receives decoded records of whichever kind a pipeline
// operation produces and commits them to the chosen output format.
// Callers write only the kinds their operation actually produces; a sink
// implementation that never sees WriteUsn, say, never creates that
// table/array/header.
type RecordSink interface {
	WriteMft(rec record.MftRecord) error
	WriteUsn(rec record.UsnRecord) error
	WriteLogFile(rec record.LogFileRecordPageHeader) error
	Close() error
}

// KV is one ordered field of a flattened record row. Order is preserved so
// CSV headers and column layout stay stable across rows of the same kind.
type KV struct {
	Key   string
	Value string
}

// MftFields flattens an MftRecord into its §3 field names, in header order.
func MftFields(r record.MftRecord) []KV {
	return []KV{
		{"entry_number", fmt.Sprintf("%d", r.EntryNumber)},
		{"sequence_number", fmt.Sprintf("%d", r.SequenceNumber)},
		{"in_use", fmt.Sprintf("%t", r.InUse)},
		{"is_directory", fmt.Sprintf("%t", r.IsDirectory)},
		{"file_name", r.FileName},
		{"parent_entry_number", fmt.Sprintf("%d", r.ParentEntryNumber)},
		{"parent_sequence_number", fmt.Sprintf("%d", r.ParentSequenceNum)},
		{"file_attr_flags", fmt.Sprintf("0x%X", r.FileAttrFlags)},
		{"si_created", r.SiTimes.Created.ISO8601()},
		{"si_modified", r.SiTimes.Modified.ISO8601()},
		{"si_mft_modified", r.SiTimes.MftModified.ISO8601()},
		{"si_accessed", r.SiTimes.Accessed.ISO8601()},
		{"fn_created", r.FnTimes.Created.ISO8601()},
		{"fn_modified", r.FnTimes.Modified.ISO8601()},
		{"fn_mft_modified", r.FnTimes.MftModified.ISO8601()},
		{"fn_accessed", r.FnTimes.Accessed.ISO8601()},
		{"data_size", fmt.Sprintf("%d", r.DataSize)},
		{"is_resident", fmt.Sprintf("%t", r.IsResident)},
		{"full_path", r.FullPath},
		{"corrupt", fmt.Sprintf("%t", r.Corrupt)},
		{"note", r.Note},
	}
}

// UsnFields flattens a UsnRecord into its §3 field names, in header order.
func UsnFields(r record.UsnRecord) []KV {
	return []KV{
		{"record_length", fmt.Sprintf("%d", r.RecordLength)},
		{"major_version", fmt.Sprintf("%d", r.MajorVersion)},
		{"minor_version", fmt.Sprintf("%d", r.MinorVersion)},
		{"entry_number", fmt.Sprintf("%d", r.FileReference.EntryNumber)},
		{"sequence_number", fmt.Sprintf("%d", r.FileReference.SequenceNum)},
		{"parent_entry_number", fmt.Sprintf("%d", r.ParentReference.EntryNumber)},
		{"parent_sequence_number", fmt.Sprintf("%d", r.ParentReference.SequenceNum)},
		{"usn", fmt.Sprintf("%d", r.Usn)},
		{"timestamp", r.Timestamp.ISO8601()},
		{"reason_flags", fmt.Sprintf("0x%X", r.ReasonFlags)},
		{"event", string(r.Event)},
		{"source_info_flags", fmt.Sprintf("0x%X", r.SourceInfoFlags)},
		{"security_id", fmt.Sprintf("%d", r.SecurityId)},
		{"file_attr_flags", fmt.Sprintf("0x%X", r.FileAttrFlags)},
		{"file_name", r.FileName},
		{"full_path", r.FullPath},
		{"corrupt", fmt.Sprintf("%t", r.Corrupt)},
		{"note", r.Note},
	}
}

// LogFileFields flattens a LogFileRecordPageHeader into its §3 field names.
func LogFileFields(r record.LogFileRecordPageHeader) []KV {
	return []KV{
		{"signature", r.Signature},
		{"page_number", fmt.Sprintf("%d", r.PageNumber)},
		{"last_lsn_or_file_offset", fmt.Sprintf("%d", r.LastLsnOrFileOffset)},
		{"flags", fmt.Sprintf("0x%X", r.Flags)},
		{"page_count", fmt.Sprintf("%d", r.PageCount)},
		{"page_position", fmt.Sprintf("%d", r.PagePosition)},
		{"next_record_offset", fmt.Sprintf("%d", r.NextRecordOffset)},
		{"corrupt", fmt.Sprintf("%t", r.Corrupt)},
		{"note", r.Note},
	}
}

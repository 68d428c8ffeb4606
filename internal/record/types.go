// Package record holds the decoded output types shared by the MFT and USN
// decoders and consumed, read-only, by the record sinks.
package record

// FileReference is an NTFS file reference: a 48-bit MFT entry number plus a
// 16-bit sequence number that increments each time the entry slot is reused.
type FileReference struct {
	EntryNumber uint64
	SequenceNum uint16
}

// Namespace is the $FILE_NAME attribute's namespace tag.
type Namespace uint8

const (
	NamespacePosix       Namespace = 0
	NamespaceWin32       Namespace = 1
	NamespaceDos         Namespace = 2
	NamespaceWin32AndDos Namespace = 3
)

// FileTimes bundles the four FILETIME fields NTFS tracks per timestamped
// attribute: creation, modification, MFT-modification and last access.
type FileTimes struct {
	Created      Timestamp
	Modified     Timestamp
	MftModified  Timestamp
	Accessed     Timestamp
}

// MftRecord is the decoded, analyst-facing representation of one MFT entry.
type MftRecord struct {
	EntryNumber        uint64
	SequenceNumber     uint16
	InUse              bool
	IsDirectory        bool
	FileName           string
	ParentEntryNumber  uint64
	ParentSequenceNum  uint16
	FileAttrFlags      uint32
	SiTimes            FileTimes
	FnTimes            FileTimes
	DataSize           uint64
	IsResident         bool
	FullPath           string
	Corrupt            bool
	Note               string
}

// UsnEventName identifies one decomposed reason-flag bit of a USN record.
type UsnEventName string

const (
	EventFileCreate      UsnEventName = "FILE_CREATE"
	EventFileDelete      UsnEventName = "FILE_DELETE"
	EventDataOverwrite   UsnEventName = "DATA_OVERWRITE"
	EventDataExtend      UsnEventName = "DATA_EXTEND"
	EventDataTruncation  UsnEventName = "DATA_TRUNCATION"
	EventSecurityChange  UsnEventName = "SECURITY_CHANGE"
	EventRenameOldName   UsnEventName = "RENAME_OLD_NAME"
	EventRenameNewName   UsnEventName = "RENAME_NEW_NAME"
	EventBasicInfoChange UsnEventName = "BASIC_INFO_CHANGE"
	EventClose           UsnEventName = "CLOSE"
)

// UsnRecord is the decoded representation of a single $J record, exploded
// into one row per set reason-flag bit (see UsnEventName).
type UsnRecord struct {
	RecordLength     uint32
	MajorVersion     uint16
	MinorVersion     uint16
	FileReference    FileReference
	ParentReference  FileReference
	Usn              uint64
	Timestamp        Timestamp
	ReasonFlags      uint32
	Event            UsnEventName
	SourceInfoFlags  uint32
	SecurityId       uint32
	FileAttrFlags    uint32
	FileName         string
	FullPath         string
	Corrupt          bool
	Note             string
}

// LogFileRestartPage is the decoded restart area at the start of a
// reconstructed $LogFile stream.
type LogFileRestartPage struct {
	Signature         string
	SystemPageSize    uint32
	LogPageSize       uint32
	RestartAreaOffset uint16
	CurrentLsn        uint64
}

// LogFileRecordPageHeader is one decoded "RCRD" page header from the
// $LogFile record area. Redo/undo log records within the page are not
// decoded; see the logfile package doc comment.
type LogFileRecordPageHeader struct {
	Signature            string
	LastLsnOrFileOffset  uint64
	Flags                uint32
	PageCount            uint16
	PagePosition         uint16
	NextRecordOffset     uint16
	PageNumber           uint64
	Corrupt              bool
	Note                 string
}

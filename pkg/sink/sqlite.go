package sink

import (
	"database/sql"
	"fmt"

	"github.com/ostafen/ntfstriage/internal/record"
	_ "modernc.org/sqlite"
)

// SQLiteSink writes one table per record kind, each with a btree index on
// the column the spec names: (entry_number) for MFT rows, (usn) for USN
// rows. Tables are created lazily, on first use, so a run that only ever
// decodes one kind leaves the database with a single table.
type SQLiteSink struct {
	db            *sql.DB
	mftReady      bool
	usnReady      bool
	logfileReady  bool
}

// NewSQLiteSink opens (creating if absent) the SQLite database at path.
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sink: opening sqlite database %s: %w", path, err)
	}
	return &SQLiteSink{db: db}, nil
}

func (s *SQLiteSink) ensureMftTable() error {
	if s.mftReady {
		return nil
	}
	const ddl = `
CREATE TABLE IF NOT EXISTS mft_records (
	entry_number INTEGER NOT NULL,
	sequence_number INTEGER NOT NULL,
	in_use INTEGER NOT NULL,
	is_directory INTEGER NOT NULL,
	file_name TEXT,
	parent_entry_number INTEGER,
	parent_sequence_number INTEGER,
	file_attr_flags INTEGER,
	si_created TEXT,
	si_modified TEXT,
	si_mft_modified TEXT,
	si_accessed TEXT,
	fn_created TEXT,
	fn_modified TEXT,
	fn_mft_modified TEXT,
	fn_accessed TEXT,
	data_size INTEGER,
	is_resident INTEGER,
	full_path TEXT,
	corrupt INTEGER,
	note TEXT
);
CREATE INDEX IF NOT EXISTS idx_mft_records_entry_number ON mft_records(entry_number);`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("sink: creating mft_records table: %w", err)
	}
	s.mftReady = true
	return nil
}

func (s *SQLiteSink) ensureUsnTable() error {
	if s.usnReady {
		return nil
	}
	const ddl = `
CREATE TABLE IF NOT EXISTS usn_records (
	record_length INTEGER,
	major_version INTEGER,
	minor_version INTEGER,
	entry_number INTEGER NOT NULL,
	sequence_number INTEGER,
	parent_entry_number INTEGER,
	parent_sequence_number INTEGER,
	usn INTEGER NOT NULL,
	timestamp TEXT,
	reason_flags INTEGER,
	event TEXT,
	source_info_flags INTEGER,
	security_id INTEGER,
	file_attr_flags INTEGER,
	file_name TEXT,
	full_path TEXT,
	corrupt INTEGER,
	note TEXT
);
CREATE INDEX IF NOT EXISTS idx_usn_records_usn ON usn_records(usn);`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("sink: creating usn_records table: %w", err)
	}
	s.usnReady = true
	return nil
}

func (s *SQLiteSink) ensureLogFileTable() error {
	if s.logfileReady {
		return nil
	}
	const ddl = `
CREATE TABLE IF NOT EXISTS logfile_pages (
	page_number INTEGER NOT NULL,
	signature TEXT,
	last_lsn_or_file_offset INTEGER,
	flags INTEGER,
	page_count INTEGER,
	page_position INTEGER,
	next_record_offset INTEGER,
	corrupt INTEGER,
	note TEXT
);
CREATE INDEX IF NOT EXISTS idx_logfile_pages_page_number ON logfile_pages(page_number);`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("sink: creating logfile_pages table: %w", err)
	}
	s.logfileReady = true
	return nil
}

func (s *SQLiteSink) WriteMft(rec record.MftRecord) error {
	if err := s.ensureMftTable(); err != nil {
		return err
	}
	_, err := s.db.Exec(`INSERT INTO mft_records (
		entry_number, sequence_number, in_use, is_directory, file_name,
		parent_entry_number, parent_sequence_number, file_attr_flags,
		si_created, si_modified, si_mft_modified, si_accessed,
		fn_created, fn_modified, fn_mft_modified, fn_accessed,
		data_size, is_resident, full_path, corrupt, note
	) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		rec.EntryNumber, rec.SequenceNumber, rec.InUse, rec.IsDirectory, rec.FileName,
		rec.ParentEntryNumber, rec.ParentSequenceNum, rec.FileAttrFlags,
		rec.SiTimes.Created.ISO8601(), rec.SiTimes.Modified.ISO8601(), rec.SiTimes.MftModified.ISO8601(), rec.SiTimes.Accessed.ISO8601(),
		rec.FnTimes.Created.ISO8601(), rec.FnTimes.Modified.ISO8601(), rec.FnTimes.MftModified.ISO8601(), rec.FnTimes.Accessed.ISO8601(),
		rec.DataSize, rec.IsResident, rec.FullPath, rec.Corrupt, rec.Note,
	)
	if err != nil {
		return fmt.Errorf("sink: inserting mft record %d: %w", rec.EntryNumber, err)
	}
	return nil
}

func (s *SQLiteSink) WriteUsn(rec record.UsnRecord) error {
	if err := s.ensureUsnTable(); err != nil {
		return err
	}
	_, err := s.db.Exec(`INSERT INTO usn_records (
		record_length, major_version, minor_version, entry_number, sequence_number,
		parent_entry_number, parent_sequence_number, usn, timestamp, reason_flags,
		event, source_info_flags, security_id, file_attr_flags, file_name,
		full_path, corrupt, note
	) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		rec.RecordLength, rec.MajorVersion, rec.MinorVersion, rec.FileReference.EntryNumber, rec.FileReference.SequenceNum,
		rec.ParentReference.EntryNumber, rec.ParentReference.SequenceNum, rec.Usn, rec.Timestamp.ISO8601(), rec.ReasonFlags,
		string(rec.Event), rec.SourceInfoFlags, rec.SecurityId, rec.FileAttrFlags, rec.FileName,
		rec.FullPath, rec.Corrupt, rec.Note,
	)
	if err != nil {
		return fmt.Errorf("sink: inserting usn record %d: %w", rec.Usn, err)
	}
	return nil
}

func (s *SQLiteSink) WriteLogFile(rec record.LogFileRecordPageHeader) error {
	if err := s.ensureLogFileTable(); err != nil {
		return err
	}
	_, err := s.db.Exec(`INSERT INTO logfile_pages (
		page_number, signature, last_lsn_or_file_offset, flags, page_count,
		page_position, next_record_offset, corrupt, note
	) VALUES (?,?,?,?,?,?,?,?,?)`,
		rec.PageNumber, rec.Signature, rec.LastLsnOrFileOffset, rec.Flags, rec.PageCount,
		rec.PagePosition, rec.NextRecordOffset, rec.Corrupt, rec.Note,
	)
	if err != nil {
		return fmt.Errorf("sink: inserting logfile page %d: %w", rec.PageNumber, err)
	}
	return nil
}

func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

package sink

import (
	"encoding/csv"
	"io"

	"github.com/ostafen/ntfstriage/internal/record"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVSink writes UTF-8-with-BOM, RFC-4180-quoted CSV with a single header
// row, built from the fields of the first row written. All rows go to the
// one underlying writer; rows of different record kinds are not split into
// separate files.
type CSVSink struct {
	raw       io.Writer
	w         *csv.Writer
	wrote     bool
}

// NewCSVSink wraps w. The BOM and header row are written lazily, on the
// first row, so an unused sink produces an empty file.
func NewCSVSink(w io.Writer) *CSVSink {
	return &CSVSink{raw: w, w: csv.NewWriter(w)}
}

func (s *CSVSink) writeRow(fields []KV) error {
	if !s.wrote {
		if _, err := s.raw.Write(utf8BOM); err != nil {
			return err
		}
		header := make([]string, len(fields))
		for i, f := range fields {
			header[i] = f.Key
		}
		if err := s.w.Write(header); err != nil {
			return err
		}
		s.wrote = true
	}
	row := make([]string, len(fields))
	for i, f := range fields {
		row[i] = f.Value
	}
	return s.w.Write(row)
}

func (s *CSVSink) WriteMft(rec record.MftRecord) error {
	return s.writeRow(MftFields(rec))
}

func (s *CSVSink) WriteUsn(rec record.UsnRecord) error {
	return s.writeRow(UsnFields(rec))
}

func (s *CSVSink) WriteLogFile(rec record.LogFileRecordPageHeader) error {
	return s.writeRow(LogFileFields(rec))
}

func (s *CSVSink) Close() error {
	s.w.Flush()
	return s.w.Error()
}

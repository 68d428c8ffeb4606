package sink

import (
	"fmt"
	"os"
)

// Open constructs the RecordSink named by format, writing to path. CSV and
// JSON sinks are backed by a freshly created file at path; the SQLite sink
// opens (and creates, if absent) a database file at path directly.
func Open(format Format, path string) (RecordSink, error) {
	switch format {
	case FormatCSV:
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("sink: creating %q: %w", path, err)
		}
		return &fileClosingSink{RecordSink: NewCSVSink(f), file: f}, nil
	case FormatJSON:
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("sink: creating %q: %w", path, err)
		}
		return &fileClosingSink{RecordSink: NewJSONSink(f), file: f}, nil
	case FormatSQLite:
		return NewSQLiteSink(path)
	default:
		return nil, fmt.Errorf("sink: unknown format %q", format)
	}
}

// fileClosingSink closes the underlying file after the wrapped sink has
// flushed its own framing (trailing "]" for JSON, csv.Writer.Flush for CSV).
type fileClosingSink struct {
	RecordSink
	file *os.File
}

func (s *fileClosingSink) Close() error {
	err := s.RecordSink.Close()
	if cerr := s.file.Close(); err == nil {
		err = cerr
	}
	return err
}

package sink

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ostafen/ntfstriage/internal/record"
)

// JSONSink streams a single JSON array, one object per record, in the
// manner of pkg/dfxml's WriteHeader/Close framing but for a JSON array
// instead of an XML document.
type JSONSink struct {
	w     io.Writer
	enc   *json.Encoder
	count int
	err   error
}

// NewJSONSink wraps w. The opening "[" is written lazily on the first row.
func NewJSONSink(w io.Writer) *JSONSink {
	return &JSONSink{w: w, enc: json.NewEncoder(w)}
}

func (s *JSONSink) writeObject(fields []KV) error {
	if s.err != nil {
		return s.err
	}
	if s.count == 0 {
		if _, err := fmt.Fprint(s.w, "["); err != nil {
			s.err = err
			return err
		}
	} else {
		if _, err := fmt.Fprint(s.w, ","); err != nil {
			s.err = err
			return err
		}
	}

	obj := make(map[string]string, len(fields))
	for _, f := range fields {
		obj[f.Key] = f.Value
	}
	if err := s.enc.Encode(obj); err != nil {
		s.err = err
		return err
	}
	s.count++
	return nil
}

func (s *JSONSink) WriteMft(rec record.MftRecord) error {
	return s.writeObject(MftFields(rec))
}

func (s *JSONSink) WriteUsn(rec record.UsnRecord) error {
	return s.writeObject(UsnFields(rec))
}

func (s *JSONSink) WriteLogFile(rec record.LogFileRecordPageHeader) error {
	return s.writeObject(LogFileFields(rec))
}

// Close writes the closing "]". An empty sink (no rows written) closes as
// "[]" so the output remains valid JSON even with zero records.
func (s *JSONSink) Close() error {
	if s.err != nil {
		return s.err
	}
	if s.count == 0 {
		_, err := fmt.Fprint(s.w, "[]")
		return err
	}
	_, err := fmt.Fprint(s.w, "]")
	return err
}

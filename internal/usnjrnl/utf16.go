package usnjrnl

import (
	"golang.org/x/text/encoding/unicode"
)

// decodeUTF16LE converts a $J record's embedded file name (UTF-16LE, no
// BOM) into a Go string. A fresh decoder is built per call since
// encoding.Decoder values aren't safe for concurrent reuse.
func decodeUTF16LE(b []byte) string {
	out, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(out)
}

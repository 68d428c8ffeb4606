package ntfs

import (
	"golang.org/x/text/encoding/unicode"
)

// decodeUTF16LE converts a UTF-16LE byte slice into a Go string. NTFS names
// carry no byte-order mark, so a fresh little-endian, BOM-ignoring decoder
// is built per call (decoders are not safe for concurrent reuse). On
// malformed input it
// falls back to a best-effort decode rather than failing the whole
// attribute parse, since a corrupt name should not prevent the rest of the
// record from being recovered.
func decodeUTF16LE(b []byte) string {
	out, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(out)
}

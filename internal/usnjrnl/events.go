package usnjrnl

import "github.com/ostafen/ntfstriage/internal/record"

// Reason flag bits recognized in a $J record's Reason field. Bits this
// package doesn't name (e.g. NAMED_DATA_EXTEND) are present in real
// journals but aren't part of the named event set the analyst sees.
const (
	ReasonDataOverwrite   uint32 = 0x00000001
	ReasonDataExtend      uint32 = 0x00000002
	ReasonDataTruncation  uint32 = 0x00000004
	ReasonFileCreate      uint32 = 0x00000100
	ReasonFileDelete      uint32 = 0x00000200
	ReasonSecurityChange  uint32 = 0x00000800
	ReasonRenameOldName   uint32 = 0x00001000
	ReasonRenameNewName   uint32 = 0x00002000
	ReasonBasicInfoChange uint32 = 0x00008000
	ReasonClose           uint32 = 0x80000000
)

// reasonEventOrder fixes the bit-scan order used when a record sets more
// than one reason bit, so the emitted rows are deterministic and match the
// order the bits are conventionally listed in.
var reasonEventOrder = []struct {
	Bit   uint32
	Event record.UsnEventName
}{
	{ReasonDataOverwrite, record.EventDataOverwrite},
	{ReasonDataExtend, record.EventDataExtend},
	{ReasonDataTruncation, record.EventDataTruncation},
	{ReasonFileCreate, record.EventFileCreate},
	{ReasonFileDelete, record.EventFileDelete},
	{ReasonSecurityChange, record.EventSecurityChange},
	{ReasonRenameOldName, record.EventRenameOldName},
	{ReasonRenameNewName, record.EventRenameNewName},
	{ReasonBasicInfoChange, record.EventBasicInfoChange},
	{ReasonClose, record.EventClose},
}

// Events decomposes a Reason bitmask into its named events, in
// reasonEventOrder. A reason field with no recognized bit set yields no
// events.
func Events(reasonFlags uint32) []record.UsnEventName {
	var events []record.UsnEventName
	for _, e := range reasonEventOrder {
		if reasonFlags&e.Bit != 0 {
			events = append(events, e.Event)
		}
	}
	return events
}

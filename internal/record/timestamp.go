package record

import "time"

// filetimeEpochOffsetSeconds is the number of seconds between the FILETIME
// epoch (1601-01-01 UTC) and the Unix epoch (1970-01-01 UTC).
const filetimeEpochOffsetSeconds = 11644473600

// displayOffset is the fixed UTC+9 offset the sink layer renders timestamps
// in, per the record sink contract.
var displayOffset = time.FixedZone("+09:00", 9*3600)

// Timestamp wraps a raw FILETIME (100-ns intervals since 1601-01-01 UTC) and
// renders it as the wall-clock string the record sinks expect.
type Timestamp struct {
	Filetime uint64
}

// Time returns the UTC instant this FILETIME represents.
func (t Timestamp) Time() time.Time {
	intervals := int64(t.Filetime)
	seconds := intervals/10_000_000 - filetimeEpochOffsetSeconds
	nanos := (intervals % 10_000_000) * 100
	return time.Unix(seconds, nanos).UTC()
}

// ISO8601 renders the timestamp in UTC+9 with the "+09:00" offset suffix.
func (t Timestamp) ISO8601() string {
	return t.Time().In(displayOffset).Format("2006-01-02T15:04:05.0000000-07:00")
}

// FiletimeFromTime converts a time.Time back into a FILETIME value, for any
// component that needs to synthesize one.
func FiletimeFromTime(t time.Time) uint64 {
	secs := t.Unix() + filetimeEpochOffsetSeconds
	intervals := secs*10_000_000 + int64(t.Nanosecond())/100
	return uint64(intervals)
}

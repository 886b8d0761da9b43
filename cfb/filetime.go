package cfb

import "time"

// filetimeEpochDelta is the number of seconds between the FILETIME epoch
// (January 1, 1601 UTC) and the Unix epoch.
const filetimeEpochDelta = 11644473600

// ParseFileTime converts a FILETIME value, the count of 100 nanosecond
// intervals since January 1, 1601 UTC, into a time.Time.
//
// Directory entries and property records use 0 for "not set", so 0 maps to
// the zero time.Time. That way the result can be checked using
// time.Time.IsZero.
func ParseFileTime(value uint64) time.Time {
	if value == 0 {
		return time.Time{}
	}

	seconds := int64(value/10_000_000) - filetimeEpochDelta
	nanos := int64(value%10_000_000) * 100
	return time.Unix(seconds, nanos).UTC()
}

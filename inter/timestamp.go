package inter

import (
	"math"
	"time"
)

// Timestamp is a ledger time in whole seconds since the Unix epoch.
// The host supplies it per call and guarantees it never decreases in commit order.
type Timestamp uint64

// FromUnix converts Unix seconds into a Timestamp. Negative values clamp to zero.
func FromUnix(sec int64) Timestamp {
	if sec < 0 {
		return 0
	}
	return Timestamp(sec)
}

// FromTime converts a wall-clock time into a Timestamp, truncating to the second.
func FromTime(t time.Time) Timestamp {
	return FromUnix(t.Unix())
}

// Seconds converts a time.Duration into a Timestamp span.
func Seconds(d time.Duration) Timestamp {
	if d <= 0 {
		return 0
	}
	return Timestamp(d / time.Second)
}

// Unix returns the timestamp as Unix seconds.
func (t Timestamp) Unix() int64 {
	return int64(t)
}

// Time returns the timestamp as a UTC time.Time.
func (t Timestamp) Time() time.Time {
	return time.Unix(int64(t), 0).UTC()
}

// Add returns t+d and false when the sum would not fit into 64 bits.
func (t Timestamp) Add(d Timestamp) (Timestamp, bool) {
	if uint64(t) > math.MaxUint64-uint64(d) {
		return 0, false
	}
	return t + d, true
}

package timex

import (
	"time"
)

// AlignTimeToWindow aligns t down to the start of the window of the given
// size, counting window boundaries from the Unix epoch.
func AlignTimeToWindow(t time.Time, size time.Duration) time.Time {
	if t.IsZero() {
		return t
	}
	offset := t.UnixNano() % int64(size)
	if offset < 0 {
		// Go's % keeps the dividend's sign; pre-epoch timestamps must
		// still round down to the earlier boundary.
		offset += int64(size)
	}
	return t.Add(time.Duration(-offset))
}

// AlignTime aligns time to the specified unit. When roundUp is true the
// result is rounded up to the next boundary, otherwise rounded down.
func AlignTime(t time.Time, timeUnit time.Duration, roundUp bool) time.Time {
	trunc := t.Truncate(timeUnit)
	if roundUp && !t.Equal(trunc) {
		return trunc.Add(timeUnit)
	}
	return trunc
}

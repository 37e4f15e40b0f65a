package etc

import (
	"time"

	"github.com/nrednav/cuid2"
)

func NewFreshID() string {
	return cuid2.Generate()
}

// NowMillis is the current time in epoch milliseconds, the unit used for
// every timestamp that gets persisted.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}

func MillisToTime(ms int64) time.Time {
	return time.UnixMilli(ms)
}

// MaxTime returns the later of a and b.
func MaxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

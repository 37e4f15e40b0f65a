package etc

import (
	"fmt"
	"time"
)

// SessionDate renders an epoch-ms session date for listings, with a day
// label for today and yesterday.
func SessionDate(ms int64, now time.Time) string {
	t := time.UnixMilli(ms).In(now.Location())

	y1, m1, d1 := t.Date()
	y2, m2, d2 := now.Date()
	today := time.Date(y2, m2, d2, 0, 0, 0, 0, now.Location())
	day := time.Date(y1, m1, d1, 0, 0, 0, 0, now.Location())

	switch today.Sub(day) {
	case 0:
		return fmt.Sprintf("Today %s", t.Format("15:04"))
	case 24 * time.Hour:
		return fmt.Sprintf("Yesterday %s", t.Format("15:04"))
	}
	return t.Format("2006-01-02 15:04")
}
